package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/justinmcgrath168/saas-dental-platform/internal/autherr"
	"github.com/justinmcgrath168/saas-dental-platform/internal/model"
)

// GormStore implements Datastore against a gorm database handle.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an existing gorm handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func notFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// FindTenantBySubdomain looks up a tenant by its unique subdomain.
// Matching is exact; subdomains are stored lowercase.
func (s *GormStore) FindTenantBySubdomain(ctx context.Context, subdomain string) (*model.Tenant, error) {
	var tenant model.Tenant
	err := s.db.WithContext(ctx).Where("subdomain = ?", strings.ToLower(subdomain)).First(&tenant).Error
	if err != nil {
		if notFound(err) {
			return nil, autherr.ErrNotFound
		}
		return nil, fmt.Errorf("find tenant by subdomain: %w", err)
	}
	return &tenant, nil
}

func (s *GormStore) FindTenantByID(ctx context.Context, id string) (*model.Tenant, error) {
	var tenant model.Tenant
	err := s.db.WithContext(ctx).First(&tenant, "id = ?", id).Error
	if err != nil {
		if notFound(err) {
			return nil, autherr.ErrNotFound
		}
		return nil, fmt.Errorf("find tenant: %w", err)
	}
	return &tenant, nil
}

func (s *GormStore) ListTenants(ctx context.Context, search string, page, limit int) ([]model.Tenant, int64, error) {
	q := s.db.WithContext(ctx).Model(&model.Tenant{})
	if search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(subdomain) LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count tenants: %w", err)
	}

	var tenants []model.Tenant
	err := q.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&tenants).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list tenants: %w", err)
	}
	return tenants, total, nil
}

func (s *GormStore) UpdateTenant(ctx context.Context, id string, name *string, logoURL *string, primaryColor *string) (*model.Tenant, error) {
	var tenant model.Tenant
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&tenant, "id = ?", id).Error; err != nil {
			if notFound(err) {
				return autherr.ErrNotFound
			}
			return err
		}
		updates := map[string]interface{}{}
		if name != nil {
			updates["name"] = *name
		}
		if logoURL != nil {
			updates["logo_url"] = *logoURL
		}
		if primaryColor != nil {
			updates["primary_color"] = *primaryColor
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&tenant).Updates(updates).Error
	})
	if err != nil {
		if errors.Is(err, autherr.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update tenant: %w", err)
	}
	return &tenant, nil
}

// CreateTenantSignup creates the tenant, its initial subscription, a
// default organization with a main location, and the tenant-admin user
// with her seeded grants, all in one transaction.
func (s *GormStore) CreateTenantSignup(ctx context.Context, signup TenantSignup) (*SignupResult, error) {
	var result SignupResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Uniqueness checks inside the transaction so concurrent signups
		// cannot both pass.
		var count int64
		if err := tx.Model(&model.Tenant{}).Where("subdomain = ?", signup.Subdomain).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return autherr.ErrDuplicateResource
		}
		if err := tx.Model(&model.User{}).Where("email = ?", signup.AdminEmail).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return autherr.ErrDuplicateResource
		}

		tenant := model.Tenant{
			Name:         signup.Name,
			Subdomain:    signup.Subdomain,
			LogoURL:      signup.LogoURL,
			PrimaryColor: signup.PrimaryColor,
		}
		if err := tx.Create(&tenant).Error; err != nil {
			return err
		}

		sub := model.Subscription{
			TenantID:  tenant.ID,
			PlanType:  signup.PlanType,
			StartDate: tx.NowFunc(),
			IsActive:  true,
			AutoRenew: signup.PlanType != model.PlanFree,
		}
		if signup.PlanType == model.PlanFree {
			end := sub.StartDate.AddDate(0, 0, 30)
			sub.EndDate = &end
		}
		if err := tx.Create(&sub).Error; err != nil {
			return err
		}

		org := model.Organization{
			TenantID: tenant.ID,
			Name:     signup.Name,
			Type:     signup.OrganizationType,
		}
		if err := tx.Create(&org).Error; err != nil {
			return err
		}

		loc := model.Location{
			OrganizationID: org.ID,
			Name:           "Main Office",
			IsMain:         true,
		}
		if err := tx.Create(&loc).Error; err != nil {
			return err
		}

		hash := signup.AdminPasswordHash
		admin := model.User{
			Name:           signup.AdminName,
			Email:          signup.AdminEmail,
			Password:       &hash,
			Role:           model.RoleTenantAdmin,
			OrganizationID: org.ID,
			IsActive:       true,
		}
		if err := tx.Create(&admin).Error; err != nil {
			return err
		}

		if err := tx.Create(&model.UserLocation{
			UserID:     admin.ID,
			LocationID: loc.ID,
			IsPrimary:  true,
		}).Error; err != nil {
			return err
		}

		if err := grantPermissions(tx, admin.ID, signup.PermissionCodes); err != nil {
			return err
		}

		result = SignupResult{Tenant: tenant, Organization: org, Location: loc, Admin: admin}
		return nil
	})
	if err != nil {
		if errors.Is(err, autherr.ErrDuplicateResource) {
			return nil, err
		}
		return nil, fmt.Errorf("tenant signup: %w", err)
	}
	return &result, nil
}

// grantPermissions creates granted=true rows for every code, resolving
// codes to permission rows first so unknown codes fail the transaction.
func grantPermissions(tx *gorm.DB, userID string, codes []string) error {
	if len(codes) == 0 {
		return nil
	}
	var perms []model.Permission
	if err := tx.Where("code IN ?", codes).Find(&perms).Error; err != nil {
		return err
	}
	if len(perms) != len(codes) {
		return fmt.Errorf("unknown permission code in grant set")
	}
	for _, p := range perms {
		if err := tx.Create(&model.UserPermission{
			UserID:       userID,
			PermissionID: p.ID,
			Granted:      true,
		}).Error; err != nil {
			return err
		}
	}
	return nil
}
