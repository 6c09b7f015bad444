package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/justinmcgrath168/saas-dental-platform/internal/autherr"
	"github.com/justinmcgrath168/saas-dental-platform/internal/model"
)

func (s *GormStore) FindOrganizationByID(ctx context.Context, id string) (*model.Organization, error) {
	var org model.Organization
	err := s.db.WithContext(ctx).Preload("Tenant").First(&org, "id = ?", id).Error
	if err != nil {
		if notFound(err) {
			return nil, autherr.ErrNotFound
		}
		return nil, fmt.Errorf("find organization: %w", err)
	}
	return &org, nil
}

func (s *GormStore) ListOrganizations(ctx context.Context, tenantID string) ([]model.Organization, error) {
	var orgs []model.Organization
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Find(&orgs).Error
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	return orgs, nil
}

func (s *GormStore) CreateOrganization(ctx context.Context, org model.Organization) (*model.Organization, error) {
	if err := s.db.WithContext(ctx).Create(&org).Error; err != nil {
		return nil, fmt.Errorf("create organization: %w", err)
	}
	return &org, nil
}

func (s *GormStore) UpdateOrganization(ctx context.Context, org model.Organization) (*model.Organization, error) {
	res := s.db.WithContext(ctx).Model(&model.Organization{}).
		Where("id = ?", org.ID).
		Updates(map[string]interface{}{
			"name":     org.Name,
			"address":  org.Address,
			"city":     org.City,
			"state":    org.State,
			"zip_code": org.ZipCode,
			"country":  org.Country,
			"phone":    org.Phone,
			"email":    org.Email,
			"website":  org.Website,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("update organization: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, autherr.ErrNotFound
	}
	return s.FindOrganizationByID(ctx, org.ID)
}

func (s *GormStore) FindLocationByID(ctx context.Context, id string) (*model.Location, error) {
	var loc model.Location
	err := s.db.WithContext(ctx).First(&loc, "id = ?", id).Error
	if err != nil {
		if notFound(err) {
			return nil, autherr.ErrNotFound
		}
		return nil, fmt.Errorf("find location: %w", err)
	}
	return &loc, nil
}

func (s *GormStore) ListLocations(ctx context.Context, organizationID string) ([]model.Location, error) {
	var locs []model.Location
	err := s.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order("created_at ASC").
		Find(&locs).Error
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	return locs, nil
}

// CreateLocation creates a location. The first location of an organization
// is forced to be the main one so the invariant holds from the start.
func (s *GormStore) CreateLocation(ctx context.Context, loc model.Location) (*model.Location, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Location{}).Where("organization_id = ?", loc.OrganizationID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			loc.IsMain = true
		}
		return tx.Create(&loc).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create location: %w", err)
	}
	return &loc, nil
}

func (s *GormStore) UpdateLocation(ctx context.Context, loc model.Location) (*model.Location, error) {
	res := s.db.WithContext(ctx).Model(&model.Location{}).
		Where("id = ?", loc.ID).
		Updates(map[string]interface{}{
			"name":     loc.Name,
			"address":  loc.Address,
			"city":     loc.City,
			"state":    loc.State,
			"zip_code": loc.ZipCode,
			"country":  loc.Country,
			"phone":    loc.Phone,
			"email":    loc.Email,
			"is_main":  loc.IsMain,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("update location: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, autherr.ErrNotFound
	}
	return s.FindLocationByID(ctx, loc.ID)
}

func (s *GormStore) ListPermissionsByCode(ctx context.Context, codes []string) ([]model.Permission, error) {
	var perms []model.Permission
	err := s.db.WithContext(ctx).Where("code IN ?", codes).Find(&perms).Error
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	return perms, nil
}

// SeedPermissions makes sure a row exists for every catalog entry. Run at
// boot after migration; existing rows are left untouched.
func (s *GormStore) SeedPermissions(ctx context.Context, catalog map[string]string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for code, desc := range catalog {
			var count int64
			if err := tx.Model(&model.Permission{}).Where("code = ?", code).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			module := code
			for i := 0; i < len(code); i++ {
				if code[i] == ':' {
					module = code[:i]
					break
				}
			}
			if err := tx.Create(&model.Permission{
				Code:        code,
				Name:        desc,
				Description: desc,
				Module:      module,
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
