package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/justinmcgrath168/saas-dental-platform/internal/autherr"
	"github.com/justinmcgrath168/saas-dental-platform/internal/model"
)

func (s *GormStore) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).
		Preload("Organization.Tenant").
		Preload("Permissions.Permission").
		Where("email = ?", email).
		First(&user).Error
	if err != nil {
		if notFound(err) {
			return nil, autherr.ErrNotFound
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindUserWithPermissions loads a user together with its organization, the
// organization's tenant, its location rows, and its permission rows joined
// to the permission catalog.
func (s *GormStore) FindUserWithPermissions(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).
		Preload("Organization.Tenant").
		Preload("Locations.Location").
		Preload("Permissions.Permission").
		First(&user, "id = ?", id).Error
	if err != nil {
		if notFound(err) {
			return nil, autherr.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func (s *GormStore) ListUsers(ctx context.Context, filter UserFilter) ([]model.User, int64, error) {
	q := s.db.WithContext(ctx).Model(&model.User{})
	if filter.OrganizationID != "" {
		q = q.Where("organization_id = ?", filter.OrganizationID)
	}
	if filter.Role != "" {
		q = q.Where("role = ?", filter.Role)
	}
	if filter.IsActive != nil {
		q = q.Where("is_active = ?", *filter.IsActive)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	var users []model.User
	err := q.Preload("Organization").
		Preload("Locations.Location").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

// CreateUserWithAssociations creates the user and all its UserLocation and
// UserPermission rows in one transaction. A partial user is never
// observable by a concurrent reader.
func (s *GormStore) CreateUserWithAssociations(ctx context.Context, in NewUser) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.User{}).Where("email = ?", in.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return autherr.ErrDuplicateResource
		}

		user = model.User{
			Name:           in.Name,
			Email:          in.Email,
			Password:       in.PasswordHash,
			Role:           in.Role,
			OrganizationID: in.OrganizationID,
			IsActive:       in.IsActive,
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		if err := setLocations(tx, user.ID, in.OrganizationID, in.LocationIDs, in.PrimaryLocationID); err != nil {
			return err
		}
		return grantPermissions(tx, user.ID, in.PermissionCodes)
	})
	if err != nil {
		if errors.Is(err, autherr.ErrDuplicateResource) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return s.FindUserWithPermissions(ctx, user.ID)
}

// UpdateUser applies the given field updates, replacing location and
// permission associations when requested, atomically.
func (s *GormStore) UpdateUser(ctx context.Context, id string, update UserUpdate) (*model.User, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user model.User
		if err := tx.First(&user, "id = ?", id).Error; err != nil {
			if notFound(err) {
				return autherr.ErrNotFound
			}
			return err
		}

		updates := map[string]interface{}{}
		if update.Name != nil {
			updates["name"] = *update.Name
		}
		if update.Email != nil && *update.Email != user.Email {
			var count int64
			if err := tx.Model(&model.User{}).Where("email = ? AND id <> ?", *update.Email, id).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return autherr.ErrDuplicateResource
			}
			updates["email"] = *update.Email
		}
		if update.PasswordHash != nil {
			updates["password"] = *update.PasswordHash
		}
		if update.Role != nil {
			updates["role"] = *update.Role
		}
		if update.IsActive != nil {
			updates["is_active"] = *update.IsActive
		}
		if len(updates) > 0 {
			if err := tx.Model(&user).Updates(updates).Error; err != nil {
				return err
			}
		}

		if update.LocationIDs != nil {
			if err := tx.Where("user_id = ?", id).Delete(&model.UserLocation{}).Error; err != nil {
				return err
			}
			if err := setLocations(tx, id, user.OrganizationID, update.LocationIDs, update.PrimaryLocationID); err != nil {
				return err
			}
		}

		if update.ReplacePerms {
			if err := tx.Where("user_id = ?", id).Delete(&model.UserPermission{}).Error; err != nil {
				return err
			}
			if err := grantPermissions(tx, id, update.PermissionCodes); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, autherr.ErrNotFound) || errors.Is(err, autherr.ErrDuplicateResource) {
			return nil, err
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return s.FindUserWithPermissions(ctx, id)
}

// UpdateLastLogin stamps the last-login timestamp. Best-effort from the
// caller's point of view; failures must not block authentication.
func (s *GormStore) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	return s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Update("last_login", at).Error
}

// setLocations validates that every location belongs to the user's
// organization and creates the association rows, flagging at most one
// primary.
func setLocations(tx *gorm.DB, userID, organizationID string, locationIDs []string, primaryLocationID string) error {
	if len(locationIDs) == 0 {
		return nil
	}
	var locations []model.Location
	if err := tx.Where("id IN ? AND organization_id = ?", locationIDs, organizationID).Find(&locations).Error; err != nil {
		return err
	}
	if len(locations) != len(locationIDs) {
		return fmt.Errorf("one or more locations don't belong to the organization")
	}
	for _, locID := range locationIDs {
		if err := tx.Create(&model.UserLocation{
			UserID:     userID,
			LocationID: locID,
			IsPrimary:  locID == primaryLocationID,
		}).Error; err != nil {
			return err
		}
	}
	return nil
}
