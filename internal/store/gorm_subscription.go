package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/justinmcgrath168/saas-dental-platform/internal/autherr"
	"github.com/justinmcgrath168/saas-dental-platform/internal/model"
)

func (s *GormStore) FindActiveSubscription(ctx context.Context, tenantID string) (*model.Subscription, error) {
	var sub model.Subscription
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Order("start_date DESC").
		First(&sub).Error
	if err != nil {
		if notFound(err) {
			return nil, autherr.ErrNotFound
		}
		return nil, fmt.Errorf("find active subscription: %w", err)
	}
	return &sub, nil
}

func (s *GormStore) ListSubscriptions(ctx context.Context, tenantID string) ([]model.Subscription, error) {
	var subs []model.Subscription
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("start_date DESC").
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return subs, nil
}

// ActivateSubscription records a new subscription for the tenant. When the
// new row is active, any prior active row is deactivated and end-dated in
// the same transaction so the tenant never has two active subscriptions.
func (s *GormStore) ActivateSubscription(ctx context.Context, in SubscriptionInput) (*model.Subscription, error) {
	sub := model.Subscription{
		TenantID:         in.TenantID,
		PlanType:         in.PlanType,
		StartDate:        in.StartDate,
		EndDate:          in.EndDate,
		IsActive:         in.IsActive,
		AutoRenew:        in.AutoRenew,
		PaymentMethod:    in.PaymentMethod,
		PaymentReference: in.PaymentReference,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Tenant{}).Where("id = ?", in.TenantID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return autherr.ErrNotFound
		}

		if in.IsActive {
			err := tx.Model(&model.Subscription{}).
				Where("tenant_id = ? AND is_active = ?", in.TenantID, true).
				Updates(map[string]interface{}{
					"is_active": false,
					"end_date":  in.StartDate,
				}).Error
			if err != nil {
				return err
			}
		}
		return tx.Create(&sub).Error
	})
	if err != nil {
		if errors.Is(err, autherr.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("activate subscription: %w", err)
	}
	return &sub, nil
}

// CancelSubscription deactivates a subscription and stamps its end date.
func (s *GormStore) CancelSubscription(ctx context.Context, tenantID, subscriptionID string) (*model.Subscription, error) {
	var sub model.Subscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&sub, "id = ?", subscriptionID).Error; err != nil {
			if notFound(err) {
				return autherr.ErrNotFound
			}
			return err
		}
		if sub.TenantID != tenantID {
			return autherr.ErrNotFound
		}
		now := tx.NowFunc()
		return tx.Model(&sub).Updates(map[string]interface{}{
			"is_active":  false,
			"auto_renew": false,
			"end_date":   now,
		}).Error
	})
	if err != nil {
		if errors.Is(err, autherr.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("cancel subscription: %w", err)
	}
	return &sub, nil
}
