package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/justinmcgrath168/saas-dental-platform/internal/model"
	"github.com/justinmcgrath168/saas-dental-platform/internal/store"
)

// Service owns subscription lifecycle mutations for a tenant.
type Service struct {
	store store.Datastore
}

// NewService builds a subscription service over the datastore.
func NewService(ds store.Datastore) *Service {
	return &Service{store: ds}
}

// ActivateInput describes a subscription to record for a tenant.
type ActivateInput struct {
	TenantID         string
	PlanType         string
	StartDate        time.Time
	EndDate          *time.Time
	IsActive         bool
	AutoRenew        bool
	PaymentMethod    *string
	PaymentReference *string
}

// Activate records the subscription. When the new row is active the store
// deactivates and end-dates any prior active row in the same transaction,
// so at most one subscription per tenant is ever active.
func (s *Service) Activate(ctx context.Context, in ActivateInput) (*model.Subscription, error) {
	if !model.ValidPlanType(in.PlanType) {
		return nil, fmt.Errorf("unknown plan type %q", in.PlanType)
	}
	start := in.StartDate
	if start.IsZero() {
		start = time.Now()
	}
	return s.store.ActivateSubscription(ctx, store.SubscriptionInput{
		TenantID:         in.TenantID,
		PlanType:         model.PlanType(in.PlanType),
		StartDate:        start,
		EndDate:          in.EndDate,
		IsActive:         in.IsActive,
		AutoRenew:        in.AutoRenew,
		PaymentMethod:    in.PaymentMethod,
		PaymentReference: in.PaymentReference,
	})
}

// Cancel deactivates a subscription and stamps its end date.
func (s *Service) Cancel(ctx context.Context, tenantID, subscriptionID string) (*model.Subscription, error) {
	return s.store.CancelSubscription(ctx, tenantID, subscriptionID)
}

// List returns the tenant's subscriptions, newest first.
func (s *Service) List(ctx context.Context, tenantID string) ([]model.Subscription, error) {
	return s.store.ListSubscriptions(ctx, tenantID)
}
