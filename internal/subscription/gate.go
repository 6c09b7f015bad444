// Package subscription decides whether a tenant's subscription permits
// continued access, and owns subscription activation.
package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/justinmcgrath168/saas-dental-platform/internal/autherr"
	"github.com/justinmcgrath168/saas-dental-platform/internal/model"
	"github.com/justinmcgrath168/saas-dental-platform/internal/store"
)

// Gate answers the one question the middleware asks per tenant-scoped
// request: does this tenant currently have access?
type Gate struct {
	store store.Datastore
	now   func() time.Time
}

// NewGate builds a gate over the datastore.
func NewGate(ds store.Datastore) *Gate {
	return &Gate{store: ds, now: time.Now}
}

// IsTenantActive reports whether the tenant has a subscription that is
// flagged active and either open-ended or not yet past its end date.
func (g *Gate) IsTenantActive(ctx context.Context, tenantID string) (bool, error) {
	sub, err := g.store.FindActiveSubscription(ctx, tenantID)
	if err != nil {
		if errors.Is(err, autherr.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return sub.ActiveAt(g.now()), nil
}

// Check enforces the gate for a principal. SUPER_ADMIN bypasses
// unconditionally (the platform-operator override); everyone else on an
// inactive tenant gets ErrSubscriptionInactive, a hard block.
func (g *Gate) Check(ctx context.Context, tenantID string, role model.UserRole) error {
	if role == model.RoleSuperAdmin {
		return nil
	}
	active, err := g.IsTenantActive(ctx, tenantID)
	if err != nil {
		return err
	}
	if !active {
		return autherr.ErrSubscriptionInactive
	}
	return nil
}
