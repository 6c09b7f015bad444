package subscription

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justinmcgrath168/saas-dental-platform/internal/autherr"
	"github.com/justinmcgrath168/saas-dental-platform/internal/authz"
	"github.com/justinmcgrath168/saas-dental-platform/internal/model"
	"github.com/justinmcgrath168/saas-dental-platform/internal/store"
)

func TestActivateRejectsUnknownPlan(t *testing.T) {
	ds := store.NewMemoryStore(authz.Registry())
	tenantID := signupTenant(t, ds)
	svc := NewService(ds)

	_, err := svc.Activate(context.Background(), ActivateInput{
		TenantID: tenantID,
		PlanType: "PLATINUM",
		IsActive: true,
	})
	assert.Error(t, err)
}

func TestActivateRejectsUnknownTenant(t *testing.T) {
	ds := store.NewMemoryStore(authz.Registry())
	svc := NewService(ds)

	_, err := svc.Activate(context.Background(), ActivateInput{
		TenantID: "no-such-tenant",
		PlanType: string(model.PlanStarter),
		IsActive: true,
	})
	assert.ErrorIs(t, err, autherr.ErrNotFound)
}

func TestActivateKeepsSingleActiveSubscription(t *testing.T) {
	ds := store.NewMemoryStore(authz.Registry())
	tenantID := signupTenant(t, ds)
	svc := NewService(ds)

	start := time.Now()
	upgraded, err := svc.Activate(context.Background(), ActivateInput{
		TenantID:  tenantID,
		PlanType:  string(model.PlanProfessional),
		StartDate: start,
		IsActive:  true,
		AutoRenew: true,
	})
	require.NoError(t, err)

	subs, err := svc.List(context.Background(), tenantID)
	require.NoError(t, err)
	require.Len(t, subs, 2, "signup row plus the upgrade")

	var activeCount int
	for _, sub := range subs {
		if sub.IsActive {
			activeCount++
			assert.Equal(t, upgraded.ID, sub.ID)
		} else {
			// The displaced row was end-dated with the new start.
			require.NotNil(t, sub.EndDate)
			assert.WithinDuration(t, start, *sub.EndDate, time.Second)
		}
	}
	assert.Equal(t, 1, activeCount)
}

func TestActivateInactiveRowLeavesCurrentAlone(t *testing.T) {
	ds := store.NewMemoryStore(authz.Registry())
	tenantID := signupTenant(t, ds)
	svc := NewService(ds)

	// Recording a future-dated inactive row must not displace the live one.
	future := time.Now().AddDate(0, 1, 0)
	_, err := svc.Activate(context.Background(), ActivateInput{
		TenantID:  tenantID,
		PlanType:  string(model.PlanEnterprise),
		StartDate: future,
		IsActive:  false,
	})
	require.NoError(t, err)

	current, err := ds.FindActiveSubscription(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Equal(t, model.PlanFree, current.PlanType)
}

func TestCancel(t *testing.T) {
	ds := store.NewMemoryStore(authz.Registry())
	tenantID := signupTenant(t, ds)
	svc := NewService(ds)

	current, err := ds.FindActiveSubscription(context.Background(), tenantID)
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), tenantID, current.ID)
	require.NoError(t, err)
	assert.False(t, cancelled.IsActive)
	assert.False(t, cancelled.AutoRenew)
	require.NotNil(t, cancelled.EndDate)
	assert.WithinDuration(t, time.Now(), *cancelled.EndDate, time.Second)

	_, err = ds.FindActiveSubscription(context.Background(), tenantID)
	assert.ErrorIs(t, err, autherr.ErrNotFound)
}

func TestCancelWrongTenant(t *testing.T) {
	ds := store.NewMemoryStore(authz.Registry())
	tenantID := signupTenant(t, ds)
	svc := NewService(ds)

	current, err := ds.FindActiveSubscription(context.Background(), tenantID)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), "other-tenant", current.ID)
	assert.ErrorIs(t, err, autherr.ErrNotFound)
}
