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

func signupTenant(t *testing.T, ds *store.MemoryStore) string {
	t.Helper()
	res, err := ds.CreateTenantSignup(context.Background(), store.TenantSignup{
		Name:              "Bright Smile",
		Subdomain:         "brightsmile",
		OrganizationType:  model.OrgDentalClinic,
		PlanType:          model.PlanFree,
		AdminName:         "Alex",
		AdminEmail:        "alex@example.com",
		AdminPasswordHash: "x",
	})
	require.NoError(t, err)
	return res.Tenant.ID
}

func TestGateOpenForFreshSignup(t *testing.T) {
	ds := store.NewMemoryStore(authz.Registry())
	tenantID := signupTenant(t, ds)
	gate := NewGate(ds)

	active, err := gate.IsTenantActive(context.Background(), tenantID)
	require.NoError(t, err)
	assert.True(t, active, "free signup carries a 30-day subscription")

	assert.NoError(t, gate.Check(context.Background(), tenantID, model.RoleDentist))
}

func TestGateClosedWithoutSubscription(t *testing.T) {
	ds := store.NewMemoryStore(authz.Registry())
	gate := NewGate(ds)

	active, err := gate.IsTenantActive(context.Background(), "no-such-tenant")
	require.NoError(t, err)
	assert.False(t, active)

	err = gate.Check(context.Background(), "no-such-tenant", model.RoleTenantAdmin)
	assert.ErrorIs(t, err, autherr.ErrSubscriptionInactive)
}

func TestGateClosedPastEndDate(t *testing.T) {
	ds := store.NewMemoryStore(authz.Registry())
	// Pin the store clock 31 days back so the free plan's 30-day window has
	// already elapsed by the time the gate (on the real clock) evaluates it.
	past := time.Now().Add(-31 * 24 * time.Hour)
	ds.Now = func() time.Time { return past }
	tenantID := signupTenant(t, ds)
	gate := NewGate(ds)

	active, err := gate.IsTenantActive(context.Background(), tenantID)
	require.NoError(t, err)
	assert.False(t, active, "end date in the past closes the gate even while is_active is still set")

	err = gate.Check(context.Background(), tenantID, model.RoleTenantAdmin)
	assert.ErrorIs(t, err, autherr.ErrSubscriptionInactive)
}

func TestGateSuperAdminBypass(t *testing.T) {
	ds := store.NewMemoryStore(authz.Registry())
	gate := NewGate(ds)

	// No subscription at all, yet the platform operator passes.
	assert.NoError(t, gate.Check(context.Background(), "no-such-tenant", model.RoleSuperAdmin))
}

func TestGateReopensAfterActivation(t *testing.T) {
	ds := store.NewMemoryStore(authz.Registry())
	past := time.Now().Add(-31 * 24 * time.Hour)
	ds.Now = func() time.Time { return past }
	tenantID := signupTenant(t, ds)
	ds.Now = time.Now
	gate := NewGate(ds)
	svc := NewService(ds)

	active, err := gate.IsTenantActive(context.Background(), tenantID)
	require.NoError(t, err)
	require.False(t, active)

	_, err = svc.Activate(context.Background(), ActivateInput{
		TenantID:  tenantID,
		PlanType:  string(model.PlanProfessional),
		IsActive:  true,
		AutoRenew: true,
	})
	require.NoError(t, err)

	active, err = gate.IsTenantActive(context.Background(), tenantID)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestOpenEndedSubscriptionStaysActive(t *testing.T) {
	ds := store.NewMemoryStore(authz.Registry())
	tenantID := signupTenant(t, ds)
	svc := NewService(ds)

	sub, err := svc.Activate(context.Background(), ActivateInput{
		TenantID: tenantID,
		PlanType: string(model.PlanEnterprise),
		IsActive: true,
	})
	require.NoError(t, err)
	require.Nil(t, sub.EndDate)

	assert.True(t, sub.ActiveAt(time.Now().AddDate(10, 0, 0)))
}
