package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justinmcgrath168/saas-dental-platform/internal/authz"
	"github.com/justinmcgrath168/saas-dental-platform/internal/model"
	"github.com/justinmcgrath168/saas-dental-platform/internal/session"
	"github.com/justinmcgrath168/saas-dental-platform/internal/store"
	"github.com/justinmcgrath168/saas-dental-platform/internal/subscription"
)

type tenantFixture struct {
	ds     *store.MemoryStore
	h      *TenantHandler
	signup *store.SignupResult
}

func newTenantFixture(t *testing.T) *tenantFixture {
	t.Helper()
	ds := store.NewMemoryStore(authz.Registry())
	res, err := ds.CreateTenantSignup(context.Background(), store.TenantSignup{
		Name:              "Bright Smile",
		Subdomain:         "brightsmile",
		OrganizationType:  model.OrgDentalClinic,
		PlanType:          model.PlanFree,
		AdminName:         "Alex",
		AdminEmail:        "alex@brightsmile.example",
		AdminPasswordHash: "x",
		PermissionCodes:   authz.DefaultPermissions(model.RoleTenantAdmin),
	})
	require.NoError(t, err)
	return &tenantFixture{ds: ds, h: NewTenantHandler(ds, subscription.NewService(ds)), signup: res}
}

func (f *tenantFixture) adminPrincipal() *session.Principal {
	return &session.Principal{
		UserID:         f.signup.Admin.ID,
		Role:           model.RoleTenantAdmin,
		OrganizationID: f.signup.Organization.ID,
		TenantID:       f.signup.Tenant.ID,
		Permissions:    authz.DefaultPermissions(model.RoleTenantAdmin),
	}
}

func superPrincipal() *session.Principal {
	return &session.Principal{
		UserID:      "root",
		Role:        model.RoleSuperAdmin,
		Permissions: authz.DefaultPermissions(model.RoleSuperAdmin),
	}
}

func (f *tenantFixture) do(t *testing.T, method, body string, p *session.Principal, handler echo.HandlerFunc, pathParams ...string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, "/api/tenants", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, "/api/tenants", nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if p != nil {
		c.Set("principal", p)
	}
	var names, values []string
	for i := 0; i+1 < len(pathParams); i += 2 {
		names = append(names, pathParams[i])
		values = append(values, pathParams[i+1])
	}
	if len(names) > 0 {
		c.SetParamNames(names...)
		c.SetParamValues(values...)
	}
	require.NoError(t, handler(c))
	return rec
}

func TestGetTenantScoping(t *testing.T) {
	f := newTenantFixture(t)
	id := f.signup.Tenant.ID

	// Own tenant is always readable.
	rec := f.do(t, http.MethodGet, "", f.adminPrincipal(), f.h.Get, "id", id)
	assert.Equal(t, http.StatusOK, rec.Code)

	// A foreign tenant is not, without tenants:view.
	foreign := f.adminPrincipal()
	foreign.TenantID = "some-other-tenant"
	rec = f.do(t, http.MethodGet, "", foreign, f.h.Get, "id", id)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// The platform operator reads anything.
	rec = f.do(t, http.MethodGet, "", superPrincipal(), f.h.Get, "id", id)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateTenantBranding(t *testing.T) {
	f := newTenantFixture(t)
	id := f.signup.Tenant.ID

	// The tenant admin updates their own tenant's branding.
	rec := f.do(t, http.MethodPut, `{"name": "Brighter Smile", "primary_color": "#00aaff"}`,
		f.adminPrincipal(), f.h.Update, "id", id)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	updated, err := f.ds.FindTenantByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Brighter Smile", updated.Name)
	require.NotNil(t, updated.PrimaryColor)
	assert.Equal(t, "#00aaff", *updated.PrimaryColor)

	// A principal from another tenant cannot.
	foreign := f.adminPrincipal()
	foreign.TenantID = "some-other-tenant"
	rec = f.do(t, http.MethodPut, `{"name": "Hijacked"}`, foreign, f.h.Update, "id", id)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// An empty name is rejected.
	rec = f.do(t, http.MethodPut, `{"name": ""}`, f.adminPrincipal(), f.h.Update, "id", id)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubscriptionEndpoints(t *testing.T) {
	f := newTenantFixture(t)
	id := f.signup.Tenant.ID

	// Upgrade to a paid plan.
	rec := f.do(t, http.MethodPost, `{"plan_type": "PROFESSIONAL", "auto_renew": true}`,
		f.adminPrincipal(), f.h.ActivateSubscription, "id", id)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	current, err := f.ds.FindActiveSubscription(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.PlanProfessional, current.PlanType)

	// History shows both rows, exactly one active.
	rec = f.do(t, http.MethodGet, "", f.adminPrincipal(), f.h.ListSubscriptions, "id", id)
	require.Equal(t, http.StatusOK, rec.Code)

	// Cancel the active row.
	rec = f.do(t, http.MethodDelete, "", f.adminPrincipal(), f.h.CancelSubscription,
		"id", id, "subscription_id", current.ID)
	require.Equal(t, http.StatusOK, rec.Code)

	_, err = f.ds.FindActiveSubscription(context.Background(), id)
	assert.Error(t, err)
}

func TestSubscriptionEndpointsRejectForeignTenant(t *testing.T) {
	f := newTenantFixture(t)

	foreign := f.adminPrincipal()
	foreign.TenantID = "some-other-tenant"

	rec := f.do(t, http.MethodPost, `{"plan_type": "PROFESSIONAL"}`,
		foreign, f.h.ActivateSubscription, "id", f.signup.Tenant.ID)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodGet, "", foreign, f.h.ListSubscriptions, "id", f.signup.Tenant.ID)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestActivateSubscriptionUnknownPlan(t *testing.T) {
	f := newTenantFixture(t)

	rec := f.do(t, http.MethodPost, `{"plan_type": "PLATINUM"}`,
		f.adminPrincipal(), f.h.ActivateSubscription, "id", f.signup.Tenant.ID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
