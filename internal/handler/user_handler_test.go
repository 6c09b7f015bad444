package handler

import (
	"context"
	"encoding/json"
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
)

type userFixture struct {
	ds     *store.MemoryStore
	h      *UserHandler
	signup *store.SignupResult
}

func newUserFixture(t *testing.T) *userFixture {
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
	return &userFixture{ds: ds, h: NewUserHandler(ds, session.BcryptHasher{}), signup: res}
}

func (f *userFixture) adminPrincipal() *session.Principal {
	return &session.Principal{
		UserID:         f.signup.Admin.ID,
		Role:           model.RoleTenantAdmin,
		OrganizationID: f.signup.Organization.ID,
		TenantID:       f.signup.Tenant.ID,
		Permissions:    authz.DefaultPermissions(model.RoleTenantAdmin),
	}
}

func (f *userFixture) do(t *testing.T, method, path, body string, p *session.Principal, handler echo.HandlerFunc, pathParams ...string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
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

func TestCreateUserSeedsRoleDefaults(t *testing.T) {
	f := newUserFixture(t)

	rec := f.do(t, http.MethodPost, "/api/users", `{
		"name": "Dana Wu",
		"email": "Dana@BrightSmile.example",
		"password": "longenough",
		"role": "DENTIST"
	}`, f.adminPrincipal(), f.h.Create)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		User struct {
			ID          string   `json:"id"`
			Email       string   `json:"email"`
			Permissions []string `json:"permissions"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "dana@brightsmile.example", resp.User.Email)
	assert.ElementsMatch(t, authz.DefaultPermissions(model.RoleDentist), resp.User.Permissions)
}

func TestCreateUserExplicitGrantsWinOverDefaults(t *testing.T) {
	f := newUserFixture(t)

	rec := f.do(t, http.MethodPost, "/api/users", `{
		"name": "Dana Wu",
		"email": "dana@brightsmile.example",
		"role": "DENTIST",
		"permissions": ["patients:view", "patients:list"]
	}`, f.adminPrincipal(), f.h.Create)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		User struct {
			Permissions []string `json:"permissions"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.ElementsMatch(t, []string{"patients:view", "patients:list"}, resp.User.Permissions)
}

func TestCreateUserEscalationGuard(t *testing.T) {
	f := newUserFixture(t)

	// A tenant admin may not mint a platform operator.
	rec := f.do(t, http.MethodPost, "/api/users", `{
		"name": "Eve",
		"email": "eve@brightsmile.example",
		"role": "SUPER_ADMIN"
	}`, f.adminPrincipal(), f.h.Create)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// An org admin may not mint a peer org admin either.
	orgAdmin := f.adminPrincipal()
	orgAdmin.Role = model.RoleOrgAdmin
	orgAdmin.Permissions = authz.DefaultPermissions(model.RoleOrgAdmin)
	rec = f.do(t, http.MethodPost, "/api/users", `{
		"name": "Eve",
		"email": "eve@brightsmile.example",
		"role": "ORG_ADMIN"
	}`, orgAdmin, f.h.Create)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Nothing was written by the rejected requests.
	_, err := f.ds.FindUserByEmail(context.Background(), "eve@brightsmile.example")
	assert.Error(t, err)
}

func TestCreateUserRejectsUnknownRoleAndPermission(t *testing.T) {
	f := newUserFixture(t)

	rec := f.do(t, http.MethodPost, "/api/users", `{
		"name": "Dana", "email": "dana@brightsmile.example", "role": "WIZARD"
	}`, f.adminPrincipal(), f.h.Create)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/users", `{
		"name": "Dana", "email": "dana@brightsmile.example", "role": "DENTIST",
		"permissions": ["made:up"]
	}`, f.adminPrincipal(), f.h.Create)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateUserDuplicateEmailConflicts(t *testing.T) {
	f := newUserFixture(t)

	rec := f.do(t, http.MethodPost, "/api/users", `{
		"name": "Copy", "email": "alex@brightsmile.example", "role": "DENTIST"
	}`, f.adminPrincipal(), f.h.Create)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateUserRoleChangeGuardAndGrantStability(t *testing.T) {
	f := newUserFixture(t)

	created, err := f.ds.CreateUserWithAssociations(context.Background(), store.NewUser{
		Name:            "Dana",
		Email:           "dana@brightsmile.example",
		Role:            model.RoleDentist,
		OrganizationID:  f.signup.Organization.ID,
		IsActive:        true,
		PermissionCodes: authz.DefaultPermissions(model.RoleDentist),
	})
	require.NoError(t, err)

	// Escalating the target above the caller's tier is rejected.
	rec := f.do(t, http.MethodPut, "/api/users/"+created.ID, `{"role": "SUPER_ADMIN"}`,
		f.adminPrincipal(), f.h.Update, "id", created.ID)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// A legitimate role change succeeds and leaves the grant set as it was.
	rec = f.do(t, http.MethodPut, "/api/users/"+created.ID, `{"role": "HYGIENIST"}`,
		f.adminPrincipal(), f.h.Update, "id", created.ID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	after, err := f.ds.FindUserWithPermissions(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleHygienist, after.Role)
	assert.ElementsMatch(t, authz.DefaultPermissions(model.RoleDentist),
		after.GrantedPermissionCodes())
}

func TestUpdatePermissionsReplacesGrants(t *testing.T) {
	f := newUserFixture(t)

	created, err := f.ds.CreateUserWithAssociations(context.Background(), store.NewUser{
		Name:            "Dana",
		Email:           "dana@brightsmile.example",
		Role:            model.RoleDentist,
		OrganizationID:  f.signup.Organization.ID,
		IsActive:        true,
		PermissionCodes: authz.DefaultPermissions(model.RoleDentist),
	})
	require.NoError(t, err)

	rec := f.do(t, http.MethodPut, "/api/users/"+created.ID+"/permissions",
		`{"permissions": ["patients:view", "appointments:list"]}`,
		f.adminPrincipal(), f.h.UpdatePermissions, "id", created.ID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	after, err := f.ds.FindUserWithPermissions(context.Background(), created.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"patients:view", "appointments:list"},
		after.GrantedPermissionCodes())
}

func TestDeactivateUser(t *testing.T) {
	f := newUserFixture(t)

	created, err := f.ds.CreateUserWithAssociations(context.Background(), store.NewUser{
		Name:           "Dana",
		Email:          "dana@brightsmile.example",
		Role:           model.RoleDentist,
		OrganizationID: f.signup.Organization.ID,
		IsActive:       true,
	})
	require.NoError(t, err)

	// Self-deactivation is blocked.
	rec := f.do(t, http.MethodDelete, "/api/users/"+f.signup.Admin.ID, "",
		f.adminPrincipal(), f.h.Deactivate, "id", f.signup.Admin.ID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/users/"+created.ID, "",
		f.adminPrincipal(), f.h.Deactivate, "id", created.ID)
	require.Equal(t, http.StatusOK, rec.Code)

	after, err := f.ds.FindUserWithPermissions(context.Background(), created.ID)
	require.NoError(t, err)
	assert.False(t, after.IsActive)
}

func TestGetUserSelfViewRules(t *testing.T) {
	f := newUserFixture(t)

	created, err := f.ds.CreateUserWithAssociations(context.Background(), store.NewUser{
		Name:            "Dana",
		Email:           "dana@brightsmile.example",
		Role:            model.RoleDentist,
		OrganizationID:  f.signup.Organization.ID,
		IsActive:        true,
		PermissionCodes: authz.DefaultPermissions(model.RoleDentist),
	})
	require.NoError(t, err)

	dentist := &session.Principal{
		UserID:         created.ID,
		Role:           model.RoleDentist,
		OrganizationID: f.signup.Organization.ID,
		TenantID:       f.signup.Tenant.ID,
		Permissions:    authz.DefaultPermissions(model.RoleDentist),
	}

	// view-self lets the dentist read their own record...
	rec := f.do(t, http.MethodGet, "/api/users/"+created.ID, "",
		dentist, f.h.Get, "id", created.ID)
	assert.Equal(t, http.StatusOK, rec.Code)

	// ...but not anyone else's.
	rec = f.do(t, http.MethodGet, "/api/users/"+f.signup.Admin.ID, "",
		dentist, f.h.Get, "id", f.signup.Admin.ID)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListUsersScopedToOwnOrganization(t *testing.T) {
	f := newUserFixture(t)

	// A second organization in the same tenant with its own user.
	other, err := f.ds.CreateOrganization(context.Background(), model.Organization{
		TenantID: f.signup.Tenant.ID,
		Name:     "Satellite Lab",
		Type:     model.OrgDentalLab,
	})
	require.NoError(t, err)
	_, err = f.ds.CreateUserWithAssociations(context.Background(), store.NewUser{
		Name:           "Lab Tech",
		Email:          "tech@brightsmile.example",
		Role:           model.RoleLabTechnician,
		OrganizationID: other.ID,
		IsActive:       true,
	})
	require.NoError(t, err)

	// Without users:list-all the caller sees only their own organization.
	orgScoped := f.adminPrincipal()
	var trimmed []string
	for _, code := range orgScoped.Permissions {
		if code != "users:list-all" {
			trimmed = append(trimmed, code)
		}
	}
	orgScoped.Permissions = trimmed

	rec := f.do(t, http.MethodGet, "/api/users", "", orgScoped, f.h.List)
	require.Equal(t, http.StatusOK, rec.Code)
	var scoped struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &scoped))
	assert.Equal(t, 1, scoped.Total, "only the admin's own organization")

	// With the full tenant-admin set the other organization is visible.
	rec = f.do(t, http.MethodGet, "/api/users", "", f.adminPrincipal(), f.h.List)
	require.Equal(t, http.StatusOK, rec.Code)
	var all struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Equal(t, 2, all.Total)
}
