package authz

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justinmcgrath168/saas-dental-platform/internal/model"
)

func TestEveryRoleHasDefaults(t *testing.T) {
	for _, role := range model.AllRoles {
		defaults := DefaultPermissions(role)
		assert.NotEmpty(t, defaults, "role %s", role)
		for _, code := range defaults {
			assert.True(t, Exists(code), "role %s references unknown code %s", role, code)
		}
	}
}

func TestSuperAdminGetsEverything(t *testing.T) {
	assert.ElementsMatch(t, Codes(), DefaultPermissions(model.RoleSuperAdmin))
}

func TestTenantAdminExcludesTenantManagement(t *testing.T) {
	defaults := DefaultPermissions(model.RoleTenantAdmin)
	require.NotEmpty(t, defaults)

	for _, code := range defaults {
		assert.False(t, strings.HasPrefix(code, "tenants:"),
			"tenant admin must not receive %s", code)
	}
	// Everything else is present.
	assert.Len(t, defaults, len(Codes())-len(Groups()["tenants"]))
}

func TestOrgAdminOutranksLocationAdminInScope(t *testing.T) {
	org := DefaultPermissions(model.RoleOrgAdmin)
	loc := DefaultPermissions(model.RoleLocationAdmin)

	assert.Contains(t, org, "locations:create")
	assert.Contains(t, org, "users:manage-permissions")
	assert.NotContains(t, loc, "locations:create")
	assert.NotContains(t, loc, "users:manage-permissions")

	// Both cover the full clinical surface.
	for _, code := range []string{"patients:delete", "orders:fulfill", "imaging:upload"} {
		assert.Contains(t, org, code)
		assert.Contains(t, loc, code)
	}
}

func TestFunctionalRoleDefaults(t *testing.T) {
	tests := []struct {
		role     model.UserRole
		has      []string
		excludes []string
	}{
		{
			role:     model.RoleDentist,
			has:      []string{"patients:create", "treatments:complete", "appointments:reschedule"},
			excludes: []string{"users:create", "invoices:process-payment", "patients:delete"},
		},
		{
			role:     model.RoleHygienist,
			has:      []string{"treatments:complete", "patients:update"},
			excludes: []string{"patients:create", "appointments:create"},
		},
		{
			role:     model.RoleFrontDesk,
			has:      []string{"invoices:process-payment", "appointments:cancel"},
			excludes: []string{"treatments:create", "imaging:view"},
		},
		{
			role:     model.RoleLabManager,
			has:      []string{"lab-cases:delete", "orders:approve"},
			excludes: []string{"patients:list", "orders:fulfill"},
		},
		{
			role:     model.RoleLabTechnician,
			has:      []string{"lab-cases:status-update", "inventory:adjust"},
			excludes: []string{"lab-cases:create", "orders:create"},
		},
		{
			role:     model.RoleInventoryManager,
			has:      []string{"inventory:delete", "orders:fulfill"},
			excludes: []string{"patients:list", "invoices:list"},
		},
		{
			role:     model.RolePatient,
			has:      []string{"appointments:create", "invoices:view", "users:view-self"},
			excludes: []string{"patients:list", "users:view", "appointments:update"},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			defaults := DefaultPermissions(tt.role)
			for _, code := range tt.has {
				assert.Contains(t, defaults, code)
			}
			for _, code := range tt.excludes {
				assert.NotContains(t, defaults, code)
			}
		})
	}
}

func TestUnknownRoleYieldsEmptySet(t *testing.T) {
	defaults := DefaultPermissions(model.UserRole("JANITOR"))
	assert.NotNil(t, defaults)
	assert.Empty(t, defaults)
}

func TestDefaultPermissionsReturnsCopy(t *testing.T) {
	first := DefaultPermissions(model.RoleDentist)
	first[0] = "tampered"
	second := DefaultPermissions(model.RoleDentist)
	assert.NotContains(t, second, "tampered")
}
