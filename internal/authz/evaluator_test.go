package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/justinmcgrath168/saas-dental-platform/internal/autherr"
	"github.com/justinmcgrath168/saas-dental-platform/internal/model"
)

func TestHas(t *testing.T) {
	granted := []string{"patients:view", "patients:list"}

	assert.True(t, Has(granted, "patients:view"))
	assert.False(t, Has(granted, "patients:delete"))
	assert.False(t, Has(nil, "patients:view"))
	assert.False(t, Has([]string{}, "patients:view"))
}

func TestHasAny(t *testing.T) {
	granted := []string{"patients:view"}

	assert.True(t, HasAny(granted, "patients:delete", "patients:view"))
	assert.False(t, HasAny(granted, "patients:delete", "patients:merge"))
	assert.False(t, HasAny(granted))
	assert.False(t, HasAny(nil, "patients:view"))
}

func TestHasAll(t *testing.T) {
	granted := []string{"patients:view", "patients:list"}

	assert.True(t, HasAll(granted, "patients:view", "patients:list"))
	assert.False(t, HasAll(granted, "patients:view", "patients:delete"))
	// Vacuously true on an empty requirement.
	assert.True(t, HasAll(granted))
	assert.True(t, HasAll(nil))
}

func TestCanAssignRole(t *testing.T) {
	tests := []struct {
		acting model.UserRole
		target model.UserRole
		want   bool
	}{
		// Only the platform operator hands out the top roles.
		{model.RoleSuperAdmin, model.RoleSuperAdmin, true},
		{model.RoleSuperAdmin, model.RoleTenantAdmin, true},
		{model.RoleTenantAdmin, model.RoleSuperAdmin, false},
		{model.RoleOrgAdmin, model.RoleSuperAdmin, false},

		// Tenant admin can hand out its own tier but never above.
		{model.RoleTenantAdmin, model.RoleTenantAdmin, true},
		{model.RoleTenantAdmin, model.RoleOrgAdmin, true},
		{model.RoleTenantAdmin, model.RoleDentist, true},

		// Below tenant admin the ordering is strict.
		{model.RoleOrgAdmin, model.RoleOrgAdmin, false},
		{model.RoleOrgAdmin, model.RoleTenantAdmin, false},
		{model.RoleOrgAdmin, model.RoleLocationAdmin, true},
		{model.RoleOrgAdmin, model.RoleHygienist, true},
		{model.RoleLocationAdmin, model.RoleLocationAdmin, false},
		{model.RoleLocationAdmin, model.RoleFrontDesk, true},

		// Functional roles are a flat tier; none can assign anything,
		// not even their own role.
		{model.RoleDentist, model.RoleDentist, false},
		{model.RoleDentist, model.RoleAssistant, false},
		{model.RoleFrontDesk, model.RolePatient, false},
		{model.RolePatient, model.RolePatient, false},
	}

	for _, tt := range tests {
		got := CanAssignRole(tt.acting, tt.target)
		assert.Equal(t, tt.want, got, "%s assigning %s", tt.acting, tt.target)
	}
}

func TestCheckAssignRole(t *testing.T) {
	assert.NoError(t, CheckAssignRole(model.RoleSuperAdmin, model.RoleTenantAdmin))

	err := CheckAssignRole(model.RoleOrgAdmin, model.RoleTenantAdmin)
	assert.ErrorIs(t, err, autherr.ErrInsufficientPrivilege)
}
