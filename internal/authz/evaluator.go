package authz

import (
	"github.com/justinmcgrath168/saas-dental-platform/internal/autherr"
	"github.com/justinmcgrath168/saas-dental-platform/internal/model"
)

// Has reports whether the granted set contains the permission code.
// A nil granted set is treated as empty, never an error.
func Has(granted []string, code string) bool {
	for _, g := range granted {
		if g == code {
			return true
		}
	}
	return false
}

// HasAny reports whether the granted set contains at least one of the codes.
func HasAny(granted []string, codes ...string) bool {
	for _, code := range codes {
		if Has(granted, code) {
			return true
		}
	}
	return false
}

// HasAll reports whether the granted set contains every one of the codes.
func HasAll(granted []string, codes ...string) bool {
	for _, code := range codes {
		if !Has(granted, code) {
			return false
		}
	}
	return true
}

// roleRank orders the administrative tiers. Functional roles share rank 0
// and are mutually incomparable; none of them may assign any role.
var roleRank = map[model.UserRole]int{
	model.RoleSuperAdmin:    4,
	model.RoleTenantAdmin:   3,
	model.RoleOrgAdmin:      2,
	model.RoleLocationAdmin: 1,
}

// CanAssignRole reports whether a user with actingRole may assign
// targetRole to another user. Only SUPER_ADMIN assigns SUPER_ADMIN or
// TENANT_ADMIN; TENANT_ADMIN assigns TENANT_ADMIN or anything below;
// everyone else assigns only roles strictly below their own tier.
func CanAssignRole(actingRole, targetRole model.UserRole) bool {
	switch targetRole {
	case model.RoleSuperAdmin:
		return actingRole == model.RoleSuperAdmin
	case model.RoleTenantAdmin:
		return actingRole == model.RoleSuperAdmin || actingRole == model.RoleTenantAdmin
	}
	return roleRank[actingRole] > roleRank[targetRole]
}

// CheckAssignRole is CanAssignRole as a guard: it returns
// ErrInsufficientPrivilege on violation so the mutating request fails
// outright instead of being silently downgraded.
func CheckAssignRole(actingRole, targetRole model.UserRole) error {
	if !CanAssignRole(actingRole, targetRole) {
		return autherr.ErrInsufficientPrivilege
	}
	return nil
}
