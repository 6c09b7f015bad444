package authz

import (
	"sort"
	"strings"

	"github.com/justinmcgrath168/saas-dental-platform/internal/model"
)

// clinicalModules covers every operational module an organization admin or
// location admin manages day to day.
var clinicalModules = []string{
	"patients:", "appointments:", "treatments:", "invoices:",
	"lab-cases:", "imaging:", "inventory:", "orders:",
}

// defaultRolePermissions maps each role to its seed permission set. The
// role never grants anything at request time; it is only the template the
// grant set is bootstrapped from when a user is created.
var defaultRolePermissions map[model.UserRole][]string

func init() {
	defaultRolePermissions = map[model.UserRole][]string{
		model.RoleSuperAdmin: Codes(),

		// Everything except tenant management.
		model.RoleTenantAdmin: codesExcludingPrefix("tenants:"),

		model.RoleOrgAdmin: merge(
			[]string{
				"users:list", "users:view", "users:create", "users:update",
				"users:delete", "users:manage-permissions",
				"users:view-self", "users:update-self",
				"organizations:view", "organizations:update",
				"locations:list", "locations:view", "locations:create",
				"locations:update", "locations:delete",
			},
			codesWithPrefixes(clinicalModules...),
		),

		model.RoleLocationAdmin: merge(
			[]string{
				"users:list", "users:view", "users:create", "users:update",
				"users:view-self", "users:update-self",
				"locations:view", "locations:update",
			},
			codesWithPrefixes(clinicalModules...),
		),

		model.RoleDentist: {
			"users:view-self", "users:update-self",
			"patients:list", "patients:view", "patients:create", "patients:update",
			"appointments:list", "appointments:view", "appointments:create",
			"appointments:update", "appointments:cancel", "appointments:reschedule",
			"treatments:list", "treatments:view", "treatments:create",
			"treatments:update", "treatments:complete",
			"invoices:list", "invoices:view", "invoices:create",
			"lab-cases:list", "lab-cases:view", "lab-cases:create",
			"lab-cases:update", "lab-cases:status-update",
			"imaging:list", "imaging:view", "imaging:create", "imaging:update",
			"imaging:upload", "imaging:download",
			"inventory:list", "inventory:view",
			"orders:list", "orders:view", "orders:create",
		},

		model.RoleHygienist: {
			"users:view-self", "users:update-self",
			"patients:list", "patients:view", "patients:update",
			"appointments:list", "appointments:view",
			"treatments:list", "treatments:view", "treatments:create",
			"treatments:update", "treatments:complete",
			"lab-cases:list", "lab-cases:view",
			"imaging:list", "imaging:view", "imaging:download",
			"inventory:list", "inventory:view",
			"orders:list", "orders:view", "orders:create",
		},

		model.RoleAssistant: {
			"users:view-self", "users:update-self",
			"patients:list", "patients:view", "patients:update",
			"appointments:list", "appointments:view", "appointments:create",
			"appointments:update", "appointments:reschedule",
			"treatments:list", "treatments:view", "treatments:update",
			"lab-cases:list", "lab-cases:view",
			"imaging:list", "imaging:view", "imaging:download",
			"inventory:list", "inventory:view",
			"orders:list", "orders:view",
		},

		model.RoleFrontDesk: {
			"users:view-self", "users:update-self",
			"patients:list", "patients:view", "patients:create", "patients:update",
			"appointments:list", "appointments:view", "appointments:create",
			"appointments:update", "appointments:cancel", "appointments:reschedule",
			"invoices:list", "invoices:view", "invoices:create",
			"invoices:update", "invoices:process-payment",
			"treatments:list", "treatments:view",
			"inventory:list", "inventory:view",
			"orders:list", "orders:view", "orders:create",
		},

		model.RoleLabManager: {
			"users:view-self", "users:update-self",
			"lab-cases:list", "lab-cases:view", "lab-cases:create",
			"lab-cases:update", "lab-cases:delete", "lab-cases:status-update",
			"inventory:list", "inventory:view", "inventory:create",
			"inventory:update", "inventory:adjust",
			"orders:list", "orders:view", "orders:create",
			"orders:update", "orders:approve",
		},

		model.RoleLabTechnician: {
			"users:view-self", "users:update-self",
			"lab-cases:list", "lab-cases:view", "lab-cases:status-update",
			"inventory:list", "inventory:view", "inventory:adjust",
			"orders:list", "orders:view",
		},

		model.RoleRadiologist: {
			"users:view-self", "users:update-self",
			"imaging:list", "imaging:view", "imaging:update",
			"imaging:upload", "imaging:download",
			"patients:list", "patients:view",
		},

		model.RoleImagingTech: {
			"users:view-self", "users:update-self",
			"imaging:list", "imaging:view", "imaging:upload", "imaging:download",
			"patients:list", "patients:view",
		},

		model.RoleInventoryManager: {
			"users:view-self", "users:update-self",
			"inventory:list", "inventory:view", "inventory:create",
			"inventory:update", "inventory:delete", "inventory:adjust",
			"orders:list", "orders:view", "orders:create", "orders:update",
			"orders:delete", "orders:approve", "orders:fulfill",
		},

		model.RoleAccounting: {
			"users:view-self", "users:update-self",
			"invoices:list", "invoices:view", "invoices:update",
			"invoices:process-payment",
			"orders:list", "orders:view",
		},

		model.RolePatient: {
			"users:view-self", "users:update-self",
			"appointments:list", "appointments:view", "appointments:create",
			"appointments:cancel",
			"treatments:list", "treatments:view",
			"invoices:list", "invoices:view",
		},
	}
}

// DefaultPermissions returns the seed permission codes for a role. An
// unknown role yields an empty set, never an error: callers start from
// nothing rather than guessing.
func DefaultPermissions(role model.UserRole) []string {
	defaults, ok := defaultRolePermissions[role]
	if !ok {
		return []string{}
	}
	out := make([]string, len(defaults))
	copy(out, defaults)
	return out
}

func codesExcludingPrefix(prefix string) []string {
	var out []string
	for _, code := range Codes() {
		if !strings.HasPrefix(code, prefix) {
			out = append(out, code)
		}
	}
	return out
}

func codesWithPrefixes(prefixes ...string) []string {
	var out []string
	for _, code := range Codes() {
		for _, p := range prefixes {
			if strings.HasPrefix(code, p) {
				out = append(out, code)
				break
			}
		}
	}
	return out
}

func merge(sets ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, set := range sets {
		for _, code := range set {
			if _, ok := seen[code]; ok {
				continue
			}
			seen[code] = struct{}{}
			out = append(out, code)
		}
	}
	sort.Strings(out)
	return out
}
