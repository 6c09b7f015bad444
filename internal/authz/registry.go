// Package authz holds the permission registry, the role policy that seeds
// default grants, and the evaluator consulted by every authorization check.
// The registry is immutable after process start and safe to share across
// concurrent requests without locking.
package authz

import "sort"

// registry is the static catalog of every permission in the system.
// Code format is `module:action`. Permissions are not user-creatable.
var registry = map[string]string{
	// User management
	"users:list":               "View list of users",
	"users:list-all":           "View users across organizations",
	"users:view":               "View user details",
	"users:view-self":          "View own user details",
	"users:create":             "Create new users",
	"users:update":             "Update user information",
	"users:update-self":        "Update own information",
	"users:delete":             "Delete users",
	"users:manage-permissions": "Manage user permissions",

	// Organization management
	"organizations:list":   "View list of organizations",
	"organizations:view":   "View organization details",
	"organizations:create": "Create new organizations",
	"organizations:update": "Update organization information",
	"organizations:delete": "Delete organizations",

	// Location management
	"locations:list":   "View list of locations",
	"locations:view":   "View location details",
	"locations:create": "Create new locations",
	"locations:update": "Update location information",
	"locations:delete": "Delete locations",

	// Tenant management
	"tenants:list":   "View list of tenants",
	"tenants:view":   "View tenant details",
	"tenants:create": "Create new tenants",
	"tenants:update": "Update tenant information",
	"tenants:delete": "Delete tenants",

	// Subscription management
	"subscriptions:list":   "View list of subscriptions",
	"subscriptions:view":   "View subscription details",
	"subscriptions:create": "Create new subscriptions",
	"subscriptions:update": "Update subscription information",
	"subscriptions:cancel": "Cancel subscriptions",

	// Dental clinic module
	"patients:list":   "View list of patients",
	"patients:view":   "View patient details",
	"patients:create": "Create new patients",
	"patients:update": "Update patient information",
	"patients:delete": "Delete patients",
	"patients:merge":  "Merge duplicate patient records",

	"appointments:list":       "View list of appointments",
	"appointments:view":       "View appointment details",
	"appointments:create":     "Create new appointments",
	"appointments:update":     "Update appointment information",
	"appointments:cancel":     "Cancel appointments",
	"appointments:reschedule": "Reschedule appointments",

	"treatments:list":     "View list of treatments",
	"treatments:view":     "View treatment details",
	"treatments:create":   "Create new treatments",
	"treatments:update":   "Update treatment information",
	"treatments:delete":   "Delete treatments",
	"treatments:complete": "Mark treatments as complete",

	"invoices:list":            "View list of invoices",
	"invoices:view":            "View invoice details",
	"invoices:create":          "Create new invoices",
	"invoices:update":          "Update invoice information",
	"invoices:delete":          "Delete invoices",
	"invoices:process-payment": "Process payments for invoices",

	// Dental lab module
	"lab-cases:list":          "View list of lab cases",
	"lab-cases:view":          "View lab case details",
	"lab-cases:create":        "Create new lab cases",
	"lab-cases:update":        "Update lab case information",
	"lab-cases:delete":        "Delete lab cases",
	"lab-cases:status-update": "Update lab case status",

	// Imaging center module
	"imaging:list":     "View list of imaging orders",
	"imaging:view":     "View imaging order details",
	"imaging:create":   "Create new imaging orders",
	"imaging:update":   "Update imaging order information",
	"imaging:delete":   "Delete imaging orders",
	"imaging:upload":   "Upload imaging files",
	"imaging:download": "Download imaging files",

	// Supplies management module
	"inventory:list":   "View list of inventory items",
	"inventory:view":   "View inventory item details",
	"inventory:create": "Create new inventory items",
	"inventory:update": "Update inventory information",
	"inventory:delete": "Delete inventory items",
	"inventory:adjust": "Adjust inventory quantities",

	"orders:list":    "View list of orders",
	"orders:view":    "View order details",
	"orders:create":  "Create new orders",
	"orders:update":  "Update order information",
	"orders:delete":  "Delete orders",
	"orders:approve": "Approve orders",
	"orders:fulfill": "Fulfill orders",
}

// Registry returns the full permission catalog as code -> description.
// The returned map is a copy; callers may not mutate the catalog.
func Registry() map[string]string {
	out := make(map[string]string, len(registry))
	for code, desc := range registry {
		out[code] = desc
	}
	return out
}

// Codes returns every registered permission code in sorted order.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Exists reports whether code names a registered permission.
func Exists(code string) bool {
	_, ok := registry[code]
	return ok
}

// Describe returns the description for a permission code and whether the
// code is registered.
func Describe(code string) (string, bool) {
	desc, ok := registry[code]
	return desc, ok
}

// Module returns the module prefix of a permission code (the part before
// the colon). Codes without a colon are their own module.
func Module(code string) string {
	for i := 0; i < len(code); i++ {
		if code[i] == ':' {
			return code[:i]
		}
	}
	return code
}

// Groups returns the catalog grouped by module prefix, each group sorted.
func Groups() map[string][]string {
	groups := make(map[string][]string)
	for code := range registry {
		m := Module(code)
		groups[m] = append(groups[m], code)
	}
	for m := range groups {
		sort.Strings(groups[m])
	}
	return groups
}
