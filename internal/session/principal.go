// Package session assembles the per-request identity of an authenticated
// actor: user, organization, tenant, and the flattened permission grant
// set, joined into one immutable Principal.
package session

import (
	"github.com/justinmcgrath168/saas-dental-platform/internal/model"
)

// Principal is the assembled view of an authenticated actor. It is built
// once at authentication and re-derived on every token refresh; it is
// never mutated in place and never persisted as its own record.
type Principal struct {
	UserID           string         `json:"user_id"`
	Name             string         `json:"name"`
	Email            string         `json:"email"`
	Role             model.UserRole `json:"role"`
	OrganizationID   string         `json:"organization_id"`
	OrganizationName string         `json:"organization_name"`
	OrganizationType model.OrgType  `json:"organization_type"`
	TenantID         string         `json:"tenant_id"`
	TenantName       string         `json:"tenant_name"`
	TenantSubdomain  string         `json:"tenant_subdomain"`
	Permissions      []string       `json:"permissions"`
}

// IsSuperAdmin reports whether the principal is a platform operator.
// SUPER_ADMIN is tenant-context-agnostic and bypasses the subscription
// gate and cross-tenant checks.
func (p *Principal) IsSuperAdmin() bool {
	return p.Role == model.RoleSuperAdmin
}
