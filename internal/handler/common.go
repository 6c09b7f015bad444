package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/justinmcgrath168/saas-dental-platform/internal/authz"
	"github.com/justinmcgrath168/saas-dental-platform/internal/middleware"
	"github.com/justinmcgrath168/saas-dental-platform/internal/session"
)

// requirePrincipal is the in-handler counterpart of the auth middleware
// for routes that also need the Principal value.
func requirePrincipal(c echo.Context) (*session.Principal, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return nil, c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	return p, nil
}

// canAccessTenant reports whether the principal may operate on records
// belonging to tenantID. Cross-tenant access rides on the tenants:view
// grant, which only platform operators hold.
func canAccessTenant(p *session.Principal, tenantID string) bool {
	if p.TenantID == tenantID {
		return true
	}
	return authz.Has(p.Permissions, "tenants:view")
}

func pageParams(c echo.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
