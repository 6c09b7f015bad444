package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/justinmcgrath168/saas-dental-platform/internal/autherr"
	"github.com/justinmcgrath168/saas-dental-platform/internal/authz"
	"github.com/justinmcgrath168/saas-dental-platform/internal/subscription"
	"github.com/justinmcgrath168/saas-dental-platform/internal/tenant"
	"github.com/justinmcgrath168/saas-dental-platform/pkg/logger"
	"github.com/justinmcgrath168/saas-dental-platform/prometheus"
)

// TenantGuard is the API-route counterpart of the Tenancy middleware: the
// same tenant-isolation and subscription checks, answered with JSON
// statuses instead of redirects. Runs after Auth, so a principal is
// always present.
func TenantGuard(resolver *tenant.Resolver, gate *subscription.Gate) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)
			ctx := c.Request().Context()

			principal, ok := PrincipalFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}

			res, err := resolver.Resolve(ctx, c.Request().Host)
			if err != nil {
				if errors.Is(err, autherr.ErrTenantNotFound) {
					prometheus.RecordTenantResolution("not_found")
					return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
				}
				log.Error("Tenant resolution failed", zap.Error(err))
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
			}

			if !res.Root {
				if !principal.IsSuperAdmin() && principal.TenantID != res.Tenant.ID {
					prometheus.RecordAuthError("cross_tenant")
					log.Warn("Cross-tenant API request rejected",
						zap.String("session_tenant", principal.TenantID),
						zap.String("request_tenant", res.Tenant.ID))
					return c.JSON(http.StatusForbidden, echo.Map{"error": "session is not valid for this tenant"})
				}
				c.Set(tenantKey, res.Tenant)
			}

			// The gate applies to the principal's own tenant even when the
			// request arrives on the apex host.
			gateTenantID := principal.TenantID
			if !res.Root {
				gateTenantID = res.Tenant.ID
			}
			if gateTenantID != "" {
				if err := gate.Check(ctx, gateTenantID, principal.Role); err != nil {
					if errors.Is(err, autherr.ErrSubscriptionInactive) {
						prometheus.RecordGateOutcome("blocked")
						return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "tenant subscription is inactive"})
					}
					log.Error("Subscription gate failed", zap.Error(err))
					return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
				}
				if principal.IsSuperAdmin() {
					prometheus.RecordGateOutcome("bypass")
				} else {
					prometheus.RecordGateOutcome("pass")
				}
			}

			return next(c)
		}
	}
}

// RequirePermission rejects the request with a 403 unless the principal's
// granted set contains the permission code. Never silently downgrades.
func RequirePermission(code string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal, ok := PrincipalFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}
			if !authz.Has(principal.Permissions, code) {
				prometheus.RecordPermissionDenial(code)
				return c.JSON(http.StatusForbidden, echo.Map{"error": "permission denied"})
			}
			return next(c)
		}
	}
}
