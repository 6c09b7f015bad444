package middleware

import (
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/justinmcgrath168/saas-dental-platform/internal/autherr"
	"github.com/justinmcgrath168/saas-dental-platform/internal/model"
	"github.com/justinmcgrath168/saas-dental-platform/internal/subscription"
	"github.com/justinmcgrath168/saas-dental-platform/internal/tenant"
	"github.com/justinmcgrath168/saas-dental-platform/pkg/config"
	"github.com/justinmcgrath168/saas-dental-platform/pkg/logger"
	"github.com/justinmcgrath168/saas-dental-platform/prometheus"
)

const (
	tenantKey      = "tenant"
	TenantIDHeader = "X-Tenant-ID"
	signInPath     = "/auth/sign-in"
	expiredPath    = "/subscription-expired"
	dashboardPath  = "/dashboard"
	callbackParam  = "callbackUrl"
)

// TenantFrom returns the tenant resolved for the request host, if any.
func TenantFrom(c echo.Context) (*model.Tenant, bool) {
	t, ok := c.Get(tenantKey).(*model.Tenant)
	return t, ok && t != nil
}

// Tenancy composes tenant resolution, the subscription gate, and the
// session's tenant binding into the per-request admission decision.
type Tenancy struct {
	resolver *tenant.Resolver
	gate     *subscription.Gate
	cfg      config.TenancyConfig
}

// NewTenancy builds the composition middleware.
func NewTenancy(resolver *tenant.Resolver, gate *subscription.Gate, cfg config.TenancyConfig) *Tenancy {
	return &Tenancy{resolver: resolver, gate: gate, cfg: cfg}
}

// Middleware classifies every inbound request by host before it reaches
// business logic:
//
//   - apex host: root context, tenant-scoped routes are inaccessible;
//   - unknown subdomain: redirect to the apex, never a raw error;
//   - tenant host + auth path: redirect to the apex equivalent (identity
//     flows are centralized, not per-tenant);
//   - tenant host + principal bound to another tenant: redirect the
//     principal to their own tenant's dashboard, or to sign-in when their
//     tenant cannot be resolved (SUPER_ADMIN traverses any tenant);
//   - tenant host + anonymous on a protected path: redirect to sign-in
//     with the original target as callback;
//   - tenant host + inactive subscription: redirect to the
//     subscription-expired page unless the principal is SUPER_ADMIN.
//
// Requests that pass get the resolved tenant attached to the context.
func (t *Tenancy) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			if skipTenancy(path) {
				return next(c)
			}

			log := logger.FromEcho(c)
			ctx := c.Request().Context()

			res, err := t.resolver.Resolve(ctx, c.Request().Host)
			if err != nil {
				if errors.Is(err, autherr.ErrTenantNotFound) {
					prometheus.RecordTenantResolution("not_found")
					log.Info("Unknown subdomain, redirecting to root",
						zap.String("host", c.Request().Host))
					return c.Redirect(http.StatusTemporaryRedirect, t.rootURL(c, "/"))
				}
				log.Error("Tenant resolution failed", zap.Error(err))
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
			}

			if res.Root {
				prometheus.RecordTenantResolution("root")
				if strings.HasPrefix(path, dashboardPath) {
					if _, ok := PrincipalFrom(c); !ok {
						return c.Redirect(http.StatusTemporaryRedirect, t.rootURL(c, signInPath))
					}
				}
				return next(c)
			}

			prometheus.RecordTenantResolution("tenant")
			resolved := res.Tenant

			// Identity flows are centralized on the apex domain.
			if strings.HasPrefix(path, "/auth") {
				target := t.rootURL(c, path)
				if q := c.Request().URL.RawQuery; q != "" {
					target += "?" + q
				}
				return c.Redirect(http.StatusTemporaryRedirect, target)
			}

			principal, authenticated := PrincipalFrom(c)

			// A session token is only valid within the tenant context it
			// was issued for; SUPER_ADMIN is tenant-context-agnostic.
			if authenticated && !principal.IsSuperAdmin() && principal.TenantID != resolved.ID {
				prometheus.RecordAuthError("cross_tenant")
				log.Warn("Cross-tenant session rejected",
					zap.String("session_tenant", principal.TenantID),
					zap.String("request_tenant", resolved.ID))
				if principal.TenantSubdomain != "" {
					return c.Redirect(http.StatusTemporaryRedirect,
						t.tenantURL(c, principal.TenantSubdomain, dashboardPath))
				}
				return c.Redirect(http.StatusTemporaryRedirect, t.rootURL(c, signInPath))
			}

			if !authenticated && path != "/" {
				callback := url.QueryEscape(t.tenantURL(c, resolved.Subdomain, path))
				return c.Redirect(http.StatusTemporaryRedirect,
					t.rootURL(c, signInPath)+"?"+callbackParam+"="+callback)
			}

			role := model.UserRole("")
			if authenticated {
				role = principal.Role
			}
			if err := t.gate.Check(ctx, resolved.ID, role); err != nil {
				if errors.Is(err, autherr.ErrSubscriptionInactive) {
					prometheus.RecordGateOutcome("blocked")
					log.Info("Subscription inactive, blocking tenant",
						zap.String("tenant_id", resolved.ID))
					return c.Redirect(http.StatusTemporaryRedirect,
						t.tenantURL(c, resolved.Subdomain, expiredPath))
				}
				log.Error("Subscription gate failed", zap.Error(err))
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
			}
			if authenticated && principal.IsSuperAdmin() {
				prometheus.RecordGateOutcome("bypass")
			} else {
				prometheus.RecordGateOutcome("pass")
			}

			c.Set(tenantKey, resolved)
			c.Request().Header.Set(TenantIDHeader, resolved.ID)
			return next(c)
		}
	}
}

// skipTenancy mirrors the static-asset and API exclusions: API routes
// enforce tenancy through the TenantGuard with JSON errors instead of
// redirects.
func skipTenancy(path string) bool {
	return strings.HasPrefix(path, "/api") ||
		strings.HasPrefix(path, "/health") ||
		strings.HasPrefix(path, "/metrics") ||
		strings.HasPrefix(path, "/static") ||
		path == expiredPath ||
		strings.Contains(path, ".")
}

// apexHost picks the configured apex matching the environment implied by
// the request host, keeping the original port.
func (t *Tenancy) apexHost(c echo.Context) string {
	host := c.Request().Host
	port := ""
	if h, p, err := net.SplitHostPort(host); err == nil {
		host, port = h, p
	}
	apex := t.cfg.RootDomain
	if strings.HasSuffix(strings.ToLower(host), t.cfg.DevRootDomain) {
		apex = t.cfg.DevRootDomain
	}
	if port != "" {
		return apex + ":" + port
	}
	return apex
}

func (t *Tenancy) rootURL(c echo.Context, path string) string {
	return c.Scheme() + "://" + t.apexHost(c) + path
}

func (t *Tenancy) tenantURL(c echo.Context, subdomain, path string) string {
	return c.Scheme() + "://" + subdomain + "." + t.apexHost(c) + path
}
