package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/justinmcgrath168/saas-dental-platform/internal/session"
	"github.com/justinmcgrath168/saas-dental-platform/pkg/jwtutil"
	"github.com/justinmcgrath168/saas-dental-platform/pkg/logger"
	"github.com/justinmcgrath168/saas-dental-platform/prometheus"
)

const principalKey = "principal"

// sessionCookieName carries the token for browser flows; API clients use
// the Authorization header instead.
const sessionCookieName = "session_token"

// PrincipalFrom returns the authenticated principal attached to the
// request, if any.
func PrincipalFrom(c echo.Context) (*session.Principal, bool) {
	p, ok := c.Get(principalKey).(*session.Principal)
	return p, ok && p != nil
}

// tokenFrom extracts the raw session token from the Authorization header
// or the session cookie.
func tokenFrom(c echo.Context) string {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
		return ""
	}
	if cookie, err := c.Cookie(sessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// Auth validates the session token and attaches the embedded Principal to
// the request. Requests without a valid token are rejected.
func Auth(jwt *jwtutil.JWTUtil) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)

			token := tokenFrom(c)
			if token == "" {
				prometheus.RecordAuthError("missing_token")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
			}

			claims, err := jwt.ValidateToken(token)
			if err != nil {
				log.Error("Invalid session token", zap.Error(err))
				prometheus.RecordAuthError("invalid_token")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
			}

			c.Set(principalKey, claims.Principal())
			return next(c)
		}
	}
}

// OptionalAuth attaches the Principal when a valid token is present but
// lets anonymous requests through. The tenancy middleware uses it to tell
// signed-in visitors from anonymous ones.
func OptionalAuth(jwt *jwtutil.JWTUtil) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token := tokenFrom(c); token != "" {
				if claims, err := jwt.ValidateToken(token); err == nil {
					c.Set(principalKey, claims.Principal())
				}
			}
			return next(c)
		}
	}
}
