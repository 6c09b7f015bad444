package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/justinmcgrath168/saas-dental-platform/internal/autherr"
	"github.com/justinmcgrath168/saas-dental-platform/internal/middleware"
	"github.com/justinmcgrath168/saas-dental-platform/internal/session"
	"github.com/justinmcgrath168/saas-dental-platform/pkg/jwtutil"
	"github.com/justinmcgrath168/saas-dental-platform/pkg/logger"
	"github.com/justinmcgrath168/saas-dental-platform/prometheus"
)

// AuthHandler owns the sign-in and token-refresh endpoints.
type AuthHandler struct {
	assembler *session.Assembler
	jwt       *jwtutil.JWTUtil
}

func NewAuthHandler(assembler *session.Assembler, jwt *jwtutil.JWTUtil) *AuthHandler {
	return &AuthHandler{assembler: assembler, jwt: jwt}
}

// SignIn verifies credentials, assembles the Principal, and issues a
// session token carrying it.
func (h *AuthHandler) SignIn(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.SignInCounter.Inc()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse sign-in request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Email == "" || req.Password == "" {
		prometheus.RecordAuthError("incomplete_credentials")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password are required"})
	}

	principal, err := h.assembler.Authenticate(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, autherr.ErrAccountDeactivated):
			log.Warn("Sign-in on deactivated account", zap.String("email", req.Email))
			prometheus.RecordAuthError("account_deactivated")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "account is deactivated"})
		case errors.Is(err, autherr.ErrInvalidCredentials):
			log.Warn("Invalid credentials", zap.String("email", req.Email))
			prometheus.RecordAuthError("invalid_credentials")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		default:
			log.Error("Sign-in failed", zap.Error(err))
			prometheus.RecordAuthError("internal")
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sign-in failed"})
		}
	}

	token, err := h.jwt.GenerateToken(principal)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}
	prometheus.IncreaseActiveTokens()

	log.Info("User signed in",
		zap.String("email", principal.Email),
		zap.String("tenant_id", principal.TenantID),
		zap.String("role", string(principal.Role)))

	return c.JSON(http.StatusOK, echo.Map{
		"token":     token,
		"principal": principal,
	})
}

// IdentitySignIn assembles a Principal for an identity the external
// provider already verified. The route must only be reachable from the
// identity callback service; the provider's claims are trusted for
// identity verification and nothing else.
func (h *AuthHandler) IdentitySignIn(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.SignInCounter.Inc()

	var req struct {
		Email       string `json:"email"`
		DisplayName string `json:"display_name"`
	}
	if err := c.Bind(&req); err != nil {
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Email == "" {
		prometheus.RecordAuthError("incomplete_credentials")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email is required"})
	}

	principal, err := h.assembler.SignInWithProvider(c.Request().Context(), req.Email, req.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, autherr.ErrAccountDeactivated):
			prometheus.RecordAuthError("account_deactivated")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "account is deactivated"})
		case errors.Is(err, autherr.ErrInvalidCredentials):
			prometheus.RecordAuthError("unknown_identity")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "no account for this identity"})
		default:
			log.Error("Identity sign-in failed", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sign-in failed"})
		}
	}

	token, err := h.jwt.GenerateToken(principal)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}
	prometheus.IncreaseActiveTokens()

	return c.JSON(http.StatusOK, echo.Map{
		"token":     token,
		"principal": principal,
	})
}

// Refresh re-derives the Principal from the datastore and issues a fresh
// token, so permission or role changes take effect within one refresh
// cycle. Claims are never copied forward.
func (h *AuthHandler) Refresh(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RefreshCounter.Inc()

	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	fresh, err := h.assembler.Refresh(c.Request().Context(), principal.UserID)
	if err != nil {
		switch {
		case errors.Is(err, autherr.ErrAccountDeactivated):
			prometheus.RecordAuthError("account_deactivated")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "account is deactivated"})
		case errors.Is(err, autherr.ErrInvalidCredentials):
			prometheus.RecordAuthError("unknown_user")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid session"})
		default:
			log.Error("Token refresh failed", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
		}
	}

	token, err := h.jwt.GenerateToken(fresh)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"token":     token,
		"principal": fresh,
	})
}
