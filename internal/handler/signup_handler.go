package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/justinmcgrath168/saas-dental-platform/internal/autherr"
	"github.com/justinmcgrath168/saas-dental-platform/internal/authz"
	"github.com/justinmcgrath168/saas-dental-platform/internal/model"
	"github.com/justinmcgrath168/saas-dental-platform/internal/session"
	"github.com/justinmcgrath168/saas-dental-platform/internal/store"
	"github.com/justinmcgrath168/saas-dental-platform/internal/tenant"
	"github.com/justinmcgrath168/saas-dental-platform/pkg/logger"
	"github.com/justinmcgrath168/saas-dental-platform/prometheus"
)

// SignupHandler exposes the public tenant-provisioning endpoint.
type SignupHandler struct {
	store  store.Datastore
	hasher session.PasswordHasher
}

func NewSignupHandler(ds store.Datastore, hasher session.PasswordHasher) *SignupHandler {
	return &SignupHandler{store: ds, hasher: hasher}
}

type signupRequest struct {
	Name             string  `json:"name"`
	Subdomain        string  `json:"subdomain"`
	LogoURL          *string `json:"logo_url"`
	PrimaryColor     *string `json:"primary_color"`
	OrganizationType string  `json:"organization_type"`
	PlanType         string  `json:"plan_type"`
	AdminName        string  `json:"admin_name"`
	AdminEmail       string  `json:"admin_email"`
	AdminPassword    string  `json:"admin_password"`
}

// Signup provisions a new tenant in a single transaction: tenant,
// initial subscription, default organization with its main location, and
// the tenant-admin account seeded with the tenant-admin permission set.
func (h *SignupHandler) Signup(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.SignupCounter.Inc()

	var req signupRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse signup request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Subdomain = strings.ToLower(strings.TrimSpace(req.Subdomain))
	req.AdminEmail = strings.ToLower(strings.TrimSpace(req.AdminEmail))

	if req.Name == "" || req.AdminName == "" || req.AdminEmail == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name, admin_name and admin_email are required"})
	}
	if err := tenant.ValidateSubdomain(req.Subdomain); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if len(req.AdminPassword) < 8 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 8 characters"})
	}

	plan := model.PlanType(strings.ToUpper(req.PlanType))
	if req.PlanType == "" {
		plan = model.PlanFree
	} else if !model.ValidPlanType(string(plan)) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown plan type"})
	}

	orgType := model.OrgType(strings.ToUpper(req.OrganizationType))
	if req.OrganizationType == "" {
		orgType = model.OrgDentalClinic
	} else if !model.ValidOrgType(string(orgType)) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown organization type"})
	}

	hash, err := h.hasher.Hash(req.AdminPassword)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "signup failed"})
	}

	result, err := h.store.CreateTenantSignup(c.Request().Context(), store.TenantSignup{
		Name:              req.Name,
		Subdomain:         req.Subdomain,
		LogoURL:           req.LogoURL,
		PrimaryColor:      req.PrimaryColor,
		OrganizationType:  orgType,
		PlanType:          plan,
		AdminName:         req.AdminName,
		AdminEmail:        req.AdminEmail,
		AdminPasswordHash: hash,
		PermissionCodes:   authz.DefaultPermissions(model.RoleTenantAdmin),
	})
	if err != nil {
		if errors.Is(err, autherr.ErrDuplicateResource) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "subdomain or email already in use"})
		}
		log.Error("Tenant signup failed", zap.Error(err), zap.String("subdomain", req.Subdomain))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "signup failed"})
	}

	log.Info("Tenant provisioned",
		zap.String("tenant_id", result.Tenant.ID),
		zap.String("subdomain", result.Tenant.Subdomain),
		zap.String("plan", string(plan)))

	return c.JSON(http.StatusCreated, echo.Map{
		"tenant": echo.Map{
			"id":        result.Tenant.ID,
			"name":      result.Tenant.Name,
			"subdomain": result.Tenant.Subdomain,
		},
		"organization": echo.Map{
			"id":   result.Organization.ID,
			"name": result.Organization.Name,
			"type": result.Organization.Type,
		},
		"location": echo.Map{
			"id":      result.Location.ID,
			"name":    result.Location.Name,
			"is_main": result.Location.IsMain,
		},
		"admin": echo.Map{
			"id":    result.Admin.ID,
			"name":  result.Admin.Name,
			"email": result.Admin.Email,
			"role":  result.Admin.Role,
		},
	})
}

// CheckSubdomain reports whether a subdomain is valid and unclaimed, for
// use by the signup form.
func (h *SignupHandler) CheckSubdomain(c echo.Context) error {
	sub := strings.ToLower(strings.TrimSpace(c.QueryParam("subdomain")))
	if err := tenant.ValidateSubdomain(sub); err != nil {
		return c.JSON(http.StatusOK, echo.Map{"available": false, "reason": err.Error()})
	}
	_, err := h.store.FindTenantBySubdomain(c.Request().Context(), sub)
	if err == nil {
		return c.JSON(http.StatusOK, echo.Map{"available": false, "reason": "subdomain already in use"})
	}
	if !errors.Is(err, autherr.ErrNotFound) {
		logger.FromEcho(c).Error("Subdomain check failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"available": true})
}
