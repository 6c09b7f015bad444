package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/justinmcgrath168/saas-dental-platform/internal/autherr"
	"github.com/justinmcgrath168/saas-dental-platform/internal/authz"
	"github.com/justinmcgrath168/saas-dental-platform/internal/store"
	"github.com/justinmcgrath168/saas-dental-platform/internal/subscription"
	"github.com/justinmcgrath168/saas-dental-platform/pkg/logger"
	"github.com/justinmcgrath168/saas-dental-platform/prometheus"
)

// TenantHandler owns the tenant directory and the subscription
// endpoints nested under it.
type TenantHandler struct {
	store store.Datastore
	subs  *subscription.Service
}

func NewTenantHandler(ds store.Datastore, subs *subscription.Service) *TenantHandler {
	return &TenantHandler{store: ds, subs: subs}
}

// List returns the tenant directory. The route is guarded by
// tenants:list, so only platform operators reach it.
func (h *TenantHandler) List(c echo.Context) error {
	page, limit := pageParams(c)
	tenants, total, err := h.store.ListTenants(c.Request().Context(), c.QueryParam("search"), page, limit)
	if err != nil {
		logger.FromEcho(c).Error("Failed to list tenants", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list tenants"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"tenants": tenants,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

// Get returns one tenant. Principals may always read their own tenant;
// anything else requires tenants:view.
func (h *TenantHandler) Get(c echo.Context) error {
	p, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	id := c.Param("id")
	if !canAccessTenant(p, id) {
		prometheus.RecordPermissionDenial("tenants:view")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient permissions"})
	}
	t, err := h.store.FindTenantByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, autherr.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
		}
		logger.FromEcho(c).Error("Failed to load tenant", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load tenant"})
	}
	return c.JSON(http.StatusOK, echo.Map{"tenant": t})
}

// Update changes tenant branding. Own-tenant updates ride on
// organizations:update; cross-tenant updates require tenants:update.
func (h *TenantHandler) Update(c echo.Context) error {
	p, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	id := c.Param("id")

	allowed := authz.Has(p.Permissions, "tenants:update") ||
		(p.TenantID == id && authz.Has(p.Permissions, "organizations:update"))
	if !allowed {
		prometheus.RecordPermissionDenial("tenants:update")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient permissions"})
	}

	var req struct {
		Name         *string `json:"name"`
		LogoURL      *string `json:"logo_url"`
		PrimaryColor *string `json:"primary_color"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Name != nil && *req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name cannot be empty"})
	}

	t, err := h.store.UpdateTenant(c.Request().Context(), id, req.Name, req.LogoURL, req.PrimaryColor)
	if err != nil {
		if errors.Is(err, autherr.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
		}
		logger.FromEcho(c).Error("Failed to update tenant", zap.Error(err), zap.String("tenant_id", id))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update tenant"})
	}
	return c.JSON(http.StatusOK, echo.Map{"tenant": t})
}

// ListSubscriptions returns a tenant's subscription history, newest
// first.
func (h *TenantHandler) ListSubscriptions(c echo.Context) error {
	p, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	tenantID := c.Param("id")
	if !canAccessTenant(p, tenantID) {
		prometheus.RecordPermissionDenial("subscriptions:list")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient permissions"})
	}
	subs, err := h.subs.List(c.Request().Context(), tenantID)
	if err != nil {
		logger.FromEcho(c).Error("Failed to list subscriptions", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list subscriptions"})
	}
	return c.JSON(http.StatusOK, echo.Map{"subscriptions": subs})
}

// ActivateSubscription records a new subscription for the tenant. When
// the new row is active, any previously active row is deactivated and
// end-dated in the same transaction.
func (h *TenantHandler) ActivateSubscription(c echo.Context) error {
	log := logger.FromEcho(c)
	p, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	tenantID := c.Param("id")
	if !canAccessTenant(p, tenantID) {
		prometheus.RecordPermissionDenial("subscriptions:create")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient permissions"})
	}

	var req struct {
		PlanType         string     `json:"plan_type"`
		StartDate        *time.Time `json:"start_date"`
		EndDate          *time.Time `json:"end_date"`
		IsActive         *bool      `json:"is_active"`
		AutoRenew        bool       `json:"auto_renew"`
		PaymentMethod    *string    `json:"payment_method"`
		PaymentReference *string    `json:"payment_reference"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	in := subscription.ActivateInput{
		TenantID:         tenantID,
		PlanType:         req.PlanType,
		EndDate:          req.EndDate,
		IsActive:         true,
		AutoRenew:        req.AutoRenew,
		PaymentMethod:    req.PaymentMethod,
		PaymentReference: req.PaymentReference,
	}
	if req.StartDate != nil {
		in.StartDate = *req.StartDate
	}
	if req.IsActive != nil {
		in.IsActive = *req.IsActive
	}

	sub, err := h.subs.Activate(c.Request().Context(), in)
	if err != nil {
		if errors.Is(err, autherr.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
		}
		log.Error("Failed to activate subscription", zap.Error(err), zap.String("tenant_id", tenantID))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	log.Info("Subscription recorded",
		zap.String("tenant_id", tenantID),
		zap.String("plan", string(sub.PlanType)),
		zap.Bool("active", sub.IsActive))
	return c.JSON(http.StatusCreated, echo.Map{"subscription": sub})
}

// CancelSubscription deactivates one subscription and switches off
// auto-renew.
func (h *TenantHandler) CancelSubscription(c echo.Context) error {
	p, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	tenantID := c.Param("id")
	if !canAccessTenant(p, tenantID) {
		prometheus.RecordPermissionDenial("subscriptions:cancel")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient permissions"})
	}
	sub, err := h.subs.Cancel(c.Request().Context(), tenantID, c.Param("subscription_id"))
	if err != nil {
		if errors.Is(err, autherr.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "subscription not found"})
		}
		logger.FromEcho(c).Error("Failed to cancel subscription", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel subscription"})
	}
	return c.JSON(http.StatusOK, echo.Map{"subscription": sub})
}
