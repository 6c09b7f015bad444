package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/justinmcgrath168/saas-dental-platform/internal/autherr"
	"github.com/justinmcgrath168/saas-dental-platform/internal/model"
	"github.com/justinmcgrath168/saas-dental-platform/internal/store"
	"github.com/justinmcgrath168/saas-dental-platform/pkg/logger"
	"github.com/justinmcgrath168/saas-dental-platform/prometheus"
)

// OrgHandler owns organizations and the locations nested under them.
type OrgHandler struct {
	store store.Datastore
}

func NewOrgHandler(ds store.Datastore) *OrgHandler {
	return &OrgHandler{store: ds}
}

// List returns the caller's tenant's organizations. A tenant_id query
// parameter is honored only for principals holding tenants:view.
func (h *OrgHandler) List(c echo.Context) error {
	p, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	tenantID := c.QueryParam("tenant_id")
	if tenantID == "" {
		tenantID = p.TenantID
	}
	if !canAccessTenant(p, tenantID) {
		prometheus.RecordPermissionDenial("organizations:list")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient permissions"})
	}

	orgs, err := h.store.ListOrganizations(c.Request().Context(), tenantID)
	if err != nil {
		logger.FromEcho(c).Error("Failed to list organizations", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list organizations"})
	}
	return c.JSON(http.StatusOK, echo.Map{"organizations": orgs})
}

func (h *OrgHandler) Get(c echo.Context) error {
	p, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	org, err := h.store.FindOrganizationByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, autherr.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "organization not found"})
		}
		logger.FromEcho(c).Error("Failed to load organization", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load organization"})
	}
	if !canAccessTenant(p, org.TenantID) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient permissions"})
	}
	return c.JSON(http.StatusOK, echo.Map{"organization": org})
}

type orgRequest struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Website string `json:"website"`
}

// Create adds an organization to the caller's tenant.
func (h *OrgHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)
	p, err := requirePrincipal(c)
	if err != nil {
		return err
	}

	var req orgRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	if !model.ValidOrgType(req.Type) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown organization type"})
	}

	org, err := h.store.CreateOrganization(c.Request().Context(), model.Organization{
		TenantID: p.TenantID,
		Name:     req.Name,
		Type:     model.OrgType(req.Type),
		Address:  req.Address,
		City:     req.City,
		State:    req.State,
		ZipCode:  req.ZipCode,
		Country:  req.Country,
		Phone:    req.Phone,
		Email:    req.Email,
		Website:  req.Website,
	})
	if err != nil {
		log.Error("Failed to create organization", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create organization"})
	}

	log.Info("Organization created",
		zap.String("organization_id", org.ID),
		zap.String("type", string(org.Type)))
	return c.JSON(http.StatusCreated, echo.Map{"organization": org})
}

// Update changes an organization's contact details. The type is stable
// after creation and is not updatable here.
func (h *OrgHandler) Update(c echo.Context) error {
	log := logger.FromEcho(c)
	p, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	id := c.Param("id")

	org, err := h.store.FindOrganizationByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, autherr.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "organization not found"})
		}
		log.Error("Failed to load organization", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update organization"})
	}
	if !canAccessTenant(p, org.TenantID) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient permissions"})
	}

	var req orgRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Name != "" {
		org.Name = strings.TrimSpace(req.Name)
	}
	org.Address = req.Address
	org.City = req.City
	org.State = req.State
	org.ZipCode = req.ZipCode
	org.Country = req.Country
	org.Phone = req.Phone
	org.Email = req.Email
	org.Website = req.Website

	updated, err := h.store.UpdateOrganization(c.Request().Context(), *org)
	if err != nil {
		log.Error("Failed to update organization", zap.Error(err), zap.String("organization_id", id))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update organization"})
	}
	return c.JSON(http.StatusOK, echo.Map{"organization": updated})
}

// ListLocations returns one organization's locations.
func (h *OrgHandler) ListLocations(c echo.Context) error {
	p, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	orgID := c.Param("id")
	org, err := h.store.FindOrganizationByID(c.Request().Context(), orgID)
	if err != nil {
		if errors.Is(err, autherr.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "organization not found"})
		}
		logger.FromEcho(c).Error("Failed to load organization", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list locations"})
	}
	if !canAccessTenant(p, org.TenantID) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient permissions"})
	}

	locs, err := h.store.ListLocations(c.Request().Context(), orgID)
	if err != nil {
		logger.FromEcho(c).Error("Failed to list locations", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list locations"})
	}
	return c.JSON(http.StatusOK, echo.Map{"locations": locs})
}

type locationRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	IsMain  bool   `json:"is_main"`
}

// CreateLocation adds a location under an organization. The first
// location of an organization is always flagged as the main site.
func (h *OrgHandler) CreateLocation(c echo.Context) error {
	log := logger.FromEcho(c)
	p, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	orgID := c.Param("id")

	org, err := h.store.FindOrganizationByID(c.Request().Context(), orgID)
	if err != nil {
		if errors.Is(err, autherr.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "organization not found"})
		}
		log.Error("Failed to load organization", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create location"})
	}
	if !canAccessTenant(p, org.TenantID) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient permissions"})
	}

	var req locationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	loc, err := h.store.CreateLocation(c.Request().Context(), model.Location{
		OrganizationID: orgID,
		Name:           req.Name,
		Address:        req.Address,
		City:           req.City,
		State:          req.State,
		ZipCode:        req.ZipCode,
		Country:        req.Country,
		Phone:          req.Phone,
		Email:          req.Email,
		IsMain:         req.IsMain,
	})
	if err != nil {
		log.Error("Failed to create location", zap.Error(err), zap.String("organization_id", orgID))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create location"})
	}

	log.Info("Location created",
		zap.String("location_id", loc.ID),
		zap.String("organization_id", orgID),
		zap.Bool("is_main", loc.IsMain))
	return c.JSON(http.StatusCreated, echo.Map{"location": loc})
}

// UpdateLocation changes a location's details.
func (h *OrgHandler) UpdateLocation(c echo.Context) error {
	log := logger.FromEcho(c)
	p, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	locID := c.Param("location_id")

	loc, err := h.store.FindLocationByID(c.Request().Context(), locID)
	if err != nil {
		if errors.Is(err, autherr.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "location not found"})
		}
		log.Error("Failed to load location", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update location"})
	}
	org, err := h.store.FindOrganizationByID(c.Request().Context(), loc.OrganizationID)
	if err != nil {
		log.Error("Failed to load organization", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update location"})
	}
	if !canAccessTenant(p, org.TenantID) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient permissions"})
	}

	var req locationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Name != "" {
		loc.Name = strings.TrimSpace(req.Name)
	}
	loc.Address = req.Address
	loc.City = req.City
	loc.State = req.State
	loc.ZipCode = req.ZipCode
	loc.Country = req.Country
	loc.Phone = req.Phone
	loc.Email = req.Email

	updated, err := h.store.UpdateLocation(c.Request().Context(), *loc)
	if err != nil {
		log.Error("Failed to update location", zap.Error(err), zap.String("location_id", locID))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update location"})
	}
	return c.JSON(http.StatusOK, echo.Map{"location": updated})
}
