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
	"github.com/justinmcgrath168/saas-dental-platform/pkg/logger"
	"github.com/justinmcgrath168/saas-dental-platform/prometheus"
)

// UserHandler owns the user directory: listing, creation with atomic
// location and permission associations, updates, and grant management.
type UserHandler struct {
	store  store.Datastore
	hasher session.PasswordHasher
}

func NewUserHandler(ds store.Datastore, hasher session.PasswordHasher) *UserHandler {
	return &UserHandler{store: ds, hasher: hasher}
}

// userView strips the password hash from API responses.
func userView(u *model.User) echo.Map {
	view := echo.Map{
		"id":              u.ID,
		"name":            u.Name,
		"email":           u.Email,
		"role":            u.Role,
		"organization_id": u.OrganizationID,
		"is_active":       u.IsActive,
		"last_login":      u.LastLogin,
		"created_at":      u.CreatedAt,
	}
	if len(u.Locations) > 0 {
		view["locations"] = u.Locations
	}
	if len(u.Permissions) > 0 {
		view["permissions"] = u.GrantedPermissionCodes()
	}
	return view
}

// List returns users visible to the caller. Without users:list-all the
// result is pinned to the caller's own organization.
func (h *UserHandler) List(c echo.Context) error {
	p, err := requirePrincipal(c)
	if err != nil {
		return err
	}

	filter := store.UserFilter{
		OrganizationID: c.QueryParam("organization_id"),
		Role:           c.QueryParam("role"),
		Search:         c.QueryParam("search"),
	}
	filter.Page, filter.Limit = pageParams(c)
	if v := c.QueryParam("is_active"); v != "" {
		active := v == "true"
		filter.IsActive = &active
	}
	if !authz.Has(p.Permissions, "users:list-all") {
		filter.OrganizationID = p.OrganizationID
	}

	users, total, err := h.store.ListUsers(c.Request().Context(), filter)
	if err != nil {
		logger.FromEcho(c).Error("Failed to list users", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list users"})
	}

	views := make([]echo.Map, 0, len(users))
	for i := range users {
		views = append(views, userView(&users[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"users": views,
		"total": total,
		"page":  filter.Page,
		"limit": filter.Limit,
	})
}

// Get returns one user. users:view covers anyone visible to the caller;
// users:view-self covers only the caller's own record.
func (h *UserHandler) Get(c echo.Context) error {
	p, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	id := c.Param("id")

	if id != p.UserID && !authz.Has(p.Permissions, "users:view") {
		prometheus.RecordPermissionDenial("users:view")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient permissions"})
	}
	if id == p.UserID && !authz.HasAny(p.Permissions, "users:view", "users:view-self") {
		prometheus.RecordPermissionDenial("users:view-self")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient permissions"})
	}

	u, err := h.store.FindUserWithPermissions(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, autherr.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		logger.FromEcho(c).Error("Failed to load user", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load user"})
	}
	if err := h.checkTenantScope(p, u); err != nil {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient permissions"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": userView(u)})
}

type createUserRequest struct {
	Name              string   `json:"name"`
	Email             string   `json:"email"`
	Password          string   `json:"password"`
	Role              string   `json:"role"`
	OrganizationID    string   `json:"organization_id"`
	LocationIDs       []string `json:"location_ids"`
	PrimaryLocationID string   `json:"primary_location_id"`
	Permissions       []string `json:"permissions"`
}

// Create adds a user together with its location assignments and
// permission grants in one transaction. The caller cannot hand out a
// role above their own, and when no explicit grants are supplied the
// new user receives the role's default permission set.
func (h *UserHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)
	p, err := requirePrincipal(c)
	if err != nil {
		return err
	}

	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and email are required"})
	}
	if !model.ValidRole(req.Role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown role"})
	}
	role := model.UserRole(req.Role)

	if err := authz.CheckAssignRole(p.Role, role); err != nil {
		log.Warn("Role assignment blocked",
			zap.String("acting_role", string(p.Role)),
			zap.String("target_role", string(role)))
		prometheus.RecordAuthError("insufficient_privilege")
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	}

	orgID := req.OrganizationID
	if orgID == "" {
		orgID = p.OrganizationID
	}
	if orgID != p.OrganizationID && !authz.Has(p.Permissions, "users:list-all") {
		prometheus.RecordPermissionDenial("users:create")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "cannot create users in another organization"})
	}
	org, err := h.store.FindOrganizationByID(c.Request().Context(), orgID)
	if err != nil {
		if errors.Is(err, autherr.ErrNotFound) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization not found"})
		}
		log.Error("Failed to load organization", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create user"})
	}
	if !canAccessTenant(p, org.TenantID) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "cannot create users in another tenant"})
	}

	var passwordHash *string
	if req.Password != "" {
		if len(req.Password) < 8 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 8 characters"})
		}
		hash, err := h.hasher.Hash(req.Password)
		if err != nil {
			log.Error("Failed to hash password", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create user"})
		}
		passwordHash = &hash
	}

	codes := req.Permissions
	if len(codes) == 0 {
		codes = authz.DefaultPermissions(role)
	} else {
		for _, code := range codes {
			if !authz.Exists(code) {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown permission: " + code})
			}
		}
	}

	u, err := h.store.CreateUserWithAssociations(c.Request().Context(), store.NewUser{
		Name:              req.Name,
		Email:             req.Email,
		PasswordHash:      passwordHash,
		Role:              role,
		OrganizationID:    orgID,
		IsActive:          true,
		LocationIDs:       req.LocationIDs,
		PrimaryLocationID: req.PrimaryLocationID,
		PermissionCodes:   codes,
	})
	if err != nil {
		switch {
		case errors.Is(err, autherr.ErrDuplicateResource):
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already in use"})
		case errors.Is(err, autherr.ErrNotFound):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "referenced location does not exist"})
		default:
			log.Error("Failed to create user", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create user"})
		}
	}

	log.Info("User created",
		zap.String("user_id", u.ID),
		zap.String("role", string(u.Role)),
		zap.String("organization_id", u.OrganizationID))
	return c.JSON(http.StatusCreated, echo.Map{"user": userView(u)})
}

type updateUserRequest struct {
	Name              *string  `json:"name"`
	Email             *string  `json:"email"`
	Password          *string  `json:"password"`
	Role              *string  `json:"role"`
	IsActive          *bool    `json:"is_active"`
	LocationIDs       []string `json:"location_ids"`
	PrimaryLocationID string   `json:"primary_location_id"`
}

// Update modifies a user. Role changes pass through the same privilege
// check as creation and deliberately leave the existing grant set
// untouched; grants are managed separately via UpdatePermissions.
func (h *UserHandler) Update(c echo.Context) error {
	log := logger.FromEcho(c)
	p, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	id := c.Param("id")

	target, err := h.store.FindUserWithPermissions(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, autherr.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		log.Error("Failed to load user", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update user"})
	}
	if err := h.checkTenantScope(p, target); err != nil {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient permissions"})
	}

	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	update := store.UserUpdate{
		Name:              req.Name,
		IsActive:          req.IsActive,
		LocationIDs:       req.LocationIDs,
		PrimaryLocationID: req.PrimaryLocationID,
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		update.Email = &email
	}
	if req.Role != nil {
		if !model.ValidRole(*req.Role) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown role"})
		}
		role := model.UserRole(*req.Role)
		if err := authz.CheckAssignRole(p.Role, role); err != nil {
			prometheus.RecordAuthError("insufficient_privilege")
			return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
		}
		update.Role = &role
	}
	if req.Password != nil {
		if len(*req.Password) < 8 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 8 characters"})
		}
		hash, err := h.hasher.Hash(*req.Password)
		if err != nil {
			log.Error("Failed to hash password", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update user"})
		}
		update.PasswordHash = &hash
	}

	u, err := h.store.UpdateUser(c.Request().Context(), id, update)
	if err != nil {
		switch {
		case errors.Is(err, autherr.ErrDuplicateResource):
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already in use"})
		case errors.Is(err, autherr.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		default:
			log.Error("Failed to update user", zap.Error(err), zap.String("user_id", id))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update user"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"user": userView(u)})
}

// UpdatePermissions replaces a user's grant set wholesale.
func (h *UserHandler) UpdatePermissions(c echo.Context) error {
	log := logger.FromEcho(c)
	p, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	id := c.Param("id")

	target, err := h.store.FindUserWithPermissions(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, autherr.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		log.Error("Failed to load user", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update permissions"})
	}
	if err := h.checkTenantScope(p, target); err != nil {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient permissions"})
	}

	var req struct {
		Permissions []string `json:"permissions"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	for _, code := range req.Permissions {
		if !authz.Exists(code) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown permission: " + code})
		}
	}

	u, err := h.store.UpdateUser(c.Request().Context(), id, store.UserUpdate{
		PermissionCodes: req.Permissions,
		ReplacePerms:    true,
	})
	if err != nil {
		log.Error("Failed to replace permissions", zap.Error(err), zap.String("user_id", id))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update permissions"})
	}

	log.Info("Permissions replaced",
		zap.String("user_id", id),
		zap.Int("grant_count", len(req.Permissions)))
	return c.JSON(http.StatusOK, echo.Map{"user": userView(u)})
}

// Deactivate soft-disables an account; subsequent sign-ins fail and the
// next token refresh is rejected.
func (h *UserHandler) Deactivate(c echo.Context) error {
	log := logger.FromEcho(c)
	p, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	id := c.Param("id")
	if id == p.UserID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot deactivate your own account"})
	}

	target, err := h.store.FindUserWithPermissions(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, autherr.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		log.Error("Failed to load user", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to deactivate user"})
	}
	if err := h.checkTenantScope(p, target); err != nil {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient permissions"})
	}

	inactive := false
	u, err := h.store.UpdateUser(c.Request().Context(), id, store.UserUpdate{IsActive: &inactive})
	if err != nil {
		log.Error("Failed to deactivate user", zap.Error(err), zap.String("user_id", id))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to deactivate user"})
	}

	log.Info("User deactivated", zap.String("user_id", id), zap.String("by", p.UserID))
	return c.JSON(http.StatusOK, echo.Map{"user": userView(u)})
}

// checkTenantScope rejects operations on users whose organization
// belongs to another tenant, unless the caller holds tenants:view.
func (h *UserHandler) checkTenantScope(p *session.Principal, target *model.User) error {
	tenantID := target.Organization.TenantID
	if tenantID == "" || canAccessTenant(p, tenantID) {
		return nil
	}
	prometheus.RecordAuthError("cross_tenant")
	return autherr.ErrCrossTenantMismatch
}
