package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/justinmcgrath168/saas-dental-platform/internal/authz"
	"github.com/justinmcgrath168/saas-dental-platform/internal/model"
)

// PermissionHandler serves the static permission catalog for admin UIs.
type PermissionHandler struct{}

func NewPermissionHandler() *PermissionHandler {
	return &PermissionHandler{}
}

// Catalog returns every known permission code grouped by module.
func (h *PermissionHandler) Catalog(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"permissions": authz.Registry(),
		"groups":      authz.Groups(),
	})
}

// RoleDefaults returns the default grant set for a role, used by admin
// UIs to pre-fill the permission picker when creating a user.
func (h *PermissionHandler) RoleDefaults(c echo.Context) error {
	role := c.Param("role")
	if !model.ValidRole(role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown role"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"role":        role,
		"permissions": authz.DefaultPermissions(model.UserRole(role)),
	})
}
