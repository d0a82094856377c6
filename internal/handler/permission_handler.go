package handler

import (
	"go-fund-admin/internal/service"

	"github.com/gofiber/fiber/v2"
)

type PermissionHandler struct {
	permissions service.PermissionService
}

func NewPermissionHandler(permissions service.PermissionService) *PermissionHandler {
	return &PermissionHandler{permissions: permissions}
}

// GET /api/v1/permissions
func (h *PermissionHandler) GetPermissions(c *fiber.Ctx) error {
	permissions, err := h.permissions.ListPermissions(c.UserContext(), c.QueryBool("include_inactive"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(permissions)
}

// GetGrouped returns active permissions keyed by resource
// GET /api/v1/permissions/grouped
func (h *PermissionHandler) GetGrouped(c *fiber.Ctx) error {
	grouped, err := h.permissions.ListByResource(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(grouped)
}

// GET /api/v1/permissions/resource/:resource
func (h *PermissionHandler) GetForResource(c *fiber.Ctx) error {
	permissions, err := h.permissions.ListForResource(c.UserContext(), c.Params("resource"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(permissions)
}

// GET /api/v1/permissions/:id
func (h *PermissionHandler) GetPermission(c *fiber.Ctx) error {
	permissionID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid permission ID")
	}

	permission, err := h.permissions.GetPermission(c.UserContext(), permissionID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(permission)
}

// POST /api/v1/permissions
func (h *PermissionHandler) CreatePermission(c *fiber.Ctx) error {
	var req service.CreatePermissionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	permission, err := h.permissions.CreatePermission(c.UserContext(), &req, actorID(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Permission created successfully",
		"data":    permission,
	})
}

// PUT /api/v1/permissions/:id
func (h *PermissionHandler) UpdatePermission(c *fiber.Ctx) error {
	permissionID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid permission ID")
	}

	var req service.UpdatePermissionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	permission, err := h.permissions.UpdatePermission(c.UserContext(), permissionID, &req, actorID(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Permission updated successfully",
		"data":    permission,
	})
}

// DeletePermission deactivates a permission no role holds
// DELETE /api/v1/permissions/:id
func (h *PermissionHandler) DeletePermission(c *fiber.Ctx) error {
	permissionID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid permission ID")
	}

	if err := h.permissions.DeletePermission(c.UserContext(), permissionID, actorID(c)); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Permission deleted successfully"})
}
