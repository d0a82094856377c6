package handler

import (
	"go-fund-admin/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type RoleHandler struct {
	roles       service.RoleService
	assignments service.AssignmentService
}

func NewRoleHandler(roles service.RoleService, assignments service.AssignmentService) *RoleHandler {
	return &RoleHandler{roles: roles, assignments: assignments}
}

// GetRoles returns roles, active ones unless include_inactive is set
// GET /api/v1/roles
func (h *RoleHandler) GetRoles(c *fiber.Ctx) error {
	roles, err := h.roles.ListRoles(c.UserContext(), c.QueryBool("include_inactive"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(roles)
}

// GetRole returns a role with its active permissions
// GET /api/v1/roles/:id
func (h *RoleHandler) GetRole(c *fiber.Ctx) error {
	roleID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid role ID")
	}

	role, err := h.roles.GetRole(c.UserContext(), roleID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(role)
}

// GET /api/v1/roles/by-name/:name
func (h *RoleHandler) GetRoleByName(c *fiber.Ctx) error {
	role, err := h.roles.GetRoleByName(c.UserContext(), c.Params("name"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(role)
}

// CreateRole handles role creation
// POST /api/v1/roles
func (h *RoleHandler) CreateRole(c *fiber.Ctx) error {
	var req service.CreateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	role, err := h.roles.CreateRole(c.UserContext(), &req, actorID(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Role created successfully",
		"data":    role,
	})
}

// UpdateRole handles role update
// PUT /api/v1/roles/:id
func (h *RoleHandler) UpdateRole(c *fiber.Ctx) error {
	roleID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid role ID")
	}

	var req service.UpdateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	role, err := h.roles.UpdateRole(c.UserContext(), roleID, &req, actorID(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Role updated successfully",
		"data":    role,
	})
}

// DeleteRole deactivates a role that nobody holds
// DELETE /api/v1/roles/:id
func (h *RoleHandler) DeleteRole(c *fiber.Ctx) error {
	roleID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid role ID")
	}

	if err := h.roles.DeleteRole(c.UserContext(), roleID, actorID(c)); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Role deleted successfully"})
}

// GrantPermissionsRequest represents the bulk grant request body
type GrantPermissionsRequest struct {
	PermissionIDs []uuid.UUID `json:"permission_ids"`
}

// GrantPermissions grants several permissions to a role
// POST /api/v1/roles/:id/permissions
func (h *RoleHandler) GrantPermissions(c *fiber.Ctx) error {
	roleID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid role ID")
	}

	var req GrantPermissionsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	result, err := h.assignments.BulkAssignPermissions(c.UserContext(), roleID, req.PermissionIDs, actorID(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Permissions processed",
		"outcome": result.Outcome(),
		"data":    result,
	})
}

// RevokePermission detaches one permission from a role
// DELETE /api/v1/roles/:id/permissions/:permissionId
func (h *RoleHandler) RevokePermission(c *fiber.Ctx) error {
	roleID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid role ID")
	}
	permissionID, ok := paramID(c, "permissionId")
	if !ok {
		return badRequest(c, "Invalid permission ID")
	}

	if err := h.assignments.RevokePermissionFromRole(c.UserContext(), roleID, permissionID, actorID(c), c.Query("reason")); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Permission revoked successfully"})
}

// AssignUsersRequest represents the bulk role assignment body
type AssignUsersRequest struct {
	UserIDs []uuid.UUID `json:"user_ids"`
	service.AssignOptions
}

// AssignUsers grants the role to several users
// POST /api/v1/roles/:id/users
func (h *RoleHandler) AssignUsers(c *fiber.Ctx) error {
	roleID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid role ID")
	}

	var req AssignUsersRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	result, err := h.assignments.BulkAssignRoles(c.UserContext(), req.UserIDs, roleID, actorID(c), req.AssignOptions)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Role assignments processed",
		"outcome": result.Outcome(),
		"data":    result,
	})
}

// RevokePermissions detaches several permissions from a role
// DELETE /api/v1/roles/:id/permissions
func (h *RoleHandler) RevokePermissions(c *fiber.Ctx) error {
	roleID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid role ID")
	}

	var req GrantPermissionsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	result, err := h.assignments.BulkRevokePermissions(c.UserContext(), roleID, req.PermissionIDs, actorID(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Permissions processed",
		"outcome": result.Outcome(),
		"data":    result,
	})
}
