package handler

import (
	"go-fund-admin/internal/middleware"
	"go-fund-admin/internal/model"
	"go-fund-admin/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// AssignmentHandler serves user role links, access checks and the audit trail
type AssignmentHandler struct {
	assignments service.AssignmentService
}

func NewAssignmentHandler(assignments service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignments}
}

// GetUserRoles returns the active roles of a user with their permissions
// GET /api/v1/users/:id/roles
func (h *AssignmentHandler) GetUserRoles(c *fiber.Ctx) error {
	userID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid user ID")
	}

	roles, err := h.assignments.GetEffectiveRoles(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(roles)
}

// GET /api/v1/users/:id/permissions
func (h *AssignmentHandler) GetUserPermissions(c *fiber.Ctx) error {
	userID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid user ID")
	}
	return h.effectivePermissions(c, userID)
}

// GetMyPermissions returns the effective permissions of the caller
// GET /api/v1/me/permissions
func (h *AssignmentHandler) GetMyPermissions(c *fiber.Ctx) error {
	identity := middleware.CurrentIdentity(c)
	if identity == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required"})
	}
	return h.effectivePermissions(c, identity.UserID)
}

func (h *AssignmentHandler) effectivePermissions(c *fiber.Ctx, userID uuid.UUID) error {
	permissions, err := h.assignments.GetEffectivePermissions(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(permissions)
}

// AssignRoleRequest represents the assign role request body
type AssignRoleRequest struct {
	RoleID uuid.UUID `json:"role_id"`
	service.AssignOptions
}

// AssignRole gives a user a role
// POST /api/v1/users/:id/roles
func (h *AssignmentHandler) AssignRole(c *fiber.Ctx) error {
	userID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid user ID")
	}

	var req AssignRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	if req.RoleID == uuid.Nil {
		return badRequest(c, "role_id is required")
	}

	link, err := h.assignments.AssignRole(c.UserContext(), userID, req.RoleID, actorID(c), req.AssignOptions)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Role assigned successfully",
		"data":    link,
	})
}

// RevokeRole removes one role from a user
// DELETE /api/v1/users/:id/roles/:roleId
func (h *AssignmentHandler) RevokeRole(c *fiber.Ctx) error {
	userID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid user ID")
	}
	roleID, ok := paramID(c, "roleId")
	if !ok {
		return badRequest(c, "Invalid role ID")
	}

	if err := h.assignments.RevokeRole(c.UserContext(), userID, roleID, actorID(c), c.Query("reason")); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Role revoked successfully"})
}

// RevokeAllRoles removes every active role of a user
// DELETE /api/v1/users/:id/roles
func (h *AssignmentHandler) RevokeAllRoles(c *fiber.Ctx) error {
	userID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid user ID")
	}

	revoked, err := h.assignments.RevokeAllRolesForUser(c.UserContext(), userID, actorID(c), c.Query("reason"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Roles revoked successfully",
		"revoked": revoked,
	})
}

// CheckPermissionRequest represents the permission check body
type CheckPermissionRequest struct {
	Permission string  `json:"permission"`
	Resource   *string `json:"resource"`
}

// POST /api/v1/users/:id/check-permission
func (h *AssignmentHandler) CheckPermission(c *fiber.Ctx) error {
	userID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid user ID")
	}

	var req CheckPermissionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	if req.Permission == "" {
		return badRequest(c, "permission is required")
	}

	check, err := h.assignments.CheckPermission(c.UserContext(), userID, req.Permission, req.Resource)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(check)
}

// CheckAccess reports whether a user may perform action on resource
// GET /api/v1/users/:id/access?resource=&action=
func (h *AssignmentHandler) CheckAccess(c *fiber.Ctx) error {
	userID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid user ID")
	}

	resource, action := c.Query("resource"), c.Query("action")
	if resource == "" || action == "" {
		return badRequest(c, "resource and action are required")
	}

	check, err := h.assignments.CheckAccess(c.UserContext(), userID, resource, action)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(check)
}

// GetRoleHistory lists role assignment records, newest first
// Query params: user_id, role_id, active_only, limit
// GET /api/v1/audit/roles
func (h *AssignmentHandler) GetRoleHistory(c *fiber.Ctx) error {
	userID, ok := queryID(c, "user_id")
	if !ok {
		return badRequest(c, "Invalid user_id")
	}
	roleID, ok := queryID(c, "role_id")
	if !ok {
		return badRequest(c, "Invalid role_id")
	}

	records, err := h.assignments.ListRoleHistory(c.UserContext(), model.RoleHistoryFilter{
		UserID:     userID,
		RoleID:     roleID,
		ActiveOnly: c.QueryBool("active_only"),
		Limit:      c.QueryInt("limit"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(records)
}

// GetPermissionAudit lists permission grant records, newest first
// Query params: role_id, permission_id, limit
// GET /api/v1/audit/permissions
func (h *AssignmentHandler) GetPermissionAudit(c *fiber.Ctx) error {
	roleID, ok := queryID(c, "role_id")
	if !ok {
		return badRequest(c, "Invalid role_id")
	}
	permissionID, ok := queryID(c, "permission_id")
	if !ok {
		return badRequest(c, "Invalid permission_id")
	}

	records, err := h.assignments.ListPermissionAudit(c.UserContext(), model.PermissionAuditFilter{
		RoleID:       roleID,
		PermissionID: permissionID,
		Limit:        c.QueryInt("limit"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(records)
}
