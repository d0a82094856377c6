package handler

import (
	"go-fund-admin/internal/authz"
	"go-fund-admin/internal/middleware"
	"go-fund-admin/internal/model"

	"github.com/gofiber/fiber/v2"
)

// Handlers groups every handler served under /api/v1
type Handlers struct {
	Auth       *AuthHandler
	User       *UserHandler
	Role       *RoleHandler
	Permission *PermissionHandler
	Assignment *AssignmentHandler
	Dashboard  *DashboardHandler
	System     *SystemHandler
}

// RegisterRoutes mounts the API on router. Each route declares its own requirements.
func RegisterRoutes(router fiber.Router, guard *middleware.Guard, h Handlers) {
	api := router.Group("/api/v1")
	public := guard.Require(authz.Public())

	// ============ PUBLIC ROUTES ============
	api.Get("/health", public, h.System.Health)

	auth := api.Group("/auth")
	auth.Post("/login", public, h.Auth.Login)
	auth.Post("/reset-password", public, h.Auth.ResetPassword)
	auth.Post("/validate-token", public, h.Auth.ValidateToken)

	// ============ AUTHENTICATED ROUTES ============
	api.Get("/me/permissions", guard.Require(authz.Authenticated()), h.Assignment.GetMyPermissions)
	api.Get("/dashboard/stats", guard.Require(authz.AnyPermission(model.PermStatsRead)), h.Dashboard.GetAuthorizationStats)

	// Roles
	roleRead := guard.Require(authz.AnyPermission(model.PermRoleRead))
	roleManage := guard.Require(authz.AnyPermission(model.PermRoleManage))
	grantManage := guard.Require(authz.AllPermissions(model.PermRoleManage, model.PermPermissionManage))

	roles := api.Group("/roles")
	roles.Get("/", roleRead, h.Role.GetRoles)
	roles.Post("/", roleManage, h.Role.CreateRole)
	roles.Get("/by-name/:name", roleRead, h.Role.GetRoleByName)
	roles.Get("/:id", roleRead, h.Role.GetRole)
	roles.Put("/:id", roleManage, h.Role.UpdateRole)
	roles.Delete("/:id", roleManage, h.Role.DeleteRole)
	roles.Post("/:id/permissions", grantManage, h.Role.GrantPermissions)
	roles.Delete("/:id/permissions", grantManage, h.Role.RevokePermissions)
	roles.Delete("/:id/permissions/:permissionId", grantManage, h.Role.RevokePermission)
	roles.Post("/:id/users", guard.Require(authz.AnyPermission(model.PermRoleAssign)), h.Role.AssignUsers)

	// Permissions
	permissionRead := guard.Require(authz.AnyPermission(model.PermPermissionRead))
	permissionManage := guard.Require(authz.AnyPermission(model.PermPermissionManage))

	permissions := api.Group("/permissions")
	permissions.Get("/", permissionRead, h.Permission.GetPermissions)
	permissions.Post("/", permissionManage, h.Permission.CreatePermission)
	permissions.Get("/grouped", permissionRead, h.Permission.GetGrouped)
	permissions.Get("/resource/:resource", permissionRead, h.Permission.GetForResource)
	permissions.Get("/:id", permissionRead, h.Permission.GetPermission)
	permissions.Put("/:id", permissionManage, h.Permission.UpdatePermission)
	permissions.Delete("/:id", permissionManage, h.Permission.DeletePermission)

	// Users
	userRead := guard.Require(authz.AnyPermission(model.PermUserRead))
	roleAssign := guard.Require(authz.AnyPermission(model.PermRoleAssign))

	users := api.Group("/users")
	users.Get("/", userRead, h.User.GetUsers)
	users.Post("/", guard.Require(authz.AllPermissions(model.PermUserCreate)), h.User.CreateUser)
	users.Get("/:id", userRead, h.User.GetUser)
	users.Put("/:id", guard.Require(authz.AllPermissions(model.PermUserUpdate)), h.User.UpdateUser)
	users.Delete("/:id", guard.Require(authz.AllPermissions(model.PermUserDelete)), h.User.DeleteUser)
	users.Get("/:id/roles", guard.Require(authz.AllPermissions(model.PermUserRead, model.PermRoleRead)), h.Assignment.GetUserRoles)
	users.Get("/:id/permissions", guard.Require(authz.AllPermissions(model.PermUserRead, model.PermPermissionRead)), h.Assignment.GetUserPermissions)
	users.Post("/:id/roles", roleAssign, h.Assignment.AssignRole)
	users.Delete("/:id/roles", guard.Require(authz.AllPermissions(model.PermRoleAssign, model.PermUserUpdate)), h.Assignment.RevokeAllRoles)
	users.Delete("/:id/roles/:roleId", roleAssign, h.Assignment.RevokeRole)
	users.Post("/:id/check-permission", userRead, h.Assignment.CheckPermission)
	users.Get("/:id/access", userRead, h.Assignment.CheckAccess)

	// Audit trail
	auditRead := guard.Require(authz.AnyPermission(model.PermAuditRead))
	api.Get("/audit/roles", auditRead, h.Assignment.GetRoleHistory)
	api.Get("/audit/permissions", auditRead, h.Assignment.GetPermissionAudit)

	// Administration
	api.Post("/admin/seed", guard.Require(authz.AnyRole(model.RoleSuperAdmin)), h.System.Seed)
}
