package model

// Role names of the default catalog
const (
	RoleSuperAdmin  = "SUPER_ADMIN"
	RoleAdmin       = "ADMIN"
	RoleFundManager = "FUND_MANAGER"
	RoleAnalyst     = "ANALYST"
	RoleInvestor    = "INVESTOR"
)

// Permission names guarding the admin API
const (
	PermUserRead         = "USER:READ"
	PermUserCreate       = "USER:CREATE"
	PermUserUpdate       = "USER:UPDATE"
	PermUserDelete       = "USER:DELETE"
	PermRoleRead         = "ROLE:READ"
	PermRoleManage       = "ROLE:MANAGE"
	PermRoleAssign       = "ROLE:ASSIGN"
	PermPermissionRead   = "PERMISSION:READ"
	PermPermissionManage = "PERMISSION:MANAGE"
	PermAuditRead        = "AUDIT:READ"
	PermStatsRead        = "STATS:READ"
)

// CatalogPermission describes a permission of the default catalog
type CatalogPermission struct {
	Name        string
	Resource    string
	Action      string
	Description string
}

// CatalogRole describes a role of the default catalog and the permissions it should hold
type CatalogRole struct {
	Name        string
	Description string
	IsDefault   bool
	Permissions []string
}

func catalogPermission(resource, action, description string) CatalogPermission {
	return CatalogPermission{
		Name:        resource + ":" + action,
		Resource:    resource,
		Action:      action,
		Description: description,
	}
}

// DefaultPermissions is the fixed permission catalog created by the seeding routine
var DefaultPermissions = []CatalogPermission{
	// User management
	catalogPermission("USER", "READ", "View users"),
	catalogPermission("USER", "CREATE", "Create users"),
	catalogPermission("USER", "UPDATE", "Update users"),
	catalogPermission("USER", "DELETE", "Delete users"),
	// Authorization model
	catalogPermission("ROLE", "READ", "View roles"),
	catalogPermission("ROLE", "MANAGE", "Create, update and delete roles"),
	catalogPermission("ROLE", "ASSIGN", "Assign and revoke user roles"),
	catalogPermission("PERMISSION", "READ", "View permissions"),
	catalogPermission("PERMISSION", "MANAGE", "Create, update, delete and grant permissions"),
	catalogPermission("AUDIT", "READ", "View assignment history"),
	// Funds
	catalogPermission("FUND", "READ", "View funds"),
	catalogPermission("FUND", "CREATE", "Create funds"),
	catalogPermission("FUND", "UPDATE", "Update funds"),
	catalogPermission("FUND", "DELETE", "Delete funds"),
	// Investments and capital calls
	catalogPermission("INVESTMENT", "READ", "View investments"),
	catalogPermission("INVESTMENT", "MANAGE", "Manage investments"),
	catalogPermission("CAPITAL_CALL", "READ", "View capital calls"),
	catalogPermission("CAPITAL_CALL", "MANAGE", "Issue and manage capital calls"),
	// Statistics and reporting
	catalogPermission("STATS", "READ", "View dashboard statistics"),
	catalogPermission("REPORT", "EXPORT", "Export reports"),
}

// DefaultRoles is the fixed role catalog created by the seeding routine
var DefaultRoles = []CatalogRole{
	{
		Name:        RoleSuperAdmin,
		Description: "Full system access with all permissions",
		Permissions: permissionNames(DefaultPermissions),
	},
	{
		Name:        RoleAdmin,
		Description: "Administrative access without authorization model management",
		Permissions: []string{
			"USER:READ", "USER:CREATE", "USER:UPDATE",
			"ROLE:READ", "ROLE:ASSIGN", "PERMISSION:READ", "AUDIT:READ",
			"FUND:READ", "INVESTMENT:READ", "CAPITAL_CALL:READ", "STATS:READ",
		},
	},
	{
		Name:        RoleFundManager,
		Description: "Manages funds, investments and capital calls",
		Permissions: []string{
			"FUND:READ", "FUND:CREATE", "FUND:UPDATE",
			"INVESTMENT:READ", "INVESTMENT:MANAGE",
			"CAPITAL_CALL:READ", "CAPITAL_CALL:MANAGE",
			"STATS:READ", "REPORT:EXPORT",
		},
	},
	{
		Name:        RoleAnalyst,
		Description: "Read-only access to fund data and reports",
		Permissions: []string{
			"FUND:READ", "INVESTMENT:READ", "CAPITAL_CALL:READ", "STATS:READ", "REPORT:EXPORT",
		},
	},
	{
		Name:        RoleInvestor,
		Description: "Default role for new users",
		IsDefault:   true,
		Permissions: []string{"FUND:READ", "INVESTMENT:READ", "CAPITAL_CALL:READ"},
	},
}

func permissionNames(perms []CatalogPermission) []string {
	names := make([]string, len(perms))
	for i, p := range perms {
		names[i] = p.Name
	}
	return names
}
