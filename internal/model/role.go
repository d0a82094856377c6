package model

// Role is a named bundle of permissions assignable to users.
// Roles are deactivated instead of deleted so audit history keeps resolving.
type Role struct {
	BaseModel
	Name        string `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	IsActive    bool   `gorm:"not null;index" json:"is_active"`
	// At most one row may carry is_default = true
	IsDefault bool `gorm:"not null;uniqueIndex:idx_roles_single_default,where:is_default" json:"is_default"`
}

// RoleWithPermissions is a role together with the names of its active permissions
type RoleWithPermissions struct {
	Role
	Permissions []string `json:"permissions"`
}
