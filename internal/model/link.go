package model

import "github.com/google/uuid"

// UserRole is the current-state link between a user and a role.
// Revocation flips IsActive; a later assignment reactivates the same row.
type UserRole struct {
	BaseModel
	UserID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_roles_pair" json:"user_id"`
	RoleID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_roles_pair;index" json:"role_id"`
	IsActive bool      `gorm:"not null" json:"is_active"`
	Role     *Role     `gorm:"foreignKey:RoleID" json:"role,omitempty"`
}

// RolePermission is the current-state link between a role and a permission.
type RolePermission struct {
	BaseModel
	RoleID       uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_role_permissions_pair" json:"role_id"`
	PermissionID uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_role_permissions_pair;index" json:"permission_id"`
	IsActive     bool        `gorm:"not null" json:"is_active"`
	Permission   *Permission `gorm:"foreignKey:PermissionID" json:"permission,omitempty"`
}

// PermissionGrant is an active permission reachable through an active role link
type PermissionGrant struct {
	RoleID     uuid.UUID
	Permission Permission
}
