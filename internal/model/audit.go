package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RoleAssignmentAction string

const (
	RoleAssigned RoleAssignmentAction = "ASSIGNED"
	RoleRevoked  RoleAssignmentAction = "REVOKED"
)

// RoleAssignment is one assignment or revocation event of a role for a user. Records are never
// deleted. A revocation appends its own record and stamps the Revoked* fields of the most recent
// active ASSIGNED record. AssignedBy is the acting user for both kinds.
type RoleAssignment struct {
	ID           uuid.UUID            `gorm:"type:uuid;primary_key;" json:"id"`
	Action       RoleAssignmentAction `gorm:"type:varchar(20);not null;index" json:"action"`
	UserID       uuid.UUID            `gorm:"type:uuid;not null;index:idx_role_assignments_pair" json:"user_id"`
	RoleID       uuid.UUID            `gorm:"type:uuid;not null;index:idx_role_assignments_pair" json:"role_id"`
	AssignedBy   string               `gorm:"type:varchar(255);not null" json:"assigned_by"`
	Reason       string               `gorm:"type:text" json:"reason,omitempty"`
	ExpiresAt    *time.Time           `gorm:"index" json:"expires_at,omitempty"`
	IsActive     bool                 `gorm:"not null" json:"is_active"`
	RevokedAt    *time.Time           `json:"revoked_at,omitempty"`
	RevokedBy    *string              `gorm:"type:varchar(255)" json:"revoked_by,omitempty"`
	RevokeReason *string              `gorm:"type:text" json:"revoke_reason,omitempty"`
	CreatedAt    time.Time            `gorm:"index" json:"created_at"`
}

func (a *RoleAssignment) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return
}

type PermissionAuditAction string

const (
	PermissionGranted PermissionAuditAction = "GRANTED"
	PermissionRevoked PermissionAuditAction = "REVOKED"
)

// PermissionAudit is an append-only entry for a permission grant or revoke on a role
type PermissionAudit struct {
	ID           uuid.UUID             `gorm:"type:uuid;primary_key;" json:"id"`
	Action       PermissionAuditAction `gorm:"type:varchar(20);not null" json:"action"`
	ActorID      string                `gorm:"type:varchar(255);not null" json:"actor_id"`
	RoleID       uuid.UUID             `gorm:"type:uuid;not null;index" json:"role_id"`
	PermissionID uuid.UUID             `gorm:"type:uuid;not null;index" json:"permission_id"`
	Reason       string                `gorm:"type:text" json:"reason,omitempty"`
	CreatedAt    time.Time             `gorm:"index" json:"created_at"`
}

func (a *PermissionAudit) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return
}

// RoleHistoryFilter narrows RoleAssignment queries; zero values mean "any"
type RoleHistoryFilter struct {
	UserID     *uuid.UUID
	RoleID     *uuid.UUID
	ActiveOnly bool
	Limit      int
}

// PermissionAuditFilter narrows PermissionAudit queries; zero values mean "any"
type PermissionAuditFilter struct {
	RoleID       *uuid.UUID
	PermissionID *uuid.UUID
	Limit        int
}

// AuthorizationStats summarises the authorization model
type AuthorizationStats struct {
	TotalRoles                int64 `json:"total_roles"`
	ActiveRoles               int64 `json:"active_roles"`
	TotalPermissions          int64 `json:"total_permissions"`
	ActivePermissions         int64 `json:"active_permissions"`
	ActiveUserRoleLinks       int64 `json:"active_user_role_links"`
	ActiveRolePermissionLinks int64 `json:"active_role_permission_links"`
	RecentAssignments         int64 `json:"recent_assignments"`
	RecentRevocations         int64 `json:"recent_revocations"`
	PeriodDays                int   `json:"period_days"`
}
