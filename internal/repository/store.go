package repository

import (
	"context"
	"time"

	"go-fund-admin/internal/model"

	"github.com/google/uuid"
)

type RoleRepository interface {
	Create(ctx context.Context, role *model.Role) error
	Update(ctx context.Context, role *model.Role) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Role, error)
	FindByName(ctx context.Context, name string) (*model.Role, error)
	// FindAll returns roles ordered by name
	FindAll(ctx context.Context, includeInactive bool) ([]model.Role, error)
	FindDefault(ctx context.Context) (*model.Role, error)
	// ClearDefault unsets is_default on every role except exceptID
	ClearDefault(ctx context.Context, exceptID uuid.UUID) error
}

type PermissionRepository interface {
	Create(ctx context.Context, permission *model.Permission) error
	Update(ctx context.Context, permission *model.Permission) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Permission, error)
	FindByName(ctx context.Context, name string) (*model.Permission, error)
	// FindAll returns permissions ordered by name
	FindAll(ctx context.Context, includeInactive bool) ([]model.Permission, error)
	// FindByResource returns active permissions of a resource ordered by name
	FindByResource(ctx context.Context, resource string) ([]model.Permission, error)
}

type UserRoleRepository interface {
	// Find returns the link of the pair in any state
	Find(ctx context.Context, userID, roleID uuid.UUID) (*model.UserRole, error)
	Create(ctx context.Context, link *model.UserRole) error
	// SetActive fails with Conflict when the link is missing or already in the requested state
	SetActive(ctx context.Context, id uuid.UUID, active bool, updatedBy string) error
	// FindActiveByUser returns active links with their role loaded
	FindActiveByUser(ctx context.Context, userID uuid.UUID) ([]model.UserRole, error)
	// LockActiveByUser is FindActiveByUser holding row locks until the transaction ends
	LockActiveByUser(ctx context.Context, userID uuid.UUID) ([]model.UserRole, error)
	// FindActiveRoles returns active roles reachable through active links, ordered by name
	FindActiveRoles(ctx context.Context, userID uuid.UUID) ([]model.Role, error)
	CountActiveByRole(ctx context.Context, roleID uuid.UUID) (int64, error)
}

type RolePermissionRepository interface {
	// Find returns the link of the pair in any state
	Find(ctx context.Context, roleID, permissionID uuid.UUID) (*model.RolePermission, error)
	Create(ctx context.Context, link *model.RolePermission) error
	// SetActive fails with Conflict when the link is missing or already in the requested state
	SetActive(ctx context.Context, id uuid.UUID, active bool, updatedBy string) error
	// FindActiveGrants returns active permissions behind active links of the given roles
	FindActiveGrants(ctx context.Context, roleIDs []uuid.UUID) ([]model.PermissionGrant, error)
	CountActiveByPermission(ctx context.Context, permissionID uuid.UUID) (int64, error)
}

type AuditRepository interface {
	CreateRoleAssignment(ctx context.Context, record *model.RoleAssignment) error
	UpdateRoleAssignment(ctx context.Context, record *model.RoleAssignment) error
	// FindLatestActiveAssignment returns the newest active ASSIGNED record of the pair
	FindLatestActiveAssignment(ctx context.Context, userID, roleID uuid.UUID) (*model.RoleAssignment, error)
	// FindExpiredAssignments returns active ASSIGNED records with expires_at <= now
	FindExpiredAssignments(ctx context.Context, now time.Time) ([]model.RoleAssignment, error)
	// ListRoleAssignments returns records newest first
	ListRoleAssignments(ctx context.Context, filter model.RoleHistoryFilter) ([]model.RoleAssignment, error)
	CreatePermissionAudit(ctx context.Context, entry *model.PermissionAudit) error
	// ListPermissionAudits returns entries newest first
	ListPermissionAudits(ctx context.Context, filter model.PermissionAuditFilter) ([]model.PermissionAudit, error)
}

type StatsRepository interface {
	GetAuthorizationStats(ctx context.Context, since time.Time) (*model.AuthorizationStats, error)
}

// Store groups the repositories over one connection or one transaction.
type Store interface {
	Roles() RoleRepository
	Permissions() PermissionRepository
	UserRoles() UserRoleRepository
	RolePermissions() RolePermissionRepository
	Audit() AuditRepository
	Users() UserRepository
	Stats() StatsRepository

	// Transaction runs fn as one unit of work. A non-nil error from fn rolls back every write made through tx.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}
