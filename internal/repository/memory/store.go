// Package memory provides an in-memory implementation of repository.Store.
// It enforces the same unique keys as the relational schema and rolls back
// every write of a failed transaction. It is intended for tests and local development.
package memory

import (
	"context"
	"sync"
	"time"

	"go-fund-admin/internal/model"
	"go-fund-admin/internal/repository"

	"github.com/google/uuid"
)

// Compile-time interface checks.
var (
	_ repository.Store                    = (*Store)(nil)
	_ repository.RoleRepository           = (*roleRepo)(nil)
	_ repository.PermissionRepository     = (*permissionRepo)(nil)
	_ repository.UserRoleRepository       = (*userRoleRepo)(nil)
	_ repository.RolePermissionRepository = (*rolePermissionRepo)(nil)
	_ repository.AuditRepository          = (*auditRepo)(nil)
	_ repository.UserRepository           = (*userRepo)(nil)
	_ repository.StatsRepository          = (*statsRepo)(nil)
)

type state struct {
	users            map[uuid.UUID]model.User
	roles            map[uuid.UUID]model.Role
	permissions      map[uuid.UUID]model.Permission
	userRoles        map[uuid.UUID]model.UserRole
	rolePermissions  map[uuid.UUID]model.RolePermission
	assignments      []model.RoleAssignment
	permissionAudits []model.PermissionAudit
}

func newState() *state {
	return &state{
		users:           make(map[uuid.UUID]model.User),
		roles:           make(map[uuid.UUID]model.Role),
		permissions:     make(map[uuid.UUID]model.Permission),
		userRoles:       make(map[uuid.UUID]model.UserRole),
		rolePermissions: make(map[uuid.UUID]model.RolePermission),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.roles {
		c.roles[k] = v
	}
	for k, v := range s.permissions {
		c.permissions[k] = v
	}
	for k, v := range s.userRoles {
		c.userRoles[k] = v
	}
	for k, v := range s.rolePermissions {
		c.rolePermissions[k] = v
	}
	c.assignments = append([]model.RoleAssignment(nil), s.assignments...)
	c.permissionAudits = append([]model.PermissionAudit(nil), s.permissionAudits...)
	return c
}

// Store is a thread-safe in-memory store. A transaction holds the store lock
// until it finishes, so transactions are serialised.
type Store struct {
	mu   *sync.Mutex
	data *state
	inTx bool
	now  func() time.Time
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{mu: &sync.Mutex{}, data: newState(), now: time.Now}
}

// lock acquires the store lock unless the caller already runs inside a transaction.
func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) Roles() repository.RoleRepository { return &roleRepo{s} }

func (s *Store) Permissions() repository.PermissionRepository { return &permissionRepo{s} }

func (s *Store) UserRoles() repository.UserRoleRepository { return &userRoleRepo{s} }

func (s *Store) RolePermissions() repository.RolePermissionRepository {
	return &rolePermissionRepo{s}
}

func (s *Store) Audit() repository.AuditRepository { return &auditRepo{s} }

func (s *Store) Users() repository.UserRepository { return &userRepo{s} }

func (s *Store) Stats() repository.StatsRepository { return &statsRepo{s} }

func (s *Store) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	unlock := s.lock()
	defer unlock()

	snapshot := s.data.clone()
	tx := &Store{mu: s.mu, data: s.data, inTx: true, now: s.now}
	if err := fn(tx); err != nil {
		*s.data = *snapshot
		return err
	}
	return nil
}

func (s *Store) stamp(base *model.BaseModel) {
	now := s.now()
	if base.ID == uuid.Nil {
		base.ID = uuid.New()
	}
	if base.CreatedAt.IsZero() {
		base.CreatedAt = now
	}
	base.UpdatedAt = now
}
