package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go-fund-admin/internal/model"
	"go-fund-admin/internal/repository"
	"go-fund-admin/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []ChangeEvent
}

func (n *recordingNotifier) Notify(event ChangeEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

type testEnv struct {
	ctx         context.Context
	store       *memory.Store
	cache       *AccessCache
	notifier    *recordingNotifier
	roles       RoleService
	permissions PermissionService
	assignments AssignmentService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cache, err := NewAccessCache(16)
	require.NoError(t, err)
	return newTestEnvWithStore(t, memory.New(), cache)
}

func newTestEnvWithStore(t *testing.T, store *memory.Store, cache *AccessCache) *testEnv {
	t.Helper()
	notifier := &recordingNotifier{}
	publisher := NewPublisher(cache, notifier)
	return &testEnv{
		ctx:         context.Background(),
		store:       store,
		cache:       cache,
		notifier:    notifier,
		roles:       NewRoleService(store, publisher),
		permissions: NewPermissionService(store, publisher),
		assignments: NewAssignmentService(store, publisher, 3, nil),
	}
}

func (e *testEnv) user(t *testing.T, email string) uuid.UUID {
	t.Helper()
	u := &model.User{Email: email, FullName: email, IsActive: true}
	require.NoError(t, e.store.Users().Create(e.ctx, u))
	return u.ID
}

func (e *testEnv) role(t *testing.T, name string) *model.Role {
	t.Helper()
	role, err := e.roles.CreateRole(e.ctx, &CreateRoleRequest{Name: name}, "admin")
	require.NoError(t, err)
	return role
}

func (e *testEnv) permission(t *testing.T, resource, action string) *model.Permission {
	t.Helper()
	p, err := e.permissions.CreatePermission(e.ctx, &CreatePermissionRequest{
		Name:     resource + ":" + action,
		Resource: &resource,
		Action:   &action,
	}, "admin")
	require.NoError(t, err)
	return p
}

func (e *testEnv) grant(t *testing.T, role *model.Role, permission *model.Permission) {
	t.Helper()
	_, err := e.assignments.AssignPermissionToRole(e.ctx, role.ID, permission.ID, "admin", "")
	require.NoError(t, err)
}

func (e *testEnv) assign(t *testing.T, userID uuid.UUID, role *model.Role) {
	t.Helper()
	_, err := e.assignments.AssignRole(e.ctx, userID, role.ID, "admin", AssignOptions{})
	require.NoError(t, err)
}

var errAuditDown = errors.New("audit sink unavailable")

// failingAuditStore fails every audit write made inside a transaction
type failingAuditStore struct {
	repository.Store
}

func (s failingAuditStore) Audit() repository.AuditRepository {
	return failingAudit{s.Store.Audit()}
}

func (s failingAuditStore) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.Store.Transaction(ctx, func(tx repository.Store) error {
		return fn(failingAuditStore{tx})
	})
}

type failingAudit struct {
	repository.AuditRepository
}

func (failingAudit) CreateRoleAssignment(context.Context, *model.RoleAssignment) error {
	return errAuditDown
}

func (failingAudit) CreatePermissionAudit(context.Context, *model.PermissionAudit) error {
	return errAuditDown
}
