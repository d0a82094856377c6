package memory

import (
	"context"
	"sort"
	"time"

	"go-fund-admin/internal/apperror"
	"go-fund-admin/internal/model"

	"github.com/google/uuid"
)

func notFound(entity string) error { return apperror.NotFound("%s not found", entity) }

func conflict(entity string) error { return apperror.Conflict("%s already exists", entity) }

// ──────────────────────────────────────────────────
// Roles
// ──────────────────────────────────────────────────

type roleRepo struct{ s *Store }

func (r *roleRepo) nameTaken(name string, except uuid.UUID) bool {
	for id, role := range r.s.data.roles {
		if id != except && role.Name == name {
			return true
		}
	}
	return false
}

func (r *roleRepo) defaultTaken(except uuid.UUID) bool {
	for id, role := range r.s.data.roles {
		if id != except && role.IsDefault {
			return true
		}
	}
	return false
}

func (r *roleRepo) Create(_ context.Context, role *model.Role) error {
	defer r.s.lock()()
	if _, exists := r.s.data.roles[role.ID]; exists && role.ID != uuid.Nil {
		return conflict("role")
	}
	if r.nameTaken(role.Name, uuid.Nil) {
		return conflict("role")
	}
	if role.IsDefault && r.defaultTaken(uuid.Nil) {
		return conflict("default role")
	}
	r.s.stamp(&role.BaseModel)
	r.s.data.roles[role.ID] = *role
	return nil
}

func (r *roleRepo) Update(_ context.Context, role *model.Role) error {
	defer r.s.lock()()
	if _, ok := r.s.data.roles[role.ID]; !ok {
		return notFound("role")
	}
	if r.nameTaken(role.Name, role.ID) {
		return conflict("role")
	}
	if role.IsDefault && r.defaultTaken(role.ID) {
		return conflict("default role")
	}
	role.UpdatedAt = r.s.now()
	r.s.data.roles[role.ID] = *role
	return nil
}

func (r *roleRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Role, error) {
	defer r.s.lock()()
	role, ok := r.s.data.roles[id]
	if !ok {
		return nil, notFound("role")
	}
	return &role, nil
}

func (r *roleRepo) FindByName(_ context.Context, name string) (*model.Role, error) {
	defer r.s.lock()()
	for _, role := range r.s.data.roles {
		if role.Name == name {
			found := role
			return &found, nil
		}
	}
	return nil, notFound("role")
}

func (r *roleRepo) FindAll(_ context.Context, includeInactive bool) ([]model.Role, error) {
	defer r.s.lock()()
	roles := make([]model.Role, 0, len(r.s.data.roles))
	for _, role := range r.s.data.roles {
		if includeInactive || role.IsActive {
			roles = append(roles, role)
		}
	}
	sortRoles(roles)
	return roles, nil
}

func (r *roleRepo) FindDefault(_ context.Context) (*model.Role, error) {
	defer r.s.lock()()
	for _, role := range r.s.data.roles {
		if role.IsDefault {
			found := role
			return &found, nil
		}
	}
	return nil, notFound("default role")
}

func (r *roleRepo) ClearDefault(_ context.Context, exceptID uuid.UUID) error {
	defer r.s.lock()()
	for id, role := range r.s.data.roles {
		if id != exceptID && role.IsDefault {
			role.IsDefault = false
			role.UpdatedAt = r.s.now()
			r.s.data.roles[id] = role
		}
	}
	return nil
}

func sortRoles(roles []model.Role) {
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
}

// ──────────────────────────────────────────────────
// Permissions
// ──────────────────────────────────────────────────

type permissionRepo struct{ s *Store }

func (r *permissionRepo) nameTaken(name string, except uuid.UUID) bool {
	for id, p := range r.s.data.permissions {
		if id != except && p.Name == name {
			return true
		}
	}
	return false
}

func (r *permissionRepo) Create(_ context.Context, permission *model.Permission) error {
	defer r.s.lock()()
	if r.nameTaken(permission.Name, uuid.Nil) {
		return conflict("permission")
	}
	r.s.stamp(&permission.BaseModel)
	r.s.data.permissions[permission.ID] = *permission
	return nil
}

func (r *permissionRepo) Update(_ context.Context, permission *model.Permission) error {
	defer r.s.lock()()
	if _, ok := r.s.data.permissions[permission.ID]; !ok {
		return notFound("permission")
	}
	if r.nameTaken(permission.Name, permission.ID) {
		return conflict("permission")
	}
	permission.UpdatedAt = r.s.now()
	r.s.data.permissions[permission.ID] = *permission
	return nil
}

func (r *permissionRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Permission, error) {
	defer r.s.lock()()
	p, ok := r.s.data.permissions[id]
	if !ok {
		return nil, notFound("permission")
	}
	return &p, nil
}

func (r *permissionRepo) FindByName(_ context.Context, name string) (*model.Permission, error) {
	defer r.s.lock()()
	for _, p := range r.s.data.permissions {
		if p.Name == name {
			found := p
			return &found, nil
		}
	}
	return nil, notFound("permission")
}

func (r *permissionRepo) FindAll(_ context.Context, includeInactive bool) ([]model.Permission, error) {
	defer r.s.lock()()
	return r.filter(func(p model.Permission) bool { return includeInactive || p.IsActive }), nil
}

func (r *permissionRepo) FindByResource(_ context.Context, resource string) ([]model.Permission, error) {
	defer r.s.lock()()
	return r.filter(func(p model.Permission) bool {
		return p.IsActive && p.ResourceKey() == resource
	}), nil
}

func (r *permissionRepo) filter(keep func(model.Permission) bool) []model.Permission {
	perms := make([]model.Permission, 0)
	for _, p := range r.s.data.permissions {
		if keep(p) {
			perms = append(perms, p)
		}
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i].Name < perms[j].Name })
	return perms
}

// ──────────────────────────────────────────────────
// User ↔ Role links
// ──────────────────────────────────────────────────

type userRoleRepo struct{ s *Store }

func (r *userRoleRepo) Find(_ context.Context, userID, roleID uuid.UUID) (*model.UserRole, error) {
	defer r.s.lock()()
	for _, link := range r.s.data.userRoles {
		if link.UserID == userID && link.RoleID == roleID {
			found := link
			return &found, nil
		}
	}
	return nil, notFound("user role")
}

func (r *userRoleRepo) Create(_ context.Context, link *model.UserRole) error {
	defer r.s.lock()()
	for _, existing := range r.s.data.userRoles {
		if existing.UserID == link.UserID && existing.RoleID == link.RoleID {
			return conflict("user role")
		}
	}
	r.s.stamp(&link.BaseModel)
	stored := *link
	stored.Role = nil
	r.s.data.userRoles[link.ID] = stored
	return nil
}

func (r *userRoleRepo) SetActive(_ context.Context, id uuid.UUID, active bool, updatedBy string) error {
	defer r.s.lock()()
	link, ok := r.s.data.userRoles[id]
	if !ok || link.IsActive == active {
		return apperror.Conflict("user role is already in the requested state")
	}
	link.IsActive = active
	link.UpdatedBy = updatedBy
	link.UpdatedAt = r.s.now()
	r.s.data.userRoles[id] = link
	return nil
}

func (r *userRoleRepo) activeByUser(userID uuid.UUID) []model.UserRole {
	links := make([]model.UserRole, 0)
	for _, link := range r.s.data.userRoles {
		if link.UserID == userID && link.IsActive {
			if role, ok := r.s.data.roles[link.RoleID]; ok {
				link.Role = &role
			}
			links = append(links, link)
		}
	}
	sort.Slice(links, func(i, j int) bool { return links[i].CreatedAt.Before(links[j].CreatedAt) })
	return links
}

func (r *userRoleRepo) FindActiveByUser(_ context.Context, userID uuid.UUID) ([]model.UserRole, error) {
	defer r.s.lock()()
	return r.activeByUser(userID), nil
}

func (r *userRoleRepo) LockActiveByUser(_ context.Context, userID uuid.UUID) ([]model.UserRole, error) {
	defer r.s.lock()()
	return r.activeByUser(userID), nil
}

func (r *userRoleRepo) FindActiveRoles(_ context.Context, userID uuid.UUID) ([]model.Role, error) {
	defer r.s.lock()()
	roles := make([]model.Role, 0)
	for _, link := range r.activeByUser(userID) {
		if link.Role != nil && link.Role.IsActive {
			roles = append(roles, *link.Role)
		}
	}
	sortRoles(roles)
	return roles, nil
}

func (r *userRoleRepo) CountActiveByRole(_ context.Context, roleID uuid.UUID) (int64, error) {
	defer r.s.lock()()
	var count int64
	for _, link := range r.s.data.userRoles {
		if link.RoleID == roleID && link.IsActive {
			count++
		}
	}
	return count, nil
}

// ──────────────────────────────────────────────────
// Role ↔ Permission links
// ──────────────────────────────────────────────────

type rolePermissionRepo struct{ s *Store }

func (r *rolePermissionRepo) Find(_ context.Context, roleID, permissionID uuid.UUID) (*model.RolePermission, error) {
	defer r.s.lock()()
	for _, link := range r.s.data.rolePermissions {
		if link.RoleID == roleID && link.PermissionID == permissionID {
			found := link
			return &found, nil
		}
	}
	return nil, notFound("role permission")
}

func (r *rolePermissionRepo) Create(_ context.Context, link *model.RolePermission) error {
	defer r.s.lock()()
	for _, existing := range r.s.data.rolePermissions {
		if existing.RoleID == link.RoleID && existing.PermissionID == link.PermissionID {
			return conflict("role permission")
		}
	}
	r.s.stamp(&link.BaseModel)
	stored := *link
	stored.Permission = nil
	r.s.data.rolePermissions[link.ID] = stored
	return nil
}

func (r *rolePermissionRepo) SetActive(_ context.Context, id uuid.UUID, active bool, updatedBy string) error {
	defer r.s.lock()()
	link, ok := r.s.data.rolePermissions[id]
	if !ok || link.IsActive == active {
		return apperror.Conflict("role permission is already in the requested state")
	}
	link.IsActive = active
	link.UpdatedBy = updatedBy
	link.UpdatedAt = r.s.now()
	r.s.data.rolePermissions[id] = link
	return nil
}

func (r *rolePermissionRepo) FindActiveGrants(_ context.Context, roleIDs []uuid.UUID) ([]model.PermissionGrant, error) {
	defer r.s.lock()()
	wanted := make(map[uuid.UUID]struct{}, len(roleIDs))
	for _, id := range roleIDs {
		wanted[id] = struct{}{}
	}

	grants := make([]model.PermissionGrant, 0)
	for _, link := range r.s.data.rolePermissions {
		if _, ok := wanted[link.RoleID]; !ok || !link.IsActive {
			continue
		}
		p, ok := r.s.data.permissions[link.PermissionID]
		if !ok || !p.IsActive {
			continue
		}
		grants = append(grants, model.PermissionGrant{RoleID: link.RoleID, Permission: p})
	}
	sort.Slice(grants, func(i, j int) bool { return grants[i].Permission.Name < grants[j].Permission.Name })
	return grants, nil
}

func (r *rolePermissionRepo) CountActiveByPermission(_ context.Context, permissionID uuid.UUID) (int64, error) {
	defer r.s.lock()()
	var count int64
	for _, link := range r.s.data.rolePermissions {
		if link.PermissionID == permissionID && link.IsActive {
			count++
		}
	}
	return count, nil
}

// ──────────────────────────────────────────────────
// Audit
// ──────────────────────────────────────────────────

type auditRepo struct{ s *Store }

func (r *auditRepo) CreateRoleAssignment(_ context.Context, record *model.RoleAssignment) error {
	defer r.s.lock()()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = r.s.now()
	}
	r.s.data.assignments = append(r.s.data.assignments, *record)
	return nil
}

func (r *auditRepo) UpdateRoleAssignment(_ context.Context, record *model.RoleAssignment) error {
	defer r.s.lock()()
	for i := range r.s.data.assignments {
		if r.s.data.assignments[i].ID == record.ID {
			r.s.data.assignments[i] = *record
			return nil
		}
	}
	return notFound("role assignment")
}

func (r *auditRepo) FindLatestActiveAssignment(_ context.Context, userID, roleID uuid.UUID) (*model.RoleAssignment, error) {
	defer r.s.lock()()
	for i := len(r.s.data.assignments) - 1; i >= 0; i-- {
		rec := r.s.data.assignments[i]
		if rec.UserID == userID && rec.RoleID == roleID && rec.Action == model.RoleAssigned && rec.IsActive {
			return &rec, nil
		}
	}
	return nil, notFound("role assignment")
}

func (r *auditRepo) FindExpiredAssignments(_ context.Context, now time.Time) ([]model.RoleAssignment, error) {
	defer r.s.lock()()
	records := make([]model.RoleAssignment, 0)
	for _, rec := range r.s.data.assignments {
		if rec.Action == model.RoleAssigned && rec.IsActive && rec.ExpiresAt != nil && !rec.ExpiresAt.After(now) {
			records = append(records, rec)
		}
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].ExpiresAt.Before(*records[j].ExpiresAt) })
	return records, nil
}

func (r *auditRepo) ListRoleAssignments(_ context.Context, filter model.RoleHistoryFilter) ([]model.RoleAssignment, error) {
	defer r.s.lock()()
	records := make([]model.RoleAssignment, 0)
	for i := len(r.s.data.assignments) - 1; i >= 0; i-- {
		rec := r.s.data.assignments[i]
		if filter.UserID != nil && rec.UserID != *filter.UserID {
			continue
		}
		if filter.RoleID != nil && rec.RoleID != *filter.RoleID {
			continue
		}
		if filter.ActiveOnly && !rec.IsActive {
			continue
		}
		records = append(records, rec)
		if filter.Limit > 0 && len(records) == filter.Limit {
			break
		}
	}
	return records, nil
}

func (r *auditRepo) CreatePermissionAudit(_ context.Context, entry *model.PermissionAudit) error {
	defer r.s.lock()()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.s.now()
	}
	r.s.data.permissionAudits = append(r.s.data.permissionAudits, *entry)
	return nil
}

func (r *auditRepo) ListPermissionAudits(_ context.Context, filter model.PermissionAuditFilter) ([]model.PermissionAudit, error) {
	defer r.s.lock()()
	entries := make([]model.PermissionAudit, 0)
	for i := len(r.s.data.permissionAudits) - 1; i >= 0; i-- {
		e := r.s.data.permissionAudits[i]
		if filter.RoleID != nil && e.RoleID != *filter.RoleID {
			continue
		}
		if filter.PermissionID != nil && e.PermissionID != *filter.PermissionID {
			continue
		}
		entries = append(entries, e)
		if filter.Limit > 0 && len(entries) == filter.Limit {
			break
		}
	}
	return entries, nil
}

// ──────────────────────────────────────────────────
// Users
// ──────────────────────────────────────────────────

type userRepo struct{ s *Store }

func (r *userRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	defer r.s.lock()()
	for _, u := range r.s.data.users {
		if u.Email == email && !u.DeletedAt.Valid {
			found := u
			return &found, nil
		}
	}
	return nil, notFound("user")
}

func (r *userRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	defer r.s.lock()()
	u, ok := r.s.data.users[id]
	if !ok || u.DeletedAt.Valid {
		return nil, notFound("user")
	}
	return &u, nil
}

func (r *userRepo) Create(_ context.Context, user *model.User) error {
	defer r.s.lock()()
	for _, u := range r.s.data.users {
		if u.Email == user.Email {
			return conflict("user")
		}
	}
	r.s.stamp(&user.BaseModel)
	r.s.data.users[user.ID] = *user
	return nil
}

func (r *userRepo) Update(_ context.Context, user *model.User) error {
	defer r.s.lock()()
	for id, u := range r.s.data.users {
		if id != user.ID && u.Email == user.Email {
			return conflict("user")
		}
	}
	user.UpdatedAt = r.s.now()
	r.s.data.users[user.ID] = *user
	return nil
}

func (r *userRepo) Delete(_ context.Context, id uuid.UUID, deletedBy string) error {
	defer r.s.lock()()
	u, ok := r.s.data.users[id]
	if !ok {
		return nil
	}
	u.DeletedAt.Time = r.s.now()
	u.DeletedAt.Valid = true
	u.IsActive = false
	u.UpdatedBy = deletedBy
	r.s.data.users[id] = u
	return nil
}

func (r *userRepo) UpdatePassword(_ context.Context, userID uuid.UUID, hashedPassword string) error {
	defer r.s.lock()()
	if u, ok := r.s.data.users[userID]; ok {
		u.Password = hashedPassword
		r.s.data.users[userID] = u
	}
	return nil
}

func (r *userRepo) FindAll(_ context.Context) ([]model.User, error) {
	defer r.s.lock()()
	users := make([]model.User, 0, len(r.s.data.users))
	for _, u := range r.s.data.users {
		if !u.DeletedAt.Valid {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users, nil
}

func (r *userRepo) UpdateTokenVersion(_ context.Context, userID uuid.UUID, version string) error {
	defer r.s.lock()()
	if u, ok := r.s.data.users[userID]; ok {
		u.TokenVersion = version
		r.s.data.users[userID] = u
	}
	return nil
}

// ──────────────────────────────────────────────────
// Stats
// ──────────────────────────────────────────────────

type statsRepo struct{ s *Store }

func (r *statsRepo) GetAuthorizationStats(_ context.Context, since time.Time) (*model.AuthorizationStats, error) {
	defer r.s.lock()()
	var stats model.AuthorizationStats
	for _, role := range r.s.data.roles {
		stats.TotalRoles++
		if role.IsActive {
			stats.ActiveRoles++
		}
	}
	for _, p := range r.s.data.permissions {
		stats.TotalPermissions++
		if p.IsActive {
			stats.ActivePermissions++
		}
	}
	for _, link := range r.s.data.userRoles {
		if link.IsActive {
			stats.ActiveUserRoleLinks++
		}
	}
	for _, link := range r.s.data.rolePermissions {
		if link.IsActive {
			stats.ActiveRolePermissionLinks++
		}
	}
	for _, rec := range r.s.data.assignments {
		if rec.CreatedAt.Before(since) {
			continue
		}
		switch rec.Action {
		case model.RoleAssigned:
			stats.RecentAssignments++
		case model.RoleRevoked:
			stats.RecentRevocations++
		}
	}
	return &stats, nil
}
