package service

import (
	"context"
	"log/slog"
	"time"

	"go-fund-admin/internal/apperror"
	"go-fund-admin/internal/authz"
	"go-fund-admin/internal/model"
	"go-fund-admin/internal/repository"

	"github.com/google/uuid"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

// AssignmentService links users to roles and roles to permissions, keeps the
// audit trail of every change and answers access questions.
type AssignmentService interface {
	AssignRole(ctx context.Context, userID, roleID uuid.UUID, assignedBy string, opts AssignOptions) (*model.UserRole, error)
	// RevokeRole refuses to remove the last active role of a user
	RevokeRole(ctx context.Context, userID, roleID uuid.UUID, revokedBy, reason string) error
	// CreateUserWithRoles stores user and its initial roles as one unit; nothing is kept when any step fails
	CreateUserWithRoles(ctx context.Context, user *model.User, roleIDs []uuid.UUID, assignedBy, reason string) error
	// RevokeAllRolesForUser removes every active role, including the last one
	RevokeAllRolesForUser(ctx context.Context, userID uuid.UUID, revokedBy, reason string) (int, error)
	AssignPermissionToRole(ctx context.Context, roleID, permissionID uuid.UUID, actorID, reason string) (*model.RolePermission, error)
	RevokePermissionFromRole(ctx context.Context, roleID, permissionID uuid.UUID, actorID, reason string) error

	BulkAssignRoles(ctx context.Context, userIDs []uuid.UUID, roleID uuid.UUID, assignedBy string, opts AssignOptions) (*BulkResult, error)
	BulkAssignPermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID, actorID string) (*BulkResult, error)
	BulkRevokePermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID, actorID string) (*BulkResult, error)

	GetEffectiveRoles(ctx context.Context, userID uuid.UUID) ([]model.RoleWithPermissions, error)
	GetEffectivePermissions(ctx context.Context, userID uuid.UUID) (*EffectivePermissions, error)
	CheckPermission(ctx context.Context, userID uuid.UUID, permissionName string, resource *string) (*PermissionCheck, error)
	CheckAccess(ctx context.Context, userID uuid.UUID, resource, action string) (*AccessCheck, error)
	AccessSnapshot(ctx context.Context, userID uuid.UUID) (authz.Snapshot, error)

	ListRoleHistory(ctx context.Context, filter model.RoleHistoryFilter) ([]model.RoleAssignment, error)
	ListPermissionAudit(ctx context.Context, filter model.PermissionAuditFilter) ([]model.PermissionAudit, error)
	// ExpireRoleAssignments revokes links whose assignment expired at or before now
	ExpireRoleAssignments(ctx context.Context, now time.Time) (int, error)
}

type AssignOptions struct {
	Reason    string     `json:"reason"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type EffectivePermissions struct {
	Permissions []model.Permission `json:"permissions"`
	// resource key -> actions, permissions without an action contribute their name
	ByResource map[string][]string `json:"by_resource"`
}

type PermissionCheck struct {
	HasPermission  bool     `json:"has_permission"`
	GrantedByRoles []string `json:"granted_by_roles"`
}

type AccessCheck struct {
	HasAccess   bool     `json:"has_access"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

type assignmentService struct {
	store        repository.Store
	publisher    *Publisher
	bulkMaxItems int
	logger       *slog.Logger
	now          func() time.Time
}

func NewAssignmentService(store repository.Store, publisher *Publisher, bulkMaxItems int, logger *slog.Logger) AssignmentService {
	return &assignmentService{
		store:        store,
		publisher:    publisher,
		bulkMaxItems: bulkMaxItems,
		logger:       resolveLogger(logger),
		now:          time.Now,
	}
}

// ──────────────────────────────────────────────────
// User ↔ Role
// ──────────────────────────────────────────────────

func (s *assignmentService) AssignRole(ctx context.Context, userID, roleID uuid.UUID, assignedBy string, opts AssignOptions) (*model.UserRole, error) {
	if opts.ExpiresAt != nil && !opts.ExpiresAt.After(s.now()) {
		return nil, apperror.BadRequest("expires_at must be in the future")
	}

	var link *model.UserRole
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		link, err = s.assignRole(ctx, tx, userID, roleID, assignedBy, opts)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publisher.publish(ChangeEvent{Type: ChangeRoleAssigned, UserID: idRef(userID), RoleID: idRef(roleID)})
	return link, nil
}

// assignRole links the pair and writes its assignment record inside tx
func (s *assignmentService) assignRole(ctx context.Context, tx repository.Store, userID, roleID uuid.UUID, assignedBy string, opts AssignOptions) (*model.UserRole, error) {
	// 1. Role must exist and be active
	role, err := tx.Roles().FindByID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if !role.IsActive {
		return nil, apperror.NotFound("role %q is not active", role.Name)
	}

	// 2. User must exist
	if _, err := tx.Users().FindByID(ctx, userID); err != nil {
		return nil, err
	}

	// 3. Reactivate or create the link
	link, err := tx.UserRoles().Find(ctx, userID, roleID)
	switch {
	case err == nil && link.IsActive:
		return nil, apperror.Conflict("already assigned")
	case err == nil:
		if err := tx.UserRoles().SetActive(ctx, link.ID, true, assignedBy); err != nil {
			return nil, asAlreadyAssigned(err)
		}
		link.IsActive = true
		link.UpdatedBy = assignedBy
	case apperror.IsNotFound(err):
		link = &model.UserRole{UserID: userID, RoleID: roleID, IsActive: true}
		link.CreatedBy = assignedBy
		link.UpdatedBy = assignedBy
		if err := tx.UserRoles().Create(ctx, link); err != nil {
			return nil, asAlreadyAssigned(err)
		}
	default:
		return nil, err
	}

	// 4. Audit record in the same unit of work
	err = tx.Audit().CreateRoleAssignment(ctx, &model.RoleAssignment{
		Action:     model.RoleAssigned,
		UserID:     userID,
		RoleID:     roleID,
		AssignedBy: assignedBy,
		Reason:     opts.Reason,
		ExpiresAt:  opts.ExpiresAt,
		IsActive:   true,
	})
	if err != nil {
		return nil, err
	}
	return link, nil
}

func (s *assignmentService) CreateUserWithRoles(ctx context.Context, user *model.User, roleIDs []uuid.UUID, assignedBy, reason string) error {
	if len(roleIDs) == 0 {
		return apperror.BadRequest("a new user needs at least one role")
	}

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		for _, roleID := range roleIDs {
			if _, err := s.assignRole(ctx, tx, user.ID, roleID, assignedBy, AssignOptions{Reason: reason}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, roleID := range roleIDs {
		s.publisher.publish(ChangeEvent{Type: ChangeRoleAssigned, UserID: idRef(user.ID), RoleID: idRef(roleID)})
	}
	return nil
}

func asAlreadyAssigned(err error) error {
	if apperror.IsConflict(err) {
		return apperror.Conflict("already assigned")
	}
	return err
}

func (s *assignmentService) RevokeRole(ctx context.Context, userID, roleID uuid.UUID, revokedBy, reason string) error {
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		links, err := tx.UserRoles().LockActiveByUser(ctx, userID)
		if err != nil {
			return err
		}

		// Only links to active roles count towards the last-role guard
		var target *model.UserRole
		activeRoles, targetActive := 0, false
		for i := range links {
			role, err := tx.Roles().FindByID(ctx, links[i].RoleID)
			if err != nil && !apperror.IsNotFound(err) {
				return err
			}
			active := err == nil && role.IsActive
			if active {
				activeRoles++
			}
			if links[i].RoleID == roleID {
				target = &links[i]
				targetActive = active
			}
		}
		if target == nil {
			return apperror.NotFound("role is not assigned to the user")
		}
		if targetActive && activeRoles == 1 {
			return apperror.BadRequest("cannot revoke the last active role of a user")
		}

		return s.revokeLink(ctx, tx, target, revokedBy, reason)
	})
	if err != nil {
		return err
	}

	s.publisher.publish(ChangeEvent{Type: ChangeRoleRevoked, UserID: idRef(userID), RoleID: idRef(roleID)})
	return nil
}

// revokeLink deactivates link, closes its open assignment record and appends the revocation record
func (s *assignmentService) revokeLink(ctx context.Context, tx repository.Store, link *model.UserRole, revokedBy, reason string) error {
	if err := tx.UserRoles().SetActive(ctx, link.ID, false, revokedBy); err != nil {
		if apperror.IsConflict(err) {
			return apperror.NotFound("role is not assigned to the user")
		}
		return err
	}

	now := s.now()
	latest, err := tx.Audit().FindLatestActiveAssignment(ctx, link.UserID, link.RoleID)
	switch {
	case err == nil:
		latest.IsActive = false
		latest.RevokedAt = &now
		latest.RevokedBy = &revokedBy
		latest.RevokeReason = &reason
		if err := tx.Audit().UpdateRoleAssignment(ctx, latest); err != nil {
			return err
		}
	case !apperror.IsNotFound(err):
		return err
	}

	return tx.Audit().CreateRoleAssignment(ctx, &model.RoleAssignment{
		Action:     model.RoleRevoked,
		UserID:     link.UserID,
		RoleID:     link.RoleID,
		AssignedBy: revokedBy,
		Reason:     reason,
		IsActive:   false,
		CreatedAt:  now,
	})
}

func (s *assignmentService) RevokeAllRolesForUser(ctx context.Context, userID uuid.UUID, revokedBy, reason string) (int, error) {
	links, err := s.store.UserRoles().FindActiveByUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	revoked := 0
	for i := range links {
		link := links[i]
		err := s.store.Transaction(ctx, func(tx repository.Store) error {
			return s.revokeLink(ctx, tx, &link, revokedBy, reason)
		})
		if apperror.IsNotFound(err) {
			// revoked concurrently
			continue
		}
		if err != nil {
			return revoked, err
		}
		revoked++
		s.publisher.publish(ChangeEvent{Type: ChangeRoleRevoked, UserID: idRef(userID), RoleID: idRef(link.RoleID)})
	}
	return revoked, nil
}

func (s *assignmentService) ExpireRoleAssignments(ctx context.Context, now time.Time) (int, error) {
	records, err := s.store.Audit().FindExpiredAssignments(ctx, now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, record := range records {
		revoked := false
		err := s.store.Transaction(ctx, func(tx repository.Store) error {
			link, err := tx.UserRoles().Find(ctx, record.UserID, record.RoleID)
			if err != nil && !apperror.IsNotFound(err) {
				return err
			}
			if err == nil && link.IsActive {
				revoked = true
				return s.revokeLink(ctx, tx, link, SystemActor, "expired")
			}

			// The link is already gone; only close the stale record
			record.IsActive = false
			record.RevokedAt = &now
			record.RevokedBy = stringRef(SystemActor)
			record.RevokeReason = stringRef("expired")
			return tx.Audit().UpdateRoleAssignment(ctx, &record)
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to expire role assignment",
				slog.String("user_id", record.UserID.String()),
				slog.String("role_id", record.RoleID.String()),
				slog.Any("error", err))
			continue
		}
		if revoked {
			expired++
			s.publisher.publish(ChangeEvent{Type: ChangeRoleRevoked, UserID: idRef(record.UserID), RoleID: idRef(record.RoleID)})
		}
	}

	if expired > 0 {
		s.logger.InfoContext(ctx, "expired role assignments", slog.Int("count", expired))
	}
	return expired, nil
}

func stringRef(v string) *string {
	return &v
}

// ──────────────────────────────────────────────────
// Role ↔ Permission
// ──────────────────────────────────────────────────

func (s *assignmentService) AssignPermissionToRole(ctx context.Context, roleID, permissionID uuid.UUID, actorID, reason string) (*model.RolePermission, error) {
	var link *model.RolePermission
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		role, err := tx.Roles().FindByID(ctx, roleID)
		if err != nil {
			return err
		}
		if !role.IsActive {
			return apperror.NotFound("role %q is not active", role.Name)
		}
		permission, err := tx.Permissions().FindByID(ctx, permissionID)
		if err != nil {
			return err
		}
		if !permission.IsActive {
			return apperror.NotFound("permission %q is not active", permission.Name)
		}

		link, err = tx.RolePermissions().Find(ctx, roleID, permissionID)
		switch {
		case err == nil && link.IsActive:
			return apperror.Conflict("already assigned")
		case err == nil:
			if err := tx.RolePermissions().SetActive(ctx, link.ID, true, actorID); err != nil {
				return asAlreadyAssigned(err)
			}
			link.IsActive = true
			link.UpdatedBy = actorID
		case apperror.IsNotFound(err):
			link = &model.RolePermission{RoleID: roleID, PermissionID: permissionID, IsActive: true}
			link.CreatedBy = actorID
			link.UpdatedBy = actorID
			if err := tx.RolePermissions().Create(ctx, link); err != nil {
				return asAlreadyAssigned(err)
			}
		default:
			return err
		}

		return tx.Audit().CreatePermissionAudit(ctx, &model.PermissionAudit{
			Action:       model.PermissionGranted,
			ActorID:      actorID,
			RoleID:       roleID,
			PermissionID: permissionID,
			Reason:       reason,
		})
	})
	if err != nil {
		return nil, err
	}

	s.publisher.publish(ChangeEvent{Type: ChangePermissionGranted, RoleID: idRef(roleID), PermissionID: idRef(permissionID)})
	return link, nil
}

func (s *assignmentService) RevokePermissionFromRole(ctx context.Context, roleID, permissionID uuid.UUID, actorID, reason string) error {
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		link, err := tx.RolePermissions().Find(ctx, roleID, permissionID)
		if err != nil && !apperror.IsNotFound(err) {
			return err
		}
		if err != nil || !link.IsActive {
			return apperror.NotFound("permission is not assigned to the role")
		}

		if err := tx.RolePermissions().SetActive(ctx, link.ID, false, actorID); err != nil {
			if apperror.IsConflict(err) {
				return apperror.NotFound("permission is not assigned to the role")
			}
			return err
		}

		return tx.Audit().CreatePermissionAudit(ctx, &model.PermissionAudit{
			Action:       model.PermissionRevoked,
			ActorID:      actorID,
			RoleID:       roleID,
			PermissionID: permissionID,
			Reason:       reason,
		})
	})
	if err != nil {
		return err
	}

	s.publisher.publish(ChangeEvent{Type: ChangePermissionRevoked, RoleID: idRef(roleID), PermissionID: idRef(permissionID)})
	return nil
}

// ──────────────────────────────────────────────────
// Bulk
// ──────────────────────────────────────────────────

func (s *assignmentService) BulkAssignRoles(ctx context.Context, userIDs []uuid.UUID, roleID uuid.UUID, assignedBy string, opts AssignOptions) (*BulkResult, error) {
	if err := checkBatch(len(userIDs), s.bulkMaxItems); err != nil {
		return nil, err
	}

	result := newBulkResult()
	for _, userID := range userIDs {
		_, err := s.AssignRole(ctx, userID, roleID, assignedBy, opts)
		result.record(userID, err)
	}
	return result, nil
}

func (s *assignmentService) BulkAssignPermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID, actorID string) (*BulkResult, error) {
	if err := checkBatch(len(permissionIDs), s.bulkMaxItems); err != nil {
		return nil, err
	}

	result := newBulkResult()
	for _, permissionID := range permissionIDs {
		_, err := s.AssignPermissionToRole(ctx, roleID, permissionID, actorID, "")
		result.record(permissionID, err)
	}
	return result, nil
}

func (s *assignmentService) BulkRevokePermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID, actorID string) (*BulkResult, error) {
	if err := checkBatch(len(permissionIDs), s.bulkMaxItems); err != nil {
		return nil, err
	}

	result := newBulkResult()
	for _, permissionID := range permissionIDs {
		err := s.RevokePermissionFromRole(ctx, roleID, permissionID, actorID, "")
		result.record(permissionID, err)
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

// activeGrants loads the active roles of a user and the active permissions behind them
func (s *assignmentService) activeGrants(ctx context.Context, userID uuid.UUID) ([]model.Role, []model.PermissionGrant, error) {
	roles, err := s.store.UserRoles().FindActiveRoles(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if len(roles) == 0 {
		return roles, nil, nil
	}

	roleIDs := make([]uuid.UUID, len(roles))
	for i, r := range roles {
		roleIDs[i] = r.ID
	}
	grants, err := s.store.RolePermissions().FindActiveGrants(ctx, roleIDs)
	if err != nil {
		return nil, nil, err
	}
	return roles, grants, nil
}

func (s *assignmentService) GetEffectiveRoles(ctx context.Context, userID uuid.UUID) ([]model.RoleWithPermissions, error) {
	roles, grants, err := s.activeGrants(ctx, userID)
	if err != nil {
		return nil, err
	}

	byRole := make(map[uuid.UUID][]string, len(roles))
	for _, g := range grants {
		byRole[g.RoleID] = append(byRole[g.RoleID], g.Permission.Name)
	}

	result := make([]model.RoleWithPermissions, len(roles))
	for i, r := range roles {
		names := byRole[r.ID]
		if names == nil {
			names = []string{}
		}
		result[i] = model.RoleWithPermissions{Role: r, Permissions: names}
	}
	return result, nil
}

func (s *assignmentService) GetEffectivePermissions(ctx context.Context, userID uuid.UUID) (*EffectivePermissions, error) {
	_, grants, err := s.activeGrants(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &EffectivePermissions{
		Permissions: []model.Permission{},
		ByResource:  make(map[string][]string),
	}
	seen := make(map[uuid.UUID]struct{}, len(grants))
	for _, g := range grants {
		p := g.Permission
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		result.Permissions = append(result.Permissions, p)

		action := p.Name
		if p.Action != nil && *p.Action != "" {
			action = *p.Action
		}
		key := p.ResourceKey()
		result.ByResource[key] = appendUnique(result.ByResource[key], action)
	}
	return result, nil
}

func (s *assignmentService) CheckPermission(ctx context.Context, userID uuid.UUID, permissionName string, resource *string) (*PermissionCheck, error) {
	roles, grants, err := s.activeGrants(ctx, userID)
	if err != nil {
		return nil, err
	}

	granting := make(map[uuid.UUID]struct{})
	for _, g := range grants {
		if g.Permission.Name != permissionName {
			continue
		}
		if resource != nil && *resource != "" && g.Permission.ResourceKey() != *resource {
			continue
		}
		granting[g.RoleID] = struct{}{}
	}

	// roles are ordered by name, so is the result
	check := &PermissionCheck{GrantedByRoles: []string{}}
	for _, r := range roles {
		if _, ok := granting[r.ID]; ok {
			check.GrantedByRoles = append(check.GrantedByRoles, r.Name)
		}
	}
	check.HasPermission = len(check.GrantedByRoles) > 0
	return check, nil
}

func (s *assignmentService) CheckAccess(ctx context.Context, userID uuid.UUID, resource, action string) (*AccessCheck, error) {
	roles, grants, err := s.activeGrants(ctx, userID)
	if err != nil {
		return nil, err
	}

	check := &AccessCheck{Roles: roleNames(roles), Permissions: []string{}}
	for _, g := range grants {
		check.Permissions = appendUnique(check.Permissions, g.Permission.Name)
		if g.Permission.Matches(resource, action) {
			check.HasAccess = true
		}
	}
	return check, nil
}

func (s *assignmentService) AccessSnapshot(ctx context.Context, userID uuid.UUID) (authz.Snapshot, error) {
	cache := s.publisher.Cache()
	if snap, ok := cache.Get(userID); ok {
		return snap, nil
	}
	generation := cache.Generation()

	roles, grants, err := s.activeGrants(ctx, userID)
	if err != nil {
		return authz.Snapshot{}, err
	}
	snap := authz.Snapshot{Roles: roleNames(roles), Permissions: []string{}}
	for _, g := range grants {
		snap.Permissions = appendUnique(snap.Permissions, g.Permission.Name)
	}

	cache.Add(userID, snap, generation)
	return snap, nil
}

func (s *assignmentService) ListRoleHistory(ctx context.Context, filter model.RoleHistoryFilter) ([]model.RoleAssignment, error) {
	filter.Limit = clampLimit(filter.Limit)
	return s.store.Audit().ListRoleAssignments(ctx, filter)
}

func (s *assignmentService) ListPermissionAudit(ctx context.Context, filter model.PermissionAuditFilter) ([]model.PermissionAudit, error) {
	filter.Limit = clampLimit(filter.Limit)
	return s.store.Audit().ListPermissionAudits(ctx, filter)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		return maxHistoryLimit
	}
	return limit
}

func roleNames(roles []model.Role) []string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.Name
	}
	return names
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
