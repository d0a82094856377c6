package service

import (
	"context"
	"log/slog"

	"go-fund-admin/internal/apperror"
	"go-fund-admin/internal/model"
	"go-fund-admin/internal/repository"

	"github.com/google/uuid"
)

// SeedResult counts what a seeding run created
type SeedResult struct {
	PermissionsCreated int  `json:"permissions_created"`
	RolesCreated       int  `json:"roles_created"`
	GrantsCreated      int  `json:"grants_created"`
	AdminCreated       bool `json:"admin_created"`
}

// AdminAccount is the optional bootstrap administrator
type AdminAccount struct {
	Email    string
	Password string
	FullName string
}

type SeedService interface {
	// Seed creates the missing parts of the default catalog. It never deletes or detaches anything.
	Seed(ctx context.Context, actorID string) (*SeedResult, error)
}

type seedService struct {
	store       repository.Store
	assignments AssignmentService
	permissions []model.CatalogPermission
	roles       []model.CatalogRole
	admin       *AdminAccount
	logger      *slog.Logger
}

// NewSeedService seeds the default catalog. admin may be nil.
func NewSeedService(store repository.Store, assignments AssignmentService, admin *AdminAccount, logger *slog.Logger) SeedService {
	return &seedService{
		store:       store,
		assignments: assignments,
		permissions: model.DefaultPermissions,
		roles:       model.DefaultRoles,
		admin:       admin,
		logger:      resolveLogger(logger),
	}
}

func (s *seedService) Seed(ctx context.Context, actorID string) (*SeedResult, error) {
	result := &SeedResult{}

	// 1. Permissions
	permissionIDs := make(map[string]*model.Permission, len(s.permissions))
	for _, cp := range s.permissions {
		existing, err := s.store.Permissions().FindByName(ctx, cp.Name)
		if err == nil {
			s.logger.DebugContext(ctx, "permission exists, skipping", slog.String("permission", cp.Name))
			permissionIDs[cp.Name] = existing
			continue
		}
		if !apperror.IsNotFound(err) {
			return result, err
		}

		resource, action := cp.Resource, cp.Action
		permission := &model.Permission{
			Name:        cp.Name,
			Description: cp.Description,
			Resource:    &resource,
			Action:      &action,
			IsActive:    true,
		}
		permission.CreatedBy = actorID
		permission.UpdatedBy = actorID
		if err := s.store.Permissions().Create(ctx, permission); err != nil {
			if apperror.IsConflict(err) {
				continue
			}
			return result, err
		}
		permissionIDs[cp.Name] = permission
		result.PermissionsCreated++
		s.logger.InfoContext(ctx, "permission created", slog.String("permission", cp.Name))
	}

	// 2. Roles
	roleIDs := make(map[string]*model.Role, len(s.roles))
	for _, cr := range s.roles {
		existing, err := s.store.Roles().FindByName(ctx, cr.Name)
		if err == nil {
			s.logger.DebugContext(ctx, "role exists, skipping", slog.String("role", cr.Name))
			roleIDs[cr.Name] = existing
			continue
		}
		if !apperror.IsNotFound(err) {
			return result, err
		}

		role := &model.Role{Name: cr.Name, Description: cr.Description, IsActive: true}
		role.CreatedBy = actorID
		role.UpdatedBy = actorID
		// An existing default set by an administrator wins over the catalog
		if cr.IsDefault {
			if _, err := s.store.Roles().FindDefault(ctx); apperror.IsNotFound(err) {
				role.IsDefault = true
			} else if err != nil {
				return result, err
			}
		}
		if err := s.store.Roles().Create(ctx, role); err != nil {
			if apperror.IsConflict(err) {
				continue
			}
			return result, err
		}
		roleIDs[cr.Name] = role
		result.RolesCreated++
		s.logger.InfoContext(ctx, "role created", slog.String("role", cr.Name))
	}

	// 3. Role permissions
	for _, cr := range s.roles {
		role, ok := roleIDs[cr.Name]
		if !ok || !role.IsActive {
			continue
		}
		for _, name := range cr.Permissions {
			permission, ok := permissionIDs[name]
			if !ok || !permission.IsActive {
				continue
			}
			// Skip links that exist in any state so a deliberate revoke is not undone
			if _, err := s.store.RolePermissions().Find(ctx, role.ID, permission.ID); err == nil {
				continue
			} else if !apperror.IsNotFound(err) {
				return result, err
			}

			_, err := s.assignments.AssignPermissionToRole(ctx, role.ID, permission.ID, actorID, "seed")
			if apperror.IsConflict(err) {
				s.logger.DebugContext(ctx, "permission already assigned",
					slog.String("role", cr.Name), slog.String("permission", name))
				continue
			}
			if err != nil {
				return result, err
			}
			result.GrantsCreated++
		}
	}

	// 4. Bootstrap administrator
	if s.admin != nil && s.admin.Email != "" && s.admin.Password != "" {
		created, err := s.seedAdmin(ctx, roleIDs[model.RoleSuperAdmin], actorID)
		if err != nil {
			return result, err
		}
		result.AdminCreated = created
	}

	s.logger.InfoContext(ctx, "seeding finished",
		slog.Int("permissions_created", result.PermissionsCreated),
		slog.Int("roles_created", result.RolesCreated),
		slog.Int("grants_created", result.GrantsCreated),
		slog.Bool("admin_created", result.AdminCreated))
	return result, nil
}

func (s *seedService) seedAdmin(ctx context.Context, superAdmin *model.Role, actorID string) (bool, error) {
	if _, err := s.store.Users().FindByEmail(ctx, s.admin.Email); err == nil {
		return false, nil
	} else if !apperror.IsNotFound(err) {
		return false, err
	}
	if superAdmin == nil {
		return false, apperror.NotFound("role %q not found", model.RoleSuperAdmin)
	}

	fullName := s.admin.FullName
	if fullName == "" {
		fullName = "Super Admin"
	}
	admin := &model.User{Email: s.admin.Email, FullName: fullName, IsActive: true}
	admin.CreatedBy = actorID
	admin.UpdatedBy = actorID
	if err := admin.SetPassword(s.admin.Password); err != nil {
		return false, apperror.Internal(err, "failed to hash password")
	}
	if err := s.assignments.CreateUserWithRoles(ctx, admin, []uuid.UUID{superAdmin.ID}, actorID, "bootstrap administrator"); err != nil {
		return false, err
	}
	s.logger.InfoContext(ctx, "administrator created", slog.String("email", admin.Email))
	return true, nil
}
