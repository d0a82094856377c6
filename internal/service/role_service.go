package service

import (
	"context"

	"go-fund-admin/internal/apperror"
	"go-fund-admin/internal/model"
	"go-fund-admin/internal/repository"

	"github.com/google/uuid"
)

type RoleService interface {
	CreateRole(ctx context.Context, req *CreateRoleRequest, actorID string) (*model.Role, error)
	GetRole(ctx context.Context, id uuid.UUID) (*model.RoleWithPermissions, error)
	GetRoleByName(ctx context.Context, name string) (*model.RoleWithPermissions, error)
	ListRoles(ctx context.Context, includeInactive bool) ([]model.Role, error)
	UpdateRole(ctx context.Context, id uuid.UUID, req *UpdateRoleRequest, actorID string) (*model.Role, error)
	DeleteRole(ctx context.Context, id uuid.UUID, actorID string) error
}

type CreateRoleRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"` // defaults to true
	IsDefault   bool   `json:"is_default"`
}

// UpdateRoleRequest carries only the fields to change
type UpdateRoleRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
	IsDefault   *bool   `json:"is_default"`
}

type roleService struct {
	store     repository.Store
	publisher *Publisher
}

func NewRoleService(store repository.Store, publisher *Publisher) RoleService {
	return &roleService{store: store, publisher: publisher}
}

func (s *roleService) CreateRole(ctx context.Context, req *CreateRoleRequest, actorID string) (*model.Role, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	role := &model.Role{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive == nil || *req.IsActive,
		IsDefault:   req.IsDefault,
	}
	role.CreatedBy = actorID
	role.UpdatedBy = actorID

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := tx.Roles().FindByName(ctx, role.Name); err == nil {
			return apperror.Conflict("role %q already exists", role.Name)
		} else if !apperror.IsNotFound(err) {
			return err
		}

		if role.IsDefault {
			if !role.IsActive {
				return apperror.BadRequest("the default role must be active")
			}
			if err := tx.Roles().ClearDefault(ctx, uuid.Nil); err != nil {
				return err
			}
		}
		return tx.Roles().Create(ctx, role)
	})
	if err != nil {
		return nil, err
	}

	s.publisher.publish(ChangeEvent{Type: ChangeRoleCreated, RoleID: idRef(role.ID)})
	return role, nil
}

func (s *roleService) GetRole(ctx context.Context, id uuid.UUID) (*model.RoleWithPermissions, error) {
	role, err := s.store.Roles().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withPermissions(ctx, role)
}

func (s *roleService) GetRoleByName(ctx context.Context, name string) (*model.RoleWithPermissions, error) {
	role, err := s.store.Roles().FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.withPermissions(ctx, role)
}

func (s *roleService) withPermissions(ctx context.Context, role *model.Role) (*model.RoleWithPermissions, error) {
	grants, err := s.store.RolePermissions().FindActiveGrants(ctx, []uuid.UUID{role.ID})
	if err != nil {
		return nil, err
	}
	names := make([]string, len(grants))
	for i, g := range grants {
		names[i] = g.Permission.Name
	}
	return &model.RoleWithPermissions{Role: *role, Permissions: names}, nil
}

func (s *roleService) ListRoles(ctx context.Context, includeInactive bool) ([]model.Role, error) {
	return s.store.Roles().FindAll(ctx, includeInactive)
}

func (s *roleService) UpdateRole(ctx context.Context, id uuid.UUID, req *UpdateRoleRequest, actorID string) (*model.Role, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	var role *model.Role
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		if role, err = tx.Roles().FindByID(ctx, id); err != nil {
			return err
		}

		// 1. Re-check name uniqueness on rename
		if req.Name != nil && *req.Name != role.Name {
			if _, err := tx.Roles().FindByName(ctx, *req.Name); err == nil {
				return apperror.Conflict("role %q already exists", *req.Name)
			} else if !apperror.IsNotFound(err) {
				return err
			}
			role.Name = *req.Name
		}

		// 2. Apply remaining fields
		if req.Description != nil {
			role.Description = *req.Description
		}
		if req.IsActive != nil {
			// Deactivation is a soft delete and keeps its guard
			if role.IsActive && !*req.IsActive {
				count, err := tx.UserRoles().CountActiveByRole(ctx, role.ID)
				if err != nil {
					return err
				}
				if count > 0 {
					return apperror.BadRequest("role %q is still assigned to %d user(s)", role.Name, count)
				}
			}
			role.IsActive = *req.IsActive
		}
		becomesDefault := req.IsDefault != nil && *req.IsDefault && !role.IsDefault
		if req.IsDefault != nil {
			role.IsDefault = *req.IsDefault
		}
		if role.IsDefault && !role.IsActive {
			return apperror.BadRequest("the default role must be active")
		}
		role.UpdatedBy = actorID

		// 3. Keep the default singleton
		if becomesDefault {
			if err := tx.Roles().ClearDefault(ctx, role.ID); err != nil {
				return err
			}
		}
		return tx.Roles().Update(ctx, role)
	})
	if err != nil {
		return nil, err
	}

	s.publisher.publish(ChangeEvent{Type: ChangeRoleUpdated, RoleID: idRef(role.ID)})
	return role, nil
}

func (s *roleService) DeleteRole(ctx context.Context, id uuid.UUID, actorID string) error {
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		role, err := tx.Roles().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if role.IsDefault {
			return apperror.BadRequest("cannot delete the default role %q", role.Name)
		}

		count, err := tx.UserRoles().CountActiveByRole(ctx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return apperror.BadRequest("role %q is still assigned to %d user(s)", role.Name, count)
		}

		role.IsActive = false
		role.UpdatedBy = actorID
		return tx.Roles().Update(ctx, role)
	})
	if err != nil {
		return err
	}

	s.publisher.publish(ChangeEvent{Type: ChangeRoleDeleted, RoleID: idRef(id)})
	return nil
}
