package service

import (
	"context"
	"sort"
	"strings"

	"go-fund-admin/internal/apperror"
	"go-fund-admin/internal/model"
	"go-fund-admin/internal/repository"

	"github.com/google/uuid"
)

type PermissionService interface {
	CreatePermission(ctx context.Context, req *CreatePermissionRequest, actorID string) (*model.Permission, error)
	GetPermission(ctx context.Context, id uuid.UUID) (*model.Permission, error)
	GetPermissionByName(ctx context.Context, name string) (*model.Permission, error)
	ListPermissions(ctx context.Context, includeInactive bool) ([]model.Permission, error)
	// ListByResource groups active permissions under their resource key
	ListByResource(ctx context.Context) (map[string][]model.Permission, error)
	ListForResource(ctx context.Context, resource string) ([]model.Permission, error)
	UpdatePermission(ctx context.Context, id uuid.UUID, req *UpdatePermissionRequest, actorID string) (*model.Permission, error)
	DeletePermission(ctx context.Context, id uuid.UUID, actorID string) error
}

type CreatePermissionRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description string  `json:"description"`
	Resource    *string `json:"resource" validate:"omitempty,max=100"`
	Action      *string `json:"action" validate:"omitempty,max=100"`
	IsActive    *bool   `json:"is_active"` // defaults to true
}

type UpdatePermissionRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description"`
	Resource    *string `json:"resource" validate:"omitempty,max=100"`
	Action      *string `json:"action" validate:"omitempty,max=100"`
	IsActive    *bool   `json:"is_active"`
}

type permissionService struct {
	store     repository.Store
	publisher *Publisher
}

func NewPermissionService(store repository.Store, publisher *Publisher) PermissionService {
	return &permissionService{store: store, publisher: publisher}
}

// blankToNil stores empty resource or action as NULL
func blankToNil(v *string) *string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	return v
}

func (s *permissionService) CreatePermission(ctx context.Context, req *CreatePermissionRequest, actorID string) (*model.Permission, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	permission := &model.Permission{
		Name:        req.Name,
		Description: req.Description,
		Resource:    blankToNil(req.Resource),
		Action:      blankToNil(req.Action),
		IsActive:    req.IsActive == nil || *req.IsActive,
	}
	permission.CreatedBy = actorID
	permission.UpdatedBy = actorID

	if _, err := s.store.Permissions().FindByName(ctx, permission.Name); err == nil {
		return nil, apperror.Conflict("permission %q already exists", permission.Name)
	} else if !apperror.IsNotFound(err) {
		return nil, err
	}
	// The unique index still catches a concurrent create of the same name
	if err := s.store.Permissions().Create(ctx, permission); err != nil {
		return nil, err
	}

	s.publisher.publish(ChangeEvent{Type: ChangePermissionCreated, PermissionID: idRef(permission.ID)})
	return permission, nil
}

func (s *permissionService) GetPermission(ctx context.Context, id uuid.UUID) (*model.Permission, error) {
	return s.store.Permissions().FindByID(ctx, id)
}

func (s *permissionService) GetPermissionByName(ctx context.Context, name string) (*model.Permission, error) {
	return s.store.Permissions().FindByName(ctx, name)
}

func (s *permissionService) ListPermissions(ctx context.Context, includeInactive bool) ([]model.Permission, error) {
	return s.store.Permissions().FindAll(ctx, includeInactive)
}

func (s *permissionService) ListByResource(ctx context.Context) (map[string][]model.Permission, error) {
	permissions, err := s.store.Permissions().FindAll(ctx, false)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]model.Permission)
	for _, p := range permissions {
		key := p.ResourceKey()
		grouped[key] = append(grouped[key], p)
	}
	for key := range grouped {
		perms := grouped[key]
		sort.Slice(perms, func(i, j int) bool { return perms[i].Name < perms[j].Name })
	}
	return grouped, nil
}

func (s *permissionService) ListForResource(ctx context.Context, resource string) ([]model.Permission, error) {
	if strings.TrimSpace(resource) == "" {
		resource = model.GeneralResource
	}
	return s.store.Permissions().FindByResource(ctx, resource)
}

func (s *permissionService) UpdatePermission(ctx context.Context, id uuid.UUID, req *UpdatePermissionRequest, actorID string) (*model.Permission, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	var permission *model.Permission
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		if permission, err = tx.Permissions().FindByID(ctx, id); err != nil {
			return err
		}

		if req.Name != nil && *req.Name != permission.Name {
			if _, err := tx.Permissions().FindByName(ctx, *req.Name); err == nil {
				return apperror.Conflict("permission %q already exists", *req.Name)
			} else if !apperror.IsNotFound(err) {
				return err
			}
			permission.Name = *req.Name
		}
		if req.Description != nil {
			permission.Description = *req.Description
		}
		if req.Resource != nil {
			permission.Resource = blankToNil(req.Resource)
		}
		if req.Action != nil {
			permission.Action = blankToNil(req.Action)
		}
		if req.IsActive != nil {
			if permission.IsActive && !*req.IsActive {
				count, err := tx.RolePermissions().CountActiveByPermission(ctx, permission.ID)
				if err != nil {
					return err
				}
				if count > 0 {
					return apperror.BadRequest("permission %q is still granted to %d role(s)", permission.Name, count)
				}
			}
			permission.IsActive = *req.IsActive
		}
		permission.UpdatedBy = actorID

		return tx.Permissions().Update(ctx, permission)
	})
	if err != nil {
		return nil, err
	}

	s.publisher.publish(ChangeEvent{Type: ChangePermissionUpdated, PermissionID: idRef(permission.ID)})
	return permission, nil
}

func (s *permissionService) DeletePermission(ctx context.Context, id uuid.UUID, actorID string) error {
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		permission, err := tx.Permissions().FindByID(ctx, id)
		if err != nil {
			return err
		}

		count, err := tx.RolePermissions().CountActiveByPermission(ctx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return apperror.BadRequest("permission %q is still granted to %d role(s)", permission.Name, count)
		}

		permission.IsActive = false
		permission.UpdatedBy = actorID
		return tx.Permissions().Update(ctx, permission)
	})
	if err != nil {
		return err
	}

	s.publisher.publish(ChangeEvent{Type: ChangePermissionDeleted, PermissionID: idRef(id)})
	return nil
}
