package repository

import (
	"context"

	"go-fund-admin/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type permissionRepo struct {
	db *gorm.DB
}

func NewPermissionRepo(db *gorm.DB) PermissionRepository {
	return &permissionRepo{db}
}

func (r *permissionRepo) Create(ctx context.Context, permission *model.Permission) error {
	return translate(r.db.WithContext(ctx).Create(permission).Error, "permission")
}

func (r *permissionRepo) Update(ctx context.Context, permission *model.Permission) error {
	return translate(r.db.WithContext(ctx).Save(permission).Error, "permission")
}

func (r *permissionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Permission, error) {
	var permission model.Permission
	if err := r.db.WithContext(ctx).First(&permission, "id = ?", id).Error; err != nil {
		return nil, translate(err, "permission")
	}
	return &permission, nil
}

func (r *permissionRepo) FindByName(ctx context.Context, name string) (*model.Permission, error) {
	var permission model.Permission
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&permission).Error; err != nil {
		return nil, translate(err, "permission")
	}
	return &permission, nil
}

func (r *permissionRepo) FindAll(ctx context.Context, includeInactive bool) ([]model.Permission, error) {
	var permissions []model.Permission
	query := r.db.WithContext(ctx)
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Order("name ASC").Find(&permissions).Error; err != nil {
		return nil, err
	}
	return permissions, nil
}

func (r *permissionRepo) FindByResource(ctx context.Context, resource string) ([]model.Permission, error) {
	var permissions []model.Permission
	query := r.db.WithContext(ctx).Where("is_active = ?", true)
	if resource == model.GeneralResource {
		query = query.Where("resource IS NULL OR resource = '' OR resource = ?", resource)
	} else {
		query = query.Where("resource = ?", resource)
	}
	if err := query.Order("name ASC").Find(&permissions).Error; err != nil {
		return nil, err
	}
	return permissions, nil
}
