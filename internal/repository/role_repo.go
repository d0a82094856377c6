package repository

import (
	"context"

	"go-fund-admin/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type roleRepo struct {
	db *gorm.DB
}

func NewRoleRepo(db *gorm.DB) RoleRepository {
	return &roleRepo{db: db}
}

func (r *roleRepo) Create(ctx context.Context, role *model.Role) error {
	return translate(r.db.WithContext(ctx).Create(role).Error, "role")
}

func (r *roleRepo) Update(ctx context.Context, role *model.Role) error {
	return translate(r.db.WithContext(ctx).Save(role).Error, "role")
}

func (r *roleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	var role model.Role
	if err := r.db.WithContext(ctx).First(&role, "id = ?", id).Error; err != nil {
		return nil, translate(err, "role")
	}
	return &role, nil
}

func (r *roleRepo) FindByName(ctx context.Context, name string) (*model.Role, error) {
	var role model.Role
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&role).Error; err != nil {
		return nil, translate(err, "role")
	}
	return &role, nil
}

func (r *roleRepo) FindAll(ctx context.Context, includeInactive bool) ([]model.Role, error) {
	var roles []model.Role
	query := r.db.WithContext(ctx)
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	err := query.Order("name ASC").Find(&roles).Error
	return roles, err
}

func (r *roleRepo) FindDefault(ctx context.Context) (*model.Role, error) {
	var role model.Role
	if err := r.db.WithContext(ctx).Where("is_default = ?", true).First(&role).Error; err != nil {
		return nil, translate(err, "default role")
	}
	return &role, nil
}

func (r *roleRepo) ClearDefault(ctx context.Context, exceptID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Role{}).
		Where("is_default = ? AND id <> ?", true, exceptID).
		Update("is_default", false).Error
}
