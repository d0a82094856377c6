package repository

import (
	"context"

	"go-fund-admin/internal/apperror"
	"go-fund-admin/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type userRoleRepo struct {
	db *gorm.DB
}

func NewUserRoleRepo(db *gorm.DB) UserRoleRepository {
	return &userRoleRepo{db}
}

func (r *userRoleRepo) Find(ctx context.Context, userID, roleID uuid.UUID) (*model.UserRole, error) {
	var link model.UserRole
	if err := r.db.WithContext(ctx).Where("user_id = ? AND role_id = ?", userID, roleID).First(&link).Error; err != nil {
		return nil, translate(err, "user role")
	}
	return &link, nil
}

func (r *userRoleRepo) Create(ctx context.Context, link *model.UserRole) error {
	return translate(r.db.WithContext(ctx).Omit("Role").Create(link).Error, "user role")
}

func (r *userRoleRepo) SetActive(ctx context.Context, id uuid.UUID, active bool, updatedBy string) error {
	return setActive(r.db.WithContext(ctx).Model(&model.UserRole{}), id, active, updatedBy, "user role")
}

func (r *userRoleRepo) FindActiveByUser(ctx context.Context, userID uuid.UUID) ([]model.UserRole, error) {
	var links []model.UserRole
	err := r.db.WithContext(ctx).Preload("Role").
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("created_at ASC").
		Find(&links).Error
	return links, err
}

// LockActiveByUser serialises concurrent revocations for the same user
func (r *userRoleRepo) LockActiveByUser(ctx context.Context, userID uuid.UUID) ([]model.UserRole, error) {
	var links []model.UserRole
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Find(&links).Error
	return links, err
}

func (r *userRoleRepo) FindActiveRoles(ctx context.Context, userID uuid.UUID) ([]model.Role, error) {
	var roles []model.Role
	err := r.db.WithContext(ctx).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ? AND user_roles.is_active = ? AND roles.is_active = ?", userID, true, true).
		Order("roles.name ASC").
		Find(&roles).Error
	return roles, err
}

func (r *userRoleRepo) CountActiveByRole(ctx context.Context, roleID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.UserRole{}).
		Where("role_id = ? AND is_active = ?", roleID, true).
		Count(&count).Error
	return count, err
}

type rolePermissionRepo struct {
	db *gorm.DB
}

func NewRolePermissionRepo(db *gorm.DB) RolePermissionRepository {
	return &rolePermissionRepo{db}
}

func (r *rolePermissionRepo) Find(ctx context.Context, roleID, permissionID uuid.UUID) (*model.RolePermission, error) {
	var link model.RolePermission
	if err := r.db.WithContext(ctx).Where("role_id = ? AND permission_id = ?", roleID, permissionID).First(&link).Error; err != nil {
		return nil, translate(err, "role permission")
	}
	return &link, nil
}

func (r *rolePermissionRepo) Create(ctx context.Context, link *model.RolePermission) error {
	return translate(r.db.WithContext(ctx).Omit("Permission").Create(link).Error, "role permission")
}

func (r *rolePermissionRepo) SetActive(ctx context.Context, id uuid.UUID, active bool, updatedBy string) error {
	return setActive(r.db.WithContext(ctx).Model(&model.RolePermission{}), id, active, updatedBy, "role permission")
}

func (r *rolePermissionRepo) FindActiveGrants(ctx context.Context, roleIDs []uuid.UUID) ([]model.PermissionGrant, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}

	var links []model.RolePermission
	err := r.db.WithContext(ctx).
		Joins("JOIN permissions ON permissions.id = role_permissions.permission_id").
		Where("role_permissions.role_id IN ? AND role_permissions.is_active = ? AND permissions.is_active = ?", roleIDs, true, true).
		Preload("Permission").
		Find(&links).Error
	if err != nil {
		return nil, err
	}

	grants := make([]model.PermissionGrant, 0, len(links))
	for _, link := range links {
		if link.Permission == nil {
			continue
		}
		grants = append(grants, model.PermissionGrant{RoleID: link.RoleID, Permission: *link.Permission})
	}
	return grants, nil
}

func (r *rolePermissionRepo) CountActiveByPermission(ctx context.Context, permissionID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.RolePermission{}).
		Where("permission_id = ? AND is_active = ?", permissionID, true).
		Count(&count).Error
	return count, err
}

// setActive flips is_active only when the row is in the opposite state, so
// two concurrent flips of the same link cannot both succeed
func setActive(query *gorm.DB, id uuid.UUID, active bool, updatedBy, entity string) error {
	result := query.Where("id = ? AND is_active = ?", id, !active).Updates(map[string]interface{}{
		"is_active":  active,
		"updated_by": updatedBy,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperror.Conflict("%s is already in the requested state", entity)
	}
	return nil
}
