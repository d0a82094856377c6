package repository

import (
	"context"
	"time"

	"go-fund-admin/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type auditRepo struct {
	db *gorm.DB
}

func NewAuditRepo(db *gorm.DB) AuditRepository {
	return &auditRepo{db}
}

func (r *auditRepo) CreateRoleAssignment(ctx context.Context, record *model.RoleAssignment) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *auditRepo) UpdateRoleAssignment(ctx context.Context, record *model.RoleAssignment) error {
	return r.db.WithContext(ctx).Save(record).Error
}

func (r *auditRepo) FindLatestActiveAssignment(ctx context.Context, userID, roleID uuid.UUID) (*model.RoleAssignment, error) {
	var record model.RoleAssignment
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND role_id = ? AND action = ? AND is_active = ?", userID, roleID, model.RoleAssigned, true).
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		return nil, translate(err, "role assignment")
	}
	return &record, nil
}

func (r *auditRepo) FindExpiredAssignments(ctx context.Context, now time.Time) ([]model.RoleAssignment, error) {
	var records []model.RoleAssignment
	err := r.db.WithContext(ctx).
		Where("action = ? AND is_active = ? AND expires_at IS NOT NULL AND expires_at <= ?", model.RoleAssigned, true, now).
		Order("expires_at ASC").
		Find(&records).Error
	return records, err
}

func (r *auditRepo) ListRoleAssignments(ctx context.Context, filter model.RoleHistoryFilter) ([]model.RoleAssignment, error) {
	var records []model.RoleAssignment
	query := r.db.WithContext(ctx)
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.RoleID != nil {
		query = query.Where("role_id = ?", *filter.RoleID)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	err := query.Order("created_at DESC").Find(&records).Error
	return records, err
}

func (r *auditRepo) CreatePermissionAudit(ctx context.Context, entry *model.PermissionAudit) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *auditRepo) ListPermissionAudits(ctx context.Context, filter model.PermissionAuditFilter) ([]model.PermissionAudit, error) {
	var entries []model.PermissionAudit
	query := r.db.WithContext(ctx)
	if filter.RoleID != nil {
		query = query.Where("role_id = ?", *filter.RoleID)
	}
	if filter.PermissionID != nil {
		query = query.Where("permission_id = ?", *filter.PermissionID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	err := query.Order("created_at DESC").Find(&entries).Error
	return entries, err
}
