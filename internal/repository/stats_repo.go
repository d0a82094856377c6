package repository

import (
	"context"
	"time"

	"go-fund-admin/internal/model"

	"gorm.io/gorm"
)

type statsRepo struct {
	db *gorm.DB
}

func NewStatsRepo(db *gorm.DB) StatsRepository {
	return &statsRepo{db}
}

func (r *statsRepo) GetAuthorizationStats(ctx context.Context, since time.Time) (*model.AuthorizationStats, error) {
	var stats model.AuthorizationStats
	db := r.db.WithContext(ctx)

	counts := []struct {
		target *int64
		query  *gorm.DB
	}{
		{&stats.TotalRoles, db.Model(&model.Role{})},
		{&stats.ActiveRoles, db.Model(&model.Role{}).Where("is_active = ?", true)},
		{&stats.TotalPermissions, db.Model(&model.Permission{})},
		{&stats.ActivePermissions, db.Model(&model.Permission{}).Where("is_active = ?", true)},
		{&stats.ActiveUserRoleLinks, db.Model(&model.UserRole{}).Where("is_active = ?", true)},
		{&stats.ActiveRolePermissionLinks, db.Model(&model.RolePermission{}).Where("is_active = ?", true)},
		{&stats.RecentAssignments, db.Model(&model.RoleAssignment{}).Where("action = ? AND created_at >= ?", model.RoleAssigned, since)},
		{&stats.RecentRevocations, db.Model(&model.RoleAssignment{}).Where("action = ? AND created_at >= ?", model.RoleRevoked, since)},
	}
	for _, c := range counts {
		if err := c.query.Count(c.target).Error; err != nil {
			return nil, err
		}
	}

	return &stats, nil
}
