package repository

import (
	"context"

	"go-fund-admin/internal/model"

	"gorm.io/gorm"
)

type gormStore struct {
	db *gorm.DB
}

// NewStore returns a Store backed by db
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// AutoMigrate creates or updates the authorization and user tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Role{},
		&model.Permission{},
		&model.UserRole{},
		&model.RolePermission{},
		&model.RoleAssignment{},
		&model.PermissionAudit{},
	)
}

func (s *gormStore) Roles() RoleRepository                     { return NewRoleRepo(s.db) }
func (s *gormStore) Permissions() PermissionRepository         { return NewPermissionRepo(s.db) }
func (s *gormStore) UserRoles() UserRoleRepository             { return NewUserRoleRepo(s.db) }
func (s *gormStore) RolePermissions() RolePermissionRepository { return NewRolePermissionRepo(s.db) }
func (s *gormStore) Audit() AuditRepository                    { return NewAuditRepo(s.db) }
func (s *gormStore) Users() UserRepository                     { return NewUserRepo(s.db) }
func (s *gormStore) Stats() StatsRepository                    { return NewStatsRepo(s.db) }

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}
