// Package app wires configuration, storage and services for the binaries under cmd/.
package app

import (
	"log/slog"
	"os"

	"go-fund-admin/internal/config"
	"go-fund-admin/internal/repository"
	"go-fund-admin/internal/repository/memory"
	"go-fund-admin/internal/service"
	"go-fund-admin/pkg/database"
	"go-fund-admin/pkg/jwt"
)

// NewLogger returns a text logger at the configured level and installs it as the default.
func NewLogger(cfg *config.Config) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	return logger
}

// OpenStore connects the configured store. The returned func releases it.
func OpenStore(cfg *config.Config, logger *slog.Logger) (repository.Store, func(), error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Warn("using in-memory store, data is lost on exit")
		return memory.New(), func() {}, nil
	}

	db, err := database.ConnectDB(cfg.Database, cfg.Debug)
	if err != nil {
		return nil, nil, err
	}
	// Auto Migrate (use a dedicated migration tool for production schemas)
	if err := repository.AutoMigrate(db); err != nil {
		return nil, nil, err
	}
	logger.Info("database connection established")

	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	return repository.NewStore(db), closeFn, nil
}

// Services holds every service built on one store
type Services struct {
	Store       repository.Store
	Publisher   *service.Publisher
	Roles       service.RoleService
	Permissions service.PermissionService
	Assignments service.AssignmentService
	Users       service.UserService
	Auth        service.AuthService
	Dashboard   service.DashboardService
	Seed        service.SeedService
}

// NewServices builds the service layer. notifier may be nil.
func NewServices(cfg *config.Config, store repository.Store, notifier service.ChangeNotifier, logger *slog.Logger) (*Services, error) {
	cache, err := service.NewAccessCache(cfg.AccessCacheSize)
	if err != nil {
		return nil, err
	}
	publisher := service.NewPublisher(cache, notifier)

	assignments := service.NewAssignmentService(store, publisher, cfg.BulkMaxItems, logger)
	tokens := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL)

	var admin *service.AdminAccount
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		admin = &service.AdminAccount{
			Email:    cfg.AdminEmail,
			Password: cfg.AdminPassword,
			FullName: "Platform Administrator",
		}
	}

	return &Services{
		Store:       store,
		Publisher:   publisher,
		Roles:       service.NewRoleService(store, publisher),
		Permissions: service.NewPermissionService(store, publisher),
		Assignments: assignments,
		Users:       service.NewUserService(store, assignments, logger),
		Auth:        service.NewAuthService(store, assignments, tokens),
		Dashboard:   service.NewDashboardService(store.Stats()),
		Seed:        service.NewSeedService(store, assignments, admin, logger),
	}, nil
}
