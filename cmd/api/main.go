package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-fund-admin/internal/app"
	"go-fund-admin/internal/authz"
	"go-fund-admin/internal/config"
	"go-fund-admin/internal/handler"
	"go-fund-admin/internal/middleware"
	"go-fund-admin/internal/model"
	"go-fund-admin/internal/service"
	"go-fund-admin/internal/ws"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	appLogger := app.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Setup Store
	store, closeStore, err := app.OpenStore(cfg, appLogger)
	if err != nil {
		appLogger.Error("failed to open store", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeStore()

	// 3. Setup WebSocket Hub
	wsHub := ws.NewHub(appLogger)
	go wsHub.Run(ctx)

	// 4. Dependency Injection (Wiring Layers)
	services, err := app.NewServices(cfg, store, wsHub, appLogger)
	if err != nil {
		appLogger.Error("failed to build services", slog.Any("error", err))
		os.Exit(1)
	}

	// 5. Seed default permissions, roles, and admin user
	if result, err := services.Seed.Seed(ctx, service.SystemActor); err != nil {
		appLogger.Warn("seeding failed", slog.Any("error", err))
	} else {
		appLogger.Info("catalog seeded",
			slog.Int("permissions_created", result.PermissionsCreated),
			slog.Int("roles_created", result.RolesCreated),
			slog.Int("grants_created", result.GrantsCreated),
			slog.Bool("admin_created", result.AdminCreated))
	}

	if cfg.RoleExpirySweep > 0 {
		go runExpirySweep(ctx, services.Assignments, cfg.RoleExpirySweep, appLogger)
	}

	guard := middleware.NewGuard(services.Auth, authz.NewEvaluator(services.Assignments, appLogger))

	// 6. Setup Fiber
	fiberApp := fiber.New(fiber.Config{
		AppName: "Fund Admin Authorization v1.0",
	})

	// Middleware
	fiberApp.Use(logger.New())  // Logging request
	fiberApp.Use(recover.New()) // Panic recovery
	fiberApp.Use(cors.New())    // CORS

	// 7. Routes
	handler.RegisterRoutes(fiberApp, guard, handler.Handlers{
		Auth:       handler.NewAuthHandler(services.Auth),
		User:       handler.NewUserHandler(services.Users),
		Role:       handler.NewRoleHandler(services.Roles, services.Assignments),
		Permission: handler.NewPermissionHandler(services.Permissions),
		Assignment: handler.NewAssignmentHandler(services.Assignments),
		Dashboard:  handler.NewDashboardHandler(services.Dashboard),
		System:     handler.NewSystemHandler(services.Seed),
	})

	// WebSocket Route: authorization change feed
	fiberApp.Use("/ws", guard.Require(authz.AnyPermission(model.PermAuditRead)), func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	fiberApp.Get("/ws", websocket.New(wsHub.Serve))

	// 8. Graceful Shutdown
	go func() {
		if err := fiberApp.Listen(":" + cfg.Port); err != nil {
			log.Panic(err)
		}
	}()

	<-ctx.Done()

	appLogger.Info("shutting down server")
	if err := fiberApp.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	appLogger.Info("server exited")
}

// runExpirySweep revokes expired role assignments every interval until ctx is done
func runExpirySweep(ctx context.Context, assignments service.AssignmentService, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			expired, err := assignments.ExpireRoleAssignments(ctx, now)
			if err != nil {
				logger.Error("role expiry sweep failed", slog.Any("error", err))
				continue
			}
			if expired > 0 {
				logger.Info("expired role assignments revoked", slog.Int("count", expired))
			}
		}
	}
}
