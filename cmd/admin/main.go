package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go-fund-admin/internal/app"
	"go-fund-admin/internal/config"

	"github.com/joho/godotenv"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "admin",
	Short: "Fund admin authorization maintenance",
	Long: `admin runs maintenance tasks against the authorization store configured
through the environment (.env is loaded when present).`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(seedCmd, resetPasswordCmd, rolesCmd, expireCmd)
}

// withServices loads the configuration, opens the store and hands the services to fn
func withServices(ctx context.Context, fn func(ctx context.Context, services *app.Services) error) error {
	if err := godotenv.Load(); err != nil {
		pterm.Warning.Println(".env file not found, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger := app.NewLogger(cfg)

	store, closeStore, err := app.OpenStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	services, err := app.NewServices(cfg, store, nil, logger.With(slog.String("component", "admin-cli")))
	if err != nil {
		return err
	}
	return fn(ctx, services)
}
