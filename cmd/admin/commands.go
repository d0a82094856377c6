package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go-fund-admin/internal/app"
	"go-fund-admin/internal/service"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the missing parts of the default role and permission catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd.Context(), func(ctx context.Context, services *app.Services) error {
			result, err := services.Seed.Seed(ctx, service.SystemActor)
			if err != nil {
				return fmt.Errorf("seed failed: %w", err)
			}

			pterm.Success.Println("Catalog seeded")
			table := pterm.TableData{
				{"ITEM", "CREATED"},
				{"permissions", strconv.Itoa(result.PermissionsCreated)},
				{"roles", strconv.Itoa(result.RolesCreated)},
				{"grants", strconv.Itoa(result.GrantsCreated)},
				{"admin", strconv.FormatBool(result.AdminCreated)},
			}
			return pterm.DefaultTable.WithHasHeader().WithData(table).Render()
		})
	},
}

var (
	resetEmail    string
	resetPassword string
)

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Replace a user's password",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd.Context(), func(ctx context.Context, services *app.Services) error {
			if err := services.Auth.SetPassword(ctx, resetEmail, resetPassword); err != nil {
				return fmt.Errorf("reset password for %s: %w", resetEmail, err)
			}
			pterm.Success.Printf("Password for %s has been reset; existing tokens are revoked\n", resetEmail)
			return nil
		})
	},
}

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "List roles with their permission counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd.Context(), func(ctx context.Context, services *app.Services) error {
			roles, err := services.Roles.ListRoles(ctx, true)
			if err != nil {
				return fmt.Errorf("failed to list roles: %w", err)
			}
			if len(roles) == 0 {
				pterm.Info.Println("No roles found. Run `admin seed` first.")
				return nil
			}

			table := pterm.TableData{{"NAME", "ACTIVE", "DEFAULT", "PERMISSIONS", "ID"}}
			for _, role := range roles {
				detail, err := services.Roles.GetRole(ctx, role.ID)
				if err != nil {
					return fmt.Errorf("failed to load role %s: %w", role.Name, err)
				}
				table = append(table, []string{
					role.Name,
					strconv.FormatBool(role.IsActive),
					strconv.FormatBool(role.IsDefault),
					strconv.Itoa(len(detail.Permissions)),
					role.ID.String(),
				})
			}
			return pterm.DefaultTable.WithHasHeader().WithData(table).Render()
		})
	},
}

var expireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Revoke role assignments whose expiry has passed",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd.Context(), func(ctx context.Context, services *app.Services) error {
			expired, err := services.Assignments.ExpireRoleAssignments(ctx, time.Now())
			if err != nil {
				return fmt.Errorf("expiry sweep failed: %w", err)
			}
			if expired == 0 {
				pterm.Info.Println("No expired role assignments.")
				return nil
			}
			pterm.Success.Printf("Revoked %d expired role assignment(s)\n", expired)
			return nil
		})
	},
}

func init() {
	resetPasswordCmd.Flags().StringVar(&resetEmail, "email", "", "Email of the user")
	resetPasswordCmd.Flags().StringVar(&resetPassword, "password", "", "New password (min 6 characters)")
	_ = resetPasswordCmd.MarkFlagRequired("email")
	_ = resetPasswordCmd.MarkFlagRequired("password")
}
