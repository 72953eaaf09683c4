package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/SscSPs/insurance_platform/internal/platform/config"
	"github.com/SscSPs/insurance_platform/pkg/database"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if path == "" {
				path = cfg.MigrationsPath
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
			status, err := database.RunMigrations(cfg.DatabaseURL, path, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (applied=%t dirty=%t)\n", status.Version, status.Applied, status.Dirty)
			return nil
		},
	}
	up.Flags().StringVar(&path, "path", "", "migration source URL, defaults to MIGRATIONS_PATH")

	cmd.AddCommand(up)
	return cmd
}
