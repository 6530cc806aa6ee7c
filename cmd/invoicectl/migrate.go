package main

import (
	"github.com/SscSPs/invoice_review_app/pkg/database"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back schema migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate(cmd, database.MigrateUp)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate(cmd, database.MigrateDown)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
}

func runMigrate(cmd *cobra.Command, direction database.MigrationDirection) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	version, err := database.Migrate(cfg.DatabaseURL, cfg.MigrationsPath, direction, logger)
	if err != nil {
		return err
	}
	return printJSON(cmd, map[string]any{"direction": direction, "version": version})
}
