package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lifebalance/internal/backend"
	"lifebalance/internal/cli"
	"lifebalance/internal/storage"
)

func newMigrateCmd() *cobra.Command {
	var dbPath string

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the SQLite schema",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if dbPath != "" {
				return nil
			}
			cli.LoadEnvFile()
			cfg, err := cli.LoadAndValidateConfig()
			if err != nil {
				return err
			}
			if cfg.DataBackend != string(backend.SQLiteBackend) {
				return fmt.Errorf("migrations only apply to the sqlite backend, got %q", cfg.DataBackend)
			}
			dbPath = cfg.SQLiteDBPath
			return nil
		},
	}
	migrateCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default $SQLITE_DB_PATH)")

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := storage.RunMigrations(dbPath); err != nil {
				return err
			}
			return printVersion(cmd, dbPath)
		},
	}

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := storage.RollbackMigrations(dbPath); err != nil {
				return err
			}
			return printVersion(cmd, dbPath)
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printVersion(cmd, dbPath)
		},
	}

	migrateCmd.AddCommand(upCmd, downCmd, statusCmd)
	return migrateCmd
}

func printVersion(cmd *cobra.Command, dbPath string) error {
	version, dirty, err := storage.MigrationVersion(dbPath)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	switch {
	case version == 0 && !dirty:
		fmt.Fprintf(out, "%s: no migrations applied\n", dbPath)
	case dirty:
		fmt.Fprintf(out, "%s: version %d (dirty)\n", dbPath, version)
	default:
		fmt.Fprintf(out, "%s: version %d\n", dbPath, version)
	}
	return nil
}
