// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credcore Contributors

package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/credcore/credcore/internal/store"
)

// migratorFactory opens the migrator used by the migrate subcommands.
// Tests replace it.
var migratorFactory = newStoreMigrator

func newStoreMigrator(url string) (MigrationRunner, error) {
	m, err := store.NewMigrator(url)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long:  `Apply, roll back, or inspect the PostgreSQL schema migrations.`,
	}

	cmd.PersistentFlags().String("database-url", "", "PostgreSQL connection URL (default: DATABASE_URL)")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m MigrationRunner, _ []string) error {
			if err := m.Up(); err != nil {
				return err
			}
			cmd.Println("Migrations applied successfully")
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations (drops all data)",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m MigrationRunner, _ []string) error {
			if err := m.Down(); err != nil {
				return err
			}
			cmd.Println("Migrations rolled back")
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied migration version",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m MigrationRunner, _ []string) error {
			v, dirty, err := m.Version()
			if err != nil {
				return err
			}
			if dirty {
				cmd.Printf("Version: %d (dirty)\n", v)
				return nil
			}
			cmd.Printf("Version: %d\n", v)
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Mark VERSION as applied without running it",
		Long: `Mark VERSION as applied without running it. Use this to recover
from a failed migration that left the database dirty.`,
		Args: cobra.ExactArgs(1),
		RunE: withMigrator(func(cmd *cobra.Command, m MigrationRunner, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return oops.Code("INVALID_VERSION").With("arg", args[0]).Wrap(err)
			}
			if err := m.Force(v); err != nil {
				return err
			}
			cmd.Printf("Forced version %d\n", v)
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m MigrationRunner, _ []string) error {
			applied, err := m.AppliedMigrations()
			if err != nil {
				return err
			}
			pending, err := m.PendingMigrations()
			if err != nil {
				return err
			}
			for _, v := range applied {
				cmd.Println("applied  " + migrationLabel(v))
			}
			for _, v := range pending {
				cmd.Println("pending  " + migrationLabel(v))
			}
			return nil
		}),
	})

	return cmd
}

type migrateFunc func(cmd *cobra.Command, m MigrationRunner, args []string) error

// withMigrator resolves the database URL, opens a migrator for the
// duration of fn, and closes it afterwards.
func withMigrator(fn migrateFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := cfg.RequireDatabase(); err != nil {
			return err
		}

		m, err := migratorFactory(cfg.DatabaseURL)
		if err != nil {
			return oops.Code("MIGRATION_FAILED").With("operation", "open migrator").Wrap(err)
		}
		defer func() {
			if closeErr := m.Close(); closeErr != nil {
				slog.Warn("failed to close migrator", "error", closeErr)
			}
		}()

		return fn(cmd, m, args)
	}
}

func migrationLabel(v uint) string {
	name, err := store.MigrationName(v)
	if err != nil || name == "" {
		return fmt.Sprintf("%06d", v)
	}
	return name
}
