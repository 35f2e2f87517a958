package main

import (
	"fmt"
	"io"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/ayush/todo-api/internal/config"
	"github.com/ayush/todo-api/internal/store"
)

// schemaMigrator is the part of store.Migrator the commands drive.
type schemaMigrator interface {
	Up() error
	Down() error
	Version() (uint, bool, error)
	Close() error
}

var newMigrator = func(databaseURL string) (schemaMigrator, error) {
	return store.NewMigrator(databaseURL)
}

// NewMigrateCmd creates the migrate command and its subcommands.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(func(m schemaMigrator) error {
					return runMigrateUp(cmd.OutOrStdout(), m)
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back every migration (drops all data)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(func(m schemaMigrator) error {
					return runMigrateDown(cmd.OutOrStdout(), m)
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(func(m schemaMigrator) error {
					return runMigrateVersion(cmd.OutOrStdout(), m)
				})
			},
		},
	)
	return cmd
}

func withMigrator(fn func(schemaMigrator) error) (err error) {
	cfg, err := config.Load()
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	m, err := newMigrator(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(m)
}

func migrateUp(databaseURL string) error {
	m, err := newMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer m.Close() //nolint:errcheck // up error takes precedence
	return m.Up()
}

func runMigrateUp(out io.Writer, m schemaMigrator) error {
	if err := m.Up(); err != nil {
		return err
	}
	return printVersion(out, m, "migrated to")
}

func runMigrateDown(out io.Writer, m schemaMigrator) error {
	if err := m.Down(); err != nil {
		return err
	}
	return printVersion(out, m, "rolled back to")
}

func runMigrateVersion(out io.Writer, m schemaMigrator) error {
	return printVersion(out, m, "schema version")
}

func printVersion(out io.Writer, m schemaMigrator, prefix string) error {
	v, dirty, err := m.Version()
	if err != nil {
		return err
	}
	suffix := ""
	if dirty {
		suffix = " (dirty)"
	}
	_, err = fmt.Fprintf(out, "%s %d%s\n", prefix, v, suffix)
	return err
}
