package main

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/alchemorsel/mealplan/internal/infrastructure/persistence/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type migrateOptions struct {
	driver string
	dsn    string
}

func newMigrateCmd() *cobra.Command {
	opts := &migrateOptions{}
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the shopping list database schema",
	}
	cmd.PersistentFlags().StringVar(&opts.driver, "driver", migrations.DriverSQLite, "database driver (sqlite3, postgres)")
	cmd.PersistentFlags().StringVar(&opts.dsn, "dsn", "mealplan.db", "database file or connection string")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: withMigrator(opts, func(cmd *cobra.Command, m *migrations.Migrator) error {
				if err := m.Up(); err != nil {
					return err
				}
				return printVersion(cmd, m)
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE: withMigrator(opts, func(cmd *cobra.Command, m *migrations.Migrator) error {
				if err := m.Down(); err != nil {
					return err
				}
				return printVersion(cmd, m)
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE:  withMigrator(opts, printVersion),
		},
		&cobra.Command{
			Use:   "status",
			Short: "List applied and pending migrations",
			Args:  cobra.NoArgs,
			RunE: withMigrator(opts, func(cmd *cobra.Command, m *migrations.Migrator) error {
				status, err := m.Status()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, mig := range status.Applied {
					fmt.Fprintf(out, "applied  %d %s\n", mig.Version, mig.Name)
				}
				for _, mig := range status.Pending {
					fmt.Fprintf(out, "pending  %d %s\n", mig.Version, mig.Name)
				}
				if status.Dirty {
					fmt.Fprintf(out, "schema is dirty at version %d\n", status.Version)
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "force <version>",
			Short: "Set the schema version without running migrations",
			Args:  cobra.ExactArgs(1),
			RunE: withMigrator(opts, func(cmd *cobra.Command, m *migrations.Migrator) error {
				version, err := strconv.Atoi(cmd.Flags().Arg(0))
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", cmd.Flags().Arg(0), err)
				}
				if err := m.Force(version); err != nil {
					return err
				}
				return printVersion(cmd, m)
			}),
		},
		newMigrateCreateCmd(),
	)
	return cmd
}

func newMigrateCreateCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Write an empty up/down migration pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			up, down, err := migrations.CreateMigration(dir, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), up)
			fmt.Fprintln(cmd.OutOrStdout(), down)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "internal/infrastructure/persistence/migrations/sql", "directory for the new files")
	return cmd
}

// withMigrator opens the configured database, runs fn against a migrator and
// closes both
func withMigrator(opts *migrateOptions, fn func(*cobra.Command, *migrations.Migrator) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		log, err := newLogger(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		sqlDriver, err := sqlDriverName(opts.driver)
		if err != nil {
			return err
		}
		db, err := sql.Open(sqlDriver, opts.dsn)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(cmd.Context()); err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}

		m, err := migrations.New(db, opts.driver, log)
		if err != nil {
			return err
		}
		defer func() {
			if err := m.Close(); err != nil {
				log.Warn("Failed to close migrator", zap.Error(err))
			}
		}()

		return fn(cmd, m)
	}
}

func sqlDriverName(driver string) (string, error) {
	switch driver {
	case migrations.DriverSQLite:
		return "sqlite3", nil
	case migrations.DriverPostgres:
		return "pgx", nil
	default:
		return "", fmt.Errorf("unsupported driver %q", driver)
	}
}

func printVersion(cmd *cobra.Command, m *migrations.Migrator) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	if dirty {
		fmt.Fprintf(cmd.OutOrStdout(), "%d (dirty)\n", version)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d\n", version)
	return nil
}
