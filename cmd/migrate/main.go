package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rolodex/rolodex/api/internal/config"
	"github.com/rolodex/rolodex/api/internal/pkg/logger"
	pgrepo "github.com/rolodex/rolodex/api/internal/repository/postgres"
)

var (
	log *zap.Logger
	db  *sqlx.DB
)

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database migration tool for Rolodex",
	Long: `Database migration tool for Rolodex.
Manages the PostgreSQL schema used by the postgres store driver. The SQL is
embedded in the binary.`,
	SilenceUsage:       true,
	PersistentPreRunE:  connect,
	PersistentPostRunE: disconnect,
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: withMigrator(func(m *migrate.Migrate, args []string) error {
		if err := m.Up(); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				log.Info("no migrations to apply")
				return nil
			}
			return fmt.Errorf("migration up failed: %w", err)
		}
		log.Info("migration up completed")
		return nil
	}),
}

var downCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Roll back migrations (default: 1)",
	Args:  cobra.MaximumNArgs(1),
	RunE: withMigrator(func(m *migrate.Migrate, args []string) error {
		steps := 1
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("invalid step count %q", args[0])
			}
			steps = n
		}
		if err := m.Steps(-steps); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				log.Info("no migrations to roll back")
				return nil
			}
			return fmt.Errorf("migration down failed: %w", err)
		}
		log.Info("migration down completed", zap.Int("steps", steps))
		return nil
	}),
}

var gotoCmd = &cobra.Command{
	Use:   "goto <version>",
	Short: "Migrate to a specific version",
	Args:  cobra.ExactArgs(1),
	RunE: withMigrator(func(m *migrate.Migrate, args []string) error {
		version, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid version %q", args[0])
		}
		if err := m.Migrate(uint(version)); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				log.Info("already at version", zap.Uint64("version", version))
				return nil
			}
			return fmt.Errorf("migration goto failed: %w", err)
		}
		log.Info("migration goto completed", zap.Uint64("version", version))
		return nil
	}),
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the current migration version",
	RunE: withMigrator(func(m *migrate.Migrate, args []string) error {
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			log.Info("no migrations applied yet")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get version: %w", err)
		}
		log.Info("current version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		return nil
	}),
}

var forceCmd = &cobra.Command{
	Use:   "force <version>",
	Short: "Set the migration version without running migrations",
	Long:  `Set the migration version without running migrations. Use it to clear a dirty state after fixing a failed migration by hand.`,
	Args:  cobra.ExactArgs(1),
	RunE: withMigrator(func(m *migrate.Migrate, args []string) error {
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q", args[0])
		}
		if err := m.Force(version); err != nil {
			return fmt.Errorf("migration force failed: %w", err)
		}
		log.Info("migration version forced", zap.Int("version", version))
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(upCmd, downCmd, gotoCmd, versionCmd, forceCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func connect(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log = logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	db, err = sqlx.Connect("postgres", cfg.Postgres.DSN())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info("connected to database",
		zap.String("host", cfg.Postgres.Host),
		zap.Int("port", cfg.Postgres.Port),
		zap.String("database", cfg.Postgres.Database),
	)
	return nil
}

func disconnect(cmd *cobra.Command, args []string) error {
	_ = logger.Sync()
	if db == nil {
		return nil
	}
	return db.Close()
}

// withMigrator opens a migrator over the connected database for fn
func withMigrator(fn func(m *migrate.Migrate, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		m, err := pgrepo.NewMigrator(db)
		if err != nil {
			return err
		}
		// Closing m would also close db, which disconnect owns.
		return fn(m, args)
	}
}
