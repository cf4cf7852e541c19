package database

import (
	"database/sql"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file" // file:// migration source
	_ "github.com/jackc/pgx/v5/stdlib"                   // database/sql driver for the migration handle
	"go.uber.org/zap"
)

// DefaultMigrationsPath is where the engine store migrations live relative
// to the working directory.
const DefaultMigrationsPath = "migrations"

// Migrate brings the engine store schema up to date. It opens its own
// short-lived database/sql handle, since golang-migrate cannot drive a
// pgxpool directly. Idempotent; applying on an up-to-date store is a no-op.
func Migrate(url, migrationsPath string, logger *zap.Logger) error {
	if migrationsPath == "" {
		migrationsPath = DefaultMigrationsPath
	}

	sqlDB, err := sql.Open("pgx", url)
	if err != nil {
		return fmt.Errorf("failed to open migration handle: %w", err)
	}
	defer sqlDB.Close()

	return RunMigrations(sqlDB, migrationsPath, logger)
}

// RunMigrations executes pending engine store migrations over an existing
// handle. Test helpers that already hold a handle call this directly.
func RunMigrations(db *sql.DB, migrationsPath string, logger *zap.Logger) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			logger.Warn("Failed to close migration source", zap.Error(srcErr))
		}
		if dbErr != nil {
			logger.Warn("Failed to close migration database", zap.Error(dbErr))
		}
	}()

	err = m.Up()
	if err == migrate.ErrNoChange {
		logger.Info("Engine store schema is up to date")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	newVersion, _, _ := m.Version()
	logger.Info("Applied engine store migrations", zap.Uint("version", newVersion))
	return nil
}
