package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// MigrationStatus reports the schema version after a run.
type MigrationStatus struct {
	Version uint
	Dirty   bool
	Applied bool
}

// RunMigrations applies every pending "up" migration found at migrationsPath, a
// golang-migrate source URL such as file://migrations.
func RunMigrations(databaseURL, migrationsPath string, logger *slog.Logger) (MigrationStatus, error) {
	// a short lived database/sql handle over the pgx stdlib driver
	migrationDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return MigrationStatus{}, fmt.Errorf("failed to open database connection for migrations: %w", err)
	}
	defer func() {
		if cerr := migrationDB.Close(); cerr != nil {
			logger.Error("Error closing migration DB connection", slog.String("error", cerr.Error()))
		}
	}()
	if err := migrationDB.Ping(); err != nil {
		return MigrationStatus{}, fmt.Errorf("failed to ping database for migrations: %w", err)
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return MigrationStatus{}, fmt.Errorf("could not create postgres driver instance for migrations: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance(migrationsPath, "postgres", driver)
	if err != nil {
		return MigrationStatus{}, fmt.Errorf("could not create migrate instance: %w", err)
	}

	status := MigrationStatus{Applied: true}
	upErr := m.Up()
	if errors.Is(upErr, migrate.ErrNoChange) {
		status.Applied = false
		upErr = nil
	}
	if upErr == nil {
		version, dirty, verr := m.Version()
		if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
			upErr = fmt.Errorf("failed to read schema version: %w", verr)
		}
		status.Version, status.Dirty = version, dirty
	}

	sourceErr, dbErr := m.Close()
	if upErr != nil {
		return status, fmt.Errorf("failed to apply migrations: %w", upErr)
	}
	if err := errors.Join(sourceErr, dbErr); err != nil {
		return status, fmt.Errorf("failed to close migrator: %w", err)
	}

	if status.Applied {
		logger.Info("Database migrations applied successfully.", slog.Uint64("version", uint64(status.Version)))
	} else {
		logger.Info("No new migrations to apply.", slog.Uint64("version", uint64(status.Version)))
	}
	return status, nil
}
