package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/allisson/sessions/internal/config"
)

// RunMigrations executes database migrations based on the configured driver.
// Determines the migration directory from the driver and applies all pending migrations.
// Returns nil if there is nothing to apply.
func RunMigrations(logger *slog.Logger, dbDriver, dbConnectionString string) error {
	logger.Info("running database migrations",
		slog.String("driver", dbDriver),
	)

	migrationsPath, databaseURL, err := migrationTarget(dbDriver, dbConnectionString)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	m, err := migrate.New(migrationsPath, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer closeMigrate(m, logger)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("migrations completed successfully")
	return nil
}

// migrationTarget maps the application driver and DSN to a migrations directory and a
// golang-migrate database URL. MySQL and SQLite DSNs carry no scheme golang-migrate understands.
func migrationTarget(dbDriver, dbConnectionString string) (string, string, error) {
	switch dbDriver {
	case config.DriverPostgres:
		return "file://migrations/postgresql", dbConnectionString, nil
	case config.DriverMySQL:
		if strings.HasPrefix(dbConnectionString, "mysql://") {
			return "file://migrations/mysql", dbConnectionString, nil
		}
		return "file://migrations/mysql", "mysql://" + dbConnectionString, nil
	case config.DriverSQLite:
		path := strings.TrimPrefix(strings.TrimPrefix(dbConnectionString, "sqlite://"), "file:")
		return "file://migrations/sqlite", "sqlite://" + path, nil
	default:
		return "", "", fmt.Errorf("unsupported database driver: %s", dbDriver)
	}
}
