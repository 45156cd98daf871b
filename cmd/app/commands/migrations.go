package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// RunMigrations executes database migrations based on the configured driver.
// Determines migration path from the driver (postgresql or mysql) and applies all pending
// migrations. Returns nil if there is nothing to apply.
func RunMigrations(logger *slog.Logger, dbDriver, dbConnectionString string) error {
	logger.Info("running database migrations",
		slog.String("driver", dbDriver),
	)

	sourceURL, databaseURL := migrationURLs(dbDriver, dbConnectionString)

	m, err := migrate.New(sourceURL, databaseURL)
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

// migrationURLs picks the per-driver migrations directory and gives go-sql-driver DSNs, which
// carry no scheme, the mysql:// prefix golang-migrate dispatches on.
func migrationURLs(dbDriver, dbConnectionString string) (sourceURL, databaseURL string) {
	if dbDriver != "mysql" {
		return "file://migrations/postgresql", dbConnectionString
	}
	if strings.HasPrefix(dbConnectionString, "mysql://") {
		return "file://migrations/mysql", dbConnectionString
	}
	return "file://migrations/mysql", "mysql://" + dbConnectionString
}
