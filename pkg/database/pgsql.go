package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// NewPgxPool creates a new PostgreSQL connection pool.
func NewPgxPool(ctx context.Context, databaseURL string, logger *slog.Logger) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL cannot be empty")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config from URL: %w", err)
	}
	config.ConnConfig.ConnectTimeout = 5 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to PostgreSQL", slog.Int("max_conns", int(config.MaxConns)))
	return pool, nil
}

// ClosePgxPool closes the PostgreSQL connection pool.
func ClosePgxPool(pool *pgxpool.Pool, logger *slog.Logger) {
	if pool != nil {
		pool.Close()
		logger.Info("PostgreSQL connection pool closed")
	}
}

// MigrationDirection selects which way Migrate moves the schema.
type MigrationDirection string

const (
	MigrateUp   MigrationDirection = "up"
	MigrateDown MigrationDirection = "down"
)

// Migrate applies (up) or reverts one step of (down) the SQL migrations at migrationsPath.
// It returns the resulting schema version.
func Migrate(databaseURL, migrationsPath string, direction MigrationDirection, logger *slog.Logger) (uint, error) {
	// golang-migrate needs a database/sql handle; the pgx stdlib driver keeps it on the same driver as the pool.
	migrationDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return 0, fmt.Errorf("failed to open database connection for migrations: %w", err)
	}
	defer func() {
		if cerr := migrationDB.Close(); cerr != nil {
			logger.Error("Error closing migration DB connection", slog.String("error", cerr.Error()))
		}
	}()
	if err := migrationDB.Ping(); err != nil {
		return 0, fmt.Errorf("failed to ping database for migrations: %w", err)
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return 0, fmt.Errorf("could not create postgres driver instance for migrations: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance(migrationsPath, "postgres", driver)
	if err != nil {
		return 0, fmt.Errorf("could not create migrate instance: %w", err)
	}

	switch direction {
	case MigrateUp:
		err = m.Up()
	case MigrateDown:
		err = m.Steps(-1)
	default:
		return 0, fmt.Errorf("unknown migration direction %q", direction)
	}
	noChange := errors.Is(err, migrate.ErrNoChange)
	if err != nil && !noChange {
		return 0, fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("failed to read migration version: %w", verr)
	}
	if dirty {
		return version, fmt.Errorf("database schema is dirty at version %d", version)
	}

	if noChange {
		logger.Info("No new migrations to apply", slog.Uint64("version", uint64(version)))
	} else {
		logger.Info("Database migrations applied", slog.String("direction", string(direction)), slog.Uint64("version", uint64(version)))
	}
	return version, nil
}
