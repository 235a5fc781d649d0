// Package migrations embeds the message store schema and applies it with
// golang-migrate.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sqlite/*.sql postgres/*.sql
var migrationsFS embed.FS

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func source(driver string) (string, error) {
	switch driver {
	case DriverSQLite:
		return "sqlite", nil
	case DriverPostgres:
		return "postgres", nil
	default:
		return "", fmt.Errorf("unsupported store driver %q", driver)
	}
}

// DatabaseURL turns a store DSN into the URL form golang-migrate expects.
func DatabaseURL(driver, dsn string) (string, error) {
	switch driver {
	case DriverSQLite:
		if strings.HasPrefix(dsn, "sqlite3://") {
			return dsn, nil
		}
		return "sqlite3://" + dsn, nil
	case DriverPostgres:
		return dsn, nil
	default:
		return "", fmt.Errorf("unsupported store driver %q", driver)
	}
}

// NewMigrator creates a migrate instance for the given driver and DSN.
func NewMigrator(driver, dsn string) (*migrate.Migrate, error) {
	dir, err := source(driver)
	if err != nil {
		return nil, err
	}
	src, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}
	url, err := DatabaseURL(driver, dsn)
	if err != nil {
		return nil, err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

// Up applies every pending migration. Being already up to date is not an error.
func Up(driver, dsn string) error {
	m, err := NewMigrator(driver, dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Down rolls back every applied migration.
func Down(driver, dsn string) error {
	m, err := NewMigrator(driver, dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("roll back migrations: %w", err)
	}
	return nil
}

// Version reports the current schema version.
func Version(driver, dsn string) (uint, bool, error) {
	m, err := NewMigrator(driver, dsn)
	if err != nil {
		return 0, false, err
	}
	defer m.Close()

	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

// ApplySQLite migrates an already open SQLite handle. It does not close db,
// so it can serve as a setup func for in-memory stores.
func ApplySQLite(db *sql.DB) error {
	drv, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("sqlite migrate driver: %w", err)
	}
	return upWithInstance(DriverSQLite, "sqlite3", drv)
}

// ApplyPostgres migrates an already open PostgreSQL handle.
func ApplyPostgres(db *sql.DB) error {
	drv, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("postgres migrate driver: %w", err)
	}
	return upWithInstance(DriverPostgres, "postgres", drv)
}

func upWithInstance(driver, name string, drv database.Driver) error {
	dir, err := source(driver)
	if err != nil {
		return err
	}
	src, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, name, drv)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	// m.Close would close the caller's *sql.DB as well.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
