package database

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// ErrDirtySchema means an earlier migration failed halfway and the schema
// needs manual repair before the service may start.
var ErrDirtySchema = errors.New("database schema is dirty")

// RunMigrations brings the economy schema up to the newest migration in
// migrationsPath and returns the resulting version.
func RunMigrations(dsn, migrationsPath string) (uint, error) {
	m, err := migrate.New(fmt.Sprintf("file://%s", migrationsPath), dsn)
	if err != nil {
		return 0, fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	from, dirty, err := schemaVersion(m)
	if err != nil {
		return 0, err
	}
	if dirty {
		return from, fmt.Errorf("%w at version %d", ErrDirtySchema, from)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return from, fmt.Errorf("running migrations: %w", err)
	}

	to, _, err := schemaVersion(m)
	if err != nil {
		return from, err
	}
	if to != from {
		slog.Info("database migrated", "from", from, "to", to)
	} else {
		slog.Debug("database schema up to date", "version", to)
	}
	return to, nil
}

func schemaVersion(m *migrate.Migrate) (uint, bool, error) {
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("reading schema version: %w", err)
	}
	return v, dirty, nil
}
