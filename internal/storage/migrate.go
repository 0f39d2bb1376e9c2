package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"painel/internal/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrDirtySchema means a previous migration stopped halfway and the snapshot
// database needs manual repair before the importer can use it.
var ErrDirtySchema = errors.New("snapshot schema is dirty")

// RunMigrations brings the snapshot schema up to date and returns the
// resulting schema version.
func RunMigrations(dbPath string) (uint, error) {
	// separate connection so closing the migrator leaves the repository's pool alone
	migrateDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return 0, fmt.Errorf("open migration database: %w", err)
	}
	defer migrateDB.Close()

	driver, err := sqlite.WithInstance(migrateDB, &sqlite.Config{})
	if err != nil {
		return 0, fmt.Errorf("create sqlite driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return 0, fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	from, err := schemaVersion(m)
	if err != nil {
		return 0, err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("migrate snapshot schema from version %d: %w", from, err)
	}
	to, err := schemaVersion(m)
	if err != nil {
		return 0, err
	}

	if to != from {
		slog.Info("Snapshot schema migrated",
			log.FieldOperation, log.OpMigrate,
			log.FieldSource, dbPath,
			log.FieldFromVersion, from,
			log.FieldVersion, to)
	} else {
		slog.Debug("Snapshot schema up to date",
			log.FieldOperation, log.OpMigrate,
			log.FieldSource, dbPath,
			log.FieldVersion, to)
	}
	return to, nil
}

// schemaVersion reports the applied version, zero for a fresh database.
func schemaVersion(m *migrate.Migrate) (uint, error) {
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		return v, fmt.Errorf("%w at version %d", ErrDirtySchema, v)
	}
	return v, nil
}
