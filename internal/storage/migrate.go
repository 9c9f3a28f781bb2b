package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Schema migrations for the round-up store: goals, transactions and the
// immutable contribution rows that serve as its audit trail.
//
//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations brings the round-up store schema up to date. It is safe to
// call on every startup; an already current schema is a no-op.
func RunMigrations(dbPath string) error {
	// Migrations run on their own connection so the repository's pool
	// never sees a half-migrated schema.
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open roundup store for migration: %w", err)
	}
	defer db.Close()

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite migration driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate roundup store: %w", err)
	}
	return nil
}
