// Package migration applies versioned SQL migrations with golang-migrate.
// Migrations are read from an fs.FS (usually an embed.FS) and applied through
// the migrate driver that matches the GORM connection's dialect.
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

// DriverFunc creates a migrate database driver from sql.DB.
type DriverFunc func(*sql.DB) (migratedb.Driver, error)

// DriverFor returns the migrate driver for a GORM dialector name.
func DriverFor(dialect string) (DriverFunc, error) {
	switch dialect {
	case "sqlite":
		return func(db *sql.DB) (migratedb.Driver, error) {
			return migratesqlite.WithInstance(db, &migratesqlite.Config{})
		}, nil
	case "postgres":
		return func(db *sql.DB) (migratedb.Driver, error) {
			return migratepgx.WithInstance(db, &migratepgx.Config{})
		}, nil
	default:
		return nil, fmt.Errorf("no migration driver for dialect %q", dialect)
	}
}

// Source locates a set of migration files.
type Source struct {
	FS   fs.FS
	Path string
}

// Up applies all pending migrations. No change is not an error.
func Up(gormDB *gorm.DB, src Source) error {
	m, err := newMigrator(gormDB, src)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// Down rolls back all applied migrations.
func Down(gormDB *gorm.DB, src Source) error {
	m, err := newMigrator(gormDB, src)
	if err != nil {
		return err
	}
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// Steps runs n migrations (positive = up, negative = down).
func Steps(gormDB *gorm.DB, src Source, n int) error {
	m, err := newMigrator(gormDB, src)
	if err != nil {
		return err
	}
	if err := m.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate steps: %w", err)
	}
	return nil
}

// Version returns the current migration version and dirty flag. A database
// with no migrations applied reports version 0.
func Version(gormDB *gorm.DB, src Source) (uint, bool, error) {
	m, err := newMigrator(gormDB, src)
	if err != nil {
		return 0, false, err
	}
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

// newMigrator builds a migrator over the connection's sql.DB. Callers must
// not Close it; that would close the shared pool.
func newMigrator(gormDB *gorm.DB, src Source) (*migrate.Migrate, error) {
	driverFunc, err := DriverFor(gormDB.Dialector.Name())
	if err != nil {
		return nil, err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	driver, err := driverFunc(sqlDB)
	if err != nil {
		return nil, fmt.Errorf("create database driver: %w", err)
	}
	source, err := iofs.New(src.FS, src.Path)
	if err != nil {
		return nil, fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, gormDB.Dialector.Name(), driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}
