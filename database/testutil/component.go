// Package testutil provides a SQLite-backed database component for tests.
// Each component owns a temporary database file so that every pooled
// connection sees the same data, and the schema comes from the same
// migrations production runs.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/kbukum/speakerid/component"
	"github.com/kbukum/speakerid/database"
	"github.com/kbukum/speakerid/database/migration"
	"github.com/kbukum/speakerid/logger"
	"github.com/kbukum/speakerid/testutil"
)

const migrationsTable = "schema_migrations"

// Component is a test database component backed by a temporary SQLite file.
type Component struct {
	db         *database.DB
	dir        string
	migrations *migration.Source
	started    bool
	mu         sync.RWMutex
}

var (
	_ component.Component    = (*Component)(nil)
	_ testutil.TestComponent = (*Component)(nil)
)

// NewComponent creates a new test database component.
func NewComponent() *Component {
	return &Component{}
}

// WithMigrations applies src on Start.
func (c *Component) WithMigrations(src migration.Source) *Component {
	c.migrations = &src
	return c
}

// DB returns the underlying *database.DB, or nil if not started.
func (c *Component) DB() *database.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

// Name returns the component name.
func (c *Component) Name() string {
	return "database-test"
}

// Start creates the database file and applies migrations.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return fmt.Errorf("component already started")
	}

	dir, err := os.MkdirTemp("", "speakerid-db-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	cfg := database.Config{
		Driver:     database.DriverSQLite,
		DSN:        "file:" + filepath.Join(dir, "test.db") + "?_foreign_keys=on&_busy_timeout=5000",
		MaxRetries: 1,
		LogLevel:   "silent",
	}
	db, err := database.New(ctx, cfg, logger.Nop())
	if err != nil {
		os.RemoveAll(dir)
		return fmt.Errorf("failed to open test database: %w", err)
	}
	if c.migrations != nil {
		if err := migration.Up(db.GormDB, *c.migrations); err != nil {
			db.Close()
			os.RemoveAll(dir)
			return fmt.Errorf("migrate test database: %w", err)
		}
	}

	c.db = db
	c.dir = dir
	c.started = true
	return nil
}

// Stop closes the connection and removes the database file.
func (c *Component) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started || c.db == nil {
		return nil
	}
	c.started = false
	err := c.db.Close()
	os.RemoveAll(c.dir)
	return err
}

// Health pings the test database.
func (c *Component) Health(ctx context.Context) component.Health {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.started || c.db == nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "database not started"}
	}
	if err := c.db.PingContext(ctx); err != nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: fmt.Sprintf("ping failed: %v", err)}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

// Reset deletes all rows from every table, keeping schema and migration state.
func (c *Component) Reset(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.started || c.db == nil {
		return fmt.Errorf("component not started")
	}
	return c.truncate(ctx)
}

func (c *Component) truncate(ctx context.Context) error {
	tables, err := GetTableNames(c.db.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}
	gdb := c.db.WithContext(ctx)
	if err := gdb.Exec("PRAGMA foreign_keys = OFF").Error; err != nil {
		return err
	}
	defer gdb.Exec("PRAGMA foreign_keys = ON")
	for _, table := range tables {
		if err := TruncateTable(gdb, table); err != nil {
			return fmt.Errorf("failed to clear table %s: %w", table, err)
		}
	}
	return nil
}

// Snapshot captures every row of every data table.
func (c *Component) Snapshot(ctx context.Context) (interface{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.started || c.db == nil {
		return nil, fmt.Errorf("component not started")
	}

	gdb := c.db.WithContext(ctx)
	tables, err := GetTableNames(gdb)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	snapshot := make(map[string][]map[string]interface{}, len(tables))
	for _, table := range tables {
		var rows []map[string]interface{}
		if err := gdb.Table(table).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to snapshot table %s: %w", table, err)
		}
		snapshot[table] = rows
	}
	return snapshot, nil
}

// Restore replaces all data with a snapshot taken by Snapshot.
func (c *Component) Restore(ctx context.Context, snap interface{}) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.started || c.db == nil {
		return fmt.Errorf("component not started")
	}
	snapshot, ok := snap.(map[string][]map[string]interface{})
	if !ok {
		return fmt.Errorf("invalid snapshot type: %T", snap)
	}
	if err := c.truncate(ctx); err != nil {
		return fmt.Errorf("failed to reset before restore: %w", err)
	}

	gdb := c.db.WithContext(ctx)
	if err := gdb.Exec("PRAGMA foreign_keys = OFF").Error; err != nil {
		return err
	}
	defer gdb.Exec("PRAGMA foreign_keys = ON")
	for table, rows := range snapshot {
		for _, row := range rows {
			if err := gdb.Table(table).Create(row).Error; err != nil {
				return fmt.Errorf("failed to restore row to table %s: %w", table, err)
			}
		}
	}
	return nil
}
