package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/kbukum/speakerid/component"
	"github.com/kbukum/speakerid/database/migration"
	"github.com/kbukum/speakerid/logger"
)

// Component wraps DB and implements component.Component.
type Component struct {
	db         *DB
	cfg        Config
	log        *logger.Logger
	migrations *migration.Source
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates a database component for the registry.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{
		cfg: cfg,
		log: log.WithComponent("database"),
	}
}

// WithMigrations registers the migration source applied on Start when
// cfg.Migrate is set.
func (c *Component) WithMigrations(src migration.Source) *Component {
	c.migrations = &src
	return c
}

// DB returns the underlying *DB, or nil if not started.
func (c *Component) DB() *DB {
	return c.db
}

// Name returns the component name.
func (c *Component) Name() string { return "database" }

// Start connects and applies migrations if configured.
func (c *Component) Start(ctx context.Context) error {
	db, err := New(ctx, c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("database start: %w", err)
	}
	c.db = db

	if c.cfg.Migrate && c.migrations != nil {
		if err := migration.Up(db.GormDB, *c.migrations); err != nil {
			return fmt.Errorf("database migrate: %w", err)
		}
		c.log.Info("Migrations applied")
	}
	return nil
}

// Stop closes the connection pool.
func (c *Component) Stop(_ context.Context) error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Health pings the database.
func (c *Component) Health(ctx context.Context) component.Health {
	if c.db == nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: "database not initialized",
		}
	}
	if err := c.db.PingContext(ctx); err != nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: fmt.Sprintf("ping failed: %v", err),
		}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

// Describe reports the driver and pool for the startup summary.
func (c *Component) Describe() component.Description {
	details := fmt.Sprintf("%s pool=%d/%d", c.cfg.Driver, c.cfg.MaxOpenConns, c.cfg.MaxIdleConns)
	if c.cfg.Driver == DriverSQLite {
		details = fmt.Sprintf("%s %s", c.cfg.Driver, redactDSN(c.cfg.DSN))
	}
	if c.cfg.Migrate {
		details += " migrate=on"
	}
	return component.Description{
		Name:    "Database",
		Type:    "database",
		Details: details,
	}
}

func redactDSN(dsn string) string {
	if i := strings.Index(dsn, "?"); i >= 0 {
		return dsn[:i]
	}
	return dsn
}
