// Package app wires configuration, infrastructure components and the
// speaker services into a runnable process.
package app

import (
	"fmt"

	"github.com/kbukum/speakerid/bootstrap"
	"github.com/kbukum/speakerid/component"
	"github.com/kbukum/speakerid/database"
	"github.com/kbukum/speakerid/observability"
	"github.com/kbukum/speakerid/redis"
	"github.com/kbukum/speakerid/store/sqlstore"
	"github.com/kbukum/speakerid/version"
)

// App is a bootstrap application with the speakerid components registered.
type App struct {
	*bootstrap.App[*Config]

	Database *database.Component
	Cache    *redis.Component
	Domain   *Domain
}

// New registers, in start order, telemetry, the database, the Redis cache
// when enabled, and the domain services. Callers add transport components
// after it returns.
func New(cfg *Config, opts ...bootstrap.Option) (*App, error) {
	b, err := bootstrap.NewApp(cfg, opts...)
	if err != nil {
		return nil, err
	}

	src, err := sqlstore.Migrations(cfg.Database.Driver)
	if err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	a := &App{App: b}
	a.Database = database.NewComponent(cfg.Database, b.Logger).WithMigrations(src)
	if cfg.Redis.Enabled {
		a.Cache = redis.NewComponent(cfg.Redis, b.Logger)
	}
	a.Domain = newDomain(cfg, a.Database, a.Cache, b.Logger)

	comps := []component.Component{
		observability.NewComponent(cfg.Tracing, cfg.Name, serviceVersion(cfg), cfg.Environment),
		a.Database,
	}
	if a.Cache != nil {
		comps = append(comps, a.Cache)
	}
	comps = append(comps, a.Domain)
	for _, c := range comps {
		if err := a.RegisterComponent(c); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// serviceVersion prefers the configured version over the build version.
func serviceVersion(cfg *Config) string {
	if cfg.Version != "" {
		return cfg.Version
	}
	return version.GetVersionInfo().Version
}
