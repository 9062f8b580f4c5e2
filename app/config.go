package app

import (
	"fmt"

	"github.com/kbukum/speakerid/config"
	"github.com/kbukum/speakerid/database"
	"github.com/kbukum/speakerid/observability"
	"github.com/kbukum/speakerid/redis"
	"github.com/kbukum/speakerid/server"
	"github.com/kbukum/speakerid/similarity"
)

// ServiceName is the config file stem and default service name.
const ServiceName = "speakerid"

// Config is the full process configuration.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Database database.Config      `yaml:"database" mapstructure:"database"`
	Redis    redis.Config         `yaml:"redis" mapstructure:"redis"`
	Server   server.Config        `yaml:"server" mapstructure:"server"`
	Matching similarity.Config    `yaml:"matching" mapstructure:"matching"`
	Tracing  observability.Config `yaml:"tracing" mapstructure:"tracing"`
}

// ApplyDefaults fills every section's zero values.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Database.ApplyDefaults()
	c.Redis.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Matching.ApplyDefaults()
	c.Tracing.ApplyDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if c.Redis.Enabled {
		if err := c.Redis.Validate(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Matching.Validate(); err != nil {
		return err
	}
	if err := c.Tracing.Validate(); err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	return nil
}

// LoadOptions selects explicit config and env files.
type LoadOptions struct {
	ConfigFile string
	EnvFile    string
}

// Load reads configuration from files and SPEAKERID_* environment
// variables. Defaults are applied but not validated.
func Load(opts LoadOptions, extra ...config.LoaderOption) (*Config, error) {
	cfg := &Config{}
	loaderOpts := []config.LoaderOption{
		config.WithDefaults(map[string]interface{}{
			"database.migrate": true,
		}),
	}
	if opts.ConfigFile != "" {
		loaderOpts = append(loaderOpts, config.WithConfigFile(opts.ConfigFile))
	}
	if opts.EnvFile != "" {
		loaderOpts = append(loaderOpts, config.WithEnvFile(opts.EnvFile))
	}
	loaderOpts = append(loaderOpts, extra...)

	if err := config.LoadConfig(ServiceName, cfg, loaderOpts...); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}
