package observability

import (
	"fmt"
	"time"
)

// Config configures trace and metric export. Loaded from the "tracing" key.
type Config struct {
	// Enabled turns on the OTLP exporters.
	Enabled bool `mapstructure:"enabled"`
	// Endpoint is the OTLP HTTP endpoint host:port.
	Endpoint string `mapstructure:"endpoint"`
	// Insecure disables TLS towards the collector.
	Insecure bool `mapstructure:"insecure"`
	// SampleRate is the trace sampling ratio in [0, 1].
	SampleRate float64 `mapstructure:"sample_rate"`
	// MetricInterval is the metric export period.
	MetricInterval time.Duration `mapstructure:"metric_interval"`
}

// ApplyDefaults sets development defaults for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
	if c.MetricInterval == 0 {
		c.MetricInterval = 15 * time.Second
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Endpoint == "" {
		return fmt.Errorf("tracing: endpoint is required when enabled")
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("tracing: sample_rate must be in [0, 1], got %v", c.SampleRate)
	}
	if c.MetricInterval < time.Second {
		return fmt.Errorf("tracing: metric_interval must be at least 1s, got %s", c.MetricInterval)
	}
	return nil
}
