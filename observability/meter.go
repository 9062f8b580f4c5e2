package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/kbukum/speakerid/logger"
)

// Fingerprint save outcomes.
const (
	FingerprintSaved   = "saved"
	FingerprintExists  = "exists"
	FingerprintFailed  = "failed"
	FingerprintUpdated = "updated"
)

// InitMeter installs a global meter provider exporting to cfg.Endpoint.
// The returned provider must be shut down on exit.
func InitMeter(ctx context.Context, cfg Config, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.MetricInterval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.MetricInterval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"endpoint", cfg.Endpoint,
		"interval", cfg.MetricInterval.String(),
	))
	return mp, nil
}

// Meter returns the service meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(InstrumentationName)
}

// Counters holds the service's metric instruments. A nil *Counters records
// nothing.
type Counters struct {
	operations        metric.Int64Counter
	operationDuration metric.Float64Histogram
	fingerprintSaves  metric.Int64Counter
	cacheLookups      metric.Int64Counter
	requests          metric.Int64Counter
	requestDuration   metric.Float64Histogram
}

// NewCounters creates the instruments on meter.
func NewCounters(meter metric.Meter) (*Counters, error) {
	operations, err := meter.Int64Counter("speakerid.operation.total",
		metric.WithDescription("Identity operations by name and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating operation counter: %w", err)
	}

	operationDuration, err := meter.Float64Histogram("speakerid.operation.duration",
		metric.WithDescription("Identity operation duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating operation histogram: %w", err)
	}

	fingerprintSaves, err := meter.Int64Counter("speakerid.fingerprint.save.total",
		metric.WithDescription("Fingerprint writes by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fingerprint counter: %w", err)
	}

	cacheLookups, err := meter.Int64Counter("speakerid.suggestion.cache.total",
		metric.WithDescription("Suggestion cache lookups by result"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating cache counter: %w", err)
	}

	requests, err := meter.Int64Counter("speakerid.http.request.total",
		metric.WithDescription("HTTP requests by route and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request counter: %w", err)
	}

	requestDuration, err := meter.Float64Histogram("speakerid.http.request.duration",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request histogram: %w", err)
	}

	return &Counters{
		operations:        operations,
		operationDuration: operationDuration,
		fingerprintSaves:  fingerprintSaves,
		cacheLookups:      cacheLookups,
		requests:          requests,
		requestDuration:   requestDuration,
	}, nil
}

// RecordOperation counts one finished identity operation.
func (c *Counters) RecordOperation(ctx context.Context, operation, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.operations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
	c.operationDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

// RecordFingerprintSave counts a fingerprint write outcome.
func (c *Counters) RecordFingerprintSave(ctx context.Context, outcome string) {
	if c == nil {
		return
	}
	c.fingerprintSaves.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordCacheLookup counts a suggestion cache hit or miss.
func (c *Counters) RecordCacheLookup(ctx context.Context, hit bool) {
	if c == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordRequest counts one HTTP request.
func (c *Counters) RecordRequest(ctx context.Context, method, route string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	))
	c.requestDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
	))
}
