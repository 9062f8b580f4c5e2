package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/speakerid/component"
	"github.com/kbukum/speakerid/database"
	"github.com/kbukum/speakerid/logger"
	"github.com/kbukum/speakerid/observability"
	"github.com/kbukum/speakerid/redis"
	"github.com/kbukum/speakerid/similarity"
	"github.com/kbukum/speakerid/speaker"
	"github.com/kbukum/speakerid/store/rediscache"
	"github.com/kbukum/speakerid/store/sqlstore"
)

// Domain builds the store and speaker services once the database (and the
// cache, when configured) have started.
type Domain struct {
	cfg   *Config
	db    *database.Component
	redis *redis.Component
	log   *logger.Logger

	mu      sync.RWMutex
	started bool
	mounts  []func(*Domain) error

	Store     speaker.Store
	Matcher   *similarity.Matcher
	Counters  *observability.Counters
	Service   *speaker.Service
	Resolver  *speaker.Resolver
	Suggester *speaker.Suggester
}

var (
	_ component.Component   = (*Domain)(nil)
	_ component.Describable = (*Domain)(nil)
)

func newDomain(cfg *Config, db *database.Component, cache *redis.Component, log *logger.Logger) *Domain {
	return &Domain{
		cfg:   cfg,
		db:    db,
		redis: cache,
		log:   log.WithComponent("speaker"),
	}
}

// OnStarted registers fn to run once the services exist. Transports mount
// their routes here, before their own components start.
func (d *Domain) OnStarted(fn func(*Domain) error) {
	d.mounts = append(d.mounts, fn)
}

// Name returns the component name.
func (d *Domain) Name() string { return "speaker" }

// Start wires the repositories, matcher, cache and services.
func (d *Domain) Start(_ context.Context) error {
	db := d.db.DB()
	if db == nil {
		return fmt.Errorf("speaker: database not started")
	}

	counters, err := observability.NewCounters(observability.Meter())
	if err != nil {
		return fmt.Errorf("speaker: counters: %w", err)
	}

	d.Store = sqlstore.New(db, d.log)
	d.Matcher = similarity.NewMatcher(d.cfg.Matching)
	d.Counters = counters

	opts := []speaker.Option{
		speaker.WithLogger(d.log),
		speaker.WithCounters(counters),
	}
	if d.redis != nil && d.redis.Client() != nil {
		cache := rediscache.New(d.redis.Client(), d.cfg.Redis.TTLDuration())
		opts = append(opts, speaker.WithCache(cache))
	}

	d.Service = speaker.NewService(d.Store, d.Matcher, opts...)
	d.Resolver = speaker.NewResolver(d.Store)
	d.Suggester = speaker.NewSuggester(d.Store, d.Matcher, opts...)

	for _, mount := range d.mounts {
		if err := mount(d); err != nil {
			return err
		}
	}

	d.mu.Lock()
	d.started = true
	d.mu.Unlock()
	return nil
}

// Stop is a no-op; the database and cache components own the connections.
func (d *Domain) Stop(_ context.Context) error {
	d.mu.Lock()
	d.started = false
	d.mu.Unlock()
	return nil
}

// Health reports whether the services are wired.
func (d *Domain) Health(_ context.Context) component.Health {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.started {
		return component.Health{Name: d.Name(), Status: component.StatusUnhealthy, Message: "services not started"}
	}
	return component.Health{Name: d.Name(), Status: component.StatusHealthy}
}

// Describe reports the matching settings for the startup summary.
func (d *Domain) Describe() component.Description {
	m := d.cfg.Matching
	cache := "off"
	if d.redis != nil {
		cache = "redis"
	}
	return component.Description{
		Name:    "Speaker matching",
		Type:    "service",
		Details: fmt.Sprintf("dim=%d threshold=%.2f bands=%.2f/%.2f cache=%s", m.Dimension, m.Threshold, m.StrongBand, m.MediumBand, cache),
	}
}
