// Package rediscache implements speaker.SuggestionCache on Redis.
//
// Entries are keyed by a global generation number. InvalidateAll bumps the
// generation, orphaning every entry at once; orphans expire with the TTL.
// Calls go through a circuit breaker so an unreachable Redis costs one
// error per call instead of a dial timeout.
package rediscache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/kbukum/speakerid/redis"
	"github.com/kbukum/speakerid/resilience"
	"github.com/kbukum/speakerid/speaker"
)

// Cache stores meeting suggestions in Redis.
type Cache struct {
	client  *redis.Client
	entries *redis.TypedStore[speaker.MeetingSuggestions]
	genKey  string
	ttl     time.Duration
	breaker *resilience.Breaker
}

// Option configures a Cache.
type Option func(*Cache)

// WithBreaker replaces the default breaker.
func WithBreaker(b *resilience.Breaker) Option {
	return func(c *Cache) { c.breaker = b }
}

var _ speaker.SuggestionCache = (*Cache)(nil)

// New creates a cache using the client's key prefix. A zero ttl keeps
// entries until invalidated.
func New(client *redis.Client, ttl time.Duration, opts ...Option) *Cache {
	prefix := client.Config().KeyPrefix + ":suggestions"
	c := &Cache{
		client:  client,
		entries: redis.NewTypedStore[speaker.MeetingSuggestions](client, prefix),
		genKey:  prefix + ":gen",
		ttl:     ttl,
		breaker: resilience.NewBreaker(resilience.BreakerConfig{
			Name:        "suggestion-cache",
			MaxFailures: 3,
			Cooldown:    15 * time.Second,
		}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) generation(ctx context.Context) (string, error) {
	gen, found, err := c.client.Get(ctx, c.genKey)
	if err != nil {
		return "", fmt.Errorf("read cache generation: %w", err)
	}
	if !found {
		return "0", nil
	}
	return gen, nil
}

func (c *Cache) key(ctx context.Context, meetingID int64) (string, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return "", err
	}
	return gen + ":" + strconv.FormatInt(meetingID, 10), nil
}

// Get returns the cached suggestions of the current generation.
func (c *Cache) Get(ctx context.Context, meetingID int64) (*speaker.MeetingSuggestions, bool, error) {
	var s *speaker.MeetingSuggestions
	err := c.breaker.Execute(func() error {
		key, err := c.key(ctx, meetingID)
		if err != nil {
			return err
		}
		s, err = c.entries.Load(ctx, key)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return s, s != nil, nil
}

// Set stores s under the current generation.
func (c *Cache) Set(ctx context.Context, s *speaker.MeetingSuggestions) error {
	return c.breaker.Execute(func() error {
		key, err := c.key(ctx, s.MeetingID)
		if err != nil {
			return err
		}
		return c.entries.Save(ctx, key, s, c.ttl)
	})
}

// InvalidateMeeting drops one meeting's entry.
func (c *Cache) InvalidateMeeting(ctx context.Context, meetingID int64) error {
	return c.breaker.Execute(func() error {
		key, err := c.key(ctx, meetingID)
		if err != nil {
			return err
		}
		return c.entries.Delete(ctx, key)
	})
}

// InvalidateAll starts a new generation.
func (c *Cache) InvalidateAll(ctx context.Context) error {
	return c.breaker.Execute(func() error {
		if _, err := c.client.Incr(ctx, c.genKey); err != nil {
			return fmt.Errorf("bump cache generation: %w", err)
		}
		return nil
	})
}
