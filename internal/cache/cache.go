// Package cache memoizes expensive upstream calls behind a TTL'd key/value
// store. Backend faults degrade to cache misses and never reach callers.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"strava-challenge/internal/logger"
	"strava-challenge/internal/metrics"
)

// DefaultPrefix namespaces every key so diagnostics can enumerate them
const DefaultPrefix = "strava_"

// entry is the stored envelope; timestamps are unix milliseconds
type entry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
	ExpiresAt int64           `json:"expiresAt"`
}

// EntryInfo describes a stored entry without its value
type EntryInfo struct {
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Stats is a best-effort view of the namespace, for diagnostics only
type Stats struct {
	TotalItems   int  `json:"totalItems"`
	ActiveItems  int  `json:"activeItems"`
	ExpiredItems int  `json:"expiredItems"`
	Error        bool `json:"error,omitempty"`
}

// Cache is a namespaced TTL cache over a Backend
type Cache struct {
	backend Backend
	prefix  string
	log     logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures a Cache
type Option func(*Cache)

// WithPrefix overrides the key namespace
func WithPrefix(prefix string) Option {
	return func(c *Cache) { c.prefix = prefix }
}

// WithLogger sets the logger used for degraded-mode warnings
func WithLogger(log logger.Logger) Option {
	return func(c *Cache) { c.log = log }
}

// WithMetrics records lookups and writes
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// New creates a Cache over backend
func New(backend Backend, opts ...Option) *Cache {
	c := &Cache{
		backend: backend,
		prefix:  DefaultPrefix,
		log:     logger.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Backend returns the underlying store
func (c *Cache) Backend() Backend {
	return c.backend
}

func (c *Cache) key(k string) string {
	return c.prefix + k
}

// Get decodes the value stored under key into dst.
// It reports false for missing, expired, undecodable, or unreachable entries.
func (c *Cache) Get(ctx context.Context, key string, dst any) bool {
	e, ok := c.load(ctx, key, c.metrics)
	if !ok {
		return false
	}
	if err := json.Unmarshal(e.Data, dst); err != nil {
		c.log.Warn("Discarding undecodable cache value",
			logger.String("key", c.key(key)),
			logger.Error(err),
		)
		c.metrics.CacheLookup(metrics.ResultError)
		return false
	}
	c.metrics.CacheLookup(metrics.ResultHit)
	return true
}

// Inspect returns the timestamps of a live entry. It is a diagnostic read
// and is not counted as a lookup.
func (c *Cache) Inspect(ctx context.Context, key string) (EntryInfo, bool) {
	e, ok := c.load(ctx, key, nil)
	if !ok {
		return EntryInfo{}, false
	}
	return EntryInfo{
		CreatedAt: time.UnixMilli(e.Timestamp),
		ExpiresAt: time.UnixMilli(e.ExpiresAt),
	}, true
}

// load reads and validates the envelope, recording the outcome on m when
// m is non-nil
func (c *Cache) load(ctx context.Context, key string, m *metrics.Metrics) (entry, bool) {
	fullKey := c.key(key)

	raw, err := c.backend.Get(ctx, fullKey)
	if errors.Is(err, ErrMiss) {
		m.CacheLookup(metrics.ResultMiss)
		return entry{}, false
	}
	if err != nil {
		c.log.Warn("Cache read failed, treating as miss",
			logger.String("key", fullKey),
			logger.Error(err),
		)
		m.CacheLookup(metrics.ResultError)
		return entry{}, false
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		c.log.Warn("Discarding corrupt cache entry",
			logger.String("key", fullKey),
			logger.Error(err),
		)
		m.CacheLookup(metrics.ResultError)
		c.Invalidate(ctx, key)
		return entry{}, false
	}

	// The store normally expires entries itself; this catches stores that reap lazily
	if c.now().UnixMilli() > e.ExpiresAt {
		m.CacheLookup(metrics.ResultMiss)
		c.Invalidate(ctx, key)
		return entry{}, false
	}

	return e, true
}

// Set stores value under key for ttl, overwriting any existing entry.
// A non-positive ttl is already expired, so the key is dropped instead.
// Write failures are logged and dropped.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		c.Invalidate(ctx, key)
		return
	}
	fullKey := c.key(key)

	data, err := json.Marshal(value)
	if err != nil {
		c.log.Warn("Cache value not encodable, skipping write",
			logger.String("key", fullKey),
			logger.Error(err),
		)
		c.metrics.CacheWrite(metrics.ResultError)
		return
	}

	now := c.now()
	raw, err := json.Marshal(entry{
		Data:      data,
		Timestamp: now.UnixMilli(),
		ExpiresAt: now.Add(ttl).UnixMilli(),
	})
	if err != nil {
		c.metrics.CacheWrite(metrics.ResultError)
		return
	}

	if err := c.backend.Set(ctx, fullKey, raw, ttlSeconds(ttl)); err != nil {
		c.log.Warn("Cache write failed, dropping",
			logger.String("key", fullKey),
			logger.Duration("ttl", ttl),
			logger.Error(err),
		)
		c.metrics.CacheWrite(metrics.ResultError)
		return
	}
	c.metrics.CacheWrite(metrics.ResultOK)
}

// Invalidate deletes key if present
func (c *Cache) Invalidate(ctx context.Context, key string) {
	fullKey := c.key(key)
	if err := c.backend.Delete(ctx, fullKey); err != nil {
		c.log.Warn("Cache delete failed",
			logger.String("key", fullKey),
			logger.Error(err),
		)
	}
}

// Stats counts the keys currently held under the namespace
func (c *Cache) Stats(ctx context.Context) Stats {
	keys, err := c.backend.Keys(ctx, c.prefix)
	if err != nil {
		c.log.Warn("Cache stats unavailable", logger.Error(err))
		return Stats{Error: true}
	}
	return Stats{
		TotalItems:  len(keys),
		ActiveItems: len(keys),
	}
}

// Ping reports whether the backend is reachable, when it can tell
func (c *Cache) Ping(ctx context.Context) error {
	if p, ok := c.backend.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// CachedCall returns the value cached under key, or calls producer and
// caches its result for ttl. The result is returned even when it could not
// be stored. Producer errors are returned unmodified and never cached.
// A nil Cache always calls producer.
func CachedCall[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, producer func(context.Context) (T, error)) (T, error) {
	if c == nil {
		return producer(ctx)
	}

	var cached T
	if c.Get(ctx, key, &cached) {
		return cached, nil
	}

	value, err := producer(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	c.Set(ctx, key, value, ttl)
	return value, nil
}
