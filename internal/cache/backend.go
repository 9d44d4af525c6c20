package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by a backend when a key is not present
var ErrMiss = errors.New("cache miss")

// ErrCacheUnavailable marks a failure to reach the backing store.
// The Cache converts it into a plain miss; it never reaches callers of
// Get, Set or CachedCall.
var ErrCacheUnavailable = errors.New("cache unavailable")

// Backend is the raw key/value store behind a Cache.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Get returns the stored bytes or ErrMiss
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value, expiring it after ttl
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error
	// Keys lists keys starting with prefix. Entries past their TTL may be
	// included if the store has not reaped them yet.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Pinger is implemented by backends that can report reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

// ttlSeconds rounds a TTL up to whole seconds, the store's granularity
func ttlSeconds(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return time.Second
	}
	secs := (ttl + time.Second - 1) / time.Second
	return secs * time.Second
}
