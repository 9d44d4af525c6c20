package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// scanBatchSize is the COUNT hint for SCAN during key enumeration
const scanBatchSize = 100

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Address  string        `yaml:"address"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Timeout  time.Duration `yaml:"timeout"`
}

// ErrEmptyAddress is returned when no Redis address is configured
var ErrEmptyAddress = errors.New("redis address is required")

// RedisBackend stores entries in Redis with native key expiry
type RedisBackend struct {
	client *redis.Client
}

// NewRedisClient builds a client without dialing; connection problems
// surface later as cache misses rather than startup failures.
func NewRedisClient(cfg RedisConfig) (*redis.Client, error) {
	if cfg.Address == "" {
		return nil, ErrEmptyAddress
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		MaxRetries:   -1,
	}), nil
}

// NewRedisBackend wraps an existing client
func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

// Get returns the raw entry stored under key
func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := b.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("%w: redis get: %w", ErrCacheUnavailable, err)
	}
	return data, nil
}

// Set stores value with SET key value EX ttl
func (b *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := b.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set: %w", ErrCacheUnavailable, err)
	}
	return nil
}

// Delete removes key
func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: redis del: %w", ErrCacheUnavailable, err)
	}
	return nil
}

// Keys walks the keyspace with SCAN rather than KEYS to avoid blocking Redis
func (b *RedisBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	pattern := prefix + "*"
	var (
		all    []string
		cursor uint64
	)
	for {
		keys, next, err := b.client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: redis scan: %w", ErrCacheUnavailable, err)
		}
		all = append(all, keys...)
		if next == 0 {
			break
		}
		cursor = next
	}
	return all, nil
}

// Ping checks connectivity
func (b *RedisBackend) Ping(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: redis ping: %w", ErrCacheUnavailable, err)
	}
	return nil
}

// Close releases the client's connections
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
