package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strava-challenge/internal/metrics"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// failingBackend simulates an unreachable store
type failingBackend struct{}

var errDown = errors.New("connection refused")

func (failingBackend) Get(context.Context, string) ([]byte, error) {
	return nil, errors.Join(ErrCacheUnavailable, errDown)
}

func (failingBackend) Set(context.Context, string, []byte, time.Duration) error {
	return errors.Join(ErrCacheUnavailable, errDown)
}

func (failingBackend) Delete(context.Context, string) error {
	return errors.Join(ErrCacheUnavailable, errDown)
}

func (failingBackend) Keys(context.Context, string) ([]string, error) {
	return nil, errors.Join(ErrCacheUnavailable, errDown)
}

func newMemoryCache(clock *fakeClock) (*Cache, *MemoryBackend) {
	backend := NewMemoryBackend()
	backend.now = clock.Now
	c := New(backend)
	c.now = clock.Now
	return c, backend
}

func countingProducer(calls *int32, value []string) func(context.Context) ([]string, error) {
	return func(context.Context) ([]string, error) {
		atomic.AddInt32(calls, 1)
		return value, nil
	}
}

func TestCachedCall_HitSkipsProducer(t *testing.T) {
	ctx := context.Background()
	c, _ := newMemoryCache(newFakeClock())

	var calls int32
	producer := countingProducer(&calls, []string{"a", "b"})

	first, err := CachedCall(ctx, c, "activities", 10*time.Minute, producer)
	require.NoError(t, err)
	second, err := CachedCall(ctx, c, "activities", 10*time.Minute, producer)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, first)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCachedCall_EmptyValueIsStillAHit(t *testing.T) {
	ctx := context.Background()
	c, _ := newMemoryCache(newFakeClock())

	var calls int32
	producer := countingProducer(&calls, []string{})

	for range 3 {
		got, err := CachedCall(ctx, c, "empty", time.Minute, producer)
		require.NoError(t, err)
		assert.Empty(t, got)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCachedCall_ExpiredEntryCallsProducerAgain(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c, _ := newMemoryCache(clock)

	var calls int32
	producer := countingProducer(&calls, []string{"x"})

	_, err := CachedCall(ctx, c, "k", 10*time.Minute, producer)
	require.NoError(t, err)

	clock.Advance(9 * time.Minute)
	_, err = CachedCall(ctx, c, "k", 10*time.Minute, producer)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	clock.Advance(2 * time.Minute)
	_, err = CachedCall(ctx, c, "k", 10*time.Minute, producer)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCachedCall_ProducerErrorPropagatesUnmodified(t *testing.T) {
	ctx := context.Background()
	c, _ := newMemoryCache(newFakeClock())

	boom := errors.New("upstream exploded")
	var calls int32
	producer := func(context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, boom
	}

	_, err := CachedCall(ctx, c, "k", time.Minute, producer)
	assert.Same(t, boom, err)

	// failures are never cached
	_, err = CachedCall(ctx, c, "k", time.Minute, producer)
	assert.Same(t, boom, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCachedCall_DegradedBackendCallsProducerEveryTime(t *testing.T) {
	ctx := context.Background()
	c := New(failingBackend{})

	var calls int32
	producer := countingProducer(&calls, []string{"fresh"})

	for range 3 {
		got, err := CachedCall(ctx, c, "k", time.Minute, producer)
		require.NoError(t, err)
		assert.Equal(t, []string{"fresh"}, got)
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestCachedCall_NilCache(t *testing.T) {
	var calls int32
	got, err := CachedCall(context.Background(), nil, "k", time.Minute, countingProducer(&calls, []string{"v"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"v"}, got)
	assert.Equal(t, int32(1), calls)
}

func TestCachedCall_Concurrent(t *testing.T) {
	ctx := context.Background()
	c, _ := newMemoryCache(newFakeClock())

	var calls int32
	producer := countingProducer(&calls, []string{"v"})

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := CachedCall(ctx, c, "shared", time.Minute, producer)
			assert.NoError(t, err)
			assert.Equal(t, []string{"v"}, got)
		}()
	}
	wg.Wait()

	// no locking around the producer, so overlapping misses may each call it
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(1))
}

func TestGet_EnvelopeExpiryInvalidatesLazily(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()

	// the store never expires anything itself
	backend := NewMemoryBackend()
	c := New(backend)
	c.now = clock.Now

	c.Set(ctx, "token", "abc", time.Minute)
	var got string
	require.True(t, c.Get(ctx, "token", &got))
	assert.Equal(t, "abc", got)

	clock.Advance(2 * time.Minute)
	assert.False(t, c.Get(ctx, "token", &got))

	_, err := backend.Get(ctx, DefaultPrefix+"token")
	assert.ErrorIs(t, err, ErrMiss, "expired entry should be deleted on read")
}

func TestGet_CorruptEntryIsAMiss(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	require.NoError(t, backend.Set(ctx, DefaultPrefix+"bad", []byte("not json"), time.Minute))

	c := New(backend)
	var got string
	assert.False(t, c.Get(ctx, "bad", &got))
}

func TestSet_Overwrites(t *testing.T) {
	ctx := context.Background()
	c, _ := newMemoryCache(newFakeClock())

	c.Set(ctx, "k", 1, time.Minute)
	c.Set(ctx, "k", 2, time.Minute)

	var got int
	require.True(t, c.Get(ctx, "k", &got))
	assert.Equal(t, 2, got)
}

func TestSet_NonPositiveTTLIsAlreadyExpired(t *testing.T) {
	ctx := context.Background()
	c, backend := newMemoryCache(newFakeClock())

	c.Set(ctx, "k", "old", time.Minute)
	c.Set(ctx, "k", "new", 0)

	var got string
	assert.False(t, c.Get(ctx, "k", &got))
	_, err := backend.Get(ctx, DefaultPrefix+"k")
	assert.ErrorIs(t, err, ErrMiss)

	c.Set(ctx, "neg", "v", -time.Second)
	assert.False(t, c.Get(ctx, "neg", &got))
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	c, _ := newMemoryCache(newFakeClock())

	c.Set(ctx, "k", "v", time.Minute)
	c.Invalidate(ctx, "k")

	var got string
	assert.False(t, c.Get(ctx, "k", &got))

	// missing key is a no-op
	c.Invalidate(ctx, "never-set")
}

func TestInspect(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c, _ := newMemoryCache(clock)

	c.Set(ctx, "k", "v", 10*time.Minute)

	info, ok := c.Inspect(ctx, "k")
	require.True(t, ok)
	assert.True(t, info.CreatedAt.Equal(clock.Now()))
	assert.True(t, info.ExpiresAt.Equal(clock.Now().Add(10*time.Minute)))

	_, ok = c.Inspect(ctx, "missing")
	assert.False(t, ok)
}

func TestInspect_NotCountedAsLookup(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	m := metrics.New(prometheus.NewRegistry())
	backend := NewMemoryBackend()
	backend.now = clock.Now
	c := New(backend, WithMetrics(m))
	c.now = clock.Now

	c.Set(ctx, "k", "v", time.Minute)
	_, ok := c.Inspect(ctx, "k")
	require.True(t, ok)
	_, ok = c.Inspect(ctx, "missing")
	require.False(t, ok)

	assert.Equal(t, 0.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues(metrics.ResultHit)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues(metrics.ResultMiss)))

	var got string
	require.True(t, c.Get(ctx, "k", &got))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues(metrics.ResultHit)))
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c, backend := newMemoryCache(clock)

	c.Set(ctx, "a", 1, time.Minute)
	c.Set(ctx, "b", 2, time.Hour)
	require.NoError(t, backend.Set(ctx, "other_namespace", []byte("x"), time.Hour))

	assert.Equal(t, Stats{TotalItems: 2, ActiveItems: 2}, c.Stats(ctx))

	clock.Advance(2 * time.Minute)
	assert.Equal(t, Stats{TotalItems: 1, ActiveItems: 1}, c.Stats(ctx))
}

func TestStats_BackendDown(t *testing.T) {
	c := New(failingBackend{})
	assert.Equal(t, Stats{Error: true}, c.Stats(context.Background()))
}

func TestTTLSeconds(t *testing.T) {
	assert.Equal(t, time.Second, ttlSeconds(0))
	assert.Equal(t, time.Second, ttlSeconds(200*time.Millisecond))
	assert.Equal(t, 2*time.Second, ttlSeconds(1500*time.Millisecond))
	assert.Equal(t, 45*time.Minute, ttlSeconds(45*time.Minute))
}
