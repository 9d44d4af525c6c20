package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSQLite(t *testing.T, clock *fakeClock) *SQLiteBackend {
	t.Helper()
	b, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	b.now = clock.Now
	t.Cleanup(func() { b.Close() })
	return b
}

func TestSQLiteBackend_RoundTrip(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	b := openTestSQLite(t, clock)

	require.NoError(t, b.Set(ctx, "strava_k", []byte("v1"), time.Minute))
	require.NoError(t, b.Set(ctx, "strava_k", []byte("v2"), time.Minute))

	got, err := b.Get(ctx, "strava_k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	require.NoError(t, b.Delete(ctx, "strava_k"))
	_, err = b.Get(ctx, "strava_k")
	assert.ErrorIs(t, err, ErrMiss)

	// deleting a missing key is fine
	assert.NoError(t, b.Delete(ctx, "strava_k"))
}

func TestSQLiteBackend_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	b := openTestSQLite(t, clock)

	require.NoError(t, b.Set(ctx, "strava_k", []byte("v"), time.Minute))
	clock.Advance(time.Minute)

	_, err := b.Get(ctx, "strava_k")
	assert.ErrorIs(t, err, ErrMiss)

	keys, err := b.Keys(ctx, "strava_")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestSQLiteBackend_KeysTreatsUnderscoreLiterally(t *testing.T) {
	ctx := context.Background()
	b := openTestSQLite(t, newFakeClock())

	require.NoError(t, b.Set(ctx, "strava_a", []byte("1"), time.Hour))
	require.NoError(t, b.Set(ctx, "stravaXb", []byte("2"), time.Hour))

	keys, err := b.Keys(ctx, "strava_")
	require.NoError(t, err)
	assert.Equal(t, []string{"strava_a"}, keys)
}

func TestSQLiteBackend_FileBacked(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "cache.db")

	b, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, b.Set(ctx, "strava_k", []byte("v"), time.Hour))
	require.NoError(t, b.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "strava_k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestSQLiteBackend_WithCache(t *testing.T) {
	ctx := context.Background()
	c := New(openTestSQLite(t, newFakeClock()))

	var calls int32
	for range 2 {
		got, err := CachedCall(ctx, c, "k", time.Minute, countingProducer(&calls, []string{"v"}))
		require.NoError(t, err)
		assert.Equal(t, []string{"v"}, got)
	}
	assert.Equal(t, int32(1), calls)
	assert.NoError(t, c.Ping(ctx))
}
