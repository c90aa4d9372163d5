package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breathclean/breathclean/internal/cache"
)

func scorePart(mode string, traffic float64) cache.ScoreKeyPart {
	return cache.ScoreKeyPart{
		Geometry:     [][]float64{{4.9041, 52.3676}, {4.8919, 52.3386}},
		TravelMode:   mode,
		TrafficValue: traffic,
	}
}

func TestScoreKey_Deterministic(t *testing.T) {
	a := cache.ScoreKey([]cache.ScoreKeyPart{scorePart("cycling", 1.5)})
	b := cache.ScoreKey([]cache.ScoreKeyPart{scorePart("cycling", 1.5)})
	assert.Equal(t, a, b)
	assert.Contains(t, a, "score:")
}

func TestScoreKey_SensitiveToInputs(t *testing.T) {
	base := cache.ScoreKey([]cache.ScoreKeyPart{scorePart("cycling", 1.5)})

	assert.NotEqual(t, base, cache.ScoreKey([]cache.ScoreKeyPart{scorePart("walking", 1.5)}))
	assert.NotEqual(t, base, cache.ScoreKey([]cache.ScoreKeyPart{scorePart("cycling", 2.0)}))

	shifted := scorePart("cycling", 1.5)
	shifted.Geometry[0][0] += 0.0001
	assert.NotEqual(t, base, cache.ScoreKey([]cache.ScoreKeyPart{shifted}))
}

func TestBreakpointKey(t *testing.T) {
	assert.Equal(t, "bp:abc-123", cache.BreakpointKey("abc-123"))
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, cache.ErrMiss)

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, store.Delete(ctx, "k"))
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, cache.ErrMiss)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Nanosecond))
	time.Sleep(5 * time.Millisecond)

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, cache.ErrMiss)
}

func TestRedisStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	store := cache.NewRedisStoreWithClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	defer store.Close()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, cache.ErrMiss)

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, store.Delete(ctx, "k"))
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, cache.ErrMiss)
}

func TestRedisStore_Expiry(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	store := cache.NewRedisStoreWithClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	defer store.Close()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 30*time.Minute))

	mr.FastForward(31 * time.Minute)
	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, cache.ErrMiss)
}
