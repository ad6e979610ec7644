package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// An unresolvable address forces the in-memory fallback.
func newMemoryCache(t *testing.T) *Cache {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	cache, err := NewCache("invalid:6379", logger.Sugar(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	require.True(t, cache.IsInMemoryMode())
	return cache
}

func TestCache_SetGetRoundTrip(t *testing.T) {
	cache := newMemoryCache(t)
	ctx := context.Background()

	value := map[string]string{"status": "pending", "txHash": "0xabc"}
	require.NoError(t, cache.Set(ctx, "bridge:test", value, time.Minute))

	var got map[string]string
	require.NoError(t, cache.Get(ctx, "bridge:test", &got))
	assert.Equal(t, value, got)
}

func TestCache_Miss(t *testing.T) {
	cache := newMemoryCache(t)

	var got map[string]string
	err := cache.Get(context.Background(), "bridge:absent", &got)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestCache_TTLExpiry(t *testing.T) {
	cache := newMemoryCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "bridge:ephemeral", "x", 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	var got string
	err := cache.Get(ctx, "bridge:ephemeral", &got)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestCache_Delete(t *testing.T) {
	cache := newMemoryCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "a", 1, time.Minute))
	require.NoError(t, cache.Set(ctx, "b", 2, time.Minute))
	require.NoError(t, cache.Delete(ctx, "a", "b"))

	var got int
	assert.ErrorIs(t, cache.Get(ctx, "a", &got), ErrCacheMiss)
	assert.ErrorIs(t, cache.Get(ctx, "b", &got), ErrCacheMiss)
}

func TestCache_HistoryKeysArePerWallet(t *testing.T) {
	cache := newMemoryCache(t)
	ctx := context.Background()

	require.NoError(t, cache.SetHistory(ctx, "0xaaa", []string{"tx-1"}, time.Minute))
	require.NoError(t, cache.SetHistory(ctx, "0xbbb", []string{"tx-2"}, time.Minute))

	var got []string
	require.NoError(t, cache.GetHistory(ctx, "0xaaa", &got))
	assert.Equal(t, []string{"tx-1"}, got)

	require.NoError(t, cache.InvalidateHistory(ctx, "0xaaa"))
	assert.ErrorIs(t, cache.GetHistory(ctx, "0xaaa", &got), ErrCacheMiss)

	// The other wallet's entry is untouched.
	require.NoError(t, cache.GetHistory(ctx, "0xbbb", &got))
	assert.Equal(t, []string{"tx-2"}, got)
}

func TestCache_PingInMemory(t *testing.T) {
	cache := newMemoryCache(t)
	assert.NoError(t, cache.Ping(context.Background()))
}
