package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inknechoes/backend/internal/config"
)

func newTestCache(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()

	mr := miniredis.RunT(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := NewRedisCache(context.Background(), config.RedisConfig{Addr: mr.Addr()}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return mr, c
}

func TestRedisCacheRoundTrip(t *testing.T) {
	_, c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))

	value, found, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v", value)

	require.NoError(t, c.Delete(ctx, "k"))

	_, found, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisCacheExpiry(t *testing.T) {
	mr, c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))

	ttl, exists, err := c.TTL(ctx, "k")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.InDelta(t, time.Minute, ttl, float64(2*time.Second))

	mr.FastForward(2 * time.Minute)

	_, found, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	_, exists, err = c.TTL(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRedisCacheAvailable(t *testing.T) {
	mr, c := newTestCache(t)
	ctx := context.Background()

	assert.True(t, c.Available(ctx))

	mr.Close()
	assert.False(t, c.Available(ctx))
}

func TestNewRedisCacheUnreachable(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := NewRedisCache(context.Background(), config.RedisConfig{Addr: "127.0.0.1:1"}, logger)
	assert.Error(t, err)
}

func TestNoopCache(t *testing.T) {
	c := NewNoopCache()
	ctx := context.Background()

	assert.False(t, c.Available(ctx))
	assert.NoError(t, c.Set(ctx, "k", "v", time.Minute))

	_, found, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, c.Delete(ctx, "k"))

	_, exists, err := c.TTL(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)
}
