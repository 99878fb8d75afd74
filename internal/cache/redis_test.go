package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client, "url:"), mr
}

func TestRedisCache_SetAndGet(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisCache(t)

	require.NoError(t, c.SetWithTTL(ctx, "1", "https://example.com", time.Hour))

	got, err := c.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", got)

	stored, err := mr.Get("url:1")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", stored)
	assert.Equal(t, time.Hour, mr.TTL("url:1"))
}

func TestRedisCache_Miss(t *testing.T) {
	c, _ := newRedisCache(t)

	_, err := c.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisCache(t)

	require.NoError(t, c.SetWithTTL(ctx, "2", "https://example.com/2", time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := c.Get(ctx, "2")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisCache_Unavailable(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisCache(t)
	mr.Close()

	_, err := c.Get(ctx, "1")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NotErrorIs(t, err, ErrMiss)

	assert.ErrorIs(t, c.SetWithTTL(ctx, "1", "https://example.com", time.Hour), ErrUnavailable)
	assert.ErrorIs(t, c.Ping(ctx), ErrUnavailable)
}
