//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/darkodi/tinyurl/internal/config"
	"github.com/darkodi/tinyurl/internal/logger"
)

func TestRedisCache_Container(t *testing.T) {
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	client := NewRedisClient(config.RedisConfig{Host: host, Port: port.Int(), PoolSize: 4, Timeout: time.Second})
	c, err := Open(ctx, config.CacheConfig{Backend: "redis", KeyPrefix: "url:", TTL: time.Hour}, client, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.Ping(ctx))
	require.NoError(t, c.SetWithTTL(ctx, "abc", "https://example.com", time.Hour))

	got, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", got)

	ttl, err := client.TTL(ctx, "url:abc").Result()
	require.NoError(t, err)
	assert.InDelta(t, time.Hour.Seconds(), ttl.Seconds(), 5)

	_, err = c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrMiss)
}
