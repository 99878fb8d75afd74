package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisCache stores entries as plain string keys, prefix + short code.
type RedisCache struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisCache wraps an existing client. The caller owns the client's lifetime
// unless Close is called.
func NewRedisCache(client redis.UniversalClient, keyPrefix string) *RedisCache {
	return &RedisCache{client: client, keyPrefix: keyPrefix}
}

func (c *RedisCache) key(shortCode string) string {
	return c.keyPrefix + shortCode
}

func (c *RedisCache) Get(ctx context.Context, shortCode string) (string, error) {
	longURL, err := c.client.Get(ctx, c.key(shortCode)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	if err != nil {
		return "", fmt.Errorf("%w: get %s: %v", ErrUnavailable, shortCode, err)
	}
	return longURL, nil
}

func (c *RedisCache) SetWithTTL(ctx context.Context, shortCode, longURL string, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.key(shortCode), longURL, ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrUnavailable, shortCode, err)
	}
	return nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
