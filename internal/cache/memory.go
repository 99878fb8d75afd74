package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is a process-local cache for single-instance deployments.
type MemoryCache struct {
	items *gocache.Cache
}

// NewMemoryCache creates a cache whose expired entries are purged every cleanup interval.
func NewMemoryCache(defaultTTL, cleanup time.Duration) *MemoryCache {
	return &MemoryCache{items: gocache.New(defaultTTL, cleanup)}
}

func (c *MemoryCache) Get(ctx context.Context, shortCode string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	v, ok := c.items.Get(shortCode)
	if !ok {
		return "", ErrMiss
	}
	longURL, ok := v.(string)
	if !ok {
		c.items.Delete(shortCode)
		return "", ErrMiss
	}
	return longURL, nil
}

func (c *MemoryCache) SetWithTTL(ctx context.Context, shortCode, longURL string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.items.Set(shortCode, longURL, ttl)
	return nil
}

func (c *MemoryCache) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (c *MemoryCache) Close() error {
	c.items.Flush()
	return nil
}
