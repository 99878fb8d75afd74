package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/darkodi/tinyurl/internal/config"
	"github.com/darkodi/tinyurl/internal/logger"
)

const memoryCleanupInterval = 10 * time.Minute

// NewRedisClient builds the client shared by the cache and the rate limiter.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.Timeout * 5,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})
}

// Open returns the backend selected by cfg.Backend. The redis backend needs
// client; an unreachable server is logged but not fatal, enrichment is optional.
func Open(ctx context.Context, cfg config.CacheConfig, client redis.UniversalClient, log *logger.Logger) (Cache, error) {
	switch cfg.Backend {
	case "redis":
		if client == nil {
			return nil, errors.New("redis cache requires a client")
		}
		c := NewRedisCache(client, cfg.KeyPrefix)
		if err := c.Ping(ctx); err != nil {
			log.Warn("Redis cache not reachable, lookups will fall through to the store", "error", err)
		} else {
			log.Info("Connected to Redis cache")
		}
		return c, nil
	case "memory":
		log.Info("Using in-process cache")
		return NewMemoryCache(cfg.TTL, memoryCleanupInterval), nil
	case "none":
		log.Info("Cache disabled")
		return Noop{}, nil
	}
	return nil, errors.Errorf("unknown cache backend %q", cfg.Backend)
}
