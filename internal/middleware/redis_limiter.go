package middleware

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// fixedWindowScript counts requests per key in a window that starts with
// the first request. Returns {allowed, ttl_ms}.
var fixedWindowScript = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
local ttl = redis.call('PTTL', KEYS[1])
if current > tonumber(ARGV[1]) then
	return {0, ttl}
end
return {1, ttl}
`)

// RedisLimiter is a Limiter shared by every instance pointing at the same Redis.
type RedisLimiter struct {
	client    redis.Scripter
	limit     int
	window    time.Duration
	keyPrefix string
}

// NewRedisLimiter allows limit requests per window per key.
func NewRedisLimiter(client redis.Scripter, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window, keyPrefix: "ratelimit:"}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	result, err := fixedWindowScript.Run(ctx, l.client,
		[]string{l.keyPrefix + key}, l.limit, l.window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return false, 0, errors.Wrap(err, "redis run rate limit script")
	}
	if len(result) != 2 {
		return false, 0, errors.Errorf("unexpected rate limit script result %v", result)
	}

	if result[0] == 1 {
		return true, 0, nil
	}
	return false, time.Duration(result[1]) * time.Millisecond, nil
}
