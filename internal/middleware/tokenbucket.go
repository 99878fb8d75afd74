package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/darkodi/tinyurl/internal/logger"
)

// TokenBucket is an in-process Limiter. Every client starts with Burst
// tokens and regains Rate tokens each Interval.
type TokenBucket struct {
	mu       sync.Mutex
	clients  map[string]*client
	rate     int           // tokens added per interval
	burst    int           // max tokens (bucket size)
	interval time.Duration // how often to add tokens
	cleanup  time.Duration // cleanup old entries
	log      *logger.Logger
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

type client struct {
	tokens    int
	lastCheck time.Time
}

// TokenBucketConfig holds rate limiter settings
type TokenBucketConfig struct {
	Rate     int           // Requests per interval
	Burst    int           // Max burst size
	Interval time.Duration // Token refill interval
	Cleanup  time.Duration // Cleanup interval for old clients
}

// DefaultTokenBucketConfig allows 5 requests per minute per client.
func DefaultTokenBucketConfig() TokenBucketConfig {
	return TokenBucketConfig{
		Rate:     5,
		Burst:    5,
		Interval: time.Minute,
		Cleanup:  5 * time.Minute,
	}
}

// NewTokenBucket creates the limiter and starts its cleanup loop. Call Stop
// to end the loop.
func NewTokenBucket(cfg TokenBucketConfig, log *logger.Logger) *TokenBucket {
	tb := &TokenBucket{
		clients:  make(map[string]*client),
		rate:     cfg.Rate,
		burst:    cfg.Burst,
		interval: cfg.Interval,
		cleanup:  cfg.Cleanup,
		log:      log,
		now:      time.Now,
		stop:     make(chan struct{}),
	}

	if tb.cleanup > 0 {
		go tb.cleanupLoop()
	}

	return tb
}

// Allow checks if a request from the given key is allowed
func (tb *TokenBucket) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()

	c, exists := tb.clients[key]
	if !exists {
		// New client gets full bucket
		tb.clients[key] = &client{
			tokens:    tb.burst - 1, // -1 for current request
			lastCheck: now,
		}
		return true, 0, nil
	}

	// Whole intervals elapsed since the last refill
	elapsed := now.Sub(c.lastCheck)
	intervals := int(elapsed / tb.interval)
	if intervals > 0 {
		c.tokens = min(c.tokens+intervals*tb.rate, tb.burst)
		c.lastCheck = c.lastCheck.Add(time.Duration(intervals) * tb.interval)
	}

	if c.tokens > 0 {
		c.tokens--
		return true, 0, nil
	}

	return false, c.lastCheck.Add(tb.interval).Sub(now), nil
}

// Stop ends the cleanup loop.
func (tb *TokenBucket) Stop() {
	tb.stopOnce.Do(func() { close(tb.stop) })
}

// cleanupLoop removes old client entries periodically
func (tb *TokenBucket) cleanupLoop() {
	ticker := time.NewTicker(tb.cleanup)
	defer ticker.Stop()

	for {
		select {
		case <-tb.stop:
			return
		case <-ticker.C:
			count := tb.evictIdle()
			if tb.log != nil {
				tb.log.Debug("Rate limiter cleanup", "active_clients", count)
			}
		}
	}
}

// evictIdle drops clients not seen for a whole cleanup period.
func (tb *TokenBucket) evictIdle() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	cutoff := tb.now().Add(-tb.cleanup)
	for key, c := range tb.clients {
		if c.lastCheck.Before(cutoff) {
			delete(tb.clients, key)
		}
	}
	return len(tb.clients)
}
