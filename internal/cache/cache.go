// Package cache is the read-through layer in front of the mapping store. It
// holds short code to long URL entries only; click counts never live here.
package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrMiss reports that the code is not cached.
	ErrMiss = errors.New("cache miss")
	// ErrUnavailable wraps any backend failure. Callers treat it as a miss.
	ErrUnavailable = errors.New("cache unavailable")
)

// Cache maps short codes to long URLs.
type Cache interface {
	// Get returns the cached long URL, ErrMiss, or an error wrapping ErrUnavailable.
	Get(ctx context.Context, shortCode string) (string, error)
	// SetWithTTL stores the entry; it expires after ttl.
	SetWithTTL(ctx context.Context, shortCode, longURL string, ttl time.Duration) error
	Ping(ctx context.Context) error
	Close() error
}
