package cache

import (
	"context"
	"time"
)

// Noop caches nothing. Every lookup misses.
type Noop struct{}

func (Noop) Get(context.Context, string) (string, error) { return "", ErrMiss }

func (Noop) SetWithTTL(context.Context, string, string, time.Duration) error { return nil }

func (Noop) Ping(context.Context) error { return nil }

func (Noop) Close() error { return nil }
