// Package clicks counts successful resolutions off the request path.
package clicks

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/darkodi/tinyurl/internal/logger"
)

// Incrementer is the part of the mapping store the recorder needs.
type Incrementer interface {
	IncrementClickCount(ctx context.Context, id uint64) error
}

// Config tunes the worker pool. Workers == 0 makes Record synchronous.
type Config struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// Recorder buffers click increments and applies them with a fixed set of
// workers. A click that does not fit in the queue gets its own goroutine, so
// counts stay exact under bursts.
type Recorder struct {
	store Incrementer
	cfg   Config
	log   *logger.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan uint64
	group  errgroup.Group
	once   sync.Once
}

// NewRecorder starts cfg.Workers workers.
func NewRecorder(store Incrementer, cfg Config, log *logger.Logger) *Recorder {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	r := &Recorder{store: store, cfg: cfg, log: log.Named("clicks")}
	if cfg.Workers == 0 {
		return r
	}

	r.queue = make(chan uint64, cfg.QueueSize)
	for i := 0; i < cfg.Workers; i++ {
		r.group.Go(func() error {
			for id := range r.queue {
				r.increment(id)
			}
			return nil
		})
	}
	r.log.Debug("Click recorder started", "workers", cfg.Workers, "queue_size", cfg.QueueSize)
	return r
}

// Record counts one click for the mapping id. It never returns an error; a
// failed increment is logged.
func (r *Recorder) Record(id uint64) {
	r.mu.RLock()
	if r.closed || r.queue == nil {
		r.mu.RUnlock()
		r.increment(id)
		return
	}
	defer r.mu.RUnlock()

	select {
	case r.queue <- id:
	default:
		r.group.Go(func() error {
			r.increment(id)
			return nil
		})
	}
}

// Close stops accepting queued clicks and waits until every pending one is applied.
func (r *Recorder) Close() {
	r.once.Do(func() {
		r.mu.Lock()
		r.closed = true
		if r.queue != nil {
			close(r.queue)
		}
		r.mu.Unlock()

		_ = r.group.Wait()
		r.log.Debug("Click recorder drained")
	})
}

func (r *Recorder) increment(id uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.Timeout)
	defer cancel()

	if err := r.store.IncrementClickCount(ctx, id); err != nil {
		r.log.Warn("Failed to record click", "id", id, "error", err)
	}
}
