package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/darkodi/tinyurl/internal/cache"
	"github.com/darkodi/tinyurl/internal/encoder"
	"github.com/darkodi/tinyurl/internal/logger"
	"github.com/darkodi/tinyurl/internal/model"
	"github.com/darkodi/tinyurl/internal/repository"
)

// Custom errors for the service layer
var (
	ErrValidation  = errors.New("validation failed")
	ErrEmptyURL    = fmt.Errorf("%w: URL cannot be empty", ErrValidation)
	ErrInvalidURL  = fmt.Errorf("%w: invalid URL format", ErrValidation)
	ErrURLNotFound = errors.New("short URL not found")
	ErrStore       = errors.New("mapping store failure")
	ErrInvariant   = errors.New("short code invariant violated")
)

const (
	DefaultCacheTTL     = 24 * time.Hour
	DefaultStoreTimeout = 2 * time.Second
	DefaultCacheTimeout = 200 * time.Millisecond
)

// ClickRecorder counts resolutions. Record must not block on store I/O.
type ClickRecorder interface {
	Record(id uint64)
	Close()
}

// Options tunes the service. Zero values take the package defaults.
type Options struct {
	BaseURL      string // e.g., "http://localhost:8080"
	CacheTTL     time.Duration
	StoreTimeout time.Duration
	CacheTimeout time.Duration
}

// URLService handles business logic for URL operations
type URLService struct {
	store    repository.MappingStore
	cache    cache.Cache
	recorder ClickRecorder
	opts     Options
	log      *logger.Logger
}

// NewURLService creates a new service instance
func NewURLService(store repository.MappingStore, c cache.Cache, recorder ClickRecorder, opts Options, log *logger.Logger) *URLService {
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = DefaultStoreTimeout
	}
	if opts.CacheTimeout <= 0 {
		opts.CacheTimeout = DefaultCacheTimeout
	}
	if c == nil {
		c = cache.Noop{}
	}

	return &URLService{
		store:    store,
		cache:    c,
		recorder: recorder,
		opts:     opts,
		log:      log.Named("service"),
	}
}

// CreateShortURL persists a new mapping and returns its short URL.
// Duplicate long URLs get distinct codes; the code is derived from the id.
func (s *URLService) CreateShortURL(ctx context.Context, req model.CreateURLRequest) (*model.CreateURLResponse, error) {
	// ============ STEP 1: Validation ============
	if err := validateURL(req.LongURL); err != nil {
		return nil, err
	}

	// ============ STEP 2: Allocate id and code ============
	shortCode, err := s.allocate(ctx, req.LongURL)
	if err != nil {
		return nil, err
	}

	// ============ STEP 3: Warm the cache ============
	s.fillCache(ctx, shortCode, req.LongURL)

	return &model.CreateURLResponse{
		ShortURL:  s.opts.BaseURL + "/" + shortCode,
		ShortCode: shortCode,
	}, nil
}

// allocate writes the finalized mapping using the strongest primitive the
// store offers: a pre-fetched id, a transaction, or a compensated two-phase write.
func (s *URLService) allocate(ctx context.Context, longURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	switch store := s.store.(type) {
	case repository.Sequencer:
		return s.insertSequenced(ctx, store, longURL)

	case repository.Transactor:
		var shortCode string
		err := store.InTx(ctx, func(w repository.PendingWriter) error {
			var err error
			_, shortCode, err = s.writeTwoPhase(ctx, w, longURL)
			return err
		})
		if err != nil {
			if errors.Is(err, ErrStore) || errors.Is(err, ErrInvariant) {
				return "", err
			}
			return "", s.storeFailure("transaction", err)
		}
		return shortCode, nil

	default:
		id, shortCode, err := s.writeTwoPhase(ctx, s.store, longURL)
		if err != nil {
			if id != 0 {
				s.discard(id)
			}
			return "", err
		}
		return shortCode, nil
	}
}

func (s *URLService) insertSequenced(ctx context.Context, seq repository.Sequencer, longURL string) (string, error) {
	id, err := seq.NextID(ctx)
	if err != nil {
		return "", s.storeFailure("next id", err)
	}

	mapping := &model.URL{
		ID:        id,
		ShortCode: encoder.Encode(id),
		LongURL:   longURL,
		CreatedAt: time.Now().UTC(),
	}
	if err := seq.Insert(ctx, mapping); err != nil {
		return "", s.writeFailure(mapping.ID, mapping.ShortCode, err)
	}
	return mapping.ShortCode, nil
}

// writeTwoPhase returns the pending id even on failure so the caller can compensate.
func (s *URLService) writeTwoPhase(ctx context.Context, w repository.PendingWriter, longURL string) (uint64, string, error) {
	id, err := w.CreatePending(ctx, longURL)
	if err != nil {
		return 0, "", s.storeFailure("create pending", err)
	}

	shortCode := encoder.Encode(id)
	if err := w.Finalize(ctx, id, shortCode); err != nil {
		return id, "", s.writeFailure(id, shortCode, err)
	}
	return id, shortCode, nil
}

// discard runs on its own deadline; the create deadline may be what failed.
func (s *URLService) discard(id uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.StoreTimeout)
	defer cancel()

	if err := s.store.Discard(ctx, id); err != nil {
		s.log.Error("Failed to discard pending mapping", "id", id, "error", err)
		return
	}
	s.log.Debug("Discarded pending mapping", "id", id)
}

// Resolve returns the long URL for shortCode and counts the click.
func (s *URLService) Resolve(ctx context.Context, shortCode string) (string, error) {
	// Fast path: cache hit, the id is recoverable from the code itself
	if longURL, ok := s.lookupCache(ctx, shortCode); ok {
		if id, err := encoder.Decode(shortCode); err == nil {
			s.recorder.Record(id)
			return longURL, nil
		}
	}

	// Slow path: store lookup, then refill
	mapping, err := s.findMapping(ctx, shortCode)
	if err != nil {
		return "", err
	}

	s.fillCache(ctx, shortCode, mapping.LongURL)
	s.recorder.Record(mapping.ID)

	return mapping.LongURL, nil
}

// GetURLStats returns the stored mapping, including its click count.
func (s *URLService) GetURLStats(ctx context.Context, shortCode string) (*model.URL, error) {
	return s.findMapping(ctx, shortCode)
}

// Close drains pending click increments.
func (s *URLService) Close() {
	s.recorder.Close()
}

func (s *URLService) findMapping(ctx context.Context, shortCode string) (*model.URL, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	mapping, err := s.store.FindByCode(ctx, shortCode)
	if errors.Is(err, repository.ErrNotFound) {
		s.log.Debug("Short code not found", "short_code", shortCode)
		return nil, ErrURLNotFound
	}
	if err != nil {
		return nil, s.storeFailure("find by code", err)
	}
	return mapping, nil
}

// lookupCache treats every cache failure, timeouts included, as a miss.
func (s *URLService) lookupCache(ctx context.Context, shortCode string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.CacheTimeout)
	defer cancel()

	longURL, err := s.cache.Get(ctx, shortCode)
	switch {
	case err == nil:
		return longURL, true
	case errors.Is(err, cache.ErrMiss):
	default:
		s.log.Warn("Cache lookup failed, falling back to store", "short_code", shortCode, "error", err)
	}
	return "", false
}

func (s *URLService) fillCache(ctx context.Context, shortCode, longURL string) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.CacheTimeout)
	defer cancel()

	if err := s.cache.SetWithTTL(ctx, shortCode, longURL, s.opts.CacheTTL); err != nil {
		s.log.Warn("Failed to cache mapping", "short_code", shortCode, "error", err)
	}
}

func (s *URLService) writeFailure(id uint64, shortCode string, err error) error {
	if errors.Is(err, repository.ErrDuplicateCode) || errors.Is(err, repository.ErrDuplicateID) {
		s.log.Error("Short code already assigned to another mapping",
			"critical", true, "id", id, "short_code", shortCode, "error", err)
		return fmt.Errorf("%w: id %d code %s: %w", ErrInvariant, id, shortCode, err)
	}
	return s.storeFailure("finalize", err)
}

func (s *URLService) storeFailure(op string, err error) error {
	s.log.Error("Mapping store failure", "op", op, "error", err)
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}

// ============ HEALTH ============

// HealthReport is the per-dependency status returned by CheckHealth.
type HealthReport struct {
	Status string            `json:"status"` // "healthy", "degraded", "unhealthy"
	Checks map[string]string `json:"checks"`
}

// CheckHealth pings the store and the cache. A cache failure only degrades
// the service; a store failure makes it unhealthy.
func (s *URLService) CheckHealth(ctx context.Context) HealthReport {
	report := HealthReport{Status: "healthy", Checks: map[string]string{"store": "ok", "cache": "ok"}}

	cacheCtx, cancel := context.WithTimeout(ctx, s.opts.CacheTimeout)
	defer cancel()
	if err := s.cache.Ping(cacheCtx); err != nil {
		report.Status = "degraded"
		report.Checks["cache"] = err.Error()
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()
	if err := s.store.Ping(storeCtx); err != nil {
		report.Status = "unhealthy"
		report.Checks["store"] = err.Error()
	}

	return report
}

// ============ VALIDATION HELPERS ============

func validateURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return ErrEmptyURL
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ErrInvalidURL
	}

	// Must have scheme (http/https) and host
	if parsed.Host == "" {
		return ErrInvalidURL
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ErrInvalidURL
	}

	return nil
}
