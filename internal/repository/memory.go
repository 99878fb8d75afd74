package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/darkodi/tinyurl/internal/model"
)

type memoryRow struct {
	id        uint64
	shortCode string
	longURL   string
	createdAt time.Time
	clicks    atomic.Uint64
}

func (r *memoryRow) snapshot() *model.URL {
	return &model.URL{
		ID:         r.id,
		ShortCode:  r.shortCode,
		LongURL:    r.longURL,
		ClickCount: r.clicks.Load(),
		CreatedAt:  r.createdAt,
	}
}

// MemoryStore keeps mappings in process memory. Pending rows live only in
// byID; a code enters byCode when it is finalized.
type MemoryStore struct {
	mu     sync.RWMutex
	lastID uint64
	byID   map[uint64]*memoryRow
	byCode map[string]*memoryRow
}

// NewMemoryStore creates an empty store whose first id is 1.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[uint64]*memoryRow),
		byCode: make(map[string]*memoryRow),
	}
}

func (s *MemoryStore) NextID(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID++
	return s.lastID, nil
}

func (s *MemoryStore) Insert(ctx context.Context, url *model.URL) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[url.ID]; ok {
		return ErrDuplicateID
	}
	if _, ok := s.byCode[url.ShortCode]; ok {
		return ErrDuplicateCode
	}

	row := &memoryRow{
		id:        url.ID,
		shortCode: url.ShortCode,
		longURL:   url.LongURL,
		createdAt: url.CreatedAt,
	}
	row.clicks.Store(url.ClickCount)
	s.byID[row.id] = row
	s.byCode[row.shortCode] = row
	if url.ID > s.lastID {
		s.lastID = url.ID
	}
	return nil
}

func (s *MemoryStore) CreatePending(ctx context.Context, longURL string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID++
	s.byID[s.lastID] = &memoryRow{
		id:        s.lastID,
		shortCode: model.NewSentinel(),
		longURL:   longURL,
		createdAt: time.Now().UTC(),
	}
	return s.lastID, nil
}

func (s *MemoryStore) Finalize(ctx context.Context, id uint64, shortCode string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	if owner, taken := s.byCode[shortCode]; taken && owner.id != id {
		return ErrDuplicateCode
	}
	if !model.IsSentinel(row.shortCode) {
		delete(s.byCode, row.shortCode)
	}
	row.shortCode = shortCode
	s.byCode[shortCode] = row
	return nil
}

func (s *MemoryStore) Discard(ctx context.Context, id uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if row, ok := s.byID[id]; ok && model.IsSentinel(row.shortCode) {
		delete(s.byID, id)
	}
	return nil
}

func (s *MemoryStore) FindByCode(ctx context.Context, shortCode string) (*model.URL, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.byCode[shortCode]
	if !ok {
		return nil, ErrNotFound
	}
	return row.snapshot(), nil
}

// IncrementClickCount only takes the read lock; the counter itself is atomic.
func (s *MemoryStore) IncrementClickCount(ctx context.Context, id uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.byID[id]
	if !ok || model.IsSentinel(row.shortCode) {
		return ErrNotFound
	}
	row.clicks.Add(1)
	return nil
}

// Len returns the number of rows, pending ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) Close() error {
	return nil
}
