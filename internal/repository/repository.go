// Package repository holds the durable mapping store: the source of truth for
// short codes, long URLs and click counts.
//
// Three engines implement MappingStore. MemoryStore and PostgresStore also
// implement Sequencer, which lets the caller obtain an id before the row
// exists and write the finalized record in one statement. SQLiteStore
// implements Transactor instead, so the pending insert and the finalize
// commit together. Readers never see a pending row from any engine.
package repository

import (
	"context"
	"errors"

	"github.com/darkodi/tinyurl/internal/model"
)

var (
	ErrNotFound      = errors.New("url not found")
	ErrDuplicateCode = errors.New("short code already in use")
	ErrDuplicateID   = errors.New("id already in use")
)

// PendingWriter is the two-phase create: insert with a sentinel code, then set the real one.
type PendingWriter interface {
	// CreatePending inserts longURL under a sentinel code and returns the assigned id.
	CreatePending(ctx context.Context, longURL string) (uint64, error)
	// Finalize replaces the sentinel of row id with shortCode.
	// Returns ErrNotFound when id does not exist and ErrDuplicateCode when
	// shortCode belongs to another row.
	Finalize(ctx context.Context, id uint64, shortCode string) error
}

// MappingStore is implemented by every engine.
type MappingStore interface {
	PendingWriter

	// Discard deletes row id if it is still pending. It is the compensation
	// step for a failed two-phase create and never touches finalized rows.
	Discard(ctx context.Context, id uint64) error
	// FindByCode returns the finalized mapping for shortCode or ErrNotFound.
	FindByCode(ctx context.Context, shortCode string) (*model.URL, error)
	// IncrementClickCount adds one to the row's counter with the engine's
	// atomic update. Returns ErrNotFound when id does not exist.
	IncrementClickCount(ctx context.Context, id uint64) error

	Ping(ctx context.Context) error
	Close() error
}

// Sequencer is implemented by stores that can hand out an id before the row exists.
type Sequencer interface {
	NextID(ctx context.Context) (uint64, error)
	// Insert writes a finalized mapping. Returns ErrDuplicateID or ErrDuplicateCode
	// on unique violations.
	Insert(ctx context.Context, url *model.URL) error
}

// Transactor is implemented by stores that can run the two-phase create atomically.
type Transactor interface {
	InTx(ctx context.Context, fn func(w PendingWriter) error) error
}
