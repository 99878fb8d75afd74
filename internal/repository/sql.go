package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/darkodi/tinyurl/internal/model"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// statements holds one dialect's SQL. Pending rows are recognised by the
// leading '~' of their sentinel code.
type statements struct {
	createPending string
	finalize      string
	discard       string
	findByCode    string
	increment     string
}

// sqlStore implements the MappingStore operations shared by the SQL engines.
// classify turns driver errors into the package sentinels.
type sqlStore struct {
	q        querier
	stmt     statements
	classify func(error) error
}

func (s *sqlStore) CreatePending(ctx context.Context, longURL string) (uint64, error) {
	var id uint64
	err := s.q.QueryRowContext(ctx, s.stmt.createPending,
		model.NewSentinel(), longURL, time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return 0, errors.Wrap(s.classify(err), "insert pending url")
	}
	return id, nil
}

func (s *sqlStore) Finalize(ctx context.Context, id uint64, shortCode string) error {
	result, err := s.q.ExecContext(ctx, s.stmt.finalize, shortCode, id)
	if err != nil {
		return errors.Wrapf(s.classify(err), "finalize url %d", id)
	}
	return requireRow(result)
}

func (s *sqlStore) Discard(ctx context.Context, id uint64) error {
	if _, err := s.q.ExecContext(ctx, s.stmt.discard, id); err != nil {
		return errors.Wrapf(s.classify(err), "discard pending url %d", id)
	}
	return nil
}

func (s *sqlStore) FindByCode(ctx context.Context, shortCode string) (*model.URL, error) {
	if model.IsSentinel(shortCode) {
		return nil, ErrNotFound
	}

	url := &model.URL{}
	err := s.q.QueryRowContext(ctx, s.stmt.findByCode, shortCode).
		Scan(&url.ID, &url.ShortCode, &url.LongURL, &url.ClickCount, &url.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(s.classify(err), "find url by code %s", shortCode)
	}
	return url, nil
}

func (s *sqlStore) IncrementClickCount(ctx context.Context, id uint64) error {
	result, err := s.q.ExecContext(ctx, s.stmt.increment, id)
	if err != nil {
		return errors.Wrapf(s.classify(err), "increment clicks of url %d", id)
	}
	return requireRow(result)
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// inTx runs fn against a transaction-scoped copy of store.
func inTx(ctx context.Context, db *sql.DB, store *sqlStore, fn func(w PendingWriter) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(store.classify(err), "begin transaction")
	}

	scoped := &sqlStore{q: tx, stmt: store.stmt, classify: store.classify}
	if err := fn(scoped); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Wrapf(err, "rollback failed: %v", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(store.classify(err), "commit transaction")
	}
	return nil
}
