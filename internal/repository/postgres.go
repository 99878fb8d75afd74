package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/darkodi/tinyurl/internal/config"
	"github.com/darkodi/tinyurl/internal/model"
)

const (
	pgUniqueViolation = "23505"

	pgPrimaryKey      = "url_mappings_pkey"
	pgShortCodeUnique = "url_mappings_short_code_key"
)

var postgresStatements = statements{
	createPending: `INSERT INTO url_mappings (short_code, long_url, created_at) VALUES ($1, $2, $3) RETURNING id`,
	finalize:      `UPDATE url_mappings SET short_code = $1 WHERE id = $2`,
	discard:       `DELETE FROM url_mappings WHERE id = $1 AND short_code LIKE '~%'`,
	findByCode: `SELECT id, short_code, long_url, click_count, created_at
		FROM url_mappings WHERE short_code = $1`,
	increment: `UPDATE url_mappings SET click_count = click_count + 1 WHERE id = $1`,
}

const (
	pgNextID = `SELECT nextval(pg_get_serial_sequence('url_mappings', 'id'))`
	pgInsert = `INSERT INTO url_mappings (id, short_code, long_url, click_count, created_at)
		VALUES ($1, $2, $3, $4, $5)`
)

// PostgresStore is the server engine. Ids come from the table's sequence, so
// a create is a single INSERT of the finalized row.
type PostgresStore struct {
	*sqlStore
	db *sql.DB
}

// NewPostgresStore connects using cfg.URL. The schema is expected to be
// migrated already, see MigratePostgres.
func NewPostgresStore(ctx context.Context, cfg config.DatabaseConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}

	return &PostgresStore{
		sqlStore: &sqlStore{q: db, stmt: postgresStatements, classify: classifyPostgres},
		db:       db,
	}, nil
}

func (s *PostgresStore) NextID(ctx context.Context) (uint64, error) {
	var id int64
	if err := s.db.QueryRowContext(ctx, pgNextID).Scan(&id); err != nil {
		return 0, errors.Wrap(err, "next url id")
	}
	return uint64(id), nil
}

func (s *PostgresStore) Insert(ctx context.Context, url *model.URL) error {
	_, err := s.db.ExecContext(ctx, pgInsert,
		int64(url.ID), url.ShortCode, url.LongURL, int64(url.ClickCount), url.CreatedAt)
	if err != nil {
		return errors.Wrapf(classifyPostgres(err), "insert url %d", url.ID)
	}
	return nil
}

func (s *PostgresStore) InTx(ctx context.Context, fn func(w PendingWriter) error) error {
	return inTx(ctx, s.db, s.sqlStore, fn)
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func classifyPostgres(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != pgUniqueViolation {
		return err
	}
	switch pqErr.Constraint {
	case pgPrimaryKey:
		return ErrDuplicateID
	case pgShortCodeUnique:
		return ErrDuplicateCode
	}
	return err
}
