package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

//go:embed schema/sqlite.sql
var sqliteSchema string

var sqliteStatements = statements{
	createPending: `INSERT INTO url_mappings (short_code, long_url, created_at) VALUES (?, ?, ?) RETURNING id`,
	finalize:      `UPDATE url_mappings SET short_code = ? WHERE id = ?`,
	discard:       `DELETE FROM url_mappings WHERE id = ? AND short_code LIKE '~%'`,
	findByCode: `SELECT id, short_code, long_url, click_count, created_at
		FROM url_mappings WHERE short_code = ?`,
	increment: `UPDATE url_mappings SET click_count = click_count + 1 WHERE id = ?`,
}

// SQLiteStore is the embedded engine. It has no sequence to pre-fetch ids
// from, so creates run as a two-phase write inside one transaction.
type SQLiteStore struct {
	*sqlStore
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and applies the schema.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(err, "create database directory")
		}
	}

	db, err := sql.Open("sqlite3", sqliteDSN(path))
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// One writer at a time; this also keeps ":memory:" to a single database.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "apply sqlite schema")
	}

	return &SQLiteStore{
		sqlStore: &sqlStore{q: db, stmt: sqliteStatements, classify: classifySQLite},
		db:       db,
	}, nil
}

func sqliteDSN(path string) string {
	if path == ":memory:" {
		return path
	}
	return "file:" + path + "?_busy_timeout=5000&_journal_mode=WAL"
}

func (s *SQLiteStore) InTx(ctx context.Context, fn func(w PendingWriter) error) error {
	return inTx(ctx, s.db, s.sqlStore, fn)
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func classifySQLite(err error) error {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}
	switch sqliteErr.ExtendedCode {
	case sqlite3.ErrConstraintPrimaryKey:
		return ErrDuplicateID
	case sqlite3.ErrConstraintUnique:
		if strings.Contains(sqliteErr.Error(), "short_code") {
			return ErrDuplicateCode
		}
		return ErrDuplicateID
	}
	return err
}
