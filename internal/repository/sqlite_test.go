package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkodi/tinyurl/internal/config"
	"github.com/darkodi/tinyurl/internal/encoder"
	"github.com/darkodi/tinyurl/internal/logger"
)

func newSQLite(t *testing.T) MappingStore {
	t.Helper()

	store, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "urls.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore(t *testing.T) {
	testMappingStore(t, newSQLite)
}

func TestSQLiteStore_Transactor(t *testing.T) {
	testTransactor(t, newSQLite)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "urls.db")

	store, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	id, err := store.CreatePending(ctx, "https://example.com/persist")
	require.NoError(t, err)
	code := encoder.Encode(id)
	require.NoError(t, store.Finalize(ctx, id, code))
	require.NoError(t, store.IncrementClickCount(ctx, id))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.FindByCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/persist", got.LongURL)
	assert.Equal(t, uint64(1), got.ClickCount)
}

func TestSQLiteStore_InMemory(t *testing.T) {
	ctx := context.Background()

	store, err := NewSQLiteStore(ctx, ":memory:")
	require.NoError(t, err)
	defer store.Close()

	id, err := store.CreatePending(ctx, "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	log := logger.Discard()

	t.Run("memory", func(t *testing.T) {
		store, err := Open(ctx, config.DatabaseConfig{Driver: "memory"}, log)
		require.NoError(t, err)
		assert.IsType(t, &MemoryStore{}, store)
	})

	t.Run("sqlite", func(t *testing.T) {
		store, err := Open(ctx, config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "urls.db")}, log)
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &SQLiteStore{}, store)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := Open(ctx, config.DatabaseConfig{Driver: "mongo"}, log)
		assert.Error(t, err)
	})
}
