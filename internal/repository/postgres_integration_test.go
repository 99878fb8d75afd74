//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/darkodi/tinyurl/internal/config"
	"github.com/darkodi/tinyurl/internal/logger"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("urls"),
		tcpostgres.WithUsername("tinyurl"),
		tcpostgres.WithPassword("tinyurl"),
		tc.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestPostgresStore(t *testing.T) {
	dsn := startPostgres(t)

	newPostgres := func(t *testing.T) MappingStore {
		t.Helper()
		ctx := context.Background()

		store, err := Open(ctx, config.DatabaseConfig{Driver: "postgres", URL: dsn, MaxOpenConns: 5, MaxIdleConns: 2}, logger.Discard())
		require.NoError(t, err)
		pg := store.(*PostgresStore)
		_, err = pg.db.ExecContext(ctx, `TRUNCATE url_mappings RESTART IDENTITY`)
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		return store
	}

	t.Run("mapping store", func(t *testing.T) { testMappingStore(t, newPostgres) })
	t.Run("sequencer", func(t *testing.T) { testSequencer(t, newPostgres) })
	t.Run("transactor", func(t *testing.T) { testTransactor(t, newPostgres) })
}
