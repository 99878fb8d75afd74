package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkodi/tinyurl/internal/encoder"
	"github.com/darkodi/tinyurl/internal/model"
)

// testMappingStore runs the behaviour every engine must share.
func testMappingStore(t *testing.T, newStore func(t *testing.T) MappingStore) {
	ctx := context.Background()

	t.Run("create then finalize", func(t *testing.T) {
		store := newStore(t)

		id, err := store.CreatePending(ctx, "https://example.com/a")
		require.NoError(t, err)
		code := encoder.Encode(id)

		_, err = store.FindByCode(ctx, code)
		assert.ErrorIs(t, err, ErrNotFound, "pending row must not be readable")

		require.NoError(t, store.Finalize(ctx, id, code))

		got, err := store.FindByCode(ctx, code)
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, code, got.ShortCode)
		assert.Equal(t, "https://example.com/a", got.LongURL)
		assert.Zero(t, got.ClickCount)
		assert.False(t, got.CreatedAt.IsZero())
	})

	t.Run("ids are distinct and increasing", func(t *testing.T) {
		store := newStore(t)

		var last uint64
		for i := 0; i < 5; i++ {
			id, err := store.CreatePending(ctx, "https://example.com/same")
			require.NoError(t, err)
			assert.Greater(t, id, last)
			last = id
		}
	})

	t.Run("sentinel is never found", func(t *testing.T) {
		store := newStore(t)

		_, err := store.CreatePending(ctx, "https://example.com")
		require.NoError(t, err)

		_, err = store.FindByCode(ctx, model.NewSentinel())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("finalize with taken code", func(t *testing.T) {
		store := newStore(t)

		first, err := store.CreatePending(ctx, "https://example.com/1")
		require.NoError(t, err)
		require.NoError(t, store.Finalize(ctx, first, "abc"))

		second, err := store.CreatePending(ctx, "https://example.com/2")
		require.NoError(t, err)
		err = store.Finalize(ctx, second, "abc")
		assert.ErrorIs(t, err, ErrDuplicateCode)
	})

	t.Run("finalize unknown id", func(t *testing.T) {
		store := newStore(t)

		err := store.Finalize(ctx, 424242, "xyz")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("discard removes only pending rows", func(t *testing.T) {
		store := newStore(t)

		pending, err := store.CreatePending(ctx, "https://example.com/pending")
		require.NoError(t, err)
		require.NoError(t, store.Discard(ctx, pending))
		assert.ErrorIs(t, store.Finalize(ctx, pending, encoder.Encode(pending)), ErrNotFound)

		kept, err := store.CreatePending(ctx, "https://example.com/kept")
		require.NoError(t, err)
		code := encoder.Encode(kept)
		require.NoError(t, store.Finalize(ctx, kept, code))
		require.NoError(t, store.Discard(ctx, kept))

		_, err = store.FindByCode(ctx, code)
		assert.NoError(t, err)
	})

	t.Run("increment click count", func(t *testing.T) {
		store := newStore(t)

		id, err := store.CreatePending(ctx, "https://example.com/clicks")
		require.NoError(t, err)
		code := encoder.Encode(id)
		require.NoError(t, store.Finalize(ctx, id, code))

		const clicks = 40
		var wg sync.WaitGroup
		errs := make(chan error, clicks)
		for i := 0; i < clicks; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- store.IncrementClickCount(ctx, id)
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		got, err := store.FindByCode(ctx, code)
		require.NoError(t, err)
		assert.Equal(t, uint64(clicks), got.ClickCount)
	})

	t.Run("increment unknown id", func(t *testing.T) {
		store := newStore(t)

		err := store.IncrementClickCount(ctx, 987654)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ping", func(t *testing.T) {
		store := newStore(t)
		assert.NoError(t, store.Ping(ctx))
	})
}

// testSequencer covers the one-step create path.
func testSequencer(t *testing.T, newStore func(t *testing.T) MappingStore) {
	ctx := context.Background()

	seqStore := func(t *testing.T) (MappingStore, Sequencer) {
		store := newStore(t)
		seq, ok := store.(Sequencer)
		require.True(t, ok, "store must implement Sequencer")
		return store, seq
	}

	t.Run("next id then insert", func(t *testing.T) {
		store, seq := seqStore(t)

		id, err := seq.NextID(ctx)
		require.NoError(t, err)
		next, err := seq.NextID(ctx)
		require.NoError(t, err)
		assert.Greater(t, next, id)

		url := &model.URL{ID: id, ShortCode: encoder.Encode(id), LongURL: "https://example.com/seq", CreatedAt: time.Now().UTC()}
		require.NoError(t, seq.Insert(ctx, url))

		got, err := store.FindByCode(ctx, url.ShortCode)
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, url.LongURL, got.LongURL)
	})

	t.Run("duplicate id", func(t *testing.T) {
		_, seq := seqStore(t)

		id, err := seq.NextID(ctx)
		require.NoError(t, err)
		require.NoError(t, seq.Insert(ctx, &model.URL{ID: id, ShortCode: "dup1", LongURL: "https://a.example", CreatedAt: time.Now().UTC()}))

		err = seq.Insert(ctx, &model.URL{ID: id, ShortCode: "dup2", LongURL: "https://b.example", CreatedAt: time.Now().UTC()})
		assert.ErrorIs(t, err, ErrDuplicateID)
	})

	t.Run("duplicate code", func(t *testing.T) {
		_, seq := seqStore(t)

		first, err := seq.NextID(ctx)
		require.NoError(t, err)
		second, err := seq.NextID(ctx)
		require.NoError(t, err)
		require.NoError(t, seq.Insert(ctx, &model.URL{ID: first, ShortCode: "same", LongURL: "https://a.example", CreatedAt: time.Now().UTC()}))

		err = seq.Insert(ctx, &model.URL{ID: second, ShortCode: "same", LongURL: "https://b.example", CreatedAt: time.Now().UTC()})
		assert.ErrorIs(t, err, ErrDuplicateCode)
	})
}

// testTransactor covers the atomic two-phase path.
func testTransactor(t *testing.T, newStore func(t *testing.T) MappingStore) {
	ctx := context.Background()

	txStore := func(t *testing.T) (MappingStore, Transactor) {
		store := newStore(t)
		tx, ok := store.(Transactor)
		require.True(t, ok, "store must implement Transactor")
		return store, tx
	}

	t.Run("commit", func(t *testing.T) {
		store, tx := txStore(t)

		var code string
		err := tx.InTx(ctx, func(w PendingWriter) error {
			id, err := w.CreatePending(ctx, "https://example.com/tx")
			if err != nil {
				return err
			}
			code = encoder.Encode(id)
			return w.Finalize(ctx, id, code)
		})
		require.NoError(t, err)

		got, err := store.FindByCode(ctx, code)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/tx", got.LongURL)
	})

	t.Run("rollback leaves nothing behind", func(t *testing.T) {
		store, tx := txStore(t)
		boom := errors.New("boom")

		var id uint64
		err := tx.InTx(ctx, func(w PendingWriter) error {
			var err error
			id, err = w.CreatePending(ctx, "https://example.com/rollback")
			if err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		assert.ErrorIs(t, store.Finalize(ctx, id, encoder.Encode(id)), ErrNotFound)
	})
}
