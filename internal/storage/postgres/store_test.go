package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-signal-lab/internal/storage"
)

func TestStore_WithinTxCommits(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewStore(pool)

	err := store.WithinTx(ctx, func(tx storage.Store) error {
		if _, err := tx.Channels().Upsert(ctx, "committed", "Committed"); err != nil {
			return err
		}
		return tx.Sessions().Save(ctx, "token")
	})
	require.NoError(t, err)

	_, err = store.Channels().GetByUsername(ctx, "committed")
	assert.NoError(t, err)
	session, err := store.Sessions().Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token", session.Token)
}

func TestStore_WithinTxRollsBack(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewStore(pool)
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(tx storage.Store) error {
		if _, err := tx.Channels().Upsert(ctx, "rolled", "Rolled"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.Channels().GetByUsername(ctx, "rolled")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_NestedWithinTxIsolatesFailure(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewStore(pool)

	err := store.WithinTx(ctx, func(tx storage.Store) error {
		if _, err := tx.Channels().Upsert(ctx, "kept", "Kept"); err != nil {
			return err
		}

		nestedErr := tx.WithinTx(ctx, func(inner storage.Store) error {
			if _, err := inner.Channels().Upsert(ctx, "dropped", "Dropped"); err != nil {
				return err
			}
			return errors.New("channel failed")
		})
		assert.Error(t, nestedErr)

		// The outer transaction stays usable after the savepoint rollback.
		return tx.Channels().AdvanceCursor(ctx, "kept", 5)
	})
	require.NoError(t, err)

	kept, err := store.Channels().GetByUsername(ctx, "kept")
	require.NoError(t, err)
	assert.Equal(t, int64(5), kept.LastMessageID)

	_, err = store.Channels().GetByUsername(ctx, "dropped")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
