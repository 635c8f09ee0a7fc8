package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-signal-lab/internal/domain"
	"telegram-signal-lab/internal/storage"
)

func newSignal(channel string, messageID int64, ticker string) *domain.Signal {
	return &domain.Signal{
		ChannelUsername: channel,
		MessageID:       messageID,
		MessageText:     "BUY " + ticker,
		Ticker:          ticker,
		Direction:       domain.DirectionBuy,
		EntryPrice:      decimal.NewNullDecimal(decimal.NewFromInt(10)),
	}
}

func TestChannelStore_UpsertAndGet(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	created, err := store.Channels().Upsert(ctx, "crypto", "Crypto")
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.True(t, created.IsActive)

	require.NoError(t, store.Channels().AdvanceCursor(ctx, "crypto", 9))
	store.Channels().(*ChannelStore).SetActive("crypto", false)

	again, err := store.Channels().Upsert(ctx, "crypto", "Crypto 2")
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
	assert.True(t, again.IsActive)
	assert.Equal(t, "Crypto 2", again.Title)
	assert.Equal(t, int64(9), again.LastMessageID)

	// Mutating the returned copy must not affect the store.
	again.Title = "mutated"
	got, err := store.Channels().GetByUsername(ctx, "crypto")
	require.NoError(t, err)
	assert.Equal(t, "Crypto 2", got.Title)

	_, err = store.Channels().GetByUsername(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.Channels().Upsert(ctx, "", "x")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestChannelStore_EnsureAndOrdering(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_, err := store.Channels().Upsert(ctx, "a", "A")
	require.NoError(t, err)
	require.NoError(t, store.Channels().Ensure(ctx, "b"))
	require.NoError(t, store.Channels().Ensure(ctx, "a"))
	_, err = store.Channels().Upsert(ctx, "c", "C")
	require.NoError(t, err)
	store.Channels().(*ChannelStore).SetActive("b", false)

	a, err := store.Channels().GetByUsername(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "A", a.Title, "Ensure leaves existing rows unchanged")

	all, err := store.Channels().List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{all[0].Username, all[1].Username, all[2].Username})

	active, err := store.Channels().ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "a", active[0].Username)
	assert.Equal(t, "c", active[1].Username)
}

func TestChannelStore_AdvanceCursor(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_, err := store.Channels().Upsert(ctx, "mono", "Mono")
	require.NoError(t, err)

	require.NoError(t, store.Channels().AdvanceCursor(ctx, "mono", 100))
	require.NoError(t, store.Channels().AdvanceCursor(ctx, "mono", 40))

	got, err := store.Channels().GetByUsername(ctx, "mono")
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.LastMessageID)

	assert.ErrorIs(t, store.Channels().AdvanceCursor(ctx, "missing", 1), storage.ErrNotFound)
}

func TestSignalStore_InsertIgnore(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_, err := store.Signals().InsertIgnore(ctx, newSignal("ghost", 1, "AAPL"))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.Channels().Ensure(ctx, "stocks"))

	first := newSignal("stocks", 1, "AAPL")
	inserted, err := store.Signals().InsertIgnore(ctx, first)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NotZero(t, first.ID)
	assert.Equal(t, domain.DefaultRiskLevel, first.RiskLevel)
	assert.Equal(t, domain.DefaultCategory, first.Category)

	dup := newSignal("stocks", 1, "MSFT")
	inserted, err = store.Signals().InsertIgnore(ctx, dup)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Zero(t, dup.ID)

	got, err := store.Signals().List(ctx, storage.SignalFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "AAPL", got[0].Ticker)
}

func TestSignalStore_ListFiltersAndOrder(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Channels().Ensure(ctx, "alpha"))
	require.NoError(t, store.Channels().Ensure(ctx, "beta"))

	for _, s := range []*domain.Signal{
		newSignal("alpha", 1, "AAPL"),
		newSignal("alpha", 2, "BTC"),
		newSignal("beta", 1, "AAPL"),
		newSignal("beta", 2, ""),
	} {
		_, err := store.Signals().InsertIgnore(ctx, s)
		require.NoError(t, err)
	}

	got, err := store.Signals().List(ctx, storage.SignalFilter{Ticker: "aa", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = store.Signals().List(ctx, storage.SignalFilter{Ticker: "AAPL", Channel: "alpha", Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].MessageID)

	got, err = store.Signals().List(ctx, storage.SignalFilter{Limit: 3})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "beta", got[0].ChannelUsername)
	assert.Equal(t, int64(2), got[0].MessageID)

	_, err = store.Signals().List(ctx, storage.SignalFilter{Limit: 0})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestSignalStore_Delete(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Channels().Ensure(ctx, "stocks"))
	sig := newSignal("stocks", 1, "AAPL")
	_, err := store.Signals().InsertIgnore(ctx, sig)
	require.NoError(t, err)

	require.NoError(t, store.Signals().Delete(ctx, sig.ID))
	require.NoError(t, store.Signals().Delete(ctx, 12345))

	got, err := store.Signals().List(ctx, storage.SignalFilter{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSessionStore(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_, err := store.Sessions().Get(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.Sessions().Save(ctx, "one"))
	require.NoError(t, store.Sessions().Save(ctx, "two"))

	got, err := store.Sessions().Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "two", got.Token)
}

func TestStore_WithinTx(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(tx storage.Store) error {
		_, err := tx.Channels().Upsert(ctx, "rolled", "Rolled")
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	_, err = store.Channels().GetByUsername(ctx, "rolled")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = store.WithinTx(ctx, func(tx storage.Store) error {
		if _, err := tx.Channels().Upsert(ctx, "kept", "Kept"); err != nil {
			return err
		}

		nested := tx.WithinTx(ctx, func(inner storage.Store) error {
			if err := inner.Channels().Ensure(ctx, "dropped"); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, nested, boom)

		require.NoError(t, tx.WithinTx(ctx, func(inner storage.Store) error {
			return inner.Channels().AdvanceCursor(ctx, "kept", 7)
		}))

		// Uncommitted writes are invisible outside the transaction.
		_, err := store.Channels().GetByUsername(ctx, "kept")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		return tx.Sessions().Save(ctx, "token")
	})
	require.NoError(t, err)

	kept, err := store.Channels().GetByUsername(ctx, "kept")
	require.NoError(t, err)
	assert.Equal(t, int64(7), kept.LastMessageID)

	_, err = store.Channels().GetByUsername(ctx, "dropped")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	session, err := store.Sessions().Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token", session.Token)
}

func TestStore_WithinTxPreservesConcurrentWrites(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Channels().Ensure(ctx, "shared"))

	err := store.WithinTx(ctx, func(tx storage.Store) error {
		// Written outside the transaction while it is open.
		_, err := store.Signals().InsertIgnore(ctx, newSignal("shared", 1, "AAPL"))
		require.NoError(t, err)

		_, err = tx.Signals().InsertIgnore(ctx, newSignal("shared", 2, "BTC"))
		return err
	})
	require.NoError(t, err)

	got, err := store.Signals().List(ctx, storage.SignalFilter{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	require.NoError(t, store.Channels().Ensure(ctx, "busy"))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, _ = store.Signals().InsertIgnore(ctx, newSignal("busy", id%10, "AAPL"))
			_, _ = store.Signals().List(ctx, storage.SignalFilter{Limit: 5})
		}(int64(i))
	}
	wg.Wait()

	got, err := store.Signals().List(ctx, storage.SignalFilter{Limit: 100})
	require.NoError(t, err)
	assert.Len(t, got, 10)
}
