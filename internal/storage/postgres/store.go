package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"telegram-signal-lab/internal/storage"
)

// Store implements storage.Store over a pool or a transaction.
type Store struct {
	db       DBTX
	channels *ChannelStore
	signals  *SignalStore
	sessions *SessionStore
}

// NewStore creates a Store backed by the pool.
func NewStore(pool *Pool) *Store {
	return newStore(pool)
}

func newStore(db DBTX) *Store {
	return &Store{
		db:       db,
		channels: &ChannelStore{db: db},
		signals:  &SignalStore{db: db},
		sessions: &SessionStore{db: db},
	}
}

// Compile-time interface check.
var _ storage.Store = (*Store)(nil)

// Channels returns the channel store.
func (s *Store) Channels() storage.ChannelStore { return s.channels }

// Signals returns the signal store.
func (s *Store) Signals() storage.SignalStore { return s.signals }

// Sessions returns the session store.
func (s *Store) Sessions() storage.SessionStore { return s.sessions }

// WithinTx runs fn in a transaction. On a transactional Store, pgx turns the
// nested Begin into a savepoint.
func (s *Store) WithinTx(ctx context.Context, fn func(tx storage.Store) error) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		return fn(newStore(tx))
	})
}
