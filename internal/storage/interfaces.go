package storage

import (
	"context"

	"telegram-signal-lab/internal/domain"
)

// ChannelStore provides access to telegram_channels storage.
type ChannelStore interface {
	// Upsert inserts a channel or, if the username exists, reactivates it and refreshes the title.
	Upsert(ctx context.Context, username, title string) (*domain.Channel, error)

	// Ensure inserts a channel if the username does not exist. Existing rows are left unchanged.
	Ensure(ctx context.Context, username string) error

	// GetByUsername retrieves a channel. Returns ErrNotFound if not exists.
	GetByUsername(ctx context.Context, username string) (*domain.Channel, error)

	// List retrieves all channels, newest registered first.
	List(ctx context.Context) ([]*domain.Channel, error)

	// ListActive retrieves active channels, oldest registered first.
	ListActive(ctx context.Context) ([]*domain.Channel, error)

	// AdvanceCursor raises last_message_id to messageID. The cursor never decreases.
	// Returns ErrNotFound if the channel does not exist.
	AdvanceCursor(ctx context.Context, username string, messageID int64) error
}

// SignalFilter narrows a signal listing.
type SignalFilter struct {
	Ticker  string // case-insensitive substring, empty for any
	Channel string // exact channel username, empty for any
	Limit   int    // must be positive
}

// SignalStore provides access to investment_signals storage.
type SignalStore interface {
	// InsertIgnore adds a signal unless (channel_username, message_id) exists.
	// Returns true if a row was inserted; ID and CreatedAt are set on insert.
	InsertIgnore(ctx context.Context, s *domain.Signal) (bool, error)

	// List retrieves signals matching the filter, newest created first.
	List(ctx context.Context, filter SignalFilter) ([]*domain.Signal, error)

	// Delete removes a signal by ID. Deleting a missing ID is not an error.
	Delete(ctx context.Context, id int64) error
}

// SessionStore provides access to the singleton telegram_session row.
type SessionStore interface {
	// Get returns the current session. Returns ErrNotFound if none saved yet.
	Get(ctx context.Context) (*domain.Session, error)

	// Save replaces the current session token.
	Save(ctx context.Context, token string) error
}

// Store groups the stores that share one connection or transaction.
type Store interface {
	Channels() ChannelStore
	Signals() SignalStore
	Sessions() SessionStore

	// WithinTx runs fn against a transactional Store. The transaction commits
	// if fn returns nil and rolls back otherwise. Calling WithinTx on a
	// transactional Store opens a nested transaction (savepoint).
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}
