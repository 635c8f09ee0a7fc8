package ingestion

import (
	"context"

	"telegram-signal-lab/internal/domain"
)

// ChannelRef identifies a resolved channel at the message source.
type ChannelRef struct {
	Username string
	ChatID   int64
	Title    string
}

// Source provides channel messages from an external messaging service.
type Source interface {
	// Connect authenticates using a previously saved session token.
	// An empty token starts a fresh session.
	Connect(ctx context.Context, session string) error

	// ResolveChannel looks up a channel by username.
	ResolveChannel(ctx context.Context, username string) (ChannelRef, error)

	// FetchMessages returns up to limit messages with ID greater than afterID.
	// Messages may be unordered; the agent sorts them.
	FetchMessages(ctx context.Context, ref ChannelRef, afterID int64, limit int) ([]domain.Message, error)

	// Session returns the token to persist for the next Connect.
	Session() string

	// Close releases the connection.
	Close() error
}
