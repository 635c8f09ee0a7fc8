package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"telegram-signal-lab/internal/domain"
	"telegram-signal-lab/internal/storage"
)

const channelColumns = `id, channel_username, channel_title, is_active, last_message_id, added_at`

// ChannelStore implements storage.ChannelStore using PostgreSQL.
type ChannelStore struct {
	db DBTX
}

// NewChannelStore creates a new ChannelStore.
func NewChannelStore(pool *Pool) *ChannelStore {
	return &ChannelStore{db: pool}
}

// Compile-time interface check.
var _ storage.ChannelStore = (*ChannelStore)(nil)

// Upsert inserts a channel or reactivates it and refreshes its title.
func (s *ChannelStore) Upsert(ctx context.Context, username, title string) (*domain.Channel, error) {
	if username == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `
		INSERT INTO telegram_channels (channel_username, channel_title)
		VALUES ($1, $2)
		ON CONFLICT (channel_username) DO UPDATE
		SET is_active = TRUE,
		    channel_title = EXCLUDED.channel_title
		RETURNING ` + channelColumns

	c, err := scanChannel(s.db.QueryRow(ctx, query, username, title))
	if err != nil {
		return nil, fmt.Errorf("upsert channel: %w", err)
	}
	return c, nil
}

// Ensure inserts a channel titled after its username unless it exists.
func (s *ChannelStore) Ensure(ctx context.Context, username string) error {
	if username == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO telegram_channels (channel_username, channel_title)
		VALUES ($1, $1)
		ON CONFLICT (channel_username) DO NOTHING
	`, username)
	if err != nil {
		return fmt.Errorf("ensure channel: %w", err)
	}
	return nil
}

// GetByUsername retrieves a channel. Returns ErrNotFound if not exists.
func (s *ChannelStore) GetByUsername(ctx context.Context, username string) (*domain.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM telegram_channels WHERE channel_username = $1`

	c, err := scanChannel(s.db.QueryRow(ctx, query, username))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get channel by username: %w", err)
	}
	return c, nil
}

// List retrieves all channels, newest registered first.
func (s *ChannelStore) List(ctx context.Context) ([]*domain.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM telegram_channels ORDER BY added_at DESC, id DESC`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	return scanChannels(rows)
}

// ListActive retrieves active channels, oldest registered first.
func (s *ChannelStore) ListActive(ctx context.Context) ([]*domain.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM telegram_channels WHERE is_active ORDER BY added_at ASC, id ASC`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active channels: %w", err)
	}
	defer rows.Close()

	return scanChannels(rows)
}

// AdvanceCursor raises last_message_id; it never moves backwards.
func (s *ChannelStore) AdvanceCursor(ctx context.Context, username string, messageID int64) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE telegram_channels
		SET last_message_id = GREATEST(last_message_id, $2)
		WHERE channel_username = $1
	`, username, messageID)
	if err != nil {
		return fmt.Errorf("advance channel cursor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanChannel scans a single row into a Channel.
func scanChannel(row pgx.Row) (*domain.Channel, error) {
	var c domain.Channel
	err := row.Scan(&c.ID, &c.Username, &c.Title, &c.IsActive, &c.LastMessageID, &c.AddedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// scanChannels scans multiple rows into a slice of Channel.
func scanChannels(rows pgx.Rows) ([]*domain.Channel, error) {
	channels := []*domain.Channel{}

	for rows.Next() {
		c, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan channel row: %w", err)
		}
		channels = append(channels, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channel rows: %w", err)
	}

	return channels, nil
}
