package postgres

import (
	"context"
	"fmt"

	"telegram-signal-lab/internal/domain"
	"telegram-signal-lab/internal/storage"
)

// SessionStore is a PostgreSQL implementation of storage.SessionStore.
// The telegram_session table holds a single row with id = 1.
type SessionStore struct {
	db DBTX
}

// NewSessionStore creates a new PostgreSQL session store.
func NewSessionStore(pool *Pool) *SessionStore {
	return &SessionStore{db: pool}
}

var _ storage.SessionStore = (*SessionStore)(nil)

// Get returns the saved session token.
func (s *SessionStore) Get(ctx context.Context) (*domain.Session, error) {
	row := s.db.QueryRow(ctx, `
		SELECT session_string, updated_at
		FROM telegram_session
		WHERE id = 1
	`)

	var session domain.Session
	if err := row.Scan(&session.Token, &session.UpdatedAt); err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	return &session, nil
}

// Save upserts the singleton session row.
func (s *SessionStore) Save(ctx context.Context, token string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO telegram_session (id, session_string, updated_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE
		SET session_string = EXCLUDED.session_string,
		    updated_at = NOW()
	`, token)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
