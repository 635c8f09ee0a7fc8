package memory

import (
	"context"

	"telegram-signal-lab/internal/domain"
	"telegram-signal-lab/internal/storage"
)

// SessionStore is the session view of a Store.
type SessionStore Store

var _ storage.SessionStore = (*SessionStore)(nil)

// Get returns the saved session token.
func (s *SessionStore) Get(_ context.Context) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.data.session == nil {
		return nil, storage.ErrNotFound
	}
	sessionCopy := *s.data.session
	return &sessionCopy, nil
}

// Save replaces the session token.
func (s *SessionStore) Save(_ context.Context, token string) error {
	st := (*Store)(s)
	session := domain.Session{Token: token, UpdatedAt: st.now()}
	st.apply(func(d *data) bool {
		saved := session
		d.session = &saved
		return true
	})
	return nil
}
