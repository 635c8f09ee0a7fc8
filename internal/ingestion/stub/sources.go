// Package stub provides an in-memory message source for tests and local runs.
package stub

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"telegram-signal-lab/internal/domain"
	"telegram-signal-lab/internal/ingestion"
)

// ErrUnknownChannel is returned when resolving a channel the stub does not hold.
var ErrUnknownChannel = errors.New("unknown channel")

// Source returns fixed in-memory messages per channel.
// Messages can be intentionally unordered to test sorting.
// Implements ingestion.Source.
type Source struct {
	mu       sync.Mutex
	messages map[string][]domain.Message // keyed by username
	failing  map[string]error

	// ConnectErr, when set, is returned by Connect.
	ConnectErr error

	connected   bool
	session     string
	connects    int
	lastSession string
}

// NewSource creates a stub source with the given messages per channel.
func NewSource(messages map[string][]domain.Message) *Source {
	m := make(map[string][]domain.Message, len(messages))
	for k, v := range messages {
		m[k] = append([]domain.Message(nil), v...)
	}
	return &Source{messages: m, failing: make(map[string]error)}
}

var _ ingestion.Source = (*Source)(nil)

// Add appends messages to a channel.
func (s *Source) Add(username string, msgs ...domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[username] = append(s.messages[username], msgs...)
}

// Fail makes every fetch for username return err.
func (s *Source) Fail(username string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[username] = err
}

// Connect records the session token and issues a new one.
func (s *Source) Connect(_ context.Context, session string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ConnectErr != nil {
		return s.ConnectErr
	}
	s.connects++
	s.lastSession = session
	s.session = "stub-session-" + strconv.Itoa(s.connects)
	s.connected = true
	return nil
}

// ResolveChannel returns a reference for a known channel.
func (s *Source) ResolveChannel(_ context.Context, username string) (ingestion.ChannelRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return ingestion.ChannelRef{}, errors.New("not connected")
	}
	if _, ok := s.messages[username]; !ok {
		return ingestion.ChannelRef{}, fmt.Errorf("%s: %w", username, ErrUnknownChannel)
	}
	return ingestion.ChannelRef{Username: username, Title: username}, nil
}

// FetchMessages returns copies of up to limit messages newer than afterID,
// newest first, the way a channel history API pages.
func (s *Source) FetchMessages(_ context.Context, ref ingestion.ChannelRef, afterID int64, limit int) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failing[ref.Username]; err != nil {
		return nil, err
	}

	var newer []domain.Message
	for _, m := range s.messages[ref.Username] {
		if m.ID > afterID {
			newer = append(newer, m)
		}
	}

	// Newest first, then cap.
	ingestion.SortMessages(newer)
	result := make([]domain.Message, 0, len(newer))
	for i := len(newer) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, newer[i])
	}
	return result, nil
}

// Session returns the current session token.
func (s *Source) Session() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Close marks the source disconnected.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

// LastSession returns the token passed to the most recent Connect.
func (s *Source) LastSession() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSession
}
