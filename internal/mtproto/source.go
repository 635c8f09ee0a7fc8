// Package mtproto reads channel history as a Telegram user account.
//
// Unlike the Bot API, a user account can read any public channel, so the
// agent fetches messages newer than the cursor with messages.getHistory.
// The session token is the gotd session JSON; a first login needs the phone
// number and the one-time code sent to it, plus the 2FA password if set.
package mtproto

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gotd/td/session"
	"github.com/gotd/td/tg"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"telegram-signal-lab/internal/domain"
	"telegram-signal-lab/internal/ingestion"
	"telegram-signal-lab/internal/logging"
)

// maxHistoryLimit is the largest page messages.getHistory returns.
const maxHistoryLimit = 100

var (
	// ErrLoginRequired is returned when the session is not authorized and no
	// phone number is configured.
	ErrLoginRequired = errors.New("telegram login required: set TELEGRAM_PHONE")

	// ErrCodeRequired is returned when Telegram sent a login code that is
	// not configured yet.
	ErrCodeRequired = errors.New("telegram login code sent: set TELEGRAM_CODE and retry")

	// ErrNotChannel is returned when a username resolves to a user or group.
	ErrNotChannel = errors.New("not a channel")
)

// Options configures a Source.
type Options struct {
	APIID    int
	APIHash  string
	Phone    string
	Code     string // one-time login code, first login only
	Password string // two-step verification password
	Logger   *zap.Logger
}

// client is the part of the Telegram API the Source uses.
type client interface {
	ResolveUsername(ctx context.Context, username string) (tg.InputPeerClass, error)
	History(ctx context.Context, req *tg.MessagesGetHistoryRequest) (tg.MessagesMessagesClass, error)
}

// dialFunc connects and authenticates using storage. The returned stop
// function disconnects.
type dialFunc func(ctx context.Context, opts Options, storage session.Storage) (client, func() error, error)

// Source implements ingestion.Source over MTProto.
type Source struct {
	opts   Options
	logger *zap.Logger
	dial   dialFunc

	mu      sync.Mutex
	storage *session.StorageMemory
	api     client
	stop    func() error
	peers   map[string]*tg.InputPeerChannel // keyed by lower-cased username
}

var _ ingestion.Source = (*Source)(nil)

// NewSource creates a Source. Returns ErrNotConfigured without API credentials.
func NewSource(opts Options) (*Source, error) {
	if opts.APIID <= 0 || opts.APIHash == "" {
		return nil, fmt.Errorf("telegram api id/hash: %w", domain.ErrNotConfigured)
	}
	opts.Logger = logging.OrNop(opts.Logger)
	return &Source{opts: opts, logger: opts.Logger, dial: dialTelegram}, nil
}

// Connect starts a client from the saved session and logs in if needed.
// A session that is not a gotd session (for example a Bot API offset) is
// discarded with a warning.
func (s *Source) Connect(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		return fmt.Errorf("%w: already connected", domain.ErrSourceUnavailable)
	}

	storage := new(session.StorageMemory)
	if token != "" {
		if validSession(token) {
			if err := storage.StoreSession(ctx, []byte(token)); err != nil {
				return fmt.Errorf("load session: %w", err)
			}
		} else {
			s.logger.Warn("discarding unreadable telegram session")
		}
	}

	api, stop, err := s.dial(ctx, s.opts, storage)
	if err != nil {
		return fmt.Errorf("%w: connect: %w", domain.ErrSourceUnavailable, err)
	}

	s.storage = storage
	s.api = api
	s.stop = stop
	s.peers = make(map[string]*tg.InputPeerChannel)
	return nil
}

// ResolveChannel resolves a public channel username to an input peer.
func (s *Source) ResolveChannel(ctx context.Context, username string) (ingestion.ChannelRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, err := s.resolve(ctx, username)
	if err != nil {
		return ingestion.ChannelRef{}, err
	}
	return ingestion.ChannelRef{Username: username, ChatID: ch.ChannelID, Title: username}, nil
}

func (s *Source) resolve(ctx context.Context, username string) (*tg.InputPeerChannel, error) {
	if s.api == nil {
		return nil, fmt.Errorf("%w: not connected", domain.ErrSourceUnavailable)
	}

	key := strings.ToLower(username)
	if ch, ok := s.peers[key]; ok {
		return ch, nil
	}

	p, err := s.api.ResolveUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("resolve @%s: %w", username, err)
	}
	ch, ok := p.(*tg.InputPeerChannel)
	if !ok {
		return nil, fmt.Errorf("@%s: %w", username, ErrNotChannel)
	}

	s.peers[key] = ch
	return ch, nil
}

// FetchMessages returns up to limit messages with ID above afterID, newest
// first. Service messages are skipped.
func (s *Source) FetchMessages(ctx context.Context, ref ingestion.ChannelRef, afterID int64, limit int) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, err := s.resolve(ctx, ref.Username)
	if err != nil {
		return nil, err
	}

	if limit <= 0 || limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	res, err := s.api.History(ctx, &tg.MessagesGetHistoryRequest{
		Peer:  ch,
		Limit: limit,
		MinID: int(afterID),
	})
	if err != nil {
		return nil, fmt.Errorf("get history @%s: %w", ref.Username, err)
	}

	return lo.FilterMap(historyMessages(res), func(m tg.MessageClass, _ int) (domain.Message, bool) {
		msg, ok := m.(*tg.Message)
		if !ok || int64(msg.ID) <= afterID {
			return domain.Message{}, false
		}
		return domain.Message{
			ID:   int64(msg.ID),
			Text: msg.Message,
			Date: time.Unix(int64(msg.Date), 0).UTC(),
		}, true
	}), nil
}

func historyMessages(res tg.MessagesMessagesClass) []tg.MessageClass {
	switch r := res.(type) {
	case *tg.MessagesMessages:
		return r.Messages
	case *tg.MessagesMessagesSlice:
		return r.Messages
	case *tg.MessagesChannelMessages:
		return r.Messages
	default:
		return nil
	}
}

// Session returns the current gotd session JSON, or "" before a login.
func (s *Source) Session() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.storage == nil {
		return ""
	}
	data, err := s.storage.LoadSession(context.Background())
	if err != nil {
		return ""
	}
	return string(data)
}

// Close disconnects. The session stays readable until the next Connect.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stop := s.stop
	s.api, s.stop, s.peers = nil, nil, nil
	if stop == nil {
		return nil
	}
	return stop()
}

// validSession reports whether token looks like a gotd session file.
func validSession(token string) bool {
	var file struct {
		Version int
		Data    json.RawMessage
	}
	if err := json.Unmarshal([]byte(token), &file); err != nil {
		return false
	}
	return file.Version > 0 && len(file.Data) > 0
}
