// Package telegram reads channel posts through the Telegram Bot API.
//
// The bot must be an administrator of every watched channel. Posts arrive as
// channel_post updates; Connect drains pending updates into a per-channel
// buffer and the session token carries the update offset between passes.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"telegram-signal-lab/internal/domain"
	"telegram-signal-lab/internal/ingestion"
	"telegram-signal-lab/internal/logging"
)

const (
	updatesPageSize = 100
	maxDrainPages   = 50
)

// Options configures a Source.
type Options struct {
	Token       string
	APIEndpoint string       // Default: tgbotapi.APIEndpoint
	HTTPClient  *http.Client // Default: 30s timeout
	Logger      *zap.Logger
}

// Source implements ingestion.Source over the Bot API.
type Source struct {
	opts   Options
	logger *zap.Logger

	mu     sync.Mutex
	api    *tgbotapi.BotAPI
	offset int
	posts  map[string][]domain.Message // keyed by lower-cased channel username
}

var _ ingestion.Source = (*Source)(nil)

// NewSource creates a Source. Returns ErrNotConfigured without a bot token.
func NewSource(opts Options) (*Source, error) {
	if opts.Token == "" {
		return nil, fmt.Errorf("telegram bot token: %w", domain.ErrNotConfigured)
	}
	if opts.APIEndpoint == "" {
		opts.APIEndpoint = tgbotapi.APIEndpoint
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Source{opts: opts, logger: logging.OrNop(opts.Logger)}, nil
}

type sessionState struct {
	Offset int `json:"offset"`
}

// Connect authenticates the bot and buffers pending channel posts starting at
// the offset stored in session. An unreadable session starts from scratch.
func (s *Source) Connect(ctx context.Context, session string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var state sessionState
	if session != "" {
		if err := json.Unmarshal([]byte(session), &state); err != nil {
			s.logger.Warn("discarding unreadable telegram session", zap.Error(err))
			state = sessionState{}
		}
	}

	api, err := tgbotapi.NewBotAPIWithClient(s.opts.Token, s.opts.APIEndpoint, s.opts.HTTPClient)
	if err != nil {
		return fmt.Errorf("%w: authenticate bot: %w", domain.ErrSourceUnavailable, err)
	}

	s.api = api
	s.offset = state.Offset
	s.posts = make(map[string][]domain.Message)

	return s.drain(ctx)
}

// drain pulls channel_post updates until none are pending.
func (s *Source) drain(ctx context.Context) error {
	for page := 0; page < maxDrainPages; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		updates, err := s.api.GetUpdates(tgbotapi.UpdateConfig{
			Offset:         s.offset,
			Limit:          updatesPageSize,
			AllowedUpdates: []string{"channel_post"},
		})
		if err != nil {
			return fmt.Errorf("%w: get updates: %w", domain.ErrSourceUnavailable, err)
		}
		if len(updates) == 0 {
			return nil
		}

		for _, u := range updates {
			s.offset = max(s.offset, u.UpdateID+1)
			s.buffer(u.ChannelPost)
		}
		s.logger.Debug("buffered telegram updates", zap.Int("count", len(updates)), zap.Int("offset", s.offset))
	}
	return nil
}

func (s *Source) buffer(post *tgbotapi.Message) {
	if post == nil || post.Chat == nil || post.Chat.UserName == "" {
		return
	}

	text := post.Text
	if text == "" {
		text = post.Caption
	}

	key := strings.ToLower(post.Chat.UserName)
	s.posts[key] = append(s.posts[key], domain.Message{
		ID:   int64(post.MessageID),
		Text: text,
		Date: time.Unix(int64(post.Date), 0).UTC(),
	})
}

// ResolveChannel looks the channel up by its public username.
func (s *Source) ResolveChannel(ctx context.Context, username string) (ingestion.ChannelRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.api == nil {
		return ingestion.ChannelRef{}, fmt.Errorf("%w: not connected", domain.ErrSourceUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return ingestion.ChannelRef{}, err
	}

	chat, err := s.api.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{SuperGroupUsername: "@" + username},
	})
	if err != nil {
		return ingestion.ChannelRef{}, fmt.Errorf("get chat @%s: %w", username, err)
	}

	return ingestion.ChannelRef{Username: username, ChatID: chat.ID, Title: chat.Title}, nil
}

// FetchMessages returns buffered posts newer than afterID, newest first.
func (s *Source) FetchMessages(_ context.Context, ref ingestion.ChannelRef, afterID int64, limit int) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.api == nil {
		return nil, fmt.Errorf("%w: not connected", domain.ErrSourceUnavailable)
	}

	newer := lo.Filter(s.posts[strings.ToLower(ref.Username)], func(m domain.Message, _ int) bool {
		return m.ID > afterID
	})
	ingestion.SortMessages(newer)
	newer = lo.Reverse(newer)

	if limit > 0 && len(newer) > limit {
		newer = newer[:limit]
	}
	return newer, nil
}

// Session returns the update offset as an opaque token.
func (s *Source) Session() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, _ := json.Marshal(sessionState{Offset: s.offset})
	return string(data)
}

// Close drops the connection and any buffered posts.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.api = nil
	s.posts = nil
	return nil
}
