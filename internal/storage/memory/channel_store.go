package memory

import (
	"context"
	"sort"

	"github.com/samber/lo"

	"telegram-signal-lab/internal/domain"
	"telegram-signal-lab/internal/storage"
)

// ChannelStore is the channel view of a Store.
type ChannelStore Store

var _ storage.ChannelStore = (*ChannelStore)(nil)

// Upsert inserts a channel or reactivates it and refreshes its title.
func (s *ChannelStore) Upsert(ctx context.Context, username, title string) (*domain.Channel, error) {
	if username == "" {
		return nil, storage.ErrInvalidInput
	}

	st := (*Store)(s)
	id, addedAt := st.nextID(), st.now()
	st.apply(func(d *data) bool {
		if c, ok := d.channels[username]; ok {
			c.IsActive = true
			c.Title = title
			return true
		}
		d.channels[username] = &domain.Channel{
			ID:       id,
			Username: username,
			Title:    title,
			IsActive: true,
			AddedAt:  addedAt,
		}
		return true
	})

	return s.GetByUsername(ctx, username)
}

// Ensure inserts a channel titled after its username unless it exists.
func (s *ChannelStore) Ensure(_ context.Context, username string) error {
	if username == "" {
		return storage.ErrInvalidInput
	}

	st := (*Store)(s)
	id, addedAt := st.nextID(), st.now()
	st.apply(func(d *data) bool {
		if _, ok := d.channels[username]; ok {
			return false
		}
		d.channels[username] = &domain.Channel{
			ID:       id,
			Username: username,
			Title:    username,
			IsActive: true,
			AddedAt:  addedAt,
		}
		return true
	})
	return nil
}

// GetByUsername retrieves a channel. Returns ErrNotFound if not exists.
func (s *ChannelStore) GetByUsername(_ context.Context, username string) (*domain.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.data.channels[username]
	if !ok {
		return nil, storage.ErrNotFound
	}
	channelCopy := *c
	return &channelCopy, nil
}

// List retrieves all channels, newest registered first.
func (s *ChannelStore) List(_ context.Context) ([]*domain.Channel, error) {
	result := s.snapshot(func(*domain.Channel) bool { return true })
	sort.Slice(result, func(i, j int) bool { return channelBefore(result[j], result[i]) })
	return result, nil
}

// ListActive retrieves active channels, oldest registered first.
func (s *ChannelStore) ListActive(_ context.Context) ([]*domain.Channel, error) {
	result := s.snapshot(func(c *domain.Channel) bool { return c.IsActive })
	sort.Slice(result, func(i, j int) bool { return channelBefore(result[i], result[j]) })
	return result, nil
}

// AdvanceCursor raises last_message_id; it never moves backwards.
func (s *ChannelStore) AdvanceCursor(_ context.Context, username string, messageID int64) error {
	s.mu.RLock()
	_, ok := s.data.channels[username]
	s.mu.RUnlock()
	if !ok {
		return storage.ErrNotFound
	}

	(*Store)(s).apply(func(d *data) bool {
		c, ok := d.channels[username]
		if !ok || messageID <= c.LastMessageID {
			return false
		}
		c.LastMessageID = messageID
		return true
	})
	return nil
}

// SetActive toggles a channel's active flag. Not part of storage.ChannelStore;
// used by tests and local tooling.
func (s *ChannelStore) SetActive(username string, active bool) {
	(*Store)(s).apply(func(d *data) bool {
		c, ok := d.channels[username]
		if !ok || c.IsActive == active {
			return false
		}
		c.IsActive = active
		return true
	})
}

func (s *ChannelStore) snapshot(keep func(*domain.Channel) bool) []*domain.Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lo.FilterMap(lo.Values(s.data.channels), func(c *domain.Channel, _ int) (*domain.Channel, bool) {
		if !keep(c) {
			return nil, false
		}
		channelCopy := *c
		return &channelCopy, true
	})
}

// channelBefore orders by added_at, then id.
func channelBefore(a, b *domain.Channel) bool {
	if !a.AddedAt.Equal(b.AddedAt) {
		return a.AddedAt.Before(b.AddedAt)
	}
	return a.ID < b.ID
}
