package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/samber/lo"

	"telegram-signal-lab/internal/domain"
	"telegram-signal-lab/internal/storage"
)

// SignalStore is the signal view of a Store.
type SignalStore Store

var _ storage.SignalStore = (*SignalStore)(nil)

// InsertIgnore adds a signal unless (channel, message id) exists.
// Returns ErrNotFound if the channel is not registered.
func (s *SignalStore) InsertIgnore(_ context.Context, sig *domain.Signal) (bool, error) {
	if sig == nil || sig.ChannelUsername == "" {
		return false, storage.ErrInvalidInput
	}

	st := (*Store)(s)
	row := *sig
	row.ID, row.CreatedAt = st.nextID(), st.now()
	if row.RiskLevel == "" {
		row.RiskLevel = domain.DefaultRiskLevel
	}
	if row.Category == "" {
		row.Category = domain.DefaultCategory
	}
	key := signalKey{channel: row.ChannelUsername, messageID: row.MessageID}

	var missingChannel bool
	inserted := st.apply(func(d *data) bool {
		if _, ok := d.channels[key.channel]; !ok {
			missingChannel = true
			return false
		}
		if _, exists := d.signals[key]; exists {
			return false
		}
		stored := row
		d.signals[key] = &stored
		return true
	})
	if missingChannel {
		return false, storage.ErrNotFound
	}
	if inserted {
		sig.ID, sig.CreatedAt = row.ID, row.CreatedAt
		sig.RiskLevel, sig.Category = row.RiskLevel, row.Category
	}
	return inserted, nil
}

// List retrieves signals matching the filter, newest created first.
func (s *SignalStore) List(_ context.Context, filter storage.SignalFilter) ([]*domain.Signal, error) {
	if filter.Limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	ticker := strings.ToLower(filter.Ticker)

	s.mu.RLock()
	result := lo.FilterMap(lo.Values(s.data.signals), func(sig *domain.Signal, _ int) (*domain.Signal, bool) {
		if ticker != "" && (sig.Ticker == "" || !strings.Contains(strings.ToLower(sig.Ticker), ticker)) {
			return nil, false
		}
		if filter.Channel != "" && sig.ChannelUsername != filter.Channel {
			return nil, false
		}
		signalCopy := *sig
		return &signalCopy, true
	})
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// Delete removes a signal by ID. A missing ID is not an error.
func (s *SignalStore) Delete(_ context.Context, id int64) error {
	(*Store)(s).apply(func(d *data) bool {
		for k, sig := range d.signals {
			if sig.ID == id {
				delete(d.signals, k)
				return true
			}
		}
		return false
	})
	return nil
}
