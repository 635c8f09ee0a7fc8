package ingestion

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"telegram-signal-lab/internal/domain"
	"telegram-signal-lab/internal/extract"
	"telegram-signal-lab/internal/observability"
	"telegram-signal-lab/internal/storage"
)

// BatchResult summarizes one stored batch of channel messages.
type BatchResult struct {
	Messages int   // messages in the batch
	Parsed   int   // messages that yielded a signal
	Stored   int   // signal rows newly inserted
	MaxID    int64 // highest message id, 0 for an empty batch
}

// StoreBatch extracts signals from msgs, stores them with insert-or-ignore
// semantics and advances the channel cursor to the highest message id.
// Messages are processed in ascending id order. The channel must exist.
func StoreBatch(
	ctx context.Context,
	store storage.Store,
	extractor *extract.Extractor,
	channel string,
	msgs []domain.Message,
	entryPoint string,
) (BatchResult, error) {
	result := BatchResult{Messages: len(msgs)}
	if len(msgs) == 0 {
		return result, nil
	}

	sorted := make([]domain.Message, len(msgs))
	copy(sorted, msgs)
	SortMessages(sorted)

	for _, msg := range sorted {
		if strings.TrimSpace(msg.Text) == "" {
			continue
		}

		sig := extractor.ExtractMessage(channel, msg)
		observability.RecordExtraction(sig != nil)
		if sig == nil {
			continue
		}
		result.Parsed++

		inserted, err := store.Signals().InsertIgnore(ctx, sig)
		if err != nil {
			return result, fmt.Errorf("store signal for message %d: %w", msg.ID, err)
		}
		if inserted {
			result.Stored++
		}
	}

	result.MaxID = lo.MaxBy(sorted, func(a, b domain.Message) bool { return a.ID > b.ID }).ID
	if err := store.Channels().AdvanceCursor(ctx, channel, result.MaxID); err != nil {
		return result, fmt.Errorf("advance cursor to %d: %w", result.MaxID, err)
	}

	observability.RecordSignalsStored(entryPoint, result.Stored)
	return result, nil
}
