package ingestion

import (
	"sort"

	"telegram-signal-lab/internal/domain"
)

// SortMessages orders messages by ID ascending. Equal IDs keep their input order.
func SortMessages(msgs []domain.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].ID < msgs[j].ID
	})
}
