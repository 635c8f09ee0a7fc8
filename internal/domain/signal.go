package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxMessageTextRunes caps the stored message text.
const MaxMessageTextRunes = 1000

// Signal is one investment recommendation extracted from a channel message.
// Corresponds to investment_signals table in PostgreSQL.
// Natural key: (ChannelUsername, MessageID).
type Signal struct {
	ID              int64               `json:"id"`
	ChannelUsername string              `json:"channel_username"`
	MessageID       int64               `json:"telegram_message_id"`
	MessageText     string              `json:"message_text"`
	Ticker          string              `json:"ticker"`      // empty when not extracted
	Direction       Direction           `json:"signal_type"` // empty when not extracted
	EntryPrice      decimal.NullDecimal `json:"entry_price"`
	TargetPrice     decimal.NullDecimal `json:"target_price"`
	StopLoss        decimal.NullDecimal `json:"stop_loss"`
	RiskLevel       RiskLevel           `json:"risk_level"`
	Category        Category            `json:"category"`
	MessageDate     *time.Time          `json:"message_date"`
	CreatedAt       time.Time           `json:"created_at"`
}

// TruncateText shortens text to at most max runes.
func TruncateText(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
