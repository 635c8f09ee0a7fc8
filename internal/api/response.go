package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"telegram-signal-lab/internal/domain"
	"telegram-signal-lab/internal/observability"
)

// respond writes a JSON body and counts the request.
func respond(c *gin.Context, operation string, status int, body any) {
	observability.RecordAPIRequest(operation, status)
	c.JSON(status, body)
}

func respondError(c *gin.Context, operation string, status int, message string) {
	respond(c, operation, status, gin.H{"error": message})
}

// signalResponse renders absent optional fields as null.
type signalResponse struct {
	ID              int64               `json:"id"`
	ChannelUsername string              `json:"channel_username"`
	MessageID       int64               `json:"telegram_message_id"`
	MessageText     string              `json:"message_text"`
	Ticker          *string             `json:"ticker"`
	SignalType      *string             `json:"signal_type"`
	EntryPrice      decimal.NullDecimal `json:"entry_price"`
	TargetPrice     decimal.NullDecimal `json:"target_price"`
	StopLoss        decimal.NullDecimal `json:"stop_loss"`
	RiskLevel       domain.RiskLevel    `json:"risk_level"`
	Category        domain.Category     `json:"category"`
	MessageDate     *time.Time          `json:"message_date"`
	CreatedAt       time.Time           `json:"created_at"`
}

func newSignalResponse(s *domain.Signal) signalResponse {
	return signalResponse{
		ID:              s.ID,
		ChannelUsername: s.ChannelUsername,
		MessageID:       s.MessageID,
		MessageText:     s.MessageText,
		Ticker:          optional(s.Ticker),
		SignalType:      optional(string(s.Direction)),
		EntryPrice:      s.EntryPrice,
		TargetPrice:     s.TargetPrice,
		StopLoss:        s.StopLoss,
		RiskLevel:       s.RiskLevel,
		Category:        s.Category,
		MessageDate:     s.MessageDate,
		CreatedAt:       s.CreatedAt,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
