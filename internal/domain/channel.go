package domain

import (
	"strings"
	"time"
)

// Channel is a Telegram channel watched for signals.
// Corresponds to telegram_channels table in PostgreSQL.
type Channel struct {
	ID            int64     `json:"id"`
	Username      string    `json:"channel_username"` // unique, without leading @
	Title         string    `json:"channel_title"`
	IsActive      bool      `json:"is_active"`
	LastMessageID int64     `json:"last_message_id"` // resume cursor, never decreases
	AddedAt       time.Time `json:"added_at"`
}

// NormalizeUsername trims whitespace and strips every @ from a channel username.
func NormalizeUsername(username string) string {
	return strings.ReplaceAll(strings.TrimSpace(username), "@", "")
}
