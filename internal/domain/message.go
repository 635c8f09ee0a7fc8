package domain

import "time"

// Message is a single channel post handed to the extractor.
type Message struct {
	ID   int64
	Text string
	Date time.Time // zero when the producer did not supply one
}

// Session is the persisted message-source session token (singleton row).
type Session struct {
	Token     string
	UpdatedAt time.Time
}
