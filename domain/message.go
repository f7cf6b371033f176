package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is one persisted chat entry. Immutable once appended.
// ChannelID is carried for forward compatibility; delivery currently
// ignores it (single implicit channel).
type Message struct {
	ID        uuid.UUID
	ChannelID string
	SenderID  uuid.UUID
	Text      string
	Lang      string
	At        time.Time
}

// TypingEvent is ephemeral and never persisted; it exists only as a
// broadcast payload.
type TypingEvent struct {
	Username string
}

// UnknownDisplayName is the display name substituted when a connection
// disconnects without ever having registered.
const UnknownDisplayName = "[unknown]"
