package ingress

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

type EventType string

const (
	TypeUserMessage EventType = "user_message"
	TypeCommand     EventType = "command" // "/" or "!" prefixed
)

// Event is the normalized form of every inbound chat message.
type Event struct {
	ID         string `json:"id"`          // ULID
	ExternalID string `json:"external_id"` // platform id used for dedupe
	Source     string `json:"source"`      // "telegram", "slack", "cli"

	// SessionID is where the reply goes: chat id, channel id, terminal.
	SessionID string `json:"session_id"`
	// UserID is the conversation identity, resolved from Source and the sender.
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`

	Type    EventType `json:"type"`
	Content string    `json:"content"`

	Metadata  map[string]string `json:"metadata"` // "user_id", "user_name", "thread_ts", ...
	CreatedAt time.Time         `json:"created_at"`
}

// NewEvent creates a normalized event with a fresh ULID.
func NewEvent(source string, eventType EventType, sessionID, content string, metadata map[string]string) Event {
	return Event{
		ID:        ulid.Make().String(),
		Source:    source,
		Type:      eventType,
		SessionID: sessionID,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
}

// FromAdapter builds an event from what an input adapter reports. The
// platform event id becomes the dedupe key and the display name falls back
// to the user name.
func FromAdapter(source, eventType, sessionID, content string, metadata map[string]string) Event {
	t := TypeUserMessage
	if eventType == string(TypeCommand) {
		t = TypeCommand
	}
	evt := NewEvent(source, t, sessionID, content, metadata)
	evt.ExternalID = metadata["event_id"]
	evt.DisplayName = metadata["display_name"]
	if evt.DisplayName == "" {
		evt.DisplayName = metadata["user_name"]
	}
	return evt
}

// GenerateIdempotencyKey creates a deterministic key for the event.
func GenerateIdempotencyKey(source, externalID string) string {
	return fmt.Sprintf("%s:%s", source, externalID)
}

// HashKey returns a SHA256 hash of the idempotency key.
func HashKey(key string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(key)))
}
