package adapter

import (
	"context"
)

// EventHandler receives inbound messages from adapters. metadata carries
// "user_id", "user_name", "display_name" and "event_id" when the platform
// provides them.
type EventHandler func(ctx context.Context, source string, eventType string, sessionID string, content string, metadata map[string]string) error

// InputAdapter defines the interface for adapters that receive events from external platforms
type InputAdapter interface {
	// Name returns the adapter name (e.g. "slack", "telegram", "cli").
	Name() string

	// Start begins listening for events (e.g. starts a server or long-poll).
	// Must respect context cancellation.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the adapter.
	Stop(ctx context.Context) error

	// Health checks if the adapter is healthy and connected.
	Health(ctx context.Context) error
}

// OutputAdapter defines the interface for adapters that send responses to external platforms
type OutputAdapter interface {
	// Name returns the adapter name.
	Name() string

	// Send delivers one message no longer than MaxMessageLength.
	// sessionID maps to platform-specific identifier (channel ID, chat ID, etc.).
	Send(ctx context.Context, sessionID string, content string) error

	// MaxMessageLength is the platform limit in characters.
	MaxMessageLength() int

	// Health checks if the adapter is healthy and can send messages.
	Health(ctx context.Context) error
}

const (
	MetaUserID      = "user_id"
	MetaUserName    = "user_name"
	MetaDisplayName = "display_name"
	MetaEventID     = "event_id"
)
