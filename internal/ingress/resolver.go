package ingress

import (
	"context"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
)

type Resolver interface {
	// ResolveIdentity names whose conversation the event belongs to.
	ResolveIdentity(ctx context.Context, event *Event) (string, error)
	// ResolveSession names where the reply is delivered.
	ResolveSession(ctx context.Context, event *Event) (string, error)
}

type StandardResolver struct{}

func NewStandardResolver() *StandardResolver {
	return &StandardResolver{}
}

// ResolveIdentity prefixes the platform user id with the source so ids from
// different platforms never share a conversation.
func (r *StandardResolver) ResolveIdentity(ctx context.Context, event *Event) (string, error) {
	if event == nil {
		return "", fmt.Errorf("event is nil")
	}
	if event.UserID != "" {
		return event.UserID, nil
	}

	user := strings.TrimSpace(event.Metadata["user_id"])
	if user == "" {
		user = strings.TrimSpace(event.SessionID)
	}
	if user == "" {
		return "", fmt.Errorf("event %s has no sender", event.ID)
	}
	if event.Source == "" {
		return user, nil
	}
	return event.Source + ":" + user, nil
}

func (r *StandardResolver) ResolveSession(ctx context.Context, event *Event) (string, error) {
	if event == nil {
		return "", fmt.Errorf("event is nil")
	}
	if event.SessionID != "" {
		return event.SessionID, nil
	}

	var sessionID string
	switch event.Source {
	case "slack":
		sessionID = event.Metadata["channel_id"]
	case "telegram":
		sessionID = event.Metadata["chat_id"]
	case "cli":
		sessionID = "cli:" + ulid.Make().String()
	}
	if sessionID == "" {
		return "", fmt.Errorf("event %s has no reply target", event.ID)
	}
	return sessionID, nil
}
