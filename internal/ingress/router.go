package ingress

import (
	"context"
	"strings"
)

type DestinationType int

const (
	DestPipeline DestinationType = iota // queue for a worker
	DestDrop                            // nothing to answer
)

// Router classifies an event before it is queued.
type Router interface {
	Route(ctx context.Context, event *Event) DestinationType
}

type StandardRouter struct{}

func NewStandardRouter() *StandardRouter {
	return &StandardRouter{}
}

func (r *StandardRouter) Route(ctx context.Context, event *Event) DestinationType {
	content := strings.TrimSpace(event.Content)
	if content == "" {
		return DestDrop
	}
	if IsCommand(content) {
		event.Type = TypeCommand
	} else if event.Type == "" {
		event.Type = TypeUserMessage
	}
	return DestPipeline
}

// IsCommand reports whether text starts with a command prefix and a name.
func IsCommand(text string) bool {
	if len(text) < 2 || (text[0] != '/' && text[0] != '!') {
		return false
	}
	next := text[1]
	return next != ' ' && next != '/' && next != '!'
}
