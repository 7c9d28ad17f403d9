package egress

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/harunnryd/foodiebot/internal/adapter"
	"github.com/harunnryd/foodiebot/internal/config"
	"github.com/harunnryd/foodiebot/internal/errors"
)

type Egress interface {
	// Register registers an output adapter
	Register(adapter adapter.OutputAdapter) error

	// Unregister removes an output adapter
	Unregister(name string) error

	// Send delivers content through the adapter named by source, split into
	// chunks the platform accepts.
	Send(ctx context.Context, source string, sessionID string, content string) error

	// Health checks egress health and all registered adapters
	Health(ctx context.Context) error

	// ListAdapters returns all registered adapters
	ListAdapters() []adapter.OutputAdapter
}

type DefaultEgress struct {
	mu       sync.RWMutex
	adapters map[string]adapter.OutputAdapter
}

func NewEgress() Egress {
	return &DefaultEgress{
		adapters: make(map[string]adapter.OutputAdapter),
	}
}

func (e *DefaultEgress) Register(adapter adapter.OutputAdapter) error {
	if adapter == nil {
		return errors.InvalidInput("adapter cannot be nil")
	}

	name := adapter.Name()
	if name == "" {
		return errors.InvalidInput("adapter name cannot be empty")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.adapters[name]; exists {
		return errors.ErrConflict
	}

	e.adapters[name] = adapter
	slog.Info("Egress adapter registered", "name", name)
	return nil
}

func (e *DefaultEgress) Unregister(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.adapters[name]; !exists {
		return errors.NotFound("adapter not found: " + name)
	}

	delete(e.adapters, name)
	slog.Info("Egress adapter unregistered", "name", name)
	return nil
}

func (e *DefaultEgress) Send(ctx context.Context, source string, sessionID string, content string) error {
	if strings.TrimSpace(source) == "" {
		return errors.InvalidInput("reply source missing")
	}

	out, err := e.getAdapter(source)
	if err != nil {
		return err
	}

	chunks := SplitMessage(content, out.MaxMessageLength())
	for i, chunk := range chunks {
		if err := out.Send(ctx, sessionID, chunk); err != nil {
			return errors.Wrap(err, fmt.Sprintf("failed to send response chunk %d/%d", i+1, len(chunks)))
		}
	}

	slog.Debug("Response sent", "session", sessionID, "source", source, "content_length", len(content), "chunks", len(chunks))
	return nil
}

func (e *DefaultEgress) getAdapter(name string) (adapter.OutputAdapter, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	adapter, ok := e.adapters[name]
	if !ok {
		return nil, errors.NotFound("no adapter found for source: " + name)
	}

	return adapter, nil
}

func (e *DefaultEgress) Health(ctx context.Context) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.adapters) == 0 {
		return errors.Internal("no adapters registered")
	}

	var unhealthy []string
	for name, adapter := range e.adapters {
		if err := adapter.Health(ctx); err != nil {
			unhealthy = append(unhealthy, name)
			slog.Warn("Adapter unhealthy", "name", name, "error", err)
		}
	}

	if len(unhealthy) > 0 {
		return errors.Transient(fmt.Sprintf("%d adapter(s) unhealthy: %v", len(unhealthy), unhealthy))
	}

	return nil
}

func (e *DefaultEgress) ListAdapters() []adapter.OutputAdapter {
	e.mu.RLock()
	defer e.mu.RUnlock()

	adapters := make([]adapter.OutputAdapter, 0, len(e.adapters))
	for _, adapter := range e.adapters {
		adapters = append(adapters, adapter)
	}
	return adapters
}

// SplitMessage cuts text into pieces of at most maxLen runes, preferring a
// paragraph break, then a line break, then a space. Empty text yields nothing.
func SplitMessage(text string, maxLen int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if maxLen <= 0 {
		maxLen = config.DefaultMaxMessageLength
	}

	var chunks []string
	for utf8.RuneCountInString(text) > maxLen {
		limit := byteOffset(text, maxLen)
		cut := bestCut(text[:limit])
		if cut <= 0 {
			cut = limit
		}
		chunk := strings.TrimSpace(text[:cut])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

func bestCut(window string) int {
	for _, sep := range []string{"\n\n", "\n", " "} {
		// A break in the first half would waste too much of the chunk.
		if idx := strings.LastIndex(window, sep); idx > len(window)/2 {
			return idx
		}
	}
	return -1
}

// byteOffset returns the byte index just after the first n runes of s.
func byteOffset(s string, n int) int {
	count := 0
	for i := range s {
		if count == n {
			return i
		}
		count++
	}
	return len(s)
}
