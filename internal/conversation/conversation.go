// Package conversation keeps the per-identity message window the orchestrator
// replays to the model, plus the small preferences map surfaced in the prompt.
package conversation

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/harunnryd/foodiebot/internal/config"
	"github.com/harunnryd/foodiebot/internal/model/contract"
	"github.com/harunnryd/foodiebot/internal/store"
)

const (
	ResetDoneMessage  = "Conversation history berhasil direset! Mari mulai dari awal. 😊"
	ResetEmptyMessage = "Belum ada conversation history yang perlu direset."
)

// Entry is one stored message.
type Entry struct {
	Role       string               `json:"role"`
	Content    string               `json:"content"`
	ToolCalls  []*contract.ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string               `json:"tool_call_id,omitempty"`
	Name       string               `json:"name,omitempty"`
	Timestamp  time.Time            `json:"timestamp"`
}

func (e Entry) Message() contract.Message {
	return contract.Message{
		Role:       e.Role,
		Content:    e.Content,
		ToolCalls:  contract.CloneToolCalls(e.ToolCalls),
		ToolCallID: e.ToolCallID,
		Name:       e.Name,
	}
}

func FromMessage(m contract.Message) Entry {
	return Entry{
		Role:       m.Role,
		Content:    m.Content,
		ToolCalls:  contract.CloneToolCalls(m.ToolCalls),
		ToolCallID: m.ToolCallID,
		Name:       m.Name,
		Timestamp:  time.Now(),
	}
}

// Messages converts entries into model messages, oldest first.
func Messages(entries []Entry) []contract.Message {
	out := make([]contract.Message, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Message())
	}
	return out
}

type Stats struct {
	Total          int `json:"total_messages"`
	UserCount      int `json:"user_messages"`
	AssistantCount int `json:"bot_messages"`
}

func statsOf(entries []Entry) Stats {
	s := Stats{Total: len(entries)}
	for _, e := range entries {
		switch e.Role {
		case contract.RoleUser:
			s.UserCount++
		case contract.RoleAssistant:
			s.AssistantCount++
		}
	}
	return s
}

// Store owns conversation state. Every method is safe for concurrent use and
// operations on one identity are serialized.
type Store interface {
	History(ctx context.Context, id string) ([]Entry, error)
	Append(ctx context.Context, id string, entries ...Entry) error
	Reset(ctx context.Context, id string) (bool, error)
	Stats(ctx context.Context, id string) (Stats, error)
	Preferences(ctx context.Context, id string) (map[string]string, error)
	SetPreference(ctx context.Context, id, key, value string) error
	ActiveUsers(ctx context.Context) (int, error)
	EvictIdle(ctx context.Context, olderThan time.Time) ([]string, error)
}

// New builds the backend named by cfg.Backend. db is only used by the sqlite backend.
func New(cfg config.ConversationConfig, db *store.DB) (Store, error) {
	maxEntries := MaxEntries(cfg.MaxHistory)
	switch strings.TrimSpace(cfg.Backend) {
	case "", config.BackendMemory:
		return NewMemoryStore(maxEntries), nil
	case config.BackendSQLite:
		if db == nil {
			return nil, fmt.Errorf("conversation backend %q needs a database", config.BackendSQLite)
		}
		return NewSQLiteStore(db, maxEntries), nil
	default:
		return nil, fmt.Errorf("unknown conversation backend %q", cfg.Backend)
	}
}

// MaxEntries turns a window of exchanges into a message cap.
func MaxEntries(maxHistory int) int {
	if maxHistory <= 0 {
		maxHistory = config.DefaultConversationMaxHistory
	}
	return maxHistory * 2
}

// trimStart returns the index of the first entry to keep so that at most max
// entries remain. Eviction removes whole groups: a user message and every
// non-user message after it. The kept window therefore always starts with a
// user message, and tool results never lose their assistant request. The
// newest group is always kept.
func trimStart(entries []Entry, max int) int {
	start := 0
	for start < len(entries) && entries[start].Role != contract.RoleUser {
		start++
	}
	for max > 0 && len(entries)-start > max {
		next := start + 1
		for next < len(entries) && entries[next].Role != contract.RoleUser {
			next++
		}
		if next >= len(entries) {
			break
		}
		start = next
	}
	return start
}

// PreferenceSummary renders preferences as one prompt line, keys sorted.
func PreferenceSummary(prefs map[string]string) string {
	if len(prefs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(prefs))
	for k, v := range prefs {
		if strings.TrimSpace(v) != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, prefs[k]))
	}
	return strings.Join(parts, ", ")
}
