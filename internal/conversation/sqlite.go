package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/harunnryd/foodiebot/internal/concurrency"
	fbErrors "github.com/harunnryd/foodiebot/internal/errors"
	"github.com/harunnryd/foodiebot/internal/logger"
	"github.com/harunnryd/foodiebot/internal/model/contract"
	"github.com/harunnryd/foodiebot/internal/store"
)

const (
	PrefBudget   = "budget"
	PrefLocation = "location"
)

// SQLiteStore persists conversations in the conversations table so history
// survives restarts. Budget and location preferences live on the user row and
// are shared with the update_user_preferences tool.
type SQLiteStore struct {
	db         *store.DB
	maxEntries int
	keys       *concurrency.KeyedMutex
}

func NewSQLiteStore(db *store.DB, maxEntries int) *SQLiteStore {
	if maxEntries <= 0 {
		maxEntries = MaxEntries(0)
	}
	return &SQLiteStore{
		db:         db,
		maxEntries: maxEntries,
		keys:       concurrency.NewKeyedMutex(),
	}
}

func (s *SQLiteStore) History(ctx context.Context, id string) ([]Entry, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	rows, err := s.db.LoadConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, entryFromRow(ctx, r))
	}
	return entries[trimStart(entries, s.maxEntries):], nil
}

func (s *SQLiteStore) Append(ctx context.Context, id string, entries ...Entry) error {
	if err := checkID(id); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	s.keys.Lock(id)
	defer s.keys.Unlock(id)

	rows := make([]store.ConversationRow, 0, len(entries))
	for _, e := range entries {
		r, err := rowFromEntry(id, e)
		if err != nil {
			return err
		}
		rows = append(rows, r)
	}
	if err := s.db.AppendConversation(ctx, rows); err != nil {
		return err
	}
	return s.trim(ctx, id)
}

func (s *SQLiteStore) trim(ctx context.Context, id string) error {
	rows, err := s.db.LoadConversation(ctx, id)
	if err != nil {
		return err
	}
	entries := make([]Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, Entry{Role: r.Role})
	}
	start := trimStart(entries, s.maxEntries)
	if start == 0 {
		return nil
	}
	if start >= len(rows) {
		_, err = s.db.ClearConversation(ctx, id)
		return err
	}
	_, err = s.db.DeleteConversationBefore(ctx, id, rows[start].ID)
	return err
}

func (s *SQLiteStore) Reset(ctx context.Context, id string) (bool, error) {
	if err := checkID(id); err != nil {
		return false, err
	}
	s.keys.Lock(id)
	defer s.keys.Unlock(id)

	n, err := s.db.ClearConversation(ctx, id)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) Stats(ctx context.Context, id string) (Stats, error) {
	entries, err := s.History(ctx, id)
	if err != nil {
		return Stats{}, err
	}
	return statsOf(entries), nil
}

func (s *SQLiteStore) Preferences(ctx context.Context, id string) (map[string]string, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	user, err := s.db.GetUser(ctx, id)
	if errors.Is(err, fbErrors.ErrNotFound) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}

	prefs := map[string]string{}
	if len(user.Preferences) > 0 {
		if err := json.Unmarshal(user.Preferences, &prefs); err != nil {
			logger.From(ctx).Warn("Ignoring malformed preferences", "user_id", id, "error", err)
			prefs = map[string]string{}
		}
	}
	if user.DefaultBudget > 0 {
		prefs[PrefBudget] = strconv.Itoa(user.DefaultBudget)
	}
	if user.DefaultLocation != "" {
		prefs[PrefLocation] = user.DefaultLocation
	}
	return prefs, nil
}

// SetPreference writes budget and location to the user row and any other key
// to the user's preferences document.
func (s *SQLiteStore) SetPreference(ctx context.Context, id, key, value string) error {
	if err := checkID(id); err != nil {
		return err
	}
	switch strings.TrimSpace(key) {
	case PrefBudget:
		budget, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || budget <= 0 {
			return fbErrors.InvalidInput(fmt.Sprintf("budget must be a positive number, got %q", value))
		}
		_, err = s.db.UpdatePreferences(ctx, id, &budget, nil)
		return err
	case PrefLocation:
		_, err := s.db.UpdatePreferences(ctx, id, nil, &value)
		return err
	default:
		return s.db.SetPreference(ctx, id, key, value)
	}
}

func (s *SQLiteStore) ActiveUsers(ctx context.Context) (int, error) {
	stats, err := s.db.ConversationStats(ctx)
	if err != nil {
		return 0, err
	}
	return len(stats), nil
}

func (s *SQLiteStore) EvictIdle(ctx context.Context, olderThan time.Time) ([]string, error) {
	return s.db.DeleteIdleConversations(ctx, olderThan)
}

func rowFromEntry(id string, e Entry) (store.ConversationRow, error) {
	row := store.ConversationRow{
		UserKey:    id,
		Role:       e.Role,
		Content:    e.Content,
		ToolCallID: e.ToolCallID,
		Name:       e.Name,
		Timestamp:  e.Timestamp,
	}
	if len(e.ToolCalls) > 0 {
		raw, err := json.Marshal(e.ToolCalls)
		if err != nil {
			return row, fmt.Errorf("encode tool calls: %w", err)
		}
		row.ToolCalls = string(raw)
	}
	return row, nil
}

func entryFromRow(ctx context.Context, r store.ConversationRow) Entry {
	e := Entry{
		Role:       r.Role,
		Content:    r.Content,
		ToolCallID: r.ToolCallID,
		Name:       r.Name,
		Timestamp:  r.Timestamp,
	}
	if r.ToolCalls != "" {
		var calls []*contract.ToolCall
		if err := json.Unmarshal([]byte(r.ToolCalls), &calls); err != nil {
			logger.From(ctx).Warn("Dropping undecodable tool calls", "row", r.ID, "error", err)
		} else {
			e.ToolCalls = calls
		}
	}
	return e
}
