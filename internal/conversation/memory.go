package conversation

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	fbErrors "github.com/harunnryd/foodiebot/internal/errors"
)

// memoryState holds one identity's conversation. mu guards entries and
// lastActive; dropped marks a state already removed from the map.
type memoryState struct {
	mu         sync.Mutex
	entries    []Entry
	lastActive time.Time
	dropped    bool
}

// MemoryStore keeps conversations in process memory. History is lost on restart.
// The map lock is held only for lookups so identities never wait on each other.
type MemoryStore struct {
	maxEntries int

	mu     sync.RWMutex
	states map[string]*memoryState

	prefsMu sync.RWMutex
	prefs   map[string]map[string]string
}

func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = MaxEntries(0)
	}
	return &MemoryStore{
		maxEntries: maxEntries,
		states:     make(map[string]*memoryState),
		prefs:      make(map[string]map[string]string),
	}
}

func (s *MemoryStore) lookup(id string) *memoryState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[id]
}

func (s *MemoryStore) lookupOrCreate(id string) *memoryState {
	if st := s.lookup(id); st != nil {
		return st
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[id]
	if !ok {
		st = &memoryState{}
		s.states[id] = st
	}
	return st
}

func (s *MemoryStore) History(ctx context.Context, id string) ([]Entry, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	st := s.lookup(id)
	if st == nil {
		return []Entry{}, nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.dropped {
		return []Entry{}, nil
	}
	out := make([]Entry, len(st.entries))
	copy(out, st.entries)
	return out, nil
}

func (s *MemoryStore) Append(ctx context.Context, id string, entries ...Entry) error {
	if err := checkID(id); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	for {
		st := s.lookupOrCreate(id)
		st.mu.Lock()
		if st.dropped {
			// Reset or eviction won the race; retry against a fresh state.
			st.mu.Unlock()
			continue
		}
		now := time.Now()
		for _, e := range entries {
			if e.Timestamp.IsZero() {
				e.Timestamp = now
			}
			st.entries = append(st.entries, e)
			if e.Timestamp.After(st.lastActive) {
				st.lastActive = e.Timestamp
			}
		}
		if start := trimStart(st.entries, s.maxEntries); start > 0 {
			st.entries = append([]Entry(nil), st.entries[start:]...)
		}
		st.mu.Unlock()
		return nil
	}
}

func (s *MemoryStore) Reset(ctx context.Context, id string) (bool, error) {
	if err := checkID(id); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[id]
	if !ok {
		return false, nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	had := len(st.entries) > 0
	st.dropped = true
	delete(s.states, id)
	return had, nil
}

func (s *MemoryStore) Stats(ctx context.Context, id string) (Stats, error) {
	entries, err := s.History(ctx, id)
	if err != nil {
		return Stats{}, err
	}
	return statsOf(entries), nil
}

func (s *MemoryStore) Preferences(ctx context.Context, id string) (map[string]string, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	s.prefsMu.RLock()
	defer s.prefsMu.RUnlock()
	out := make(map[string]string, len(s.prefs[id]))
	for k, v := range s.prefs[id] {
		out[k] = v
	}
	return out, nil
}

// SetPreference stores value under key. An empty value removes the key.
func (s *MemoryStore) SetPreference(ctx context.Context, id, key, value string) error {
	if err := checkID(id); err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fbErrors.InvalidInput("preference key is empty")
	}
	s.prefsMu.Lock()
	defer s.prefsMu.Unlock()
	if value == "" {
		delete(s.prefs[id], key)
		return nil
	}
	if s.prefs[id] == nil {
		s.prefs[id] = make(map[string]string)
	}
	s.prefs[id][key] = value
	return nil
}

func (s *MemoryStore) ActiveUsers(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states), nil
}

// EvictIdle drops conversations untouched since olderThan. Preferences stay.
func (s *MemoryStore) EvictIdle(ctx context.Context, olderThan time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var evicted []string
	for id, st := range s.states {
		st.mu.Lock()
		if st.lastActive.Before(olderThan) {
			st.dropped = true
			delete(s.states, id)
			evicted = append(evicted, id)
		}
		st.mu.Unlock()
	}
	sort.Strings(evicted)
	return evicted, nil
}

func checkID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fbErrors.InvalidInput("conversation identity is empty")
	}
	return nil
}
