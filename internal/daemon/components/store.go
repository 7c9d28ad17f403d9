package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/harunnryd/foodiebot/internal/config"
	"github.com/harunnryd/foodiebot/internal/conversation"
	"github.com/harunnryd/foodiebot/internal/daemon"
	"github.com/harunnryd/foodiebot/internal/store"
)

const (
	dataDirLockTimeout = 2 * time.Second
	dataDirLockRetry   = 100 * time.Millisecond
)

// StoreComponent owns the data directory: its lock, the SQLite database and
// the conversation store built on top of it.
type StoreComponent struct {
	cfg         *config.Config
	lock        *store.DirLock
	db          *store.DB
	conv        conversation.Store
	initialized bool
	started     bool
	mu          sync.RWMutex
	startTime   time.Time
}

func NewStoreComponent(cfg *config.Config) *StoreComponent {
	return &StoreComponent{cfg: cfg}
}

func (s *StoreComponent) Name() string {
	return "Store"
}

func (s *StoreComponent) Dependencies() []string {
	return []string{}
}

func (s *StoreComponent) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("Store init cancelled: %w", ctx.Err())
	default:
	}

	if s.cfg == nil {
		return fmt.Errorf("config not provided")
	}

	lock, err := store.LockDataDir(ctx, s.cfg.Server.DataDir, dataDirLockTimeout, dataDirLockRetry)
	if err != nil {
		return fmt.Errorf("data dir %s is locked by another instance: %w", s.cfg.Server.DataDir, err)
	}

	db, err := store.Open(ctx, s.cfg.DatabasePath())
	if err != nil {
		lock.Unlock()
		return fmt.Errorf("open database: %w", err)
	}
	seeded, err := db.Seed(ctx, false)
	if err != nil {
		db.Close()
		lock.Unlock()
		return fmt.Errorf("seed database: %w", err)
	}
	if seeded > 0 {
		slog.Info("Database seeded", "restaurants", seeded)
	}

	conv, err := conversation.New(s.cfg.Conversation, db)
	if err != nil {
		db.Close()
		lock.Unlock()
		return fmt.Errorf("open conversation store: %w", err)
	}

	s.lock = lock
	s.db = db
	s.conv = conv
	s.initialized = true
	slog.Info("Store initialized", "component", s.Name(), "db", db.Path(), "conversation_backend", s.cfg.Conversation.Backend)
	return nil
}

func (s *StoreComponent) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return fmt.Errorf("Store not initialized")
	}

	s.started = true
	s.startTime = time.Now()
	slog.Info("Store started", "component", s.Name())
	return nil
}

func (s *StoreComponent) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		slog.Info("Store not initialized, skipping stop", "component", s.Name())
		return nil
	}

	slog.Info("Stopping Store...", "component", s.Name())
	if err := s.db.Close(); err != nil {
		slog.Warn("Failed to close database", "error", err)
	}
	s.lock.Unlock()
	s.initialized = false
	s.started = false
	slog.Info("Store stopped", "component", s.Name())
	return nil
}

func (s *StoreComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return &daemon.ComponentHealth{
			Name:    s.Name(),
			Healthy: false,
			Error:   fmt.Errorf("not initialized"),
		}, nil
	}

	if !s.started {
		return &daemon.ComponentHealth{
			Name:    s.Name(),
			Healthy: false,
			Error:   fmt.Errorf("not started"),
		}, nil
	}

	if !s.lock.IsLocked() {
		return &daemon.ComponentHealth{
			Name:    s.Name(),
			Healthy: false,
			Error:   fmt.Errorf("lock not held"),
		}, nil
	}

	if _, err := s.db.SchemaVersion(ctx); err != nil {
		return &daemon.ComponentHealth{
			Name:    s.Name(),
			Healthy: false,
			Error:   fmt.Errorf("database unreachable: %w", err),
		}, nil
	}

	return &daemon.ComponentHealth{
		Name:    s.Name(),
		Healthy: true,
	}, nil
}

func (s *StoreComponent) GetDB() *store.DB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db
}

func (s *StoreComponent) GetConversation() conversation.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conv
}
