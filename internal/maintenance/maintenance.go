package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/harunnryd/foodiebot/internal/config"
	"github.com/harunnryd/foodiebot/internal/errors"

	"github.com/robfig/cron/v3"
)

// KeyPruner drops expired idempotency keys. *idempotency.Store implements it.
type KeyPruner interface {
	Prune() (int, error)
}

// IdleEvicter forgets conversations untouched since a cutoff. conversation.Store implements it.
type IdleEvicter interface {
	EvictIdle(ctx context.Context, olderThan time.Time) ([]string, error)
}

type Options struct {
	PruneSchedule   string
	EvictSchedule   string
	IdleTTL         time.Duration
	ShutdownTimeout time.Duration
	Now             func() time.Time
}

// OptionsFromConfig reads the maintenance schedules and the conversation idle TTL.
func OptionsFromConfig(cfg config.Config) (Options, error) {
	idle, err := config.DurationOrDefault(cfg.Conversation.IdleTTL, config.DefaultConversationIdleTTL)
	if err != nil {
		return Options{}, fmt.Errorf("parse conversation.idle_ttl: %w", err)
	}
	shutdown, err := config.DurationOrDefault(cfg.Server.ShutdownTimeout, config.DefaultServerShutdownTimeout)
	if err != nil {
		return Options{}, fmt.Errorf("parse server.shutdown_timeout: %w", err)
	}
	return Options{
		PruneSchedule:   cfg.Maintenance.PruneSchedule,
		EvictSchedule:   cfg.Maintenance.EvictSchedule,
		IdleTTL:         idle,
		ShutdownTimeout: shutdown,
	}, nil
}

// Scheduler runs the housekeeping jobs on cron schedules. An empty schedule
// disables its job.
type Scheduler struct {
	keys KeyPruner
	conv IdleEvicter
	opts Options

	mu      sync.RWMutex
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
}

func New(keys KeyPruner, conv IdleEvicter, opts Options) (*Scheduler, error) {
	for _, spec := range []string{opts.PruneSchedule, opts.EvictSchedule} {
		if strings.TrimSpace(spec) == "" {
			continue
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			return nil, errors.InvalidInput(fmt.Sprintf("invalid cron schedule %q: %v", spec, err))
		}
	}
	if opts.IdleTTL <= 0 {
		d, err := config.DurationOrDefault("", config.DefaultConversationIdleTTL)
		if err == nil {
			opts.IdleTTL = d
		}
	}
	if opts.ShutdownTimeout <= 0 {
		d, err := config.DurationOrDefault("", config.DefaultServerShutdownTimeout)
		if err == nil {
			opts.ShutdownTimeout = d
		}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scheduler{keys: keys, conv: conv, opts: opts}, nil
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	c := cron.New()
	if spec := strings.TrimSpace(s.opts.PruneSchedule); spec != "" && s.keys != nil {
		if _, err := c.AddFunc(spec, func() { s.RunPrune(s.ctx) }); err != nil {
			return fmt.Errorf("schedule prune: %w", err)
		}
	}
	if spec := strings.TrimSpace(s.opts.EvictSchedule); spec != "" && s.conv != nil {
		if _, err := c.AddFunc(spec, func() { s.RunEvict(s.ctx) }); err != nil {
			return fmt.Errorf("schedule evict: %w", err)
		}
	}
	c.Start()

	s.cron = c
	s.running = true
	slog.Info("Maintenance started", "jobs", len(c.Entries()))
	return nil
}

func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	c := s.cron
	s.mu.Unlock()

	s.cancel()
	done := c.Stop()

	select {
	case <-done.Done():
		slog.Info("Maintenance stopped gracefully")
		return nil
	case <-time.After(s.opts.ShutdownTimeout):
		slog.Warn("Maintenance shutdown timeout, force stopping")
		return errors.Internal("shutdown timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) Health(ctx context.Context) error {
	if !s.IsRunning() {
		return errors.Internal("maintenance not running")
	}
	return nil
}

func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// RunPrune drops expired idempotency keys once.
func (s *Scheduler) RunPrune(ctx context.Context) int {
	if s.keys == nil {
		return 0
	}
	removed, err := s.keys.Prune()
	if err != nil {
		slog.Error("Idempotency prune failed", "error", err)
		return removed
	}
	if removed > 0 {
		slog.Info("Idempotency keys pruned", "removed", removed)
	}
	return removed
}

// RunEvict drops conversations idle longer than the configured TTL once.
func (s *Scheduler) RunEvict(ctx context.Context) []string {
	if s.conv == nil {
		return nil
	}
	cutoff := s.opts.Now().Add(-s.opts.IdleTTL)
	evicted, err := s.conv.EvictIdle(ctx, cutoff)
	if err != nil {
		slog.Error("Idle conversation eviction failed", "error", err)
		return nil
	}
	if len(evicted) > 0 {
		slog.Info("Idle conversations evicted", "count", len(evicted), "cutoff", cutoff.Format(time.RFC3339))
	}
	return evicted
}
