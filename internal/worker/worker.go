package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/harunnryd/foodiebot/internal/concurrency"
	"github.com/harunnryd/foodiebot/internal/config"
	"github.com/harunnryd/foodiebot/internal/errors"
	"github.com/harunnryd/foodiebot/internal/ingress"
	"github.com/harunnryd/foodiebot/internal/orchestrator"
)

// TurnHandler answers one user message. *orchestrator.Engine implements it.
type TurnHandler interface {
	Handle(ctx context.Context, turn orchestrator.Turn) (string, error)
}

// ReplySender delivers a reply to the platform the event came from.
type ReplySender interface {
	Send(ctx context.Context, source string, sessionID string, content string) error
}

type RuntimeConfig struct {
	Workers         int
	ShutdownTimeout time.Duration
}

// Pool runs a fixed number of goroutines draining the ingress queue. Turns of
// one identity are serialized inside the engine, so any worker may take any event.
type Pool struct {
	mu      sync.RWMutex
	started bool
	quit    chan struct{}
	wg      sync.WaitGroup

	events  <-chan *ingress.Event
	handler TurnHandler
	replies ReplySender

	workers         int
	shutdownTimeout time.Duration
}

func NewPool(events <-chan *ingress.Event, handler TurnHandler, replies ReplySender, runtimeCfg RuntimeConfig) *Pool {
	if runtimeCfg.Workers <= 0 {
		runtimeCfg.Workers = config.DefaultIngressWorkers
	}
	if runtimeCfg.ShutdownTimeout <= 0 {
		d, err := config.DurationOrDefault("", config.DefaultServerShutdownTimeout)
		if err == nil {
			runtimeCfg.ShutdownTimeout = d
		}
	}

	return &Pool{
		events:          events,
		handler:         handler,
		replies:         replies,
		workers:         runtimeCfg.Workers,
		shutdownTimeout: runtimeCfg.ShutdownTimeout,
	}
}

func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("worker pool already started: %w", errors.InvalidInput("worker pool already started"))
	}

	p.started = true
	p.quit = make(chan struct{})

	for i := 0; i < p.workers; i++ {
		id := i
		p.wg.Add(1)
		concurrency.SafeGo(fmt.Sprintf("worker-%d", id), func() {
			defer p.wg.Done()

			slog.Debug("Worker started", "worker", id)
			p.eventLoop(ctx, id)
			slog.Debug("Worker stopped", "worker", id)
		}, func(r interface{}) {
			slog.Error("Worker crashed", "worker", id, "panic", r)
		})
	}

	slog.Info("Worker pool started", "workers", p.workers)
	return nil
}

func (p *Pool) eventLoop(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.quit:
			return
		case evt, ok := <-p.events:
			if !ok {
				return
			}
			p.process(ctx, id, evt)
		}
	}
}

func (p *Pool) process(ctx context.Context, id int, evt *ingress.Event) {
	start := time.Now()

	slog.Info("Processing event",
		"id", evt.ID,
		"worker", id,
		"source", evt.Source,
		"user_id", evt.UserID,
		"type", evt.Type)

	if err := p.processEvent(ctx, evt); err != nil {
		slog.Error("Event processing failed",
			"id", evt.ID,
			"worker", id,
			"category", errors.Category(err),
			"error", err)
		return
	}

	slog.Debug("Event processed",
		"id", evt.ID,
		"duration", time.Since(start))
}

func (p *Pool) processEvent(ctx context.Context, evt *ingress.Event) error {
	if err := validateEvent(evt); err != nil {
		return fmt.Errorf("validate event: %w", err)
	}

	reply, err := p.handler.Handle(ctx, orchestrator.Turn{
		UserID:      evt.UserID,
		DisplayName: evt.DisplayName,
		Text:        evt.Content,
	})
	if err != nil {
		return fmt.Errorf("handle turn: %w", err)
	}

	if p.replies == nil {
		return nil
	}
	if err := p.replies.Send(ctx, evt.Source, evt.SessionID, reply); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}

func validateEvent(evt *ingress.Event) error {
	if evt == nil {
		return errors.InvalidInput("event is nil")
	}

	if evt.UserID == "" {
		return errors.InvalidInput("event user is empty")
	}

	if evt.SessionID == "" {
		return errors.InvalidInput("session ID is empty")
	}

	return nil
}

func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return nil
	}

	slog.Info("Stopping worker pool...")

	close(p.quit)
	p.started = false

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("Worker pool stopped gracefully")
		return nil
	case <-time.After(p.shutdownTimeout):
		slog.Warn("Worker pool shutdown timeout, force stopping")
		return errors.Internal("shutdown timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) Health(ctx context.Context) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.started {
		return errors.Internal("worker pool not started")
	}

	if p.events == nil {
		return errors.Internal("event channel not initialized")
	}

	if p.handler == nil {
		return errors.Internal("turn handler not configured")
	}

	return nil
}
