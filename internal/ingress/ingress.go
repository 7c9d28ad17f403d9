package ingress

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/harunnryd/foodiebot/internal/config"
	"github.com/harunnryd/foodiebot/internal/errors"
	"github.com/harunnryd/foodiebot/internal/idempotency"
)

type RuntimeConfig struct {
	SubmitTimeout     time.Duration
	DrainTimeout      time.Duration
	DrainPollInterval time.Duration
	IdempotencyTTL    time.Duration
}

const (
	defaultDrainTimeout      = 5 * time.Second
	defaultDrainPollInterval = 100 * time.Millisecond
)

// Ingress validates, dedupes and queues inbound events for the worker pool.
type Ingress struct {
	mu                sync.RWMutex
	closed            bool
	queue             chan *Event
	keys              *idempotency.Store
	router            Router
	resolver          Resolver
	submitTimeout     time.Duration
	drainTimeout      time.Duration
	drainPollInterval time.Duration
	idempotencyTTL    time.Duration
}

func NewIngress(queueSize int, runtimeCfg RuntimeConfig, keys *idempotency.Store) *Ingress {
	if queueSize <= 0 {
		queueSize = config.DefaultIngressQueueSize
	}
	if runtimeCfg.SubmitTimeout <= 0 {
		d, err := config.DurationOrDefault("", config.DefaultIngressSubmitTimeout)
		if err == nil {
			runtimeCfg.SubmitTimeout = d
		}
	}
	if runtimeCfg.DrainTimeout <= 0 {
		runtimeCfg.DrainTimeout = defaultDrainTimeout
	}
	if runtimeCfg.DrainPollInterval <= 0 {
		runtimeCfg.DrainPollInterval = defaultDrainPollInterval
	}
	if runtimeCfg.IdempotencyTTL <= 0 {
		d, err := config.DurationOrDefault("", config.DefaultIngressIdempotencyTTL)
		if err == nil {
			runtimeCfg.IdempotencyTTL = d
		}
	}

	return &Ingress{
		queue:             make(chan *Event, queueSize),
		keys:              keys,
		router:            NewStandardRouter(),
		resolver:          NewStandardResolver(),
		submitTimeout:     runtimeCfg.SubmitTimeout,
		drainTimeout:      runtimeCfg.DrainTimeout,
		drainPollInterval: runtimeCfg.DrainPollInterval,
		idempotencyTTL:    runtimeCfg.IdempotencyTTL,
	}
}

// Submit ingests an event and queues it. It returns ErrDuplicateEvent for a
// redelivery and ErrTransient when the queue stays full past the submit timeout.
func (i *Ingress) Submit(ctx context.Context, evt *Event) error {
	if evt == nil {
		return errors.InvalidInput("event is nil")
	}

	slog.Debug("Ingress received event", "id", evt.ID, "type", evt.Type, "source", evt.Source)

	if i.keys != nil && strings.TrimSpace(evt.ExternalID) != "" {
		key := HashKey(GenerateIdempotencyKey(evt.Source, evt.ExternalID))
		if i.keys.CheckAndMark(key, i.idempotencyTTL) {
			slog.Warn("Duplicate event detected", "source", evt.Source, "external_id", evt.ExternalID)
			return errors.ErrDuplicateEvent
		}
	}

	if i.router.Route(ctx, evt) == DestDrop {
		slog.Debug("Event dropped by router", "id", evt.ID)
		return nil
	}

	identity, err := i.resolver.ResolveIdentity(ctx, evt)
	if err != nil {
		return errors.Wrap(errors.InvalidInput(err.Error()), "identity resolution failed")
	}
	evt.UserID = identity

	sess, err := i.resolver.ResolveSession(ctx, evt)
	if err != nil {
		return errors.Wrap(errors.InvalidInput(err.Error()), "session resolution failed")
	}
	evt.SessionID = sess

	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return errors.Transient("ingress is shutting down")
	}

	timer := time.NewTimer(i.submitTimeout)
	defer timer.Stop()
	select {
	case i.queue <- evt:
		slog.Debug("Event queued", "id", evt.ID, "user_id", evt.UserID, "session", evt.SessionID)
		return nil
	case <-timer.C:
		slog.Warn("Queue full, dropping event", "id", evt.ID)
		return errors.Transient("ingress queue full")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HandleAdapterEvent is the adapter callback: it normalizes and submits the
// event. Redeliveries are acknowledged without error so platforms stop retrying.
func (i *Ingress) HandleAdapterEvent(ctx context.Context, source, eventType, sessionID, content string, metadata map[string]string) error {
	evt := FromAdapter(source, eventType, sessionID, content, metadata)
	err := i.Submit(ctx, &evt)
	if stderrors.Is(err, errors.ErrDuplicateEvent) {
		return nil
	}
	return err
}

func (i *Ingress) Queue() <-chan *Event {
	return i.queue
}

// Close stops intake. Queued events get up to the drain timeout to be picked up
// by workers before the channel is closed.
func (i *Ingress) Close() error {
	slog.Info("Ingress shutting down, draining queue")

	drainStart := time.Now()
	remaining := len(i.queue)
	for remaining > 0 && time.Since(drainStart) < i.drainTimeout {
		time.Sleep(i.drainPollInterval)
		now := len(i.queue)
		if now == remaining {
			slog.Warn("Queue drain stalled", "remaining", remaining)
			break
		}
		remaining = now
	}
	if remaining > 0 {
		slog.Warn("Queue drain incomplete", "remaining", remaining)
	}

	i.mu.Lock()
	if !i.closed {
		i.closed = true
		close(i.queue)
	}
	i.mu.Unlock()

	if i.keys != nil {
		if err := i.keys.Save(); err != nil {
			slog.Error("Failed to persist idempotency keys", "error", err)
			return err
		}
	}
	slog.Info("Ingress shutdown complete")
	return nil
}

// Health reports queue pressure.
func (i *Ingress) Health(ctx context.Context) error {
	if i.queue == nil {
		return errors.Internal("queue not initialized")
	}

	usage := float64(len(i.queue)) / float64(cap(i.queue))
	slog.Debug("Ingress health metrics", "queue_len", len(i.queue), "queue_cap", cap(i.queue), "usage", usage)

	if usage > 0.9 {
		return errors.Transient("queue nearly full")
	}
	return nil
}
