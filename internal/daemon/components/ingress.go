package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/harunnryd/foodiebot/internal/config"
	"github.com/harunnryd/foodiebot/internal/daemon"
	"github.com/harunnryd/foodiebot/internal/idempotency"
	"github.com/harunnryd/foodiebot/internal/ingress"
)

type IngressComponent struct {
	ingress     *ingress.Ingress
	keys        *idempotency.Store
	cfg         *config.Config
	initialized bool
	started     bool
	mu          sync.RWMutex
	startTime   time.Time
}

func NewIngressComponent(cfg *config.Config) *IngressComponent {
	return &IngressComponent{
		cfg:         cfg,
		initialized: false,
		started:     false,
	}
}

func (i *IngressComponent) Name() string {
	return "Ingress"
}

func (i *IngressComponent) Dependencies() []string {
	return []string{"Store"}
}

func (i *IngressComponent) Init(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.cfg == nil {
		return fmt.Errorf("ingress config not provided")
	}

	submitTimeout, err := config.DurationOrDefault(i.cfg.Ingress.SubmitTimeout, config.DefaultIngressSubmitTimeout)
	if err != nil {
		return fmt.Errorf("parse ingress submit timeout: %w", err)
	}
	idempotencyTTL, err := config.DurationOrDefault(i.cfg.Ingress.IdempotencyTTL, config.DefaultIngressIdempotencyTTL)
	if err != nil {
		return fmt.Errorf("parse ingress idempotency ttl: %w", err)
	}

	keys, err := idempotency.NewStore(i.cfg.IdempotencyPath())
	if err != nil {
		return fmt.Errorf("open idempotency store: %w", err)
	}

	i.keys = keys
	i.ingress = ingress.NewIngress(
		i.cfg.Ingress.QueueSize,
		ingress.RuntimeConfig{
			SubmitTimeout:  submitTimeout,
			IdempotencyTTL: idempotencyTTL,
		},
		keys,
	)
	i.initialized = true
	slog.Info("Ingress initialized", "component", i.Name(), "queue_size", i.cfg.Ingress.QueueSize, "known_events", keys.Len())
	return nil
}

func (i *IngressComponent) Start(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.initialized {
		return fmt.Errorf("Ingress not initialized")
	}

	i.started = true
	i.startTime = time.Now()
	slog.Info("Ingress started", "component", i.Name())
	return nil
}

func (i *IngressComponent) Stop(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.started {
		slog.Info("Ingress not started, skipping stop", "component", i.Name())
		return nil
	}

	slog.Info("Stopping Ingress...", "component", i.Name())
	if i.ingress != nil {
		if err := i.ingress.Close(); err != nil {
			slog.Warn("Ingress did not drain cleanly", "component", i.Name(), "error", err)
		}
	}
	if err := i.keys.Save(); err != nil {
		slog.Warn("Failed to persist idempotency keys", "component", i.Name(), "error", err)
	}
	i.started = false
	slog.Info("Ingress stopped", "component", i.Name())
	return nil
}

func (i *IngressComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if !i.started {
		return &daemon.ComponentHealth{
			Name:    i.Name(),
			Healthy: false,
			Error:   fmt.Errorf("not started"),
		}, nil
	}

	if err := i.ingress.Health(ctx); err != nil {
		return &daemon.ComponentHealth{
			Name:    i.Name(),
			Healthy: false,
			Error:   err,
		}, nil
	}

	return &daemon.ComponentHealth{
		Name:    i.Name(),
		Healthy: true,
		Error:   nil,
	}, nil
}

func (i *IngressComponent) GetIngress() *ingress.Ingress {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.ingress
}

func (i *IngressComponent) GetKeys() *idempotency.Store {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.keys
}
