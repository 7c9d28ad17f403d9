package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/harunnryd/foodiebot/internal/adapter"
	"github.com/harunnryd/foodiebot/internal/config"
	"github.com/harunnryd/foodiebot/internal/daemon"
	"github.com/harunnryd/foodiebot/internal/egress"
	"github.com/harunnryd/foodiebot/internal/worker"
)

// OutputSource lists the adapters replies can be delivered through.
// *adapter.RuntimeManager implements it.
type OutputSource interface {
	OutputAdapters() []adapter.OutputAdapter
}

// WorkersComponent drains the ingress queue through the turn engine and
// delivers replies through egress to whichever adapter the event came from.
type WorkersComponent struct {
	pool             *worker.Pool
	egress           egress.Egress
	ingressComp      *IngressComponent
	orchestratorComp *OrchestratorComponent
	adapters         OutputSource
	cfg              *config.Config
	initialized      bool
	started          bool
	mu               sync.RWMutex
	startTime        time.Time
}

func NewWorkersComponent(cfg *config.Config, ingComp *IngressComponent, orchComp *OrchestratorComponent, adapters OutputSource) *WorkersComponent {
	return &WorkersComponent{
		ingressComp:      ingComp,
		orchestratorComp: orchComp,
		adapters:         adapters,
		cfg:              cfg,
		initialized:      false,
		started:          false,
	}
}

func (w *WorkersComponent) Name() string {
	return "Workers"
}

func (w *WorkersComponent) Dependencies() []string {
	return []string{"Ingress", "Orchestrator"}
}

func (w *WorkersComponent) Init(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.ingressComp == nil || w.orchestratorComp == nil {
		return fmt.Errorf("required component dependencies not provided")
	}
	if w.cfg == nil {
		return fmt.Errorf("config not provided")
	}

	ing := w.ingressComp.GetIngress()
	engine := w.orchestratorComp.GetEngine()
	if ing == nil || engine == nil {
		return fmt.Errorf("required dependencies not initialized")
	}

	shutdownTimeout, err := config.DurationOrDefault(w.cfg.Server.ShutdownTimeout, config.DefaultServerShutdownTimeout)
	if err != nil {
		return fmt.Errorf("parse server shutdown timeout: %w", err)
	}

	out := egress.NewEgress()
	if w.adapters != nil {
		for _, a := range w.adapters.OutputAdapters() {
			if err := out.Register(a); err != nil {
				return fmt.Errorf("register output adapter %s: %w", a.Name(), err)
			}
		}
	}
	w.egress = out

	w.pool = worker.NewPool(ing.Queue(), engine, out, worker.RuntimeConfig{
		Workers:         w.cfg.Ingress.Workers,
		ShutdownTimeout: shutdownTimeout,
	})

	w.initialized = true
	slog.Info("Workers initialized", "component", w.Name(), "workers", w.cfg.Ingress.Workers)
	return nil
}

func (w *WorkersComponent) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.initialized {
		return fmt.Errorf("Workers not initialized")
	}

	if err := w.pool.Start(ctx); err != nil {
		return fmt.Errorf("start worker pool: %w", err)
	}

	w.started = true
	w.startTime = time.Now()
	slog.Info("Workers started", "component", w.Name())
	return nil
}

func (w *WorkersComponent) Stop(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		slog.Info("Workers not started, skipping stop", "component", w.Name())
		return nil
	}

	slog.Info("Stopping Workers...", "component", w.Name())
	err := w.pool.Stop(ctx)
	w.started = false
	if err != nil {
		return err
	}
	slog.Info("Workers stopped", "component", w.Name())
	return nil
}

func (w *WorkersComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if !w.initialized {
		return &daemon.ComponentHealth{
			Name:    w.Name(),
			Healthy: false,
			Error:   fmt.Errorf("not initialized"),
		}, nil
	}

	if !w.started {
		return &daemon.ComponentHealth{
			Name:    w.Name(),
			Healthy: false,
			Error:   fmt.Errorf("not started"),
		}, nil
	}

	if err := w.pool.Health(ctx); err != nil {
		return &daemon.ComponentHealth{
			Name:    w.Name(),
			Healthy: false,
			Error:   err,
		}, nil
	}

	return &daemon.ComponentHealth{
		Name:    w.Name(),
		Healthy: true,
		Error:   nil,
	}, nil
}

func (w *WorkersComponent) GetEgress() egress.Egress {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.egress
}
