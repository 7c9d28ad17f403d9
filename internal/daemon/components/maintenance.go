package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/harunnryd/foodiebot/internal/config"
	"github.com/harunnryd/foodiebot/internal/daemon"
	"github.com/harunnryd/foodiebot/internal/maintenance"
)

type MaintenanceComponent struct {
	scheduler   *maintenance.Scheduler
	cfg         *config.Config
	ingressComp *IngressComponent
	storeComp   *StoreComponent
	initialized bool
	started     bool
}

func NewMaintenanceComponent(cfg *config.Config, ingComp *IngressComponent, storeComp *StoreComponent) *MaintenanceComponent {
	return &MaintenanceComponent{
		cfg:         cfg,
		ingressComp: ingComp,
		storeComp:   storeComp,
	}
}

func (m *MaintenanceComponent) Name() string {
	return "Maintenance"
}

func (m *MaintenanceComponent) Dependencies() []string {
	return []string{"Ingress", "Store"}
}

func (m *MaintenanceComponent) Init(ctx context.Context) error {
	if m.cfg == nil || m.ingressComp == nil || m.storeComp == nil {
		return fmt.Errorf("required component dependencies not provided")
	}

	keys := m.ingressComp.GetKeys()
	conv := m.storeComp.GetConversation()
	if keys == nil || conv == nil {
		return fmt.Errorf("required dependencies not initialized")
	}

	opts, err := maintenance.OptionsFromConfig(*m.cfg)
	if err != nil {
		return err
	}
	scheduler, err := maintenance.New(keys, conv, opts)
	if err != nil {
		return fmt.Errorf("create maintenance scheduler: %w", err)
	}
	m.scheduler = scheduler
	m.initialized = true
	slog.Info("Maintenance initialized", "component", m.Name(), "prune", opts.PruneSchedule, "evict", opts.EvictSchedule)
	return nil
}

func (m *MaintenanceComponent) Start(ctx context.Context) error {
	if !m.initialized {
		return fmt.Errorf("Maintenance not initialized")
	}
	if err := m.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start maintenance scheduler: %w", err)
	}
	m.started = true
	slog.Info("Maintenance started", "component", m.Name())
	return nil
}

func (m *MaintenanceComponent) Stop(ctx context.Context) error {
	if !m.started {
		slog.Info("Maintenance not started, skipping stop", "component", m.Name())
		return nil
	}
	err := m.scheduler.Stop(ctx)
	m.started = false
	if err != nil {
		return err
	}
	slog.Info("Maintenance stopped", "component", m.Name())
	return nil
}

func (m *MaintenanceComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	if !m.initialized {
		return &daemon.ComponentHealth{Name: m.Name(), Healthy: false, Error: fmt.Errorf("not initialized")}, nil
	}
	if err := m.scheduler.Health(ctx); err != nil {
		return &daemon.ComponentHealth{Name: m.Name(), Healthy: false, Error: err}, nil
	}
	return &daemon.ComponentHealth{Name: m.Name(), Healthy: true}, nil
}
