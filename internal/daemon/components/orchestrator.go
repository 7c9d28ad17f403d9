package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/harunnryd/foodiebot/internal/config"
	"github.com/harunnryd/foodiebot/internal/daemon"
	"github.com/harunnryd/foodiebot/internal/model"
	"github.com/harunnryd/foodiebot/internal/orchestrator"
	"github.com/harunnryd/foodiebot/internal/tooling"
)

// OrchestratorComponent wires the model gateway, the tool stack and the
// conversation store into a turn engine.
type OrchestratorComponent struct {
	engine    *orchestrator.Engine
	router    *model.DefaultModelRouter
	tools     *tooling.Components
	cfg       *config.Config
	storeComp *StoreComponent
}

func NewOrchestratorComponent(cfg *config.Config, storeComp *StoreComponent) *OrchestratorComponent {
	return &OrchestratorComponent{
		cfg:       cfg,
		storeComp: storeComp,
	}
}

func (o *OrchestratorComponent) Name() string {
	return "Orchestrator"
}

func (o *OrchestratorComponent) Dependencies() []string {
	return []string{"Store"}
}

func (o *OrchestratorComponent) Init(ctx context.Context) error {
	if o.storeComp == nil {
		return fmt.Errorf("required component dependencies not provided")
	}

	db := o.storeComp.GetDB()
	conv := o.storeComp.GetConversation()
	if db == nil || conv == nil {
		return fmt.Errorf("required dependencies not initialized")
	}

	engine, router, tools, err := BuildEngine(ctx, o.cfg, db, conv)
	if err != nil {
		return err
	}
	o.engine = engine
	o.router = router
	o.tools = tools

	slog.Info("Orchestrator initialized", "component", o.Name(), "model", o.cfg.Models.Default, "tools", len(tools.Registry.Names()))
	return nil
}

func (o *OrchestratorComponent) Start(ctx context.Context) error {
	if o.engine == nil {
		return fmt.Errorf("engine not initialized")
	}
	slog.Info("Orchestrator started", "component", o.Name())
	return nil
}

func (o *OrchestratorComponent) Stop(ctx context.Context) error {
	slog.Info("Orchestrator stopped", "component", o.Name())
	return nil
}

func (o *OrchestratorComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	if o.engine == nil {
		return &daemon.ComponentHealth{
			Name:    o.Name(),
			Healthy: false,
			Error:   fmt.Errorf("not initialized"),
		}, nil
	}

	if err := o.router.Health(ctx); err != nil {
		return &daemon.ComponentHealth{
			Name:    o.Name(),
			Healthy: false,
			Error:   err,
		}, nil
	}

	return &daemon.ComponentHealth{
		Name:    o.Name(),
		Healthy: true,
	}, nil
}

func (o *OrchestratorComponent) GetEngine() *orchestrator.Engine {
	return o.engine
}
