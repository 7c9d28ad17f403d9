package components

import (
	"context"
	"fmt"

	"github.com/harunnryd/foodiebot/internal/config"
	"github.com/harunnryd/foodiebot/internal/conversation"
	"github.com/harunnryd/foodiebot/internal/model"
	"github.com/harunnryd/foodiebot/internal/orchestrator"
	"github.com/harunnryd/foodiebot/internal/store"
	"github.com/harunnryd/foodiebot/internal/tooling"
)

// BuildEngine assembles a turn engine over db and conv. The daemon and the
// one-shot CLI commands share it so both run the same tool loop.
func BuildEngine(ctx context.Context, cfg *config.Config, db *store.DB, conv conversation.Store) (*orchestrator.Engine, *model.DefaultModelRouter, *tooling.Components, error) {
	if cfg == nil {
		return nil, nil, nil, fmt.Errorf("config not provided")
	}

	router, err := model.NewModelRouter(cfg.Models)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create model router: %w", err)
	}

	requestTimeout, err := config.DurationOrDefault(cfg.Models.RequestTimeout, config.DefaultModelRequestTimeout)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parse model request timeout: %w", err)
	}
	gateway := model.NewGateway(router, model.GatewayOptions{
		Model:       cfg.Models.Default,
		Temperature: cfg.Models.Temperature,
		MaxTokens:   cfg.Models.MaxTokens,
		Timeout:     requestTimeout,
	})

	tools, err := tooling.Build(ctx, cfg, db, router)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("build tools: %w", err)
	}

	opts, err := orchestrator.OptionsFromConfig(*cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	return orchestrator.NewEngine(gateway, tools.Runner, conv, opts), router, tools, nil
}
