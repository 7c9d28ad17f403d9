package tooling

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/harunnryd/foodiebot/internal/config"
	"github.com/harunnryd/foodiebot/internal/store"
	"github.com/harunnryd/foodiebot/internal/tool"
	_ "github.com/harunnryd/foodiebot/internal/tool/builtin"

	"github.com/philippgille/chromem-go"
)

// Components is the tool side of the assistant.
type Components struct {
	Registry *tool.Registry
	Runner   *tool.Runner
	Menu     *store.MenuIndex
}

// Embedder produces embeddings for a named model. *model.DefaultModelRouter implements it.
type Embedder interface {
	RouteEmbedding(ctx context.Context, model string, text string) ([]float32, error)
}

// Build instantiates every built-in tool against db. When an embedding model is
// configured the menu index is opened under the data dir and filled from the
// database if it is empty; without one search_menu ranks by keywords.
func Build(ctx context.Context, cfg *config.Config, db *store.DB, embedder Embedder) (*Components, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	options, err := ResolveBuiltinOptions(cfg)
	if err != nil {
		return nil, err
	}
	options.Store = db

	menu, err := openMenuIndex(ctx, cfg, db, embedder)
	if err != nil {
		return nil, err
	}
	options.Menu = menu

	registry, err := tool.NewBuiltinRegistry(options)
	if err != nil {
		return nil, fmt.Errorf("instantiate built-in tools: %w", err)
	}
	slog.Info("Built-in tools registered", "count", len(registry.Names()))

	return &Components{
		Registry: registry,
		Runner:   tool.NewRunner(registry, options.Timeout),
		Menu:     menu,
	}, nil
}

func openMenuIndex(ctx context.Context, cfg *config.Config, db *store.DB, embedder Embedder) (*store.MenuIndex, error) {
	model := strings.TrimSpace(cfg.Models.EmbeddingModel)
	if embedder == nil || model == "" {
		return nil, nil
	}

	embed := chromem.EmbeddingFunc(func(ctx context.Context, text string) ([]float32, error) {
		return embedder.RouteEmbedding(ctx, model, text)
	})

	dir := ""
	if strings.TrimSpace(cfg.Server.DataDir) != "" {
		dir = filepath.Join(cfg.Server.DataDir, "menu_index")
	}
	menu, err := store.NewMenuIndex(dir, embed)
	if err != nil {
		return nil, err
	}

	if db == nil || menu.Count() > 0 {
		return menu, nil
	}
	entries, err := db.ListMenuEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list menu entries: %w", err)
	}
	if len(entries) == 0 {
		return menu, nil
	}
	if err := menu.Rebuild(ctx, entries); err != nil {
		slog.Warn("Menu index not built, search_menu falls back to keywords", "model", model, "error", err)
		return menu, nil
	}
	slog.Info("Menu index built", "items", menu.Count(), "model", model)
	return menu, nil
}
