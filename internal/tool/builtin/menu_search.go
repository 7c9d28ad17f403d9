package builtin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	fbErrors "github.com/harunnryd/foodiebot/internal/errors"
	"github.com/harunnryd/foodiebot/internal/logger"
	"github.com/harunnryd/foodiebot/internal/store"
	toolcore "github.com/harunnryd/foodiebot/internal/tool"
)

const (
	defaultMenuSearchLimit = 5
	maxMenuSearchLimit     = 20
)

func init() {
	toolcore.RegisterBuiltin("search_menu", func(options toolcore.BuiltinOptions) (toolcore.Tool, error) {
		return &SearchMenuTool{Store: options.Store, Index: options.Menu}, nil
	})
}

// SearchMenuTool finds dishes by meaning ("sesuatu yang pedas dan berkuah")
// across every restaurant's menu. Without an embedding model it degrades to a
// keyword match over menu names and descriptions.
type SearchMenuTool struct {
	Store *store.DB
	Index *store.MenuIndex
}

func (t *SearchMenuTool) Name() string { return "search_menu" }

func (t *SearchMenuTool) Description() string {
	return "Cari menu makanan/minuman di semua restoran berdasarkan deskripsi bebas (contoh: 'yang pedas berkuah', 'kopi susu')"
}

func (t *SearchMenuTool) ToolMetadata() toolcore.ToolMetadata {
	return builtinMetadata(toolcore.RiskLow, false, "menu.search", "embedding.query")
}

func (t *SearchMenuTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "Deskripsi makanan atau minuman yang dicari",
			},
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": "Jumlah hasil maksimal (default 5)",
				"minimum":     1,
			},
		},
		"required": []string{"query"},
	}
}

func (t *SearchMenuTool) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var args struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := decodeArgs(input, &args); err != nil {
		return nil, err
	}
	query := strings.TrimSpace(args.Query)
	if query == "" {
		return nil, toolcore.Fail("Kata kunci menu belum diisi", fbErrors.ErrInvalidInput)
	}
	limit := args.Limit
	if limit <= 0 {
		limit = defaultMenuSearchLimit
	}
	if limit > maxMenuSearchLimit {
		limit = maxMenuSearchLimit
	}

	if t.Index != nil {
		hits, err := t.semantic(ctx, query, limit)
		switch {
		case err == nil:
			return toolcore.Reply(hits, fmt.Sprintf("Ditemukan %d menu", len(hits)))
		case errors.Is(err, fbErrors.ErrInvalidInput):
			logger.From(ctx).Debug("Semantic menu search unavailable", "error", err)
		default:
			logger.From(ctx).Warn("Semantic menu search failed, using keyword match", "error", err)
		}
	}

	if t.Store == nil {
		return nil, toolcore.Fail("Pencarian menu belum tersedia", fbErrors.ErrInternal)
	}
	hits, err := t.keyword(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return toolcore.Reply(hits, fmt.Sprintf("Ditemukan %d menu", len(hits)))
}

func (t *SearchMenuTool) semantic(ctx context.Context, query string, limit int) ([]store.MenuHit, error) {
	if t.Index.Count() == 0 && t.Store != nil {
		entries, err := t.Store.ListMenuEntries(ctx)
		if err != nil {
			return nil, err
		}
		if err := t.Index.Rebuild(ctx, entries); err != nil {
			return nil, err
		}
	}
	return t.Index.Search(ctx, query, limit)
}

// keyword ranks menu entries by how many query words appear in their text.
func (t *SearchMenuTool) keyword(ctx context.Context, query string, limit int) ([]store.MenuHit, error) {
	entries, err := t.Store.ListMenuEntries(ctx)
	if err != nil {
		return nil, err
	}
	words := strings.Fields(strings.ToLower(query))

	hits := make([]store.MenuHit, 0, limit)
	for best := len(words); best > 0 && len(hits) < limit; best-- {
		for _, e := range entries {
			if len(hits) >= limit {
				break
			}
			text := strings.ToLower(e.Name + " " + e.Description + " " + e.Category)
			matched := 0
			for _, w := range words {
				if strings.Contains(text, w) {
					matched++
				}
			}
			if matched != best {
				continue
			}
			hits = append(hits, store.MenuHit{
				MenuItemID:     e.ID,
				RestaurantID:   e.RestaurantID,
				RestaurantName: e.RestaurantName,
				Name:           e.Name,
				Description:    e.Description,
				Price:          e.Price,
				Category:       e.Category,
				Score:          float32(matched) / float32(len(words)),
			})
		}
	}
	return hits, nil
}
