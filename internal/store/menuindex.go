package store

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	fbErrors "github.com/harunnryd/foodiebot/internal/errors"

	"github.com/philippgille/chromem-go"
)

const menuCollection = "menu_items"

// MenuHit is one semantic match for a menu query.
type MenuHit struct {
	MenuItemID     int64   `json:"menu_item_id"`
	RestaurantID   int64   `json:"restaurant_id"`
	RestaurantName string  `json:"restaurant_name"`
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	Price          int     `json:"price"`
	Category       string  `json:"category"`
	Score          float32 `json:"score"`
}

// MenuIndex is a vector index over menu items. Embeddings come from embed,
// normally the configured embedding model.
type MenuIndex struct {
	mu    sync.RWMutex
	db    *chromem.DB
	embed chromem.EmbeddingFunc
}

// NewMenuIndex opens a persistent index under dir, or an in-memory one when
// dir is empty.
func NewMenuIndex(dir string, embed chromem.EmbeddingFunc) (*MenuIndex, error) {
	var (
		vdb *chromem.DB
		err error
	)
	if strings.TrimSpace(dir) == "" {
		vdb = chromem.NewDB()
	} else {
		vdb, err = chromem.NewPersistentDB(dir, false)
		if err != nil {
			return nil, fmt.Errorf("open menu index: %w", err)
		}
	}
	return &MenuIndex{db: vdb, embed: embed}, nil
}

func (ix *MenuIndex) collection() (*chromem.Collection, error) {
	return ix.db.GetOrCreateCollection(menuCollection, nil, ix.embed)
}

// Count reports how many menu items are indexed.
func (ix *MenuIndex) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	col := ix.db.GetCollection(menuCollection, ix.embed)
	if col == nil {
		return 0
	}
	return col.Count()
}

// Rebuild replaces the index content with entries.
func (ix *MenuIndex) Rebuild(ctx context.Context, entries []MenuEntry) error {
	if ix.embed == nil {
		return fbErrors.InvalidInput("no embedding model configured")
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if err := ix.db.DeleteCollection(menuCollection); err != nil {
		return fmt.Errorf("reset menu index: %w", err)
	}
	col, err := ix.collection()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	docs := make([]chromem.Document, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, chromem.Document{
			ID: strconv.FormatInt(e.ID, 10),
			Metadata: map[string]string{
				"restaurant_id":   strconv.FormatInt(e.RestaurantID, 10),
				"restaurant_name": e.RestaurantName,
				"name":            e.Name,
				"description":     e.Description,
				"price":           strconv.Itoa(e.Price),
				"category":        e.Category,
			},
			Content: menuDocument(e),
		})
	}

	if err := col.AddDocuments(ctx, docs, 4); err != nil {
		return fmt.Errorf("index menu: %w", err)
	}
	slog.Info("Menu index rebuilt", "items", len(docs))
	return nil
}

// Search returns up to limit menu items most similar to query.
func (ix *MenuIndex) Search(ctx context.Context, query string, limit int) ([]MenuHit, error) {
	if ix.embed == nil {
		return nil, fbErrors.InvalidInput("no embedding model configured")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fbErrors.InvalidInput("query is empty")
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	col := ix.db.GetCollection(menuCollection, ix.embed)
	if col == nil || col.Count() == 0 {
		return []MenuHit{}, nil
	}
	if limit <= 0 {
		limit = 5
	}
	if limit > col.Count() {
		limit = col.Count()
	}

	results, err := col.Query(ctx, query, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query menu index: %w", err)
	}

	hits := make([]MenuHit, 0, len(results))
	for _, r := range results {
		id, _ := strconv.ParseInt(r.ID, 10, 64)
		restaurantID, _ := strconv.ParseInt(r.Metadata["restaurant_id"], 10, 64)
		price, _ := strconv.Atoi(r.Metadata["price"])
		hits = append(hits, MenuHit{
			MenuItemID:     id,
			RestaurantID:   restaurantID,
			RestaurantName: r.Metadata["restaurant_name"],
			Name:           r.Metadata["name"],
			Description:    r.Metadata["description"],
			Price:          price,
			Category:       r.Metadata["category"],
			Score:          r.Similarity,
		})
	}
	return hits, nil
}

func menuDocument(e MenuEntry) string {
	parts := []string{e.Name}
	if e.Description != "" {
		parts = append(parts, e.Description)
	}
	if e.Category != "" {
		parts = append(parts, e.Category)
	}
	parts = append(parts, "di "+e.RestaurantName)
	return strings.Join(parts, ". ")
}
