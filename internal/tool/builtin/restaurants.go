package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/harunnryd/foodiebot/internal/geo"
	"github.com/harunnryd/foodiebot/internal/logger"
	"github.com/harunnryd/foodiebot/internal/store"
	toolcore "github.com/harunnryd/foodiebot/internal/tool"
)

func init() {
	toolcore.RegisterBuiltin("search_restaurants", func(options toolcore.BuiltinOptions) (toolcore.Tool, error) {
		radius := options.SearchRadiusKM
		if radius <= 0 {
			radius = toolcore.DefaultSearchRadiusKM
		}
		return &SearchRestaurantsTool{
			Store:    options.Store,
			Geocoder: options.Geocoder,
			RadiusKM: radius,
		}, nil
	})
	toolcore.RegisterBuiltin("get_restaurant_details", func(options toolcore.BuiltinOptions) (toolcore.Tool, error) {
		return &RestaurantDetailsTool{Store: options.Store}, nil
	})
}

// restaurantSummary is the shape search results take in tool replies.
type restaurantSummary struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Location    string   `json:"location"`
	Category    string   `json:"category,omitempty"`
	CuisineType string   `json:"cuisine_type"`
	AvgPrice    int      `json:"avg_price"`
	Rating      float64  `json:"rating"`
	Description string   `json:"description"`
	DistanceKM  *float64 `json:"distance_km,omitempty"`
}

func summarize(rows []store.Restaurant) []restaurantSummary {
	out := make([]restaurantSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, restaurantSummary{
			ID:          r.ID,
			Name:        r.Name,
			Location:    r.Location,
			Category:    r.Category,
			CuisineType: r.CuisineType,
			AvgPrice:    r.AvgPrice,
			Rating:      r.Rating,
			Description: r.Description,
			DistanceKM:  r.DistanceKM,
		})
	}
	return out
}

// SearchRestaurantsTool finds restaurants by area, budget, cuisine and category.
// A location that geocodes is searched by radius, nearest first; otherwise the
// location is matched against the restaurant's area text.
type SearchRestaurantsTool struct {
	Store    *store.DB
	Geocoder geo.Geocoder
	RadiusKM float64
}

func (t *SearchRestaurantsTool) Name() string { return "search_restaurants" }

func (t *SearchRestaurantsTool) Description() string {
	return "Cari restoran berdasarkan lokasi, budget, jenis masakan, atau kategori"
}

func (t *SearchRestaurantsTool) ToolMetadata() toolcore.ToolMetadata {
	return builtinMetadata(toolcore.RiskLow, false, "restaurant.search", "geo.lookup")
}

func (t *SearchRestaurantsTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"location": map[string]interface{}{
				"type":        "string",
				"description": "Lokasi restoran (contoh: Jakarta Selatan, Kemang, BSD)",
			},
			"budget": map[string]interface{}{
				"type":        "integer",
				"description": "Budget maksimal dalam Rupiah (contoh: 50000)",
			},
			"cuisine_type": map[string]interface{}{
				"type":        "string",
				"description": "Jenis masakan (contoh: Indonesian, Japanese, Italian)",
			},
			"category": map[string]interface{}{
				"type":        "string",
				"description": "Kategori restoran (contoh: cafe, fine dining, fast food)",
			},
		},
	}
}

func (t *SearchRestaurantsTool) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var args struct {
		Location    string `json:"location"`
		Budget      int    `json:"budget"`
		CuisineType string `json:"cuisine_type"`
		Category    string `json:"category"`
	}
	if err := decodeArgs(input, &args); err != nil {
		return nil, err
	}
	if err := requireStore(t.Store); err != nil {
		return nil, err
	}

	q := store.RestaurantQuery{
		Location:    strings.TrimSpace(args.Location),
		Budget:      args.Budget,
		CuisineType: args.CuisineType,
		Category:    args.Category,
	}

	var rows []store.Restaurant
	if origin, ok := t.geocode(ctx, q.Location); ok {
		near := q
		near.Near = &origin
		near.RadiusKM = t.RadiusKM
		found, err := t.Store.SearchRestaurants(ctx, near)
		if err != nil {
			return nil, err
		}
		rows = found
	}
	if len(rows) == 0 {
		found, err := t.Store.SearchRestaurants(ctx, q)
		if err != nil {
			return nil, err
		}
		rows = found
	}

	return toolcore.Reply(summarize(rows), fmt.Sprintf("Ditemukan %d restoran", len(rows)))
}

// geocode resolves location to coordinates. Lookup failures are logged and
// treated as "no coordinates" so the text match still runs.
func (t *SearchRestaurantsTool) geocode(ctx context.Context, location string) (geo.Point, bool) {
	if t.Geocoder == nil || location == "" {
		return geo.Point{}, false
	}
	p, ok, err := t.Geocoder.Geocode(ctx, location)
	if err != nil {
		logger.From(ctx).Warn("Geocoding failed, falling back to text match", "location", location, "error", err)
		return geo.Point{}, false
	}
	return p, ok
}

// RestaurantDetailsTool returns a restaurant with its available menu.
type RestaurantDetailsTool struct {
	Store *store.DB
}

func (t *RestaurantDetailsTool) Name() string { return "get_restaurant_details" }

func (t *RestaurantDetailsTool) Description() string {
	return "Dapatkan detail lengkap restoran termasuk menu"
}

func (t *RestaurantDetailsTool) ToolMetadata() toolcore.ToolMetadata {
	return builtinMetadata(toolcore.RiskLow, false, "restaurant.detail", "menu.list")
}

func (t *RestaurantDetailsTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"restaurant_id": restaurantIDProperty(),
		},
		"required": []string{"restaurant_id"},
	}
}

func (t *RestaurantDetailsTool) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var args struct {
		RestaurantID int64 `json:"restaurant_id"`
	}
	if err := decodeArgs(input, &args); err != nil {
		return nil, err
	}
	if err := requireStore(t.Store); err != nil {
		return nil, err
	}

	detail, err := t.Store.GetRestaurantDetail(ctx, args.RestaurantID)
	if err != nil {
		return nil, storeFailure(err, msgRestaurantNotFound)
	}
	return toolcore.Reply(detail, "")
}
