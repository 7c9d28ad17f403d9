package builtin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/harunnryd/foodiebot/internal/store"
	toolcore "github.com/harunnryd/foodiebot/internal/tool"
)

func init() {
	toolcore.RegisterBuiltin("save_order", func(options toolcore.BuiltinOptions) (toolcore.Tool, error) {
		return &SaveOrderTool{Store: options.Store}, nil
	})
	toolcore.RegisterBuiltin("get_order_history", func(options toolcore.BuiltinOptions) (toolcore.Tool, error) {
		return &OrderHistoryTool{Store: options.Store}, nil
	})
	toolcore.RegisterBuiltin("add_review", func(options toolcore.BuiltinOptions) (toolcore.Tool, error) {
		return &AddReviewTool{Store: options.Store}, nil
	})
}

// SaveOrderTool records an order in the user's history. A retried turn
// records it again.
type SaveOrderTool struct {
	Store *store.DB
}

func (t *SaveOrderTool) Name() string { return "save_order" }

func (t *SaveOrderTool) Description() string {
	return "Simpan pesanan ke history"
}

func (t *SaveOrderTool) ToolMetadata() toolcore.ToolMetadata {
	return builtinMetadata(toolcore.RiskMedium, true, "orders.write")
}

func (t *SaveOrderTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"user_id":       userIDProperty(),
			"restaurant_id": restaurantIDProperty(),
			"menu_items": map[string]interface{}{
				"type":        "array",
				"description": "Daftar menu yang dipesan",
				"items":       map[string]interface{}{"type": "string"},
			},
			"total_price": map[string]interface{}{
				"type":        "integer",
				"description": "Total harga pesanan",
				"minimum":     0,
			},
			"mood": map[string]interface{}{
				"type":        "string",
				"description": "Mood saat memesan",
			},
		},
		"required": []string{"user_id", "restaurant_id", "menu_items", "total_price"},
	}
}

func (t *SaveOrderTool) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var args struct {
		UserID       string   `json:"user_id"`
		RestaurantID int64    `json:"restaurant_id"`
		MenuItems    []string `json:"menu_items"`
		TotalPrice   int      `json:"total_price"`
		Mood         string   `json:"mood"`
	}
	if err := decodeArgs(input, &args); err != nil {
		return nil, err
	}
	userID, err := requireUser(args.UserID)
	if err != nil {
		return nil, err
	}
	if err := requireStore(t.Store); err != nil {
		return nil, err
	}

	id, err := t.Store.SaveOrder(ctx, store.NewOrder{
		ExternalID:   userID,
		RestaurantID: args.RestaurantID,
		MenuItems:    args.MenuItems,
		TotalPrice:   args.TotalPrice,
		Mood:         args.Mood,
	})
	if err != nil {
		return nil, storeFailure(err, msgRestaurantNotFound)
	}
	return toolcore.Reply(map[string]int64{"order_id": id}, "Pesanan berhasil disimpan!")
}

// OrderHistoryTool lists the user's latest orders.
type OrderHistoryTool struct {
	Store *store.DB
}

func (t *OrderHistoryTool) Name() string { return "get_order_history" }

func (t *OrderHistoryTool) Description() string {
	return "Dapatkan riwayat pesanan user"
}

func (t *OrderHistoryTool) ToolMetadata() toolcore.ToolMetadata {
	return builtinMetadata(toolcore.RiskLow, false, "orders.read")
}

func (t *OrderHistoryTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"user_id": userIDProperty(),
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": "Jumlah maksimal riwayat yang ditampilkan",
				"minimum":     1,
			},
		},
		"required": []string{"user_id"},
	}
}

func (t *OrderHistoryTool) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var args struct {
		UserID string `json:"user_id"`
		Limit  int    `json:"limit"`
	}
	if err := decodeArgs(input, &args); err != nil {
		return nil, err
	}
	userID, err := requireUser(args.UserID)
	if err != nil {
		return nil, err
	}
	if err := requireStore(t.Store); err != nil {
		return nil, err
	}

	orders, err := t.Store.ListOrders(ctx, userID, args.Limit)
	if err != nil {
		return nil, err
	}
	return toolcore.Reply(orders, fmt.Sprintf("Riwayat %d pesanan terakhir", len(orders)))
}

// AddReviewTool rates one of the user's past orders.
type AddReviewTool struct {
	Store *store.DB
}

func (t *AddReviewTool) Name() string { return "add_review" }

func (t *AddReviewTool) Description() string {
	return "Beri rating (1-5) dan ulasan untuk pesanan user"
}

func (t *AddReviewTool) ToolMetadata() toolcore.ToolMetadata {
	return builtinMetadata(toolcore.RiskMedium, true, "orders.write", "review.write")
}

func (t *AddReviewTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"user_id": userIDProperty(),
			"order_id": map[string]interface{}{
				"type":        "integer",
				"description": "ID pesanan dari riwayat pesanan",
			},
			"rating": map[string]interface{}{
				"type":        "integer",
				"description": "Rating 1 sampai 5",
				"minimum":     1,
				"maximum":     5,
			},
			"review": map[string]interface{}{
				"type":        "string",
				"description": "Ulasan singkat (opsional)",
			},
		},
		"required": []string{"user_id", "order_id", "rating"},
	}
}

func (t *AddReviewTool) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var args struct {
		UserID  string `json:"user_id"`
		OrderID int64  `json:"order_id"`
		Rating  int    `json:"rating"`
		Review  string `json:"review"`
	}
	if err := decodeArgs(input, &args); err != nil {
		return nil, err
	}
	userID, err := requireUser(args.UserID)
	if err != nil {
		return nil, err
	}
	if err := requireStore(t.Store); err != nil {
		return nil, err
	}

	if err := t.Store.AddReview(ctx, userID, args.OrderID, args.Rating, args.Review); err != nil {
		return nil, storeFailure(err, "Pesanan tidak ditemukan")
	}
	return toolcore.Reply(map[string]interface{}{"order_id": args.OrderID, "rating": args.Rating}, "Terima kasih, ulasan berhasil disimpan!")
}
