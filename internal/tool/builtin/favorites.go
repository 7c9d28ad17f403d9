package builtin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/harunnryd/foodiebot/internal/store"
	toolcore "github.com/harunnryd/foodiebot/internal/tool"
)

func init() {
	toolcore.RegisterBuiltin("add_to_favorites", func(options toolcore.BuiltinOptions) (toolcore.Tool, error) {
		return &AddFavoriteTool{Store: options.Store}, nil
	})
	toolcore.RegisterBuiltin("remove_from_favorites", func(options toolcore.BuiltinOptions) (toolcore.Tool, error) {
		return &RemoveFavoriteTool{Store: options.Store}, nil
	})
	toolcore.RegisterBuiltin("get_favorites", func(options toolcore.BuiltinOptions) (toolcore.Tool, error) {
		return &GetFavoritesTool{Store: options.Store}, nil
	})
}

type favoriteArgs struct {
	UserID       string `json:"user_id"`
	RestaurantID int64  `json:"restaurant_id"`
}

func favoritePairSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"user_id":       userIDProperty(),
			"restaurant_id": restaurantIDProperty(),
		},
		"required": []string{"user_id", "restaurant_id"},
	}
}

// AddFavoriteTool saves a restaurant to the user's favourites. Adding the
// same pair twice is a no-op.
type AddFavoriteTool struct {
	Store *store.DB
}

func (t *AddFavoriteTool) Name() string { return "add_to_favorites" }

func (t *AddFavoriteTool) Description() string {
	return "Tambahkan restoran ke daftar favorit user"
}

func (t *AddFavoriteTool) ToolMetadata() toolcore.ToolMetadata {
	return builtinMetadata(toolcore.RiskMedium, true, "favorites.write")
}

func (t *AddFavoriteTool) Parameters() map[string]interface{} { return favoritePairSchema() }

func (t *AddFavoriteTool) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var args favoriteArgs
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

	added, err := t.Store.AddFavorite(ctx, userID, args.RestaurantID)
	if err != nil {
		return nil, storeFailure(err, msgRestaurantNotFound)
	}
	data := map[string]interface{}{"restaurant_id": args.RestaurantID, "added": added}
	if !added {
		return toolcore.Reply(data, "Restoran sudah ada di daftar favorit")
	}
	return toolcore.Reply(data, "Restoran berhasil ditambahkan ke favorit!")
}

// RemoveFavoriteTool deletes a restaurant from the user's favourites.
type RemoveFavoriteTool struct {
	Store *store.DB
}

func (t *RemoveFavoriteTool) Name() string { return "remove_from_favorites" }

func (t *RemoveFavoriteTool) Description() string {
	return "Hapus restoran dari daftar favorit user"
}

func (t *RemoveFavoriteTool) ToolMetadata() toolcore.ToolMetadata {
	return builtinMetadata(toolcore.RiskMedium, true, "favorites.write")
}

func (t *RemoveFavoriteTool) Parameters() map[string]interface{} { return favoritePairSchema() }

func (t *RemoveFavoriteTool) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var args favoriteArgs
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

	removed, err := t.Store.RemoveFavorite(ctx, userID, args.RestaurantID)
	if err != nil {
		return nil, err
	}
	data := map[string]interface{}{"restaurant_id": args.RestaurantID, "removed": removed}
	if !removed {
		return toolcore.Reply(data, "Restoran tidak ada di daftar favorit")
	}
	return toolcore.Reply(data, "Restoran berhasil dihapus dari favorit")
}

// GetFavoritesTool lists the user's favourite restaurants.
type GetFavoritesTool struct {
	Store *store.DB
}

func (t *GetFavoritesTool) Name() string { return "get_favorites" }

func (t *GetFavoritesTool) Description() string {
	return "Dapatkan daftar restoran favorit user"
}

func (t *GetFavoritesTool) ToolMetadata() toolcore.ToolMetadata {
	return builtinMetadata(toolcore.RiskLow, false, "favorites.read")
}

func (t *GetFavoritesTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"user_id": userIDProperty(),
		},
		"required": []string{"user_id"},
	}
}

func (t *GetFavoritesTool) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var args struct {
		UserID string `json:"user_id"`
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

	favorites, err := t.Store.ListFavorites(ctx, userID)
	if err != nil {
		return nil, err
	}
	rows := make([]store.Restaurant, 0, len(favorites))
	for _, f := range favorites {
		rows = append(rows, f.Restaurant)
	}
	return toolcore.Reply(summarize(rows), fmt.Sprintf("Kamu punya %d restoran favorit", len(rows)))
}
