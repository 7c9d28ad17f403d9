package builtin

import (
	"context"
	"encoding/json"

	"github.com/harunnryd/foodiebot/internal/store"
	toolcore "github.com/harunnryd/foodiebot/internal/tool"
)

func init() {
	toolcore.RegisterBuiltin("update_user_preferences", func(options toolcore.BuiltinOptions) (toolcore.Tool, error) {
		return &UpdatePreferencesTool{Store: options.Store}, nil
	})
}

// UpdatePreferencesTool sets the user's default budget and location. Fields
// left out or empty keep their stored value.
type UpdatePreferencesTool struct {
	Store *store.DB
}

func (t *UpdatePreferencesTool) Name() string { return "update_user_preferences" }

func (t *UpdatePreferencesTool) Description() string {
	return "Update preferensi default user (budget, lokasi)"
}

func (t *UpdatePreferencesTool) ToolMetadata() toolcore.ToolMetadata {
	return builtinMetadata(toolcore.RiskMedium, true, "preferences.write")
}

func (t *UpdatePreferencesTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"user_id": userIDProperty(),
			"default_budget": map[string]interface{}{
				"type":        "integer",
				"description": "Budget default",
			},
			"default_location": map[string]interface{}{
				"type":        "string",
				"description": "Lokasi default",
			},
		},
		"required": []string{"user_id"},
	}
}

func (t *UpdatePreferencesTool) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var args struct {
		UserID          string  `json:"user_id"`
		DefaultBudget   *int    `json:"default_budget"`
		DefaultLocation *string `json:"default_location"`
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

	user, err := t.Store.UpdatePreferences(ctx, userID, args.DefaultBudget, args.DefaultLocation)
	if err != nil {
		return nil, err
	}
	return toolcore.Reply(map[string]interface{}{
		"default_budget":   user.DefaultBudget,
		"default_location": user.DefaultLocation,
	}, "Preferensi berhasil diupdate!")
}
