package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	fbErrors "github.com/harunnryd/foodiebot/internal/errors"
	"github.com/harunnryd/foodiebot/internal/store"
	toolcore "github.com/harunnryd/foodiebot/internal/tool"
)

// moodCategories maps a mood onto the categories and cuisines that suit it.
var moodCategories = map[string][]string{
	"happy":    {"dessert", "cafe", "italian"},
	"sad":      {"comfort food", "indonesian", "pizza"},
	"stressed": {"cafe", "japanese", "healthy"},
	"hungry":   {"all you can eat", "buffet", "indonesian"},
	"romantic": {"fine dining", "italian", "french"},
	"quick":    {"fast food", "street food", "cafe"},
}

var moods = []string{"happy", "sad", "stressed", "hungry", "romantic", "quick"}

func init() {
	toolcore.RegisterBuiltin("recommend_by_mood", func(options toolcore.BuiltinOptions) (toolcore.Tool, error) {
		return &RecommendByMoodTool{Store: options.Store}, nil
	})
}

// RecommendByMoodTool suggests top-rated restaurants for the user's mood.
type RecommendByMoodTool struct {
	Store *store.DB
}

func (t *RecommendByMoodTool) Name() string { return "recommend_by_mood" }

func (t *RecommendByMoodTool) Description() string {
	return "Rekomendasikan restoran berdasarkan mood user"
}

func (t *RecommendByMoodTool) ToolMetadata() toolcore.ToolMetadata {
	return builtinMetadata(toolcore.RiskLow, false, "restaurant.recommend")
}

func (t *RecommendByMoodTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"mood": map[string]interface{}{
				"type":        "string",
				"description": "Mood user (happy, sad, stressed, hungry, romantic, quick)",
				"enum":        moods,
			},
			"budget": map[string]interface{}{
				"type":        "integer",
				"description": "Budget maksimal",
			},
			"location": map[string]interface{}{
				"type":        "string",
				"description": "Lokasi preferensi",
			},
		},
		"required": []string{"mood"},
	}
}

func (t *RecommendByMoodTool) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var args struct {
		Mood     string `json:"mood"`
		Budget   int    `json:"budget"`
		Location string `json:"location"`
	}
	if err := decodeArgs(input, &args); err != nil {
		return nil, err
	}
	mood := strings.ToLower(strings.TrimSpace(args.Mood))
	categories, ok := moodCategories[mood]
	if !ok {
		return nil, toolcore.Fail(fmt.Sprintf("Mood %q tidak dikenali", args.Mood), fbErrors.ErrInvalidInput)
	}
	if err := requireStore(t.Store); err != nil {
		return nil, err
	}

	rows, err := t.Store.RecommendByCategories(ctx, categories, args.Budget, args.Location, store.DefaultRecommendLimit)
	if err != nil {
		return nil, err
	}
	return toolcore.Reply(summarize(rows), fmt.Sprintf("Rekomendasi untuk mood %s", mood))
}
