package formatter

import (
	"encoding/json"

	"github.com/harunnryd/foodiebot/internal/store"
)

type JSONFormatter struct{}

func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

func (f *JSONFormatter) FormatRestaurants(restaurants []store.Restaurant) (string, error) {
	if restaurants == nil {
		restaurants = []store.Restaurant{}
	}
	return marshalIndent(restaurants)
}

func (f *JSONFormatter) FormatConversations(stats []store.ConversationStat) (string, error) {
	if stats == nil {
		stats = []store.ConversationStat{}
	}
	return marshalIndent(stats)
}

func marshalIndent(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
