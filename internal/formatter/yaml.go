package formatter

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/harunnryd/foodiebot/internal/store"
)

type YAMLFormatter struct{}

func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

// conversationRow gives the stats stable yaml keys; store.ConversationStat only carries json tags.
type conversationRow struct {
	UserKey    string `yaml:"user_key"`
	Entries    int    `yaml:"entries"`
	LastActive string `yaml:"last_active"`
}

func (f *YAMLFormatter) FormatRestaurants(restaurants []store.Restaurant) (string, error) {
	if len(restaurants) == 0 {
		return "[]", nil
	}
	data, err := yaml.Marshal(restaurants)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (f *YAMLFormatter) FormatConversations(stats []store.ConversationStat) (string, error) {
	if len(stats) == 0 {
		return "[]", nil
	}
	rows := make([]conversationRow, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, conversationRow{
			UserKey:    s.UserKey,
			Entries:    s.Entries,
			LastActive: s.LastActive.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	data, err := yaml.Marshal(rows)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
