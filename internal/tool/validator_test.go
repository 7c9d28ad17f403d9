package tool

import (
	"encoding/json"
	"testing"
)

func TestValidateInput(t *testing.T) {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"user_id": map[string]interface{}{
				"type": "string",
			},
			"restaurant_id": map[string]interface{}{
				"type": "integer",
			},
			"rating": map[string]interface{}{
				"type":    "integer",
				"minimum": 1,
				"maximum": 5,
			},
			"mood": map[string]interface{}{
				"type": "string",
				"enum": []interface{}{"happy", "sad", "quick"},
			},
			"menu_items": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "string",
				},
			},
		},
		"required": []interface{}{"user_id", "restaurant_id"},
	}

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:    "Valid input",
			input:   `{"user_id": "telegram:1", "restaurant_id": 3, "menu_items": ["Bakso Urat"], "mood": "happy"}`,
			wantErr: false,
		},
		{
			name:    "Missing required field",
			input:   `{"user_id": "telegram:1"}`,
			wantErr: true,
		},
		{
			name:    "Null required field",
			input:   `{"user_id": "telegram:1", "restaurant_id": null}`,
			wantErr: true,
		},
		{
			name:    "Fractional integer",
			input:   `{"user_id": "telegram:1", "restaurant_id": 3.5}`,
			wantErr: true,
		},
		{
			name:    "String for integer",
			input:   `{"user_id": "telegram:1", "restaurant_id": "3"}`,
			wantErr: true,
		},
		{
			name:    "Invalid array item type",
			input:   `{"user_id": "telegram:1", "restaurant_id": 3, "menu_items": [123]}`,
			wantErr: true,
		},
		{
			name:    "Enum mismatch",
			input:   `{"user_id": "telegram:1", "restaurant_id": 3, "mood": "angry"}`,
			wantErr: true,
		},
		{
			name:    "Enum is case insensitive",
			input:   `{"user_id": "telegram:1", "restaurant_id": 3, "mood": "Happy"}`,
			wantErr: false,
		},
		{
			name:    "Rating above maximum",
			input:   `{"user_id": "telegram:1", "restaurant_id": 3, "rating": 6}`,
			wantErr: true,
		},
		{
			name:    "Extra fields (allowed)",
			input:   `{"user_id": "telegram:1", "restaurant_id": 3, "extra": "field"}`,
			wantErr: false,
		},
		{
			name:    "Not an object",
			input:   `[1, 2]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInput(schema, json.RawMessage(tt.input))
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateInput() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
