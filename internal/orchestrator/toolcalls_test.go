package orchestrator

import (
	"encoding/json"
	"testing"

	"github.com/harunnryd/foodiebot/internal/model/contract"
	"github.com/harunnryd/foodiebot/internal/tool"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInjectUserID(t *testing.T) {
	scoped := contract.ToolDef{
		Name: "get_favorites",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				tool.UserIDParam: map[string]interface{}{"type": "string"},
				"note":           map[string]interface{}{"type": "string"},
			},
		},
	}
	unscoped := contract.ToolDef{Name: "get_weather", Parameters: map[string]interface{}{"type": "object"}}

	tests := []struct {
		name  string
		def   contract.ToolDef
		input string
		want  map[string]interface{}
		raw   string
	}{
		{name: "overwrites model value", def: scoped, input: `{"user_id":"someone_else"}`, want: map[string]interface{}{"user_id": "u1"}},
		{name: "fills missing", def: scoped, input: `{}`, want: map[string]interface{}{"user_id": "u1"}},
		{name: "empty input", def: scoped, input: ``, want: map[string]interface{}{"user_id": "u1"}},
		{name: "replaces placeholders", def: scoped, input: `{"note":"<user_id>"}`, want: map[string]interface{}{"user_id": "u1", "note": "u1"}},
		{name: "keeps unrelated values", def: scoped, input: `{"note":"pedas"}`, want: map[string]interface{}{"user_id": "u1", "note": "pedas"}},
		{name: "tool without user_id untouched", def: unscoped, input: `{"note":"current_user"}`, raw: `{"note":"current_user"}`},
		{name: "malformed left for runner", def: scoped, input: `{"user_id":`, raw: `{"user_id":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call := contract.ToolCall{ID: "c1", Name: tt.def.Name, Input: tt.input}
			got := injectUserID(call, tt.def, "u1")
			assert.Equal(t, "c1", got.ID)
			if tt.want == nil {
				assert.Equal(t, tt.raw, got.Input)
				return
			}
			var args map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(got.Input), &args))
			assert.Equal(t, tt.want, args)
		})
	}
}
