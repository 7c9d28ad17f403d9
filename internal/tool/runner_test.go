package tool

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	fbErrors "github.com/harunnryd/foodiebot/internal/errors"
	"github.com/harunnryd/foodiebot/internal/model/contract"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTool struct {
	name string
	run  func(ctx context.Context, input json.RawMessage) (json.RawMessage, error)
}

func (t *stubTool) Name() string        { return t.name }
func (t *stubTool) Description() string { return "stub" }
func (t *stubTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"location": map[string]interface{}{"type": "string"},
			"budget":   map[string]interface{}{"type": "integer"},
			"mood": map[string]interface{}{
				"type": "string",
				"enum": []string{"happy", "sad"},
			},
		},
		"required": []string{"location"},
	}
}
func (t *stubTool) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	if t.run != nil {
		return t.run(ctx, input)
	}
	return Reply(map[string]string{"echo": string(input)}, "ok")
}

func newTestRunner(t *stubTool, timeout time.Duration) *Runner {
	registry := NewRegistry()
	registry.Register(t)
	return NewRunner(registry, timeout)
}

func TestRegistry_SortedDefinitions(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&stubTool{name: "search_restaurants"})
	registry.Register(&stubTool{name: "add_to_favorites"})

	defs := registry.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "add_to_favorites", defs[0].Name)
	assert.Equal(t, "search_restaurants", defs[1].Name)
	assert.True(t, DeclaresParam(defs[0], "location"))
	assert.False(t, DeclaresParam(defs[0], UserIDParam))

	assert.Panics(t, func() { registry.Register(&stubTool{name: "add_to_favorites"}) })
}

func TestRunnerExecute_Success(t *testing.T) {
	runner := newTestRunner(&stubTool{name: "search_restaurants"}, time.Second)

	res := runner.Execute(context.Background(), contract.ToolCall{ID: "c1", Name: "search_restaurants", Input: `{"location":"Kemang"}`})
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "c1", res.ToolCallID)
	assert.Equal(t, "search_restaurants", res.Name)
	assert.Equal(t, "ok", res.Message)
	assert.JSONEq(t, `{"echo":"{\"location\":\"Kemang\"}"}`, string(res.Data))

	var wire map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(res.Text()), &wire))
	assert.Equal(t, true, wire["success"])
	assert.Equal(t, "ok", wire["message"])
}

func TestRunnerExecute_Failures(t *testing.T) {
	tests := []struct {
		name        string
		tool        *stubTool
		call        contract.ToolCall
		wantMessage string
	}{
		{
			name:        "unknown tool",
			tool:        &stubTool{name: "search_restaurants"},
			call:        contract.ToolCall{Name: "order_pizza", Input: `{}`},
			wantMessage: "Unknown function: order_pizza",
		},
		{
			name:        "malformed arguments",
			tool:        &stubTool{name: "search_restaurants"},
			call:        contract.ToolCall{Name: "search_restaurants", Input: `{"location": Kemang}`},
			wantMessage: "Invalid arguments for search_restaurants",
		},
		{
			name:        "missing required",
			tool:        &stubTool{name: "search_restaurants"},
			call:        contract.ToolCall{Name: "search_restaurants", Input: `{"budget": 50000}`},
			wantMessage: "missing required field: location",
		},
		{
			name:        "wrong primitive type",
			tool:        &stubTool{name: "search_restaurants"},
			call:        contract.ToolCall{Name: "search_restaurants", Input: `{"location":"Kemang","budget":"murah"}`},
			wantMessage: "expected integer",
		},
		{
			name:        "enum mismatch",
			tool:        &stubTool{name: "search_restaurants"},
			call:        contract.ToolCall{Name: "search_restaurants", Input: `{"location":"Kemang","mood":"angry"}`},
			wantMessage: "must be one of",
		},
		{
			name: "business failure",
			tool: &stubTool{name: "search_restaurants", run: func(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
				return nil, Fail("Restoran tidak ditemukan", fbErrors.ErrNotFound)
			}},
			call:        contract.ToolCall{Name: "search_restaurants", Input: `{"location":"Kemang"}`},
			wantMessage: "Restoran tidak ditemukan",
		},
		{
			name: "collaborator panic",
			tool: &stubTool{name: "search_restaurants", run: func(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
				panic("boom")
			}},
			call:        contract.ToolCall{Name: "search_restaurants", Input: `{"location":"Kemang"}`},
			wantMessage: "failed unexpectedly",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := newTestRunner(tt.tool, time.Second)
			res := runner.Execute(context.Background(), tt.call)
			assert.False(t, res.Success)
			assert.Contains(t, res.Message, tt.wantMessage)
			assert.Contains(t, res.Text(), `"success":false`)
		})
	}
}

func TestRunnerExecute_Timeout(t *testing.T) {
	slow := &stubTool{name: "get_weather", run: func(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	runner := newTestRunner(slow, 20*time.Millisecond)

	res := runner.Execute(context.Background(), contract.ToolCall{Name: "get_weather", Input: `{"location":"Bogor"}`})
	assert.False(t, res.Success)
	assert.Equal(t, "Tool get_weather timed out", res.Message)
}

func TestRunnerExecute_EmptyInputValidatedAsObject(t *testing.T) {
	runner := newTestRunner(&stubTool{name: "get_favorites"}, time.Second)

	res := runner.Execute(context.Background(), contract.ToolCall{Name: "get_favorites", Input: "  "})
	assert.False(t, res.Success)
	assert.Equal(t, "Invalid arguments for get_favorites: missing required field: location", res.Message)
}
