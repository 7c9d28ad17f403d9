package conformance_test

import (
	"context"
	"testing"

	"github.com/harunnryd/foodiebot/internal/model/contract"
)

type mockProvider struct {
	calls []contract.CompletionRequest
}

func (p *mockProvider) Name() string { return "mock" }

func (p *mockProvider) Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	p.calls = append(p.calls, req)

	if len(p.calls) == 1 {
		return &contract.CompletionResponse{
			ToolCalls: []*contract.ToolCall{{
				ID:    "call_1",
				Name:  "search_restaurants",
				Input: `{"location":"Kemang"}`,
			}},
		}, nil
	}

	return &contract.CompletionResponse{Content: "Ada Warung Sate di Kemang."}, nil
}

func (p *mockProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}

func TestToolCallMustBeFollowedByToolResultMessage(t *testing.T) {
	p := &mockProvider{}

	messages := []contract.Message{{Role: contract.RoleUser, Content: "makan di Kemang"}}
	tools := []contract.ToolDef{{Name: "search_restaurants", Description: "cari restoran", Parameters: map[string]interface{}{"type": "object"}}}

	resp, err := p.Generate(context.Background(), contract.CompletionRequest{Model: "x", Messages: messages, Tools: tools})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(resp.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call")
	}

	messages = append(messages, contract.Message{Role: contract.RoleAssistant, ToolCalls: resp.ToolCalls})
	messages = append(messages, contract.Message{Role: contract.RoleTool, ToolCallID: resp.ToolCalls[0].ID, Name: "search_restaurants", Content: `{"success":true}`})

	_, err = p.Generate(context.Background(), contract.CompletionRequest{Model: "x", Messages: messages, Tools: tools})
	if err != nil {
		t.Fatalf("generate 2: %v", err)
	}

	if len(p.calls) != 2 {
		t.Fatalf("expected 2 calls")
	}

	second := p.calls[1]
	foundTool := false
	for i, m := range second.Messages {
		if m.Role == contract.RoleTool && m.ToolCallID == "call_1" {
			if i == 0 || second.Messages[i-1].Role != contract.RoleAssistant {
				t.Fatalf("tool result must directly follow the assistant request")
			}
			foundTool = true
			break
		}
	}
	if !foundTool {
		t.Fatalf("expected tool result message with tool_call_id call_1")
	}
}
