package model

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harunnryd/foodiebot/internal/model/contract"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCompleter struct {
	fn   func(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error)
	last contract.CompletionRequest
	name string
}

func (s *stubCompleter) Route(ctx context.Context, model string, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	s.name = model
	s.last = req
	return s.fn(ctx, req)
}

func TestGatewayComplete_PassesSamplingThrough(t *testing.T) {
	stub := &stubCompleter{fn: func(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
		return &contract.CompletionResponse{ToolCalls: []*contract.ToolCall{{ID: "call_1", Name: "search_restaurants", Input: `{"budget":30000}`}}}, nil
	}}
	gw := NewGateway(stub, GatewayOptions{Model: "llama", Temperature: 0.7, MaxTokens: 1024, Timeout: time.Second})

	tools := []contract.ToolDef{{Name: "search_restaurants"}}
	resp := gw.Complete(context.Background(), []contract.Message{{Role: contract.RoleUser, Content: "budget 30rb"}}, tools)

	assert.False(t, resp.Degraded)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "search_restaurants", resp.ToolCalls[0].Name)
	assert.Equal(t, "llama", stub.name)
	assert.Equal(t, 0.7, stub.last.Temperature)
	assert.Equal(t, 1024, stub.last.MaxTokens)
	assert.Equal(t, tools, stub.last.Tools)
}

func TestGatewayComplete_AbsorbsTransportError(t *testing.T) {
	stub := &stubCompleter{fn: func(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
		return nil, errors.New("502 bad gateway")
	}}
	gw := NewGateway(stub, GatewayOptions{Model: "llama"})

	resp := gw.Complete(context.Background(), nil, nil)
	assert.True(t, resp.Degraded)
	assert.Equal(t, ApologyText, resp.Content)
	assert.Empty(t, resp.ToolCalls)
}

func TestGatewayComplete_TimesOut(t *testing.T) {
	stub := &stubCompleter{fn: func(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	gw := NewGateway(stub, GatewayOptions{Model: "llama", Timeout: 20 * time.Millisecond})

	start := time.Now()
	resp := gw.Complete(context.Background(), nil, nil)
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, resp.Degraded)
	assert.Equal(t, ApologyText, resp.Content)
}

func TestGatewayComplete_RecoversProviderPanic(t *testing.T) {
	stub := &stubCompleter{fn: func(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
		panic("nil map")
	}}
	gw := NewGateway(stub, GatewayOptions{Model: "llama"})

	resp := gw.Complete(context.Background(), nil, nil)
	assert.True(t, resp.Degraded)
}

func TestGatewayComplete_ClonesToolCalls(t *testing.T) {
	original := &contract.ToolCall{ID: "call_1", Name: "get_favorites", Input: `{}`}
	stub := &stubCompleter{fn: func(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
		return &contract.CompletionResponse{ToolCalls: []*contract.ToolCall{original}}, nil
	}}
	gw := NewGateway(stub, GatewayOptions{Model: "llama"})

	resp := gw.Complete(context.Background(), nil, nil)
	resp.ToolCalls[0].Input = `{"user_id":"u1"}`
	assert.Equal(t, `{}`, original.Input)
}
