package model

import (
	"context"
	"log/slog"
	"time"

	fbErrors "github.com/harunnryd/foodiebot/internal/errors"
	"github.com/harunnryd/foodiebot/internal/logger"
	"github.com/harunnryd/foodiebot/internal/model/contract"
)

// ApologyText is returned in place of a model reply whenever the transport fails.
const ApologyText = "Maaf, terjadi kesalahan saat memproses permintaan kamu. Coba lagi ya!"

// Completer is the part of ModelRouter the gateway needs.
type Completer interface {
	Route(ctx context.Context, model string, req contract.CompletionRequest) (*contract.CompletionResponse, error)
}

type GatewayOptions struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Gateway normalizes model access for the orchestrator. Complete never returns an
// error: timeouts, vendor failures and empty replies become the apology response.
type Gateway struct {
	router Completer
	opts   GatewayOptions
}

func NewGateway(router Completer, opts GatewayOptions) *Gateway {
	return &Gateway{router: router, opts: opts}
}

func (g *Gateway) Model() string {
	return g.opts.Model
}

func (g *Gateway) Complete(ctx context.Context, messages []contract.Message, tools []contract.ToolDef) contract.CompletionResponse {
	log := logger.From(ctx)

	callCtx := ctx
	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}

	req := contract.CompletionRequest{
		Model:       g.opts.Model,
		Messages:    messages,
		Tools:       tools,
		Temperature: g.opts.Temperature,
		MaxTokens:   g.opts.MaxTokens,
	}

	start := time.Now()
	resp, err := g.route(callCtx, req)
	if err != nil {
		if callCtx.Err() != nil && ctx.Err() == nil {
			err = fbErrors.WrapWithCategory(err, "model call timed out", fbErrors.ErrTransient)
		}
		log.Error("Model call failed", "model", g.opts.Model, "category", fbErrors.Category(err), "error", err, "elapsed", time.Since(start))
		return apology()
	}
	if resp == nil {
		log.Error("Model call returned no response", "model", g.opts.Model)
		return apology()
	}

	log.Debug("Model call completed", "model", g.opts.Model, "tool_calls", len(resp.ToolCalls), "elapsed", time.Since(start))
	return contract.CompletionResponse{
		Content:   resp.Content,
		ToolCalls: contract.CloneToolCalls(resp.ToolCalls),
	}
}

// route isolates provider panics so a broken SDK cannot take the turn down.
func (g *Gateway) route(ctx context.Context, req contract.CompletionRequest) (resp *contract.CompletionResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Model provider panicked", "panic", r)
			resp, err = nil, fbErrors.Internal("model provider panic")
		}
	}()
	return g.router.Route(ctx, g.opts.Model, req)
}

func apology() contract.CompletionResponse {
	return contract.CompletionResponse{Content: ApologyText, Degraded: true}
}
