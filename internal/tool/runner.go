package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	fbErrors "github.com/harunnryd/foodiebot/internal/errors"
	"github.com/harunnryd/foodiebot/internal/logger"
	"github.com/harunnryd/foodiebot/internal/model/contract"
)

const DefaultTimeout = 10 * time.Second

// Runner executes tool calls proposed by the model. It never returns an error:
// every outcome, including unknown tools and bad arguments, is a Result.
type Runner struct {
	registry *Registry
	timeout  time.Duration
}

func NewRunner(registry *Registry, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{
		registry: registry,
		timeout:  timeout,
	}
}

func (r *Runner) GetDescriptors() []ToolDescriptor {
	if r == nil || r.registry == nil {
		return nil
	}
	return r.registry.GetDescriptors()
}

func (r *Runner) Definitions() []contract.ToolDef {
	if r == nil || r.registry == nil {
		return nil
	}
	return r.registry.Definitions()
}

// Execute runs one call: lookup, argument parse, schema check, then the tool
// itself under the per-call timeout.
func (r *Runner) Execute(ctx context.Context, call contract.ToolCall) Result {
	name := NormalizeToolName(call.Name)
	res := Result{ToolCallID: call.ID, Name: name}
	log := logger.From(ctx).With("tool", name, "tool_call_id", call.ID)

	t, ok := r.registry.Get(name)
	if !ok {
		log.Warn("Unknown tool requested")
		res.Message = fmt.Sprintf("Unknown function: %s", call.Name)
		return res
	}

	input := strings.TrimSpace(call.Input)
	if input == "" {
		input = "{}"
	}
	var probe map[string]interface{}
	if err := json.Unmarshal([]byte(input), &probe); err != nil {
		log.Warn("Tool arguments are not a JSON object", "error", err)
		res.Message = fmt.Sprintf("Invalid arguments for %s: %v", name, err)
		return res
	}

	if err := ValidateInput(t.Parameters(), json.RawMessage(input)); err != nil {
		log.Warn("Tool input validation failed", "error", err)
		res.Message = fmt.Sprintf("Invalid arguments for %s: %v", name, err)
		return res
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	log.Debug("Executing tool")

	out, err := safeExecute(callCtx, t, json.RawMessage(input))
	duration := time.Since(start)
	if err != nil {
		res.Message = failureMessage(name, err)
		log.Warn("Tool execution failed", "error", err, "category", fbErrors.Category(err), "duration", duration)
		return res
	}

	var env envelope
	if len(out) > 0 {
		if err := json.Unmarshal(out, &env); err != nil {
			env = envelope{Data: out}
		}
	}

	res.Success = true
	res.Data = env.Data
	res.Message = env.Message
	log.Info("Tool execution success", "duration", duration)
	return res
}

func safeExecute(ctx context.Context, t Tool, input json.RawMessage) (out json.RawMessage, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("tool panicked: %v: %w", rec, fbErrors.ErrInternal)
		}
	}()
	return t.Execute(ctx, input)
}

func failureMessage(name string, err error) string {
	if f, ok := asFailure(err); ok {
		return f.Message
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("Tool %s timed out", name)
	case errors.Is(err, fbErrors.ErrInternal):
		return fmt.Sprintf("Tool %s failed unexpectedly", name)
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
