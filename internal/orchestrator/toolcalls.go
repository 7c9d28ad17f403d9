package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/harunnryd/foodiebot/internal/logger"
	"github.com/harunnryd/foodiebot/internal/model/contract"
	"github.com/harunnryd/foodiebot/internal/tool"

	"github.com/oklog/ulid/v2"
)

// userPlaceholders are values models use when they know a user id is needed
// but not what it is.
var userPlaceholders = map[string]struct{}{
	"{{user_id}}":  {},
	"{user_id}":    {},
	"<user_id>":    {},
	"$user_id":     {},
	"user_id":      {},
	"current_user": {},
	"me":           {},
}

// injectUserID returns call with the identity filled in when the tool declares
// a user_id parameter. Other string arguments holding a placeholder are
// replaced too. Input that is not a JSON object is left for the runner to reject.
func injectUserID(call contract.ToolCall, def contract.ToolDef, identity string) contract.ToolCall {
	if !tool.DeclaresParam(def, tool.UserIDParam) {
		return call
	}

	raw := strings.TrimSpace(call.Input)
	if raw == "" {
		raw = "{}"
	}
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &args); err != nil || args == nil {
		return call
	}

	for k, v := range args {
		if s, ok := v.(string); ok {
			if _, placeholder := userPlaceholders[strings.ToLower(strings.TrimSpace(s))]; placeholder {
				args[k] = identity
			}
		}
	}
	args[tool.UserIDParam] = identity

	encoded, err := json.Marshal(args)
	if err != nil {
		return call
	}
	out := call
	out.Input = string(encoded)
	return out
}

// assignCallIDs returns copies of calls whose ids are unique within the turn.
// An id the model chose is kept unless it is empty or already used; seen
// carries the ids of earlier iterations.
func assignCallIDs(calls []*contract.ToolCall, seen map[string]struct{}) []*contract.ToolCall {
	out := contract.CloneToolCalls(calls)
	for _, c := range out {
		id := strings.TrimSpace(c.ID)
		if _, used := seen[id]; id == "" || used {
			id = "call_" + strings.ToLower(ulid.Make().String())
		}
		c.ID = id
		seen[id] = struct{}{}
	}
	return out
}

// executeBatch runs every call and returns results in request order. Calls
// must already carry their ids. With parallel set the calls run concurrently.
func (e *Engine) executeBatch(ctx context.Context, calls []*contract.ToolCall, identity string) []tool.Result {
	defs := make(map[string]contract.ToolDef)
	for _, d := range e.tools.Definitions() {
		defs[d.Name] = d
	}

	prepared := make([]contract.ToolCall, len(calls))
	for i, c := range calls {
		call := *c
		if def, ok := defs[strings.TrimSpace(call.Name)]; ok {
			call = injectUserID(call, def, identity)
		}
		prepared[i] = call
	}

	results := make([]tool.Result, len(prepared))
	if !e.opts.ParallelTools || len(prepared) == 1 {
		for i, call := range prepared {
			results[i] = e.tools.Execute(ctx, call)
		}
		return results
	}

	var wg sync.WaitGroup
	for i, call := range prepared {
		wg.Add(1)
		go func(i int, call contract.ToolCall) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logger.From(ctx).Error("Tool execution panicked", "tool", call.Name, "panic", r)
					results[i] = tool.Result{ToolCallID: call.ID, Name: call.Name, Message: fmt.Sprintf("Tool %s failed unexpectedly", call.Name)}
				}
			}()
			results[i] = e.tools.Execute(ctx, call)
		}(i, call)
	}
	wg.Wait()
	return results
}
