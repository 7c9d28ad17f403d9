package contract

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one conversational turn. An empty Content is the null content of an
// assistant message that only carries ToolCalls. Tool messages carry ToolCallID
// and the Name of the tool that produced them.
type Message struct {
	Role       string      `json:"role"`
	Content    string      `json:"content"`
	ToolCallID string      `json:"tool_call_id,omitempty"`
	Name       string      `json:"name,omitempty"`
	ToolCalls  []*ToolCall `json:"tool_calls,omitempty"`
}

type CompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Tools       []ToolDef `json:"tools,omitempty"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type ToolDef struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

type CompletionResponse struct {
	Content   string      `json:"content"`
	ToolCalls []*ToolCall `json:"tool_calls,omitempty"`
	// Degraded marks a substitute reply produced after a transport failure.
	Degraded bool `json:"-"`
}

// HasText reports whether the response carries user-visible text.
func (r *CompletionResponse) HasText() bool {
	return r != nil && r.Content != ""
}

// ToolCall is a proposed invocation. Input is the raw argument text exactly as the
// model produced it and may not be valid JSON.
type ToolCall struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Input string `json:"input"`
}

// CloneToolCalls copies the slice and its elements so later mutation of one
// message cannot leak into another.
func CloneToolCalls(calls []*ToolCall) []*ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]*ToolCall, 0, len(calls))
	for _, c := range calls {
		if c == nil {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out
}
