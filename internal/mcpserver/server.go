// Package mcpserver exposes the built-in food tools over the Model Context
// Protocol on stdio, so other MCP clients can search restaurants or manage
// favorites without going through the chat loop.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/harunnryd/foodiebot/internal/model/contract"
	"github.com/harunnryd/foodiebot/internal/tool"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	serverName     = "foodiebot"
	serverVersion  = "1.0.0"
	defaultTimeout = 30 * time.Second
)

// ToolRunner lists and executes tools. *tool.Runner implements it.
type ToolRunner interface {
	Definitions() []contract.ToolDef
	Execute(ctx context.Context, call contract.ToolCall) tool.Result
}

type Options struct {
	// Identity fills user_id for user-scoped tools when the client omits it.
	Identity string
	Timeout  time.Duration
}

type Server struct {
	mcp    *server.MCPServer
	runner ToolRunner
	opts   Options
	tools  []string
}

func New(runner ToolRunner, opts Options) (*Server, error) {
	if runner == nil {
		return nil, fmt.Errorf("tool runner not provided")
	}
	if strings.TrimSpace(opts.Identity) == "" {
		opts.Identity = "mcp:local"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	s := &Server{
		mcp: server.NewMCPServer(
			serverName,
			serverVersion,
			server.WithToolCapabilities(true),
			server.WithLogging(),
		),
		runner: runner,
		opts:   opts,
	}

	for _, def := range runner.Definitions() {
		def := def
		s.mcp.AddTool(toolSpec(def), func(arguments map[string]interface{}) (*mcp.CallToolResult, error) {
			return s.Call(def, arguments)
		})
		s.tools = append(s.tools, def.Name)
	}
	s.mcp.AddNotificationHandler(func(notification mcp.JSONRPCNotification) {
		slog.Debug("MCP notification", "method", notification.Method)
	})

	slog.Info("MCP server created", "tools", len(s.tools))
	return s, nil
}

// Tools returns the names registered with the MCP server.
func (s *Server) Tools() []string {
	return append([]string(nil), s.tools...)
}

// Call runs one tool invocation and renders the result as MCP text content.
// Tool failures are part of the result, not protocol errors.
func (s *Server) Call(def contract.ToolDef, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	args := make(map[string]interface{}, len(arguments)+1)
	for k, v := range arguments {
		args[k] = v
	}
	if tool.DeclaresParam(def, tool.UserIDParam) {
		if id, _ := args[tool.UserIDParam].(string); strings.TrimSpace(id) == "" {
			args[tool.UserIDParam] = s.opts.Identity
		}
	}

	input, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encode arguments: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.Timeout)
	defer cancel()

	result := s.runner.Execute(ctx, contract.ToolCall{Name: def.Name, Input: string(input)})
	slog.Info("MCP tool call", "tool", def.Name, "success", result.Success)

	return &mcp.CallToolResult{
		Content: []interface{}{
			mcp.TextContent{
				Type: "text",
				Text: result.Text(),
			},
		},
	}, nil
}

// Serve blocks serving JSON-RPC on stdin and stdout.
func (s *Server) Serve() error {
	slog.Info("Starting MCP server on stdio")
	if err := server.ServeStdio(s.mcp); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	slog.Info("MCP server stopped")
	return nil
}

func toolSpec(def contract.ToolDef) mcp.Tool {
	schema := mcp.ToolInputSchema{
		Type:       "object",
		Properties: map[string]interface{}{},
	}
	if props, ok := def.Parameters["properties"].(map[string]interface{}); ok {
		schema.Properties = props
	}
	schema.Required = requiredParams(def.Parameters["required"])

	return mcp.Tool{
		Name:        def.Name,
		Description: def.Description,
		InputSchema: schema,
	}
}

func requiredParams(v interface{}) []string {
	switch req := v.(type) {
	case []string:
		return append([]string(nil), req...)
	case []interface{}:
		out := make([]string, 0, len(req))
		for _, item := range req {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
