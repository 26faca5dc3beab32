package mcpserver

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mark3labs/webgen/internal/logger"
	"github.com/mark3labs/webgen/internal/message"
)

// handleTool runs any dispatcher tool. Results starting with "Error" are
// flagged as tool errors.
func (s *Server) handleTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.Params.Name
	args := request.GetArguments()
	if args == nil {
		args = map[string]any{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return mcp.NewToolResultError("error: failed to encode arguments: " + err.Error()), nil
	}

	out := s.cfg.Dispatcher.Execute(ctx, message.ToolCall{
		ID:       uuid.NewString(),
		Type:     "function",
		Function: message.FunctionCall{Name: name, Arguments: string(raw)},
	})
	logger.Debug("mcp %s: %d change(s)", name, len(out.Changes))

	if strings.HasPrefix(out.Result, "Error") {
		return mcp.NewToolResultError(out.Result), nil
	}
	return mcp.NewToolResultText(out.Result), nil
}

// handleGetConsoleLogs returns the buffered console output.
func (s *Server) handleGetConsoleLogs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, _ := s.cfg.Console.Handle(ctx, request.Params.Name, nil)
	return mcp.NewToolResultText(out), nil
}

// handleConsoleLog appends one console line.
func (s *Server) handleConsoleLog(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	method := request.GetString("method", "log")
	text := request.GetString("message", "")
	s.cfg.Console.Add(method, text)
	return mcp.NewToolResultText("OK"), nil
}
