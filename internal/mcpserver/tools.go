package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mark3labs/webgen/internal/tools"
)

// ConsoleLog is the tool a running preview uses to report console output.
const ConsoleLog = "console_log"

// registerTools registers the file-system tools, get_console_logs, any
// external tools and, when a console buffer is configured, console_log.
func (s *Server) registerTools() {
	var templateNames []string
	if s.cfg.Dispatcher.Templates != nil {
		templateNames = s.cfg.Dispatcher.Templates.Names()
	}
	for _, t := range tools.Builtin(templateNames) {
		s.mcpServer.AddTool(t, s.handleTool)
	}

	if s.cfg.Console != nil {
		s.mcpServer.AddTool(tools.ConsoleLogsTool(), s.handleGetConsoleLogs)
		s.mcpServer.AddTool(
			mcp.NewTool(ConsoleLog,
				mcp.WithDescription("Append a line to the preview console buffer read by get_console_logs"),
				mcp.WithString("method", mcp.Required(), mcp.Description("Console method (log, info, warn, error)")),
				mcp.WithString("message", mcp.Required(), mcp.Description("Logged text")),
			),
			s.handleConsoleLog,
		)
	} else {
		s.mcpServer.AddTool(tools.ConsoleLogsTool(), s.handleTool)
	}

	if s.cfg.External != nil {
		for _, t := range s.cfg.External.Tools() {
			s.mcpServer.AddTool(t, s.handleTool)
		}
	}
}
