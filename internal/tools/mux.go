package tools

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mark3labs/webgen/internal/message"
)

// Mux routes external tool calls by name. Its Handle method is a Handler.
type Mux struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	schemas  map[string]mcp.Tool
	fallback Handler
}

// NewMux creates an empty router.
func NewMux() *Mux {
	return &Mux{
		handlers: make(map[string]Handler),
		schemas:  make(map[string]mcp.Tool),
	}
}

// Register adds a handler for tool.Name. The schema is advertised through
// Definitions.
func (m *Mux) Register(tool mcp.Tool, h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[tool.Name] = h
	m.schemas[tool.Name] = tool
}

// Fallback sets the handler used for names nothing was registered for.
func (m *Mux) Fallback(h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = h
}

// Handle dispatches to the registered handler.
func (m *Mux) Handle(ctx context.Context, name string, args map[string]any) (string, error) {
	m.mu.RLock()
	h, ok := m.handlers[name]
	fallback := m.fallback
	m.mu.RUnlock()

	if ok {
		return h(ctx, name, args)
	}
	if fallback != nil {
		return fallback(ctx, name, args)
	}
	return fmt.Sprintf(`Error: unknown tool "%s"`, name), nil
}

// Tools returns the schemas of every registered tool, sorted by name.
// Tools already declared by the built-in set are skipped.
func (m *Mux) Tools() []mcp.Tool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.schemas))
	for n := range m.schemas {
		if n == GetConsoleLogs {
			continue
		}
		names = append(names, n)
	}
	slices.Sort(names)

	out := make([]mcp.Tool, len(names))
	for i, n := range names {
		out[i] = m.schemas[n]
	}
	return out
}

// Definitions is Tools converted for the model.
func (m *Mux) Definitions() []message.ToolDefinition {
	return ConvertAll(m.Tools())
}
