// Package mcpserver exposes the virtual file system tools over MCP
// streamable HTTP so other agents can drive a webgen project.
package mcpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mark3labs/webgen/internal/consolelog"
	"github.com/mark3labs/webgen/internal/errors"
	"github.com/mark3labs/webgen/internal/logger"
	"github.com/mark3labs/webgen/internal/tools"
)

const (
	serverName    = "webgen-tools"
	serverVersion = "1.0.0"
)

// Config selects what the server exposes.
type Config struct {
	Dispatcher *tools.Dispatcher  // Runs every tool call
	External   *tools.Mux         // Extra tools routed through Dispatcher.Handler (optional)
	Console    *consolelog.Buffer // Backs get_console_logs and console_log (optional)
	Addr       string             // host:port; empty picks a free localhost port
}

// Server manages an MCP HTTP server backed by one Dispatcher.
type Server struct {
	cfg        Config
	mcpServer  *server.MCPServer
	httpServer *server.StreamableHTTPServer
	host       string
	port       int
	errCh      chan error
	mu         sync.Mutex
}

// New creates a server. It is not listening until Start is called.
func New(cfg Config) *Server {
	return &Server{cfg: cfg, errCh: make(chan error, 1)}
}

// Errors reports a serve failure after Start returned.
func (s *Server) Errors() <-chan error {
	return s.errCh
}

// Start registers the tools and begins serving in the background. It
// returns the bound port.
func (s *Server) Start(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpServer != nil {
		return 0, fmt.Errorf("server already started")
	}
	if s.cfg.Dispatcher == nil {
		return 0, errors.NewValidationError("dispatcher", "", "dispatcher is required")
	}

	s.mcpServer = server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(true))
	s.registerTools()

	host, port, err := resolveAddr(s.cfg.Addr)
	if err != nil {
		return 0, err
	}
	s.host, s.port = host, port

	s.httpServer = server.NewStreamableHTTPServer(s.mcpServer, server.WithStateLess(true))

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	httpServer := s.httpServer
	logger.Debug("Starting MCP server on %s", addr)
	errors.SafeGo(func() error {
		if err := httpServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("MCP server error: %v", err)
			return err
		}
		return nil
	}, s.errCh)

	return s.port, nil
}

// resolveAddr splits addr, reserving a free port when none is given.
func resolveAddr(addr string) (string, int, error) {
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid address %q: %w", addr, err)
	}
	if host == "" {
		host = "127.0.0.1"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	if port != 0 {
		return host, port, nil
	}

	listener, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return "", 0, fmt.Errorf("failed to find available port: %w", err)
	}
	port = listener.Addr().(*net.TCPAddr).Port
	if err := listener.Close(); err != nil {
		return "", 0, fmt.Errorf("failed to close listener: %w", err)
	}
	return host, port, nil
}

// Stop shuts the HTTP server down. Stopping twice is safe.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpServer == nil {
		return nil
	}

	logger.Debug("Stopping MCP server")
	if err := s.httpServer.Shutdown(context.Background()); err != nil {
		logger.Warn("Error stopping MCP server: %v", err)
		return fmt.Errorf("failed to stop server: %w", err)
	}

	s.httpServer = nil
	s.mcpServer = nil
	return nil
}

// URL returns the MCP endpoint.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	host := s.host
	if host == "127.0.0.1" || host == "0.0.0.0" || host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s/mcp", net.JoinHostPort(host, strconv.Itoa(s.port)))
}
