package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/webgen/internal/tools"
	"github.com/mark3labs/webgen/internal/websearch"
)

const (
	headerSessionID = "X-Mcp-Session-Id"
	jsonRPCVersion  = "2.0"
	protocolVersion = "2024-11-05"
)

// TestServerIntegration drives the file-system tools over HTTP.
func TestServerIntegration(t *testing.T) {
	ctx := context.Background()
	srv, fs := setupTestServer(t)

	port, err := srv.Start(ctx)
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, srv.Stop())
	}()

	// Give server a moment to fully initialize
	time.Sleep(100 * time.Millisecond)

	serverURL := srv.URL()
	assert.Equal(t, fmt.Sprintf("http://localhost:%d/mcp", port), serverURL)

	sessionID := initializeSession(t, serverURL)

	t.Run("InitProject", func(t *testing.T) {
		result := callTool(t, serverURL, sessionID, tools.InitProject, map[string]any{"template": "static"})
		assert.Contains(t, result, `template "static"`)
		assert.Equal(t, 3, fs.Len())
		assert.True(t, fs.Has("styles.css"))
	})

	t.Run("WriteAndList", func(t *testing.T) {
		result := callTool(t, serverURL, sessionID, tools.WriteFile, map[string]any{
			"path":    "app.js",
			"content": "console.log('hi')",
		})
		assert.Contains(t, result, "created: app.js")

		result = callTool(t, serverURL, sessionID, tools.ListFiles, nil)
		assert.Contains(t, result, "app.js")
		assert.Contains(t, result, "styles.css")
	})

	t.Run("SearchInFiles", func(t *testing.T) {
		result := callTool(t, serverURL, sessionID, tools.SearchInFiles, map[string]any{"pattern": "console\\.log"})
		assert.Equal(t, "app.js:1: console.log('hi')", result)
	})

	t.Run("ConsoleRoundTrip", func(t *testing.T) {
		callTool(t, serverURL, sessionID, ConsoleLog, map[string]any{"method": "warn", "message": "slow render"})
		result := callTool(t, serverURL, sessionID, tools.GetConsoleLogs, nil)
		assert.Equal(t, "[WARN] slow render", result)
	})

	t.Run("ErrorHandling", func(t *testing.T) {
		result := callTool(t, serverURL, sessionID, tools.PatchFile, map[string]any{
			"path":    "missing.js",
			"patches": []any{map[string]any{"search": "a", "replace": "b"}},
		})
		assert.Contains(t, result, "Error: file not found")
	})
}

// TestServerExternalTools checks that tools registered on the external mux
// are served through the dispatcher.
func TestServerExternalTools(t *testing.T) {
	srv, _ := setupTestServer(t)
	mux := tools.NewMux()
	websearch.New("").Register(mux)
	srv.cfg.External = mux
	srv.cfg.Dispatcher.Handler = mux.Handle

	_, err := srv.Start(context.Background())
	require.NoError(t, err)
	defer func() { assert.NoError(t, srv.Stop()) }()
	time.Sleep(100 * time.Millisecond)

	sessionID := initializeSession(t, srv.URL())
	result := callTool(t, srv.URL(), sessionID, websearch.WebSearch, map[string]any{"query": "vite"})
	assert.Contains(t, result, "API key is not configured")
}

// TestServerStartStop tests the Start and Stop lifecycle
func TestServerStartStop(t *testing.T) {
	srv, _ := setupTestServer(t)

	port, err := srv.Start(context.Background())
	require.NoError(t, err)
	assert.NotZero(t, port)

	serverURL := srv.URL()
	assert.Equal(t, fmt.Sprintf("http://localhost:%d/mcp", port), serverURL)

	// Give server a moment to fully initialize
	time.Sleep(100 * time.Millisecond)

	resp, err := http.Get(serverURL)
	require.NoError(t, err)
	assert.NoError(t, resp.Body.Close())

	require.NoError(t, srv.Stop())

	// Verify server is stopped (connection should fail)
	time.Sleep(100 * time.Millisecond)
	_, err = http.Get(serverURL)
	assert.Error(t, err, "expected connection error after server stopped")

	// Double-stop should be safe
	assert.NoError(t, srv.Stop())
}

// TestServerDoubleStart tests that starting a server twice fails
func TestServerDoubleStart(t *testing.T) {
	srv, _ := setupTestServer(t)

	_, err := srv.Start(context.Background())
	require.NoError(t, err)
	defer func() { assert.NoError(t, srv.Stop()) }()

	_, err = srv.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already started")
}

func TestServerRequiresDispatcher(t *testing.T) {
	_, err := New(Config{}).Start(context.Background())
	assert.Error(t, err)
}

// initializeSession initializes an MCP session and returns the session ID (or empty for stateless)
func initializeSession(t *testing.T, serverURL string) string {
	t.Helper()

	// Create initialize request
	initReq := map[string]any{
		"jsonrpc": jsonRPCVersion,
		"id":      1,
		"method":  "initialize",
		"params": map[string]any{
			"protocolVersion": protocolVersion,
			"clientInfo": map[string]any{
				"name":    "test-client",
				"version": "1.0.0",
			},
		},
	}

	reqBody, err := json.Marshal(initReq)
	if err != nil {
		t.Fatalf("failed to marshal initialize request: %v", err)
	}

	// Make POST request
	resp, err := http.Post(serverURL, "application/json", bytes.NewReader(reqBody))
	if err != nil {
		t.Fatalf("failed to make initialize request: %v", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			t.Errorf("failed to close response body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("initialize request failed with status %d: %s", resp.StatusCode, string(body))
	}

	// Get session ID from header (may be empty for stateless servers)
	sessionID := resp.Header.Get(headerSessionID)

	t.Logf("Session ID: %q", sessionID)
	return sessionID
}

// callTool makes an HTTP request to the MCP server to call a tool
func callTool(t *testing.T, serverURL string, sessionID string, toolName string, args map[string]any) string {
	t.Helper()

	// Create JSON-RPC request for tools/call
	jsonrpcReq := map[string]any{
		"jsonrpc": jsonRPCVersion,
		"id":      2,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      toolName,
			"arguments": args,
		},
	}

	// Marshal to JSON
	reqBody, err := json.Marshal(jsonrpcReq)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}

	// Make HTTP POST request with session ID header
	req, err := http.NewRequest(http.MethodPost, serverURL, bytes.NewReader(reqBody))
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerSessionID, sessionID)

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("failed to make HTTP request: %v", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			t.Errorf("failed to close response body: %v", err)
		}
	}()

	// Read response
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}

	// Parse JSON-RPC response
	var jsonrpcResp map[string]any
	if err := json.Unmarshal(respBody, &jsonrpcResp); err != nil {
		t.Fatalf("failed to unmarshal response: %v (body: %s)", err, string(respBody))
	}

	result, ok := jsonrpcResp["result"].(map[string]any)
	if !ok {
		// Check for error
		if errObj, ok := jsonrpcResp["error"]; ok {
			t.Fatalf("tool call failed: %v", errObj)
		}
		t.Fatalf("unexpected response format: %v", jsonrpcResp)
	}

	// Extract content array
	content, ok := result["content"].([]any)
	if !ok || len(content) == 0 {
		return ""
	}

	// Extract text from first content item
	if contentItem, ok := content[0].(map[string]any); ok {
		if text, ok := contentItem["text"].(string); ok {
			return text
		}
	}

	t.Fatalf("unexpected content type: %T", content[0])
	return ""
}
