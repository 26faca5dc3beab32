package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/webgen/internal/config"
)

// fakeEndpoint serves scripted chat-completions rounds as event streams
// and a fixed /models list.
type fakeEndpoint struct {
	t      *testing.T
	srv    *httptest.Server
	mu     sync.Mutex
	rounds [][]string // frames per round; the last round repeats
	calls  int
}

func newFakeEndpoint(t *testing.T, rounds ...[]string) *fakeEndpoint {
	t.Helper()
	f := &fakeEndpoint{t: t, rounds: rounds}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", f.chat)
	mux.HandleFunc("GET /v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"object":"list","data":[`+
			`{"id":"test-model","object":"model","created":0,"owned_by":"webgen"},`+
			`{"id":"other-model","object":"model","created":0,"owned_by":"someone"}]}`)
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeEndpoint) chat(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	i := min(f.calls, len(f.rounds)-1)
	f.calls++
	frames := f.rounds[i]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "text/event-stream")
	for _, frame := range frames {
		fmt.Fprintf(w, "data: %s\n\n", frame)
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
}

func (f *fakeEndpoint) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeEndpoint) URL() string {
	return f.srv.URL + "/v1/chat/completions"
}

// textFrame is a stream frame carrying a content delta.
func textFrame(s string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"delta": map[string]any{"content": s}}},
	})
	return string(b)
}

// toolFrame is a stream frame carrying one complete tool call.
func toolFrame(id, name string, args map[string]any) string {
	raw, _ := json.Marshal(args)
	b, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"delta": map[string]any{
			"tool_calls": []any{map[string]any{
				"index": 0,
				"id":    id,
				"type":  "function",
				"function": map[string]any{
					"name":      name,
					"arguments": string(raw),
				},
			}},
		}}},
	})
	return string(b)
}

// writePageRounds makes the model write index.html, then finish.
func writePageRounds() [][]string {
	return [][]string{
		{toolFrame("call_1", "write_file", map[string]any{"path": "index.html", "content": "<h1>Hi</h1>\n"})},
		{textFrame("Created "), textFrame("the page.")},
	}
}

// isolate runs the test from a temp dir with a temp global config and no
// WEBGEN_* overrides.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	for _, key := range config.Keys {
		t.Setenv(config.EnvVar(key), "")
		require.NoError(t, os.Unsetenv(config.EnvVar(key)))
	}
	return dir
}

// useEndpoint points the configuration at f through the environment.
func useEndpoint(t *testing.T, f *fakeEndpoint) {
	t.Helper()
	t.Setenv("WEBGEN_API_URL", f.URL())
	t.Setenv("WEBGEN_API_KEY", "sk-test")
	t.Setenv("WEBGEN_MODEL", "test-model")
	t.Setenv("WEBGEN_THINKING", "false")
}

// capture points cmd's output at a buffer for the duration of the test.
func capture(t *testing.T, cmd *cobra.Command) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetContext(context.Background())
	t.Cleanup(func() {
		cmd.SetOut(nil)
		cmd.SetErr(nil)
		cmd.SetIn(nil)
	})
	return &buf
}
