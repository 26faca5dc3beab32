package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetChatFlags(t *testing.T) {
	t.Cleanup(func() {
		chatFlags.in = ""
		chatFlags.out = ""
		chatFlags.raw = false
		chatFlags.noJournal = false
	})
}

func TestChat_Session(t *testing.T) {
	isolate(t)
	model := newFakeEndpoint(t, writePageRounds()...)
	useEndpoint(t, model)
	resetChatFlags(t)
	buf := capture(t, chatCmd)

	out := t.TempDir()
	chatFlags.raw = true
	chatFlags.noJournal = true
	chatFlags.out = out

	chatCmd.SetIn(strings.NewReader(strings.Join([]string{
		"make a page",
		"/files",
		"/show missing.html",
		"/diff",
		"/save",
		"/reset",
		"/bogus",
		"/quit",
		"never sent",
	}, "\n")))

	require.NoError(t, runChat(chatCmd, nil))

	got := buf.String()
	assert.Contains(t, got, "Created the page.")
	assert.Contains(t, got, "index.html")
	assert.Contains(t, got, "file not found: missing.html")
	assert.Contains(t, got, "Wrote 1 files")
	assert.Contains(t, got, "Conversation cleared.")
	assert.Contains(t, got, "unknown command /bogus")
	assert.NotContains(t, got, "never sent")
	assert.Equal(t, 2, model.Calls(), "lines after /quit are not sent")
	assert.FileExists(t, out+"/index.html")
}

func TestChat_RetryAfterFailure(t *testing.T) {
	isolate(t)
	useEndpoint(t, newFakeEndpoint(t, writePageRounds()...))
	// Point at a closed port first so the turn fails.
	t.Setenv("WEBGEN_API_URL", "http://127.0.0.1:1/v1/chat/completions")
	resetChatFlags(t)
	buf := capture(t, chatCmd)

	chatFlags.raw = true
	chatFlags.noJournal = true
	chatCmd.SetIn(strings.NewReader("hello\n/diff\n"))

	require.NoError(t, runChat(chatCmd, nil), "EOF ends the session")
	assert.Contains(t, buf.String(), "Use /retry to try again.")
	assert.Contains(t, buf.String(), "No changes.")
}

func TestChat_SaveWithoutDir(t *testing.T) {
	isolate(t)
	useEndpoint(t, newFakeEndpoint(t, writePageRounds()...))
	resetChatFlags(t)
	buf := capture(t, chatCmd)

	chatFlags.noJournal = true
	chatCmd.SetIn(strings.NewReader("/save\n/show\n/edit\n/exit\n"))

	require.NoError(t, runChat(chatCmd, nil))
	assert.Contains(t, buf.String(), "usage: /save")
	assert.Contains(t, buf.String(), "usage: /show")
	assert.Contains(t, buf.String(), "usage: /edit")
}
