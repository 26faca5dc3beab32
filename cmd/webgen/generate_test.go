package main

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sessionPattern = regexp.MustCompile(`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)

func resetGenerateFlags(t *testing.T) {
	t.Cleanup(func() {
		generateFlags.images = nil
		generateFlags.in = ""
		generateFlags.out = ""
		generateFlags.noStream = false
		generateFlags.noJournal = false
		generateFlags.showThinking = false
		generateFlags.maxIterations = 0
	})
}

func TestGenerate_WritesProject(t *testing.T) {
	isolate(t)
	model := newFakeEndpoint(t, writePageRounds()...)
	useEndpoint(t, model)
	resetGenerateFlags(t)
	buf := capture(t, generateCmd)

	out := t.TempDir()
	generateFlags.out = out
	generateFlags.noJournal = true

	require.NoError(t, runGenerate(generateCmd, []string{"make", "a", "page"}))

	assert.Contains(t, buf.String(), "Created the page.")
	assert.Contains(t, buf.String(), "→ write_file")
	assert.Contains(t, buf.String(), "index.html")
	assert.Contains(t, buf.String(), "Wrote 1 files")
	assert.Equal(t, 2, model.Calls())

	data, err := os.ReadFile(filepath.Join(out, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "<h1>Hi</h1>\n", string(data))
}

func TestGenerate_EditsInPlace(t *testing.T) {
	isolate(t)
	model := newFakeEndpoint(t,
		[]string{toolFrame("call_1", "delete_file", map[string]any{"path": "old.js"})},
		[]string{textFrame("Removed it.")},
	)
	useEndpoint(t, model)
	resetGenerateFlags(t)
	capture(t, generateCmd)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.js"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keep.js"), []byte("y"), 0644))
	generateFlags.in = dir
	generateFlags.out = dir
	generateFlags.noJournal = true

	require.NoError(t, runGenerate(generateCmd, []string{"remove old.js"}))

	assert.NoFileExists(t, filepath.Join(dir, "old.js"))
	assert.FileExists(t, filepath.Join(dir, "keep.js"))
}

func TestGenerate_MaxIterations(t *testing.T) {
	isolate(t)
	// The model never stops calling tools.
	model := newFakeEndpoint(t,
		[]string{toolFrame("call_1", "list_files", nil)},
	)
	useEndpoint(t, model)
	resetGenerateFlags(t)
	buf := capture(t, generateCmd)

	generateFlags.maxIterations = 2
	generateFlags.noJournal = true

	require.NoError(t, runGenerate(generateCmd, []string{"loop"}))
	assert.Equal(t, 2, model.Calls())
	assert.Contains(t, buf.String(), "max iterations")
	assert.Contains(t, buf.String(), "No file changes.")
}

func TestGenerate_InvalidConfig(t *testing.T) {
	isolate(t)
	resetGenerateFlags(t)
	capture(t, generateCmd)

	err := runGenerate(generateCmd, []string{"anything"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
}

func TestGenerate_BadImage(t *testing.T) {
	isolate(t)
	useEndpoint(t, newFakeEndpoint(t, writePageRounds()...))
	resetGenerateFlags(t)
	capture(t, generateCmd)

	generateFlags.images = []string{"missing.png"}
	generateFlags.noJournal = true
	assert.Error(t, runGenerate(generateCmd, []string{"use the image"}))
}

func TestGenerate_JournalAndHistory(t *testing.T) {
	isolate(t)
	useEndpoint(t, newFakeEndpoint(t, writePageRounds()...))
	resetGenerateFlags(t)
	buf := capture(t, generateCmd)

	require.NoError(t, runGenerate(generateCmd, []string{"make a page"}))
	session := sessionPattern.FindString(buf.String())
	require.NotEmpty(t, session, "generate should print the session id")

	hist := capture(t, historyCmd)
	t.Cleanup(func() { historyFlags.dataDir = "" })
	require.NoError(t, runHistory(historyCmd, nil))
	assert.Contains(t, hist.String(), "Sessions")

	assert.Contains(t, hist.String(), session)

	hist.Reset()
	require.NoError(t, runHistory(historyCmd, []string{session}))
	assert.Contains(t, hist.String(), "write_file")
	assert.Contains(t, hist.String(), "index.html")
	assert.Contains(t, hist.String(), "complete")

	err := runHistory(historyCmd, []string{"no-such-session"})
	assert.Error(t, err)
}
