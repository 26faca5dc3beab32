package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/webgen/internal/errors"
	"github.com/mark3labs/webgen/internal/generator"
	"github.com/mark3labs/webgen/internal/message"
	"github.com/mark3labs/webgen/internal/nats"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	ns, err := nats.StartEmbeddedNATS(t.TempDir())
	require.NoError(t, err)
	nc, err := nats.ConnectInProcess(ns)
	require.NoError(t, err)
	t.Cleanup(func() {
		nc.Close()
		ns.Shutdown()
	})

	js, err := nats.CreateJetStream(nc)
	require.NoError(t, err)
	stream, err := nats.SetupStream(ctx, js)
	require.NoError(t, err)

	return NewStore(js, stream)
}

func TestPublishAndList(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	seq, err := store.PublishEvent(ctx, Event{Session: "s1", Type: nats.EventTypeRun, Action: ActionStart, Data: "hello"})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), seq)

	require.NoError(t, store.FileChanged(ctx, "s1", message.FileChange{Path: "index.html", Action: message.ActionCreated}))
	require.NoError(t, store.RunStarted(ctx, "s2", "gpt-4o", "other"))

	events, err := store.List(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "hello", events[0].Data)
	assert.NotEmpty(t, events[0].ID)
	assert.False(t, events[0].Time.IsZero())
	assert.Equal(t, nats.EventTypeFile, events[1].Type)
	assert.Equal(t, "created", events[1].Action)
	assert.Equal(t, "index.html", events[1].Data)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := store.List(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPublishEvent_RequiresSession(t *testing.T) {
	store := setupTestStore(t)
	_, err := store.PublishEvent(context.Background(), Event{Type: "run"})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestList_MoreThanOneBatch(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	total := fetchBatch + 10
	for i := 0; i < total; i++ {
		_, err := store.PublishEvent(ctx, Event{Session: "big", Type: nats.EventTypeTool, Action: "list_files", Data: fmt.Sprint(i)})
		require.NoError(t, err)
	}

	events, err := store.List(ctx, "big")
	require.NoError(t, err)
	require.Len(t, events, total)
	assert.Equal(t, "0", events[0].Data)
	assert.Equal(t, fmt.Sprint(total-1), events[total-1].Data)
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	require.NoError(t, store.RunStarted(ctx, "old", "m", "a"))
	require.NoError(t, store.RunStarted(ctx, "new", "m", "b"))
	require.NoError(t, store.RunFailed(ctx, "new", errors.New("boom")))

	sessions, err := store.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "new", sessions[0].Session)
	assert.Equal(t, 2, sessions[0].Events)
	assert.Equal(t, "old", sessions[1].Session)
}

func TestRecorder_Wrap(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	rec := NewRecorder(ctx, store, NewSessionID())

	var forwarded []string
	events := rec.Wrap(generator.Events{
		OnFileChange: func(c message.FileChange) { forwarded = append(forwarded, "file:"+c.Path) },
		OnComplete:   func(r *message.Result) { forwarded = append(forwarded, "complete") },
	})

	rec.Start("gpt-4o", "make a page")
	events.OnTemplateChange("static", message.Files{"index.html": "", "styles.css": ""})
	events.OnToolResult("write_file", map[string]any{"path": "index.html"}, "OK — modified: index.html (3 chars)")
	events.OnFileChange(message.FileChange{Path: "index.html", Action: message.ActionModified})
	events.OnDependenciesChange(message.Files{"package.json": "{}"})
	events.OnComplete(&message.Result{Text: "done", Aborted: true})

	assert.Equal(t, []string{"file:index.html", "complete"}, forwarded)

	got, err := store.List(ctx, rec.Session())
	require.NoError(t, err)
	require.Len(t, got, 6)

	kinds := make([]string, len(got))
	for i, ev := range got {
		kinds[i] = ev.Type + "/" + ev.Action
	}
	assert.Equal(t, []string{
		"run/start", "template/static", "tool/write_file", "file/modified", "dependencies/update", "run/abort",
	}, kinds)

	var meta map[string]any
	require.NoError(t, json.Unmarshal(got[0].Meta, &meta))
	assert.Equal(t, "gpt-4o", meta["model"])
	assert.Equal(t, "done", got[5].Data)
}
