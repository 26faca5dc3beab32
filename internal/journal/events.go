package journal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/webgen/internal/generator"
	"github.com/mark3labs/webgen/internal/logger"
	"github.com/mark3labs/webgen/internal/message"
	"github.com/mark3labs/webgen/internal/nats"
)

// Run actions.
const (
	ActionStart    = "start"
	ActionComplete = "complete"
	ActionAbort    = "abort"
	ActionError    = "error"
)

func (s *Store) publish(ctx context.Context, session, typ, action string, meta map[string]any, data string) error {
	var raw json.RawMessage
	if meta != nil {
		b, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("failed to marshal %s metadata: %w", typ, err)
		}
		raw = b
	}
	_, err := s.PublishEvent(ctx, Event{
		Session: session,
		Type:    typ,
		Action:  action,
		Meta:    raw,
		Data:    data,
	})
	return err
}

// RunStarted records a new Generate or Retry call.
func (s *Store) RunStarted(ctx context.Context, session, model, prompt string) error {
	return s.publish(ctx, session, nats.EventTypeRun, ActionStart,
		map[string]any{"model": model}, prompt)
}

// RunFinished records a completed or aborted run.
func (s *Store) RunFinished(ctx context.Context, session string, result *message.Result) error {
	action := ActionComplete
	if result.Aborted {
		action = ActionAbort
	}
	return s.publish(ctx, session, nats.EventTypeRun, action, map[string]any{
		"files":                  len(result.Files),
		"messages":               len(result.Messages),
		"max_iterations_reached": result.MaxIterationsReached,
	}, result.Text)
}

// RunFailed records a run that ended with a transport error.
func (s *Store) RunFailed(ctx context.Context, session string, err error) error {
	return s.publish(ctx, session, nats.EventTypeRun, ActionError, nil, err.Error())
}

// FileChanged records one file-system effect.
func (s *Store) FileChanged(ctx context.Context, session string, change message.FileChange) error {
	return s.publish(ctx, session, nats.EventTypeFile, string(change.Action), nil, change.Path)
}

// ToolCompleted records a tool result.
func (s *Store) ToolCompleted(ctx context.Context, session, name string, args map[string]any, result string) error {
	return s.publish(ctx, session, nats.EventTypeTool, name, map[string]any{"args": args}, result)
}

// TemplateChanged records an init_project.
func (s *Store) TemplateChanged(ctx context.Context, session, template string, files message.Files) error {
	return s.publish(ctx, session, nats.EventTypeTemplate, template,
		map[string]any{"files": len(files)}, fmt.Sprintf("Initialized %s (%d files)", template, len(files)))
}

// DependenciesChanged records a package.json update.
func (s *Store) DependenciesChanged(ctx context.Context, session string, files message.Files) error {
	return s.publish(ctx, session, nats.EventTypeDependencies, "update", nil, "package.json updated")
}

// Recorder journals the events of one session. Publish failures are logged
// and never interrupt a run.
type Recorder struct {
	store   *Store
	session string
	ctx     context.Context
}

// NewRecorder creates a recorder for session. ctx bounds every publish.
func NewRecorder(ctx context.Context, store *Store, session string) *Recorder {
	return &Recorder{store: store, session: session, ctx: ctx}
}

// Session returns the recorded session id.
func (r *Recorder) Session() string {
	return r.session
}

func (r *Recorder) check(err error) {
	if err != nil {
		logger.Warn("journal: %v", err)
	}
}

// Start records the beginning of a run.
func (r *Recorder) Start(model, prompt string) {
	r.check(r.store.RunStarted(r.ctx, r.session, model, prompt))
}

// Wrap returns events that journal activity and then call the matching
// callback of next.
func (r *Recorder) Wrap(next generator.Events) generator.Events {
	out := next
	out.OnToolResult = func(name string, args map[string]any, result string) {
		r.check(r.store.ToolCompleted(r.ctx, r.session, name, args, result))
		if next.OnToolResult != nil {
			next.OnToolResult(name, args, result)
		}
	}
	out.OnFileChange = func(change message.FileChange) {
		r.check(r.store.FileChanged(r.ctx, r.session, change))
		if next.OnFileChange != nil {
			next.OnFileChange(change)
		}
	}
	out.OnTemplateChange = func(template string, files message.Files) {
		r.check(r.store.TemplateChanged(r.ctx, r.session, template, files))
		if next.OnTemplateChange != nil {
			next.OnTemplateChange(template, files)
		}
	}
	out.OnDependenciesChange = func(files message.Files) {
		r.check(r.store.DependenciesChanged(r.ctx, r.session, files))
		if next.OnDependenciesChange != nil {
			next.OnDependenciesChange(files)
		}
	}
	out.OnComplete = func(result *message.Result) {
		r.check(r.store.RunFinished(r.ctx, r.session, result))
		if next.OnComplete != nil {
			next.OnComplete(result)
		}
	}
	out.OnError = func(err error) {
		r.check(r.store.RunFailed(r.ctx, r.session, err))
		if next.OnError != nil {
			next.OnError(err)
		}
	}
	return out
}
