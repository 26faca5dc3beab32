// Package generator runs the tool-calling loop that turns a prompt into
// project files.
package generator

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/mark3labs/webgen/internal/errors"
	"github.com/mark3labs/webgen/internal/llm"
	"github.com/mark3labs/webgen/internal/logger"
	"github.com/mark3labs/webgen/internal/message"
	"github.com/mark3labs/webgen/internal/template"
	"github.com/mark3labs/webgen/internal/tools"
	"github.com/mark3labs/webgen/internal/vfs"
)

const (
	DefaultMaxIterations  = 30
	DefaultThinkingBudget = 10000
)

// Options configures a Generator. Start from DefaultOptions so Stream and
// Thinking default to on.
type Options struct {
	APIURL  string            // Chat-completions endpoint (empty = OpenAI)
	APIKey  string            // Bearer token
	Model   string            // Model id
	Headers map[string]string // Extra request headers

	SystemPrompt   string        // Prompt template (empty = template.DefaultTemplate)
	InitialFiles   message.Files // Starting project
	MaxIterations  int           // Request rounds per run (0 = DefaultMaxIterations)
	Stream         bool          // Request an event stream
	Thinking       bool          // Send the thinking block
	ThinkingBudget int           // Thinking tokens (0 = DefaultThinkingBudget)

	Templates   tools.TemplateLookup     // Resolves init_project names
	ExtraTools  []message.ToolDefinition // Advertised after the built-ins
	ToolHandler tools.Handler            // Serves every non-built-in tool
	HTTPClient  *http.Client
}

// DefaultOptions returns options with streaming and thinking enabled.
func DefaultOptions() Options {
	return Options{
		SystemPrompt:   template.DefaultTemplate,
		MaxIterations:  DefaultMaxIterations,
		Stream:         true,
		Thinking:       true,
		ThinkingBudget: DefaultThinkingBudget,
	}
}

// Events are optional callbacks fired during a run, on the goroutine that
// called Generate or Retry.
type Events struct {
	OnText     func(delta string)
	OnThinking func(delta string)
	// OnToolCall fires when a tool name is first seen in a response.
	OnToolCall   func(name string)
	OnToolResult func(name string, args map[string]any, result string)

	OnFileChange         func(change message.FileChange)
	OnTemplateChange     func(template string, files message.Files)
	OnDependenciesChange func(files message.Files)

	OnComplete func(result *message.Result)
	OnError    func(err error)
}

// Generator owns one conversation and its virtual file system. Only one
// run may be active at a time.
type Generator struct {
	opts       Options
	events     Events
	client     *llm.Client
	fs         *vfs.FS
	dispatcher *tools.Dispatcher
	tools      []message.ToolDefinition

	mu      sync.Mutex // guards history, running and cancel
	history []message.Message
	running bool
	cancel  context.CancelFunc
}

// New creates a Generator.
func New(opts Options, events Events) *Generator {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.ThinkingBudget <= 0 {
		opts.ThinkingBudget = DefaultThinkingBudget
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = template.DefaultTemplate
	}

	var templateNames []string
	if opts.Templates != nil {
		templateNames = opts.Templates.Names()
	}
	defs := tools.Definitions(templateNames)
	defs = append(defs, opts.ExtraTools...)

	fs := vfs.New(opts.InitialFiles)
	g := &Generator{
		opts:   opts,
		events: events,
		client: llm.NewClient(opts.APIURL, opts.APIKey,
			llm.WithHeaders(opts.Headers),
			llm.WithHTTPClient(opts.HTTPClient)),
		fs:    fs,
		tools: defs,
	}
	g.dispatcher = &tools.Dispatcher{
		FS:        fs,
		Templates: opts.Templates,
		Handler:   opts.ToolHandler,
		Events: tools.Events{
			OnToolResult:         events.OnToolResult,
			OnTemplateChange:     events.OnTemplateChange,
			OnDependenciesChange: events.OnDependenciesChange,
		},
	}
	return g
}

// Generate appends a user turn and runs the loop. images are image URLs
// attached after the text.
func (g *Generator) Generate(ctx context.Context, prompt string, images ...string) (*message.Result, error) {
	user := message.NewUser(prompt, images...)
	runCtx, err := g.begin(ctx, &user)
	if err != nil {
		return nil, err
	}
	defer g.end()
	return g.run(runCtx)
}

// Retry resends the existing history without adding a turn.
func (g *Generator) Retry(ctx context.Context) (*message.Result, error) {
	runCtx, err := g.begin(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer g.end()
	return g.run(runCtx)
}

// Abort cancels the in-flight request. The active run returns a result
// with Aborted set. It is a no-op when nothing is running.
func (g *Generator) Abort() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancel != nil {
		logger.Info("Aborting generation")
		g.cancel()
	}
}

// Files returns a copy of the project.
func (g *Generator) Files() message.Files {
	return g.fs.Snapshot()
}

// SetFiles replaces the project. The next request sees the new files.
func (g *Generator) SetFiles(files message.Files) {
	g.fs.Replace(files)
}

// Messages returns a copy of the conversation history.
func (g *Generator) Messages() []message.Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	return message.CloneAll(g.history)
}

// Reset clears the conversation history. Files are kept.
func (g *Generator) Reset() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running {
		return errors.ErrBusy
	}
	g.history = nil
	return nil
}

// Tools returns the tool definitions sent with every request.
func (g *Generator) Tools() []message.ToolDefinition {
	return append([]message.ToolDefinition(nil), g.tools...)
}

// begin marks the generator busy, appends turn when non-nil and returns
// the context Abort cancels.
func (g *Generator) begin(ctx context.Context, turn *message.Message) (context.Context, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running {
		return nil, errors.ErrBusy
	}
	g.running = true
	if turn != nil {
		g.history = append(g.history, *turn)
	}
	runCtx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	return runCtx, nil
}

func (g *Generator) end() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancel != nil {
		g.cancel()
	}
	g.cancel = nil
	g.running = false
}

func (g *Generator) appendHistory(msgs ...message.Message) {
	g.mu.Lock()
	g.history = append(g.history, msgs...)
	g.mu.Unlock()
}

func (g *Generator) run(ctx context.Context) (*message.Result, error) {
	var text strings.Builder
	maxReached := false

	for i := 0; i < g.opts.MaxIterations; i++ {
		logger.Debug("Iteration %d/%d", i+1, g.opts.MaxIterations)

		msg, err := g.client.Complete(ctx, g.request(), g.handlers())
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("Generation aborted at iteration %d", i+1)
				return g.finish(text.String(), true, false), nil
			}
			logger.Error("Generation failed at iteration %d: %v", i+1, err)
			if g.events.OnError != nil {
				g.events.OnError(err)
			}
			return nil, err
		}

		g.appendHistory(msg)
		text.WriteString(msg.Text())

		if !msg.HasToolCalls() {
			if msg.Content.IsNull() {
				logger.Debug("Model finished with empty content")
			}
			break
		}

		for _, call := range msg.ToolCalls {
			out := g.dispatcher.Execute(ctx, call)
			g.appendHistory(message.NewToolResult(call.ID, out.Result))
			if g.events.OnFileChange != nil {
				for _, change := range out.Changes {
					g.events.OnFileChange(change)
				}
			}
		}

		if i == g.opts.MaxIterations-1 {
			logger.Warn("Reached max iterations (%d)", g.opts.MaxIterations)
			maxReached = true
		}
	}

	return g.finish(text.String(), false, maxReached), nil
}

func (g *Generator) finish(text string, aborted, maxReached bool) *message.Result {
	result := &message.Result{
		Files:                g.fs.Snapshot(),
		Messages:             g.Messages(),
		Text:                 text,
		Aborted:              aborted,
		MaxIterationsReached: maxReached,
	}
	if g.events.OnComplete != nil {
		g.events.OnComplete(result)
	}
	return result
}

// request assembles the system message, the history and the tool list.
func (g *Generator) request() llm.Request {
	system := template.Build(g.opts.SystemPrompt, g.opts.Model, g.fs.Paths())

	g.mu.Lock()
	msgs := make([]message.Message, 0, len(g.history)+1)
	msgs = append(msgs, message.NewSystem(system))
	msgs = append(msgs, g.history...)
	g.mu.Unlock()

	req := llm.Request{
		Model:    g.opts.Model,
		Messages: msgs,
		Tools:    g.tools,
		Stream:   g.opts.Stream,
	}
	if g.opts.Thinking {
		req.Thinking = llm.EnableThinking(g.opts.ThinkingBudget)
	}
	return req
}

func (g *Generator) handlers() llm.Handlers {
	h := llm.Handlers{
		OnText:     g.events.OnText,
		OnThinking: g.events.OnThinking,
	}
	if g.events.OnToolCall != nil {
		h.OnToolCall = func(name, _ string) { g.events.OnToolCall(name) }
	}
	return h
}
