// Package tools executes model tool calls against the virtual file system
// and routes everything else to external handlers.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/webgen/internal/errors"
	"github.com/mark3labs/webgen/internal/logger"
	"github.com/mark3labs/webgen/internal/message"
	"github.com/mark3labs/webgen/internal/vfs"
)

// TemplateLookup resolves init_project template names to file sets.
type TemplateLookup interface {
	Template(name string) (message.Files, bool)
	Names() []string
}

// Handler serves tools the dispatcher does not implement itself. A
// returned error is reported to the model, never to the caller.
type Handler func(ctx context.Context, name string, args map[string]any) (string, error)

// Events are optional notifications fired while executing tools.
type Events struct {
	// OnToolResult fires exactly once per call. args is nil when the
	// arguments could not be parsed.
	OnToolResult func(name string, args map[string]any, result string)
	// OnTemplateChange fires after init_project replaced the project.
	OnTemplateChange func(template string, files message.Files)
	// OnDependenciesChange fires after manage_dependencies wrote package.json.
	OnDependenciesChange func(files message.Files)
}

// Outcome is the result of one tool call.
type Outcome struct {
	Name    string
	Args    map[string]any
	Result  string
	Changes []message.FileChange
}

// Dispatcher runs tool calls sequentially against FS.
type Dispatcher struct {
	FS        *vfs.FS
	Templates TemplateLookup
	Handler   Handler
	Events    Events
}

// Execute runs one tool call. Tool failures come back as error strings in
// Outcome.Result so the model can correct itself.
func (d *Dispatcher) Execute(ctx context.Context, call message.ToolCall) Outcome {
	name := call.Function.Name
	out := Outcome{Name: name}

	args, err := parseArgs(call.Function.Arguments)
	if err != nil {
		logger.Debug("tool %s: bad arguments: %v", name, err)
		out.Result = fmt.Sprintf(`Error: failed to parse arguments for "%s"`, name)
		d.notify(out)
		return out
	}
	out.Args = args

	switch name {
	case InitProject:
		out.Result, out.Changes = d.initProject(stringArg(args, "template"))
	case ManageDependencies:
		out.Result, out.Changes = d.manageDependencies(stringArg(args, "package_json"))
	case ListFiles:
		out.Result = d.listFiles()
	case ReadFiles:
		out.Result = d.readFiles(args["paths"])
	case WriteFile:
		out.Result, out.Changes = d.writeFile(stringArg(args, "path"), stringArg(args, "content"))
	case PatchFile:
		out.Result, out.Changes = d.patchFile(stringArg(args, "path"), args["patches"])
	case DeleteFile:
		out.Result, out.Changes = d.deleteFile(stringArg(args, "path"))
	case SearchInFiles:
		out.Result = d.searchInFiles(stringArg(args, "pattern"))
	default:
		out.Result = d.external(ctx, name, args)
	}

	logger.Debug("tool %s: %d change(s)", name, len(out.Changes))
	d.notify(out)
	return out
}

func (d *Dispatcher) external(ctx context.Context, name string, args map[string]any) string {
	if d.Handler == nil {
		return fmt.Sprintf(`Error: unknown tool "%s"`, name)
	}
	result, err := errors.RecoverWithResult(func() (string, error) {
		return d.Handler(ctx, name, args)
	})
	if err != nil {
		var panicErr *errors.PanicError
		if errors.As(err, &panicErr) {
			logger.Error("custom tool %s panicked: %v\n%s", name, panicErr.Value, panicErr.StackTrace)
		}
		return fmt.Sprintf(`Error in custom tool "%s": %s`, name, err.Error())
	}
	return result
}

func (d *Dispatcher) notify(out Outcome) {
	if d.Events.OnToolResult != nil {
		d.Events.OnToolResult(out.Name, out.Args, out.Result)
	}
}

// parseArgs decodes the raw argument string. An empty string decodes to an
// empty object.
func parseArgs(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

func stringArg(args map[string]any, key string) string {
	switch v := args[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
