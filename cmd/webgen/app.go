package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"image/color"
	"io"
	"io/fs"
	"maps"
	"mime"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"

	"github.com/mark3labs/webgen/internal/config"
	"github.com/mark3labs/webgen/internal/consolelog"
	"github.com/mark3labs/webgen/internal/generator"
	"github.com/mark3labs/webgen/internal/git"
	"github.com/mark3labs/webgen/internal/journal"
	"github.com/mark3labs/webgen/internal/logger"
	"github.com/mark3labs/webgen/internal/message"
	"github.com/mark3labs/webgen/internal/nats"
	"github.com/mark3labs/webgen/internal/template"
	"github.com/mark3labs/webgen/internal/templates"
	"github.com/mark3labs/webgen/internal/tools"
	"github.com/mark3labs/webgen/internal/vfs"
	"github.com/mark3labs/webgen/internal/websearch"
)

// Theme colors (catppuccin mocha)
var (
	colorPrimary = lipgloss.Color("#cba6f7") // Mauve
	colorMuted   = lipgloss.Color("#a6adc8") // Subtext0
	colorBase    = lipgloss.Color("#cdd6f4") // Text
	colorSuccess = lipgloss.Color("#a6e3a1") // Green
	colorWarning = lipgloss.Color("#f9e2af") // Yellow
	colorError   = lipgloss.Color("#f38ba8") // Red
	colorBorder  = lipgloss.Color("#585b70") // Surface2
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError)
)

// maxProjectFile caps the size of files picked up by readProject.
const maxProjectFile = 1 << 20

// newTable builds the rounded table every command prints. cellColor may
// return nil to keep the default: base for the first column, muted for
// the rest.
func newTable(headers []string, rows [][]string, cellColor func(row, col int) color.Color) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().
					Foreground(colorPrimary).
					Bold(true).
					Padding(0, 1)
			}
			style := lipgloss.NewStyle().Padding(0, 1)
			if cellColor != nil {
				if c := cellColor(row, col); c != nil {
					return style.Foreground(c)
				}
			}
			if col == 0 {
				return style.Foreground(colorBase)
			}
			return style.Foreground(colorMuted)
		})
}

// loadConfig resolves and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w\n\nRun 'webgen setup' or set %s", err, config.EnvVar("api_key"))
	}
	return cfg, nil
}

// systemPrompt returns the prompt template from system_prompt_file, or the
// built-in one.
func systemPrompt(cfg *config.Config) (string, error) {
	if cfg.SystemPromptFile == "" {
		return template.DefaultTemplate, nil
	}
	data, err := os.ReadFile(cfg.SystemPromptFile)
	if err != nil {
		return "", fmt.Errorf("failed to read system prompt: %w", err)
	}
	return string(data), nil
}

// toolset holds the external tools every command offers next to the
// built-in file tools.
type toolset struct {
	mux     *tools.Mux
	console *consolelog.Buffer
}

func newToolset(cfg *config.Config) *toolset {
	ts := &toolset{
		mux:     tools.NewMux(),
		console: consolelog.New(consolelog.DefaultCapacity),
	}
	ts.mux.Register(tools.ConsoleLogsTool(), ts.console.Handle)

	var opts []websearch.Option
	if cfg.TavilyAPIURL != "" {
		opts = append(opts, websearch.WithTavilyURL(cfg.TavilyAPIURL))
	}
	websearch.New(cfg.TavilyAPIKey, opts...).Register(ts.mux)
	return ts
}

// generatorOptions maps the configuration onto generator options.
func generatorOptions(cfg *config.Config, ts *toolset) (generator.Options, error) {
	prompt, err := systemPrompt(cfg)
	if err != nil {
		return generator.Options{}, err
	}
	catalog, err := templates.Load(cfg.TemplatesFile)
	if err != nil {
		return generator.Options{}, err
	}

	opts := generator.DefaultOptions()
	opts.APIURL = cfg.APIURL
	opts.APIKey = cfg.APIKey
	opts.Model = cfg.Model
	opts.Headers = cfg.Headers
	opts.SystemPrompt = prompt
	opts.MaxIterations = cfg.MaxIterations
	opts.Stream = cfg.Stream
	opts.Thinking = cfg.Thinking
	opts.ThinkingBudget = cfg.ThinkingBudget
	opts.Templates = catalog
	opts.ExtraTools = ts.mux.Definitions()
	opts.ToolHandler = ts.mux.Handle
	return opts, nil
}

// openJournal starts the embedded NATS server under dataDir and returns
// the event store with a function that stops it.
func openJournal(ctx context.Context, dataDir string) (*journal.Store, func(), error) {
	ns, err := nats.StartEmbeddedNATS(dataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start NATS: %w", err)
	}
	nc, err := nats.ConnectInProcess(ns)
	if err != nil {
		_ = nats.Shutdown(nil, ns)
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	closeFn := func() {
		if err := nats.Shutdown(nc, ns); err != nil {
			logger.Warn("NATS shutdown: %v", err)
		}
	}

	js, err := nats.CreateJetStream(nc)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("failed to create JetStream: %w", err)
	}
	stream, err := nats.SetupStream(ctx, js)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("failed to setup stream: %w", err)
	}
	return journal.NewStore(js, stream), closeFn, nil
}

// attachJournal wraps events with a journal recorder for a fresh session.
// A journal that cannot be opened is logged and skipped.
func attachJournal(ctx context.Context, dataDir string, events generator.Events) (generator.Events, *journal.Recorder, func()) {
	store, closeFn, err := openJournal(ctx, dataDir)
	if err != nil {
		logger.Warn("journal disabled: %v", err)
		return events, nil, func() {}
	}
	rec := journal.NewRecorder(context.WithoutCancel(ctx), store, journal.NewSessionID())
	return rec.Wrap(events), rec, closeFn
}

// skipDirs are never read into the project.
var skipDirs = map[string]bool{
	"node_modules": true,
	"dist":         true,
	"build":        true,
}

// readProject loads the text files under dir. Hidden entries, dependency
// and build directories, binary files and files over maxProjectFile are
// skipped.
func readProject(dir string) (message.Files, error) {
	files := make(message.Files)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == dir {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(name, ".") || skipDirs[name] {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() > maxProjectFile {
			logger.Debug("skipping %s: %d bytes", path, info.Size())
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if !utf8.Valid(data) {
			logger.Debug("skipping binary file %s", path)
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files[vfs.Normalize(filepath.ToSlash(rel))] = string(data)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read project %s: %w", dir, err)
	}
	return files, nil
}

// syncProject writes after to dir and removes the files of before that
// after no longer has.
func syncProject(dir string, before, after message.Files) error {
	for p, content := range after {
		target, err := projectPath(dir, p)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", p, err)
		}
		if err := os.WriteFile(target, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", p, err)
		}
	}
	for p := range before {
		if _, ok := after[p]; ok {
			continue
		}
		target, err := projectPath(dir, p)
		if err != nil {
			return err
		}
		if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}
	return nil
}

// projectPath maps a project path below dir, rejecting paths that would
// escape it.
func projectPath(dir, p string) (string, error) {
	rel := filepath.FromSlash(p)
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("refusing to write outside %s: %s", dir, p)
	}
	return filepath.Join(dir, rel), nil
}

// imageURL returns ref unchanged when it is already a URL, otherwise it
// reads the file and encodes it as a data URL.
func imageURL(ref string) (string, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "data:") {
		return ref, nil
	}
	data, err := os.ReadFile(ref)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(ref)))
	if !strings.HasPrefix(mimeType, "image/") {
		return "", fmt.Errorf("%s is not a recognized image type", ref)
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// changeRows summarizes the difference between two snapshots as
// path, action, +added and -removed columns.
func changeRows(before, after message.Files) [][]string {
	diffs := vfs.Diff(before, after)
	rows := make([][]string, 0, len(diffs))
	for _, d := range diffs {
		added, removed := 0, 0
		for line := range strings.SplitSeq(d.Unified, "\n") {
			switch {
			case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			case strings.HasPrefix(line, "+"):
				added++
			case strings.HasPrefix(line, "-"):
				removed++
			}
		}
		rows = append(rows, []string{d.Path, string(d.Action), fmt.Sprintf("+%d", added), fmt.Sprintf("-%d", removed)})
	}
	return rows
}

// changeTable renders changeRows, coloring the action column.
func changeTable(rows [][]string) *table.Table {
	return newTable([]string{"File", "Action", "Added", "Removed"}, rows, func(row, col int) color.Color {
		switch col {
		case 1:
			switch message.Action(rows[row][1]) {
			case message.ActionCreated:
				return colorSuccess
			case message.ActionDeleted:
				return colorError
			default:
				return colorWarning
			}
		case 2:
			return colorSuccess
		case 3:
			return colorError
		}
		return nil
	})
}

// warnOverwrites prints the files about to replace uncommitted changes in
// the git repository holding dir.
func warnOverwrites(ctx context.Context, w io.Writer, dir string, files message.Files) {
	info, err := git.GetInfo(ctx, dir)
	if err != nil {
		logger.Debug("git status of %s: %v", dir, err)
		return
	}
	paths := slices.Sorted(maps.Keys(files))
	for _, p := range info.Overwrites(dir, paths) {
		fmt.Fprintln(w, warningStyle.Render("⊘ Overwriting uncommitted changes in "+p))
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
