package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"charm.land/glamour/v2"
	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"

	"github.com/mark3labs/webgen/internal/generator"
	"github.com/mark3labs/webgen/internal/journal"
	"github.com/mark3labs/webgen/internal/logger"
	"github.com/mark3labs/webgen/internal/message"
	"github.com/mark3labs/webgen/internal/vfs"
)

var chatFlags struct {
	in        string
	out       string
	raw       bool
	noJournal bool
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Build a project interactively",
	Long: `Start an interactive session. Every line is a prompt for the model, which
keeps the conversation and the project between turns.

Commands:
  /retry          resend the conversation without a new prompt
  /files          list project files
  /show <path>    print a file with syntax highlighting
  /diff           show what the last turn changed
  /edit <path>    open a file in $EDITOR and keep the result
  /save [dir]     write the project (default: --out)
  /reset          forget the conversation, keep the files
  /quit           leave

Ctrl-C aborts the running turn.`,
}

func init() {
	// Assigned here rather than in the literal to break the initialization
	// cycle chatCmd -> runChat -> command -> chatCmd.Long.
	chatCmd.RunE = runChat
	f := chatCmd.Flags()
	f.StringVar(&chatFlags.in, "in", "", "Directory to load the starting project from")
	f.StringVarP(&chatFlags.out, "out", "o", "", "Directory /save writes to")
	f.BoolVar(&chatFlags.raw, "raw", false, "Stream raw text instead of rendering markdown after each turn")
	f.BoolVar(&chatFlags.noJournal, "no-journal", false, "Do not record the session in the event journal")
}

// chatSession is the state of one REPL.
type chatSession struct {
	gen      *generator.Generator
	out      io.Writer
	render   func(string) string
	raw      bool
	lastTurn message.Files // project before the latest turn, for /diff
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var initial message.Files
	if chatFlags.in != "" {
		if initial, err = readProject(chatFlags.in); err != nil {
			return err
		}
	}

	opts, err := generatorOptions(cfg, newToolset(cfg))
	if err != nil {
		return err
	}
	opts.InitialFiles = initial

	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	s := &chatSession{out: out, raw: chatFlags.raw, render: markdownRenderer()}

	events := generator.Events{
		OnToolCall: func(name string) {
			fmt.Fprintln(errOut, mutedStyle.Render("→ "+name))
		},
	}
	if s.raw {
		events.OnText = func(delta string) { fmt.Fprint(out, delta) }
	}

	ctx := cmd.Context()
	var rec *journal.Recorder
	if !chatFlags.noJournal {
		wrapped, r, closeJournal := attachJournal(ctx, cfg.DataDir, events)
		defer closeJournal()
		events = wrapped
		if r != nil {
			rec = r
			fmt.Fprintln(out, mutedStyle.Render("Session: "+r.Session()))
		}
	}

	s.gen = generator.New(opts, events)
	s.lastTurn = s.gen.Files()

	fmt.Fprintln(out, titleStyle.Render("webgen chat")+mutedStyle.Render(" ("+cfg.Model+", /quit to leave)"))

	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		fmt.Fprint(out, titleStyle.Render("> "))
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := s.command(ctx, line)
			if err != nil {
				fmt.Fprintln(out, errorStyle.Render("⊗ "+err.Error()))
			}
			if quit {
				return nil
			}
			continue
		}

		if rec != nil {
			rec.Start(cfg.Model, line)
		}
		s.turn(ctx, func(ctx context.Context) (*message.Result, error) {
			return s.gen.Generate(ctx, line)
		})
	}
	return scanner.Err()
}

// turn runs one generation, aborting it on Ctrl-C, and prints the outcome.
func (s *chatSession) turn(ctx context.Context, run func(context.Context) (*message.Result, error)) {
	before := s.gen.Files()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	done := make(chan struct{})
	go func() {
		select {
		case <-sigs:
			s.gen.Abort()
		case <-done:
		}
	}()

	result, err := run(ctx)
	close(done)
	signal.Stop(sigs)

	if err != nil {
		fmt.Fprintln(s.out, errorStyle.Render("⊗ "+err.Error()))
		fmt.Fprintln(s.out, mutedStyle.Render("Use /retry to try again."))
		return
	}
	s.lastTurn = before

	if s.raw {
		fmt.Fprintln(s.out)
	} else if result.Text != "" {
		fmt.Fprint(s.out, s.render(result.Text))
	}
	if rows := changeRows(before, result.Files); len(rows) > 0 {
		fmt.Fprintln(s.out, changeTable(rows))
	}
	if result.Aborted {
		fmt.Fprintln(s.out, warningStyle.Render("⊘ Aborted"))
	}
	if result.MaxIterationsReached {
		fmt.Fprintln(s.out, warningStyle.Render("⊘ Stopped after reaching max iterations"))
	}
}

// command handles a slash command. It reports whether the REPL should end.
func (s *chatSession) command(ctx context.Context, line string) (bool, error) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/quit", "/exit":
		return true, nil
	case "/retry":
		s.turn(ctx, s.gen.Retry)
	case "/files":
		s.listFiles()
	case "/show":
		return false, s.show(arg)
	case "/diff":
		if diff := vfs.FormatDiff(vfs.Diff(s.lastTurn, s.gen.Files())); diff != "" {
			return false, quick.Highlight(s.out, diff, "diff", "terminal256", "catppuccin-mocha")
		}
		fmt.Fprintln(s.out, mutedStyle.Render("No changes."))
	case "/edit":
		return false, s.edit(arg)
	case "/save":
		return false, s.save(arg)
	case "/reset":
		if err := s.gen.Reset(); err != nil {
			return false, err
		}
		fmt.Fprintln(s.out, mutedStyle.Render("Conversation cleared."))
	case "/help":
		fmt.Fprintln(s.out, chatCmd.Long)
	default:
		return false, fmt.Errorf("unknown command %s (try /help)", name)
	}
	return false, nil
}

func (s *chatSession) listFiles() {
	files := s.gen.Files()
	if len(files) == 0 {
		fmt.Fprintln(s.out, mutedStyle.Render("(empty project)"))
		return
	}
	fs := vfs.New(files)
	rows := make([][]string, 0, fs.Len())
	for _, p := range fs.Paths() {
		rows = append(rows, []string{p, fmt.Sprintf("%d", len(files[p]))})
	}
	fmt.Fprintln(s.out, newTable([]string{"File", "Bytes"}, rows, nil))
}

func (s *chatSession) show(path string) error {
	if path == "" {
		return fmt.Errorf("usage: /show <path>")
	}
	content, ok := vfs.New(s.gen.Files()).Get(path)
	if !ok {
		return fmt.Errorf("file not found: %s", path)
	}
	if err := quick.Highlight(s.out, content, path, "terminal256", "catppuccin-mocha"); err != nil {
		return err
	}
	fmt.Fprintln(s.out)
	return nil
}

// edit opens path in the user's editor through a temp file and stores the
// edited content back into the project.
func (s *chatSession) edit(path string) error {
	if path == "" {
		return fmt.Errorf("usage: /edit <path>")
	}
	path = vfs.Normalize(path)
	files := s.gen.Files()

	tmp, err := os.CreateTemp("", "webgen-*"+filepath.Ext(path))
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.WriteString(files[path]); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	c, err := editor.Command("webgen", tmp.Name())
	if err != nil {
		return fmt.Errorf("failed to start editor: %w", err)
	}
	c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := c.Run(); err != nil {
		return fmt.Errorf("editor failed: %w", err)
	}

	data, err := os.ReadFile(tmp.Name())
	if err != nil {
		return fmt.Errorf("failed to read edited file: %w", err)
	}
	if files[path] == string(data) {
		fmt.Fprintln(s.out, mutedStyle.Render("No changes."))
		return nil
	}
	files[path] = string(data)
	s.gen.SetFiles(files)
	logger.Info("Edited %s in editor", path)
	fmt.Fprintln(s.out, successStyle.Render("✓ Updated "+path))
	return nil
}

func (s *chatSession) save(dir string) error {
	if dir == "" {
		dir = chatFlags.out
	}
	if dir == "" {
		return fmt.Errorf("usage: /save <dir> (or start chat with --out)")
	}
	files := s.gen.Files()
	warnOverwrites(context.Background(), s.out, dir, files)
	if err := syncProject(dir, nil, files); err != nil {
		return err
	}
	fmt.Fprintln(s.out, successStyle.Render(fmt.Sprintf("✓ Wrote %d files to %s", len(files), dir)))
	return nil
}

// markdownRenderer returns a glamour renderer, or the identity function
// when one cannot be built.
func markdownRenderer() func(string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		logger.Warn("markdown rendering disabled: %v", err)
		return func(s string) string { return s + "\n" }
	}
	return func(s string) string {
		out, err := r.Render(s)
		if err != nil {
			return s + "\n"
		}
		return out
	}
}
