package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/webgen/internal/generator"
	"github.com/mark3labs/webgen/internal/message"
)

var generateFlags struct {
	images        []string
	in            string
	out           string
	noStream      bool
	noJournal     bool
	showThinking  bool
	maxIterations int
}

var generateCmd = &cobra.Command{
	Use:   "generate <prompt>",
	Short: "Generate or edit a project from a prompt",
	Long: `Run one generation: the model works on the project until it stops calling
tools or max_iterations is reached.

Text is streamed to stdout and tool calls to stderr. With --in the project
starts from the files of that directory; with --out the result is written
there. Press Ctrl-C to abort the run; the files generated so far are still
written.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.StringArrayVar(&generateFlags.images, "image", nil, "Image URL or file attached to the prompt (repeatable)")
	f.StringVar(&generateFlags.in, "in", "", "Directory to load the starting project from")
	f.StringVarP(&generateFlags.out, "out", "o", "", "Directory to write the generated project to")
	f.BoolVar(&generateFlags.noStream, "no-stream", false, "Request a single JSON response instead of a stream")
	f.BoolVar(&generateFlags.noJournal, "no-journal", false, "Do not record the run in the event journal")
	f.BoolVar(&generateFlags.showThinking, "show-thinking", false, "Print reasoning deltas to stderr")
	f.IntVar(&generateFlags.maxIterations, "max-iterations", 0, "Override max_iterations")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	prompt := strings.Join(args, " ")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var initial message.Files
	if generateFlags.in != "" {
		if initial, err = readProject(generateFlags.in); err != nil {
			return err
		}
	}

	images := make([]string, 0, len(generateFlags.images))
	for _, ref := range generateFlags.images {
		url, err := imageURL(ref)
		if err != nil {
			return err
		}
		images = append(images, url)
	}

	opts, err := generatorOptions(cfg, newToolset(cfg))
	if err != nil {
		return err
	}
	opts.InitialFiles = initial
	if generateFlags.noStream {
		opts.Stream = false
	}
	if generateFlags.maxIterations > 0 {
		opts.MaxIterations = generateFlags.maxIterations
	}

	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	events := generator.Events{
		OnText: func(delta string) { fmt.Fprint(out, delta) },
		OnToolCall: func(name string) {
			fmt.Fprintln(errOut, mutedStyle.Render("→ "+name))
		},
	}
	if generateFlags.showThinking {
		events.OnThinking = func(delta string) { fmt.Fprint(errOut, mutedStyle.Render(delta)) }
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	session := ""
	if !generateFlags.noJournal {
		wrapped, rec, closeJournal := attachJournal(ctx, cfg.DataDir, events)
		defer closeJournal()
		events = wrapped
		if rec != nil {
			rec.Start(cfg.Model, prompt)
			session = rec.Session()
		}
	}

	gen := generator.New(opts, events)
	result, err := gen.Generate(ctx, prompt, images...)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}
	fmt.Fprintln(out)

	return reportResult(cmd, initial, result, session)
}

// reportResult prints the change table and run notes, then writes the
// project when --out is set.
func reportResult(cmd *cobra.Command, initial message.Files, result *message.Result, session string) error {
	out := cmd.OutOrStdout()

	if rows := changeRows(initial, result.Files); len(rows) > 0 {
		fmt.Fprintln(out, titleStyle.Render("Changes"))
		fmt.Fprintln(out, changeTable(rows))
	} else {
		fmt.Fprintln(out, mutedStyle.Render("No file changes."))
	}

	if result.Aborted {
		fmt.Fprintln(out, warningStyle.Render("⊘ Generation aborted"))
	}
	if result.MaxIterationsReached {
		fmt.Fprintln(out, warningStyle.Render("⊘ Stopped after reaching max iterations"))
	}
	if session != "" {
		fmt.Fprintln(out, mutedStyle.Render("Session: "+session))
	}

	if generateFlags.out == "" {
		return nil
	}
	// Deletions only apply when writing back over the input directory.
	var before message.Files
	if generateFlags.out == generateFlags.in {
		before = initial
	}
	warnOverwrites(cmd.Context(), out, generateFlags.out, result.Files)
	if err := syncProject(generateFlags.out, before, result.Files); err != nil {
		return err
	}
	fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✓ Wrote %d files to %s", len(result.Files), generateFlags.out)))
	return nil
}
