package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/mark3labs/webgen/internal/config"
	"github.com/mark3labs/webgen/internal/logger"
	"github.com/mark3labs/webgen/internal/mcpserver"
	"github.com/mark3labs/webgen/internal/message"
	"github.com/mark3labs/webgen/internal/templates"
	"github.com/mark3labs/webgen/internal/tools"
	"github.com/mark3labs/webgen/internal/vfs"
)

var serveFlags struct {
	addr string
	in   string
	out  string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the project tools over MCP",
	Long: `Expose the project tools (init_project, write_file, patch_file, ...) and the
web tools on an MCP streamable HTTP endpoint, so another agent can build a
project in webgen's virtual file system.

A preview can push its console output with the console_log tool; it is read
back with get_console_logs. On Ctrl-C the project is written to --out.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.addr, "addr", "127.0.0.1:0", "Listen address")
	f.StringVar(&serveFlags.in, "in", "", "Directory to load the starting project from")
	f.StringVarP(&serveFlags.out, "out", "o", "", "Directory to write the project to on shutdown")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	catalog, err := templates.Load(cfg.TemplatesFile)
	if err != nil {
		return err
	}

	var initial message.Files
	if serveFlags.in != "" {
		if initial, err = readProject(serveFlags.in); err != nil {
			return err
		}
	}

	ts := newToolset(cfg)
	fs := vfs.New(initial)
	dispatcher := &tools.Dispatcher{
		FS:        fs,
		Templates: catalog,
		Handler:   ts.mux.Handle,
		Events: tools.Events{
			OnToolResult: func(name string, _ map[string]any, result string) {
				logger.Info("tool %s: %s", name, vfs.Preview(result))
			},
		},
	}

	srv := mcpserver.New(mcpserver.Config{
		Dispatcher: dispatcher,
		External:   ts.mux,
		Console:    ts.console,
		Addr:       serveFlags.addr,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if _, err := srv.Start(ctx); err != nil {
		return fmt.Errorf("failed to start MCP server: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render("MCP server listening"))
	fmt.Fprintln(out, srv.URL())
	fmt.Fprintln(out, mutedStyle.Render("Press Ctrl-C to stop."))

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-srv.Errors():
	}
	if err := srv.Stop(); err != nil {
		logger.Warn("MCP server stop: %v", err)
	}
	if serveErr != nil {
		return fmt.Errorf("MCP server failed: %w", serveErr)
	}

	if serveFlags.out == "" {
		return nil
	}
	files := fs.Snapshot()
	var before message.Files
	if serveFlags.out == serveFlags.in {
		before = initial
	}
	warnOverwrites(cmd.Context(), out, serveFlags.out, files)
	if err := syncProject(serveFlags.out, before, files); err != nil {
		return err
	}
	fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✓ Wrote %d files to %s", len(files), serveFlags.out)))
	return nil
}
