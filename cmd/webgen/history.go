package main

import (
	"fmt"
	"image/color"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mark3labs/webgen/internal/config"
	"github.com/mark3labs/webgen/internal/journal"
	"github.com/mark3labs/webgen/internal/message"
	"github.com/mark3labs/webgen/internal/vfs"
)

var historyFlags struct {
	dataDir string
}

var historyCmd = &cobra.Command{
	Use:   "history [session]",
	Short: "Show journaled sessions and events",
	Long: `Without arguments, list every journaled session, most recent first.
With a session id, replay that session's events: runs, tool calls, file
changes, template and dependency updates.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyFlags.dataDir, "data-dir", "", "Data directory for NATS storage (default: data_dir)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	dataDir := historyFlags.dataDir
	if dataDir == "" {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		dataDir = cfg.DataDir
	}

	ctx := cmd.Context()
	store, closeJournal, err := openJournal(ctx, dataDir)
	if err != nil {
		return err
	}
	defer closeJournal()

	out := cmd.OutOrStdout()
	if len(args) == 0 {
		sessions, err := store.Sessions(ctx)
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
		if len(sessions) == 0 {
			fmt.Fprintln(out, mutedStyle.Render("No sessions recorded yet."))
			return nil
		}
		fmt.Fprintln(out, titleStyle.Render("Sessions"))
		fmt.Fprintln(out, sessionTable(sessions))
		return nil
	}

	events, err := store.List(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to list events: %w", err)
	}
	if len(events) == 0 {
		return fmt.Errorf("no events for session %s", args[0])
	}
	fmt.Fprintln(out, titleStyle.Render("Session "+args[0]))
	fmt.Fprintln(out, eventTable(events))
	return nil
}

func sessionTable(sessions []journal.SessionSummary) fmt.Stringer {
	rows := make([][]string, len(sessions))
	for i, s := range sessions {
		rows[i] = []string{
			s.Session,
			strconv.Itoa(s.Events),
			s.First.Local().Format(time.DateTime),
			s.Last.Local().Format(time.DateTime),
		}
	}
	return newTable([]string{"Session", "Events", "Started", "Last Event"}, rows, nil)
}

func eventTable(events []journal.Event) fmt.Stringer {
	rows := make([][]string, len(events))
	for i, ev := range events {
		detail := ev.Data
		if detail == "" && len(ev.Meta) > 0 {
			detail = string(ev.Meta)
		}
		rows[i] = []string{
			ev.Time.Local().Format(time.TimeOnly),
			ev.Type,
			ev.Action,
			vfs.Preview(detail),
		}
	}
	return newTable([]string{"Time", "Type", "Action", "Detail"}, rows, func(row, col int) color.Color {
		if col != 2 {
			return nil
		}
		switch events[row].Action {
		case journal.ActionComplete, string(message.ActionCreated):
			return colorSuccess
		case journal.ActionError, string(message.ActionDeleted):
			return colorError
		case journal.ActionAbort, string(message.ActionModified):
			return colorWarning
		}
		return nil
	})
}
