package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/mark3labs/webgen/internal/config"
	"github.com/mark3labs/webgen/internal/logger"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	err := fang.Execute(context.Background(), rootCmd,
		fang.WithVersion(version),
		fang.WithCommit(commit),
	)
	_ = logger.Close()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "webgen",
	Short: "Generate web projects with a tool-calling LLM",
	Long: `webgen drives an OpenAI-compatible chat-completions model in a tool-calling
loop. The model builds a web project inside an in-memory file system using
init_project, write_file, patch_file and friends; webgen streams its text,
applies the tool calls and writes the resulting files to disk.

Every run is journaled to an embedded NATS JetStream store under data_dir.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(templatesCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(genTemplateCmd)
	rootCmd.AddCommand(versionCmd)
}

// setupLogging applies log_level and log_file before any command runs.
func setupLogging(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		// Commands that need the config report the error themselves.
		return nil
	}
	return logger.Setup(cfg.LogLevel, cfg.LogFile)
}
