package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/webgen/internal/config"
)

var setupFlags struct {
	project bool
	force   bool
	preset  string
	model   string
	apiURL  string
	apiKey  string
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create webgen configuration file",
	Long: `Create a webgen configuration file from a preset.

By default, creates a global config at $XDG_CONFIG_HOME/webgen/webgen.yml.
Use --project to create a project-local config in the current directory.

Presets: ` + strings.Join(config.PresetNames(), ", "),
	RunE: runSetup,
}

func init() {
	f := setupCmd.Flags()
	f.BoolVarP(&setupFlags.project, "project", "p", false, "Create config in current directory instead of global location")
	f.BoolVarP(&setupFlags.force, "force", "f", false, "Overwrite existing config file")
	f.StringVar(&setupFlags.preset, "preset", config.DefaultPreset, "Endpoint preset")
	f.StringVar(&setupFlags.model, "model", "", "Model id (default: the preset's model)")
	f.StringVar(&setupFlags.apiURL, "api-url", "", "Chat-completions URL (default: the preset's URL)")
	f.StringVar(&setupFlags.apiKey, "api-key", "", "API key (or set WEBGEN_API_KEY)")
}

func runSetup(cmd *cobra.Command, args []string) error {
	targetPath := config.GlobalPath()
	write := config.WriteGlobal
	if setupFlags.project {
		targetPath = config.ProjectPath()
		write = config.WriteProject
	}

	if !setupFlags.force && fileExists(targetPath) {
		return fmt.Errorf("config file already exists at %s\n\nUse --force to overwrite", targetPath)
	}

	cfg := &config.Config{
		APIURL:         setupFlags.apiURL,
		APIKey:         setupFlags.apiKey,
		Model:          setupFlags.model,
		Preset:         setupFlags.preset,
		Stream:         true,
		Thinking:       true,
		ThinkingBudget: 10000,
		MaxIterations:  30,
		LogLevel:       "info",
		DataDir:        ".webgen",
	}
	if _, ok := config.Presets[cfg.Preset]; !ok {
		return fmt.Errorf("unknown preset %q (available: %s)", cfg.Preset, strings.Join(config.PresetNames(), ", "))
	}
	cfg.ApplyPreset()

	if err := write(cfg); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nConfig written to: %s\n\n", targetPath)
	if cfg.APIKey == "" && config.Presets[cfg.Preset].KeyRequired {
		fmt.Fprintln(out, warningStyle.Render("No API key stored. Set "+config.EnvVar("api_key")+" before generating."))
	}
	fmt.Fprintln(out, "Run 'webgen generate \"a todo app\" --out ./app' to get started.")
	return nil
}
