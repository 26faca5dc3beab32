package main

import (
	"fmt"
	"image/color"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/webgen/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Display current configuration",
	Long: `Display the current resolved configuration showing values from all sources.

Configuration precedence (highest to lowest):
  1. Environment variables (WEBGEN_*)
  2. Project config (./webgen.yml)
  3. Global config ($XDG_CONFIG_HOME/webgen/webgen.yml)
  4. Defaults`,
	RunE: runConfig,
}

// maskSecret keeps the last four characters of a key.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

func configRows(cfg *config.Config) [][]string {
	headers := make([]string, 0, len(cfg.Headers))
	for _, k := range slices.Sorted(maps.Keys(cfg.Headers)) {
		headers = append(headers, k+"="+cfg.Headers[k])
	}
	return [][]string{
		{"preset", cfg.Preset},
		{"api_url", cfg.APIURL},
		{"api_key", maskSecret(cfg.APIKey)},
		{"model", cfg.Model},
		{"headers", strings.Join(headers, ", ")},
		{"stream", strconv.FormatBool(cfg.Stream)},
		{"thinking", strconv.FormatBool(cfg.Thinking)},
		{"thinking_budget", strconv.Itoa(cfg.ThinkingBudget)},
		{"max_iterations", strconv.Itoa(cfg.MaxIterations)},
		{"system_prompt_file", cfg.SystemPromptFile},
		{"templates_file", cfg.TemplatesFile},
		{"log_level", cfg.LogLevel},
		{"log_file", cfg.LogFile},
		{"data_dir", cfg.DataDir},
		{"tavily_api_key", maskSecret(cfg.TavilyAPIKey)},
		{"tavily_api_url", cfg.TavilyAPIURL},
	}
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	globalPath := config.GlobalPath()
	projectPath := config.ProjectPath()
	absProjectPath, err := filepath.Abs(projectPath)
	if err != nil {
		absProjectPath = projectPath
	}
	globalExists := fileExists(globalPath)
	projectExists := fileExists(projectPath)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render("Configuration"))
	fmt.Fprintln(out, newTable([]string{"Key", "Value"}, configRows(cfg), nil))
	fmt.Fprintln(out)

	status := func(found bool) string {
		if found {
			return "✓"
		}
		return "not found"
	}
	fileRows := [][]string{
		{"Global", globalPath, status(globalExists)},
		{"Project", absProjectPath, status(projectExists)},
	}
	fmt.Fprintln(out, titleStyle.Render("Config Files"))
	fmt.Fprintln(out, newTable([]string{"Type", "Path", "Status"}, fileRows, func(row, col int) color.Color {
		if col != 2 {
			return nil
		}
		if fileRows[row][2] == "✓" {
			return colorSuccess
		}
		return colorWarning
	}))

	var envRows [][]string
	for _, key := range config.Keys {
		name := config.EnvVar(key)
		if val := os.Getenv(name); val != "" {
			if strings.HasSuffix(key, "api_key") {
				val = maskSecret(val)
			}
			envRows = append(envRows, []string{name, val})
		}
	}
	if len(envRows) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, titleStyle.Render("Environment Overrides"))
		fmt.Fprintln(out, newTable([]string{"Variable", "Value"}, envRows, nil))
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(out)
		fmt.Fprintln(out, errorStyle.Render("⊗ "+err.Error()))
	}

	if !globalExists && !projectExists {
		fmt.Fprintln(out)
		fmt.Fprintln(out, warningStyle.Render("No config files found. Run 'webgen setup' to create one."))
	}
	return nil
}
