package main

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/spf13/cobra"

	"github.com/mark3labs/webgen/internal/config"
	"github.com/mark3labs/webgen/internal/errors"
	"github.com/mark3labs/webgen/internal/templates"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and endpoint",
	Long: `Check that webgen is ready to run.

This command verifies that:
- A config file exists and the configuration is valid
- The model endpoint answers and knows the configured model
- The data directory is writable
- The template catalog and system prompt load
- Web search is configured`,
	RunE: runDoctor,
}

type checkResult struct {
	name    string
	status  string
	details string
}

const (
	statusOK   = "OK"
	statusWarn = "WARN"
	statusFail = "FAIL"
)

func runDoctor(cmd *cobra.Command, args []string) error {
	var results []checkResult
	add := func(name, status, details string) {
		results = append(results, checkResult{name: name, status: status, details: details})
	}

	cfg, err := config.Load()
	if err != nil {
		add("config", statusFail, err.Error())
		return printChecks(cmd, results)
	}

	if config.Exists() {
		add("config file", statusOK, "found")
	} else {
		add("config file", statusWarn, "none found, using defaults and environment. Run 'webgen setup'")
	}

	configOK := true
	if err := cfg.Validate(); err != nil {
		configOK = false
		var multi *errors.MultiError
		if errors.As(err, &multi) {
			for _, e := range multi.Errors {
				var ve *errors.ValidationError
				if errors.As(e, &ve) {
					add("config: "+ve.Field, statusFail, ve.Message)
					continue
				}
				add("config", statusFail, e.Error())
			}
		} else {
			add("config", statusFail, err.Error())
		}
	} else {
		add("config", statusOK, fmt.Sprintf("%s via %s", cfg.Model, cfg.APIURL))
	}

	if configOK {
		models, err := listModels(cmd.Context(), cfg)
		switch {
		case err != nil:
			add("endpoint", statusFail, err.Error())
		case !hasModel(models, cfg.Model):
			add("endpoint", statusWarn, fmt.Sprintf("reachable, but %s is not in its %d models", cfg.Model, len(models)))
		default:
			add("endpoint", statusOK, fmt.Sprintf("reachable, %d models", len(models)))
		}
	}

	if err := checkWritable(cfg.DataDir); err != nil {
		add("data dir", statusFail, err.Error())
	} else {
		add("data dir", statusOK, cfg.DataDir)
	}

	if catalog, err := templates.Load(cfg.TemplatesFile); err != nil {
		add("templates", statusFail, err.Error())
	} else {
		add("templates", statusOK, strings.Join(catalog.Names(), ", "))
	}

	if _, err := systemPrompt(cfg); err != nil {
		add("system prompt", statusFail, err.Error())
	} else if cfg.SystemPromptFile != "" {
		add("system prompt", statusOK, cfg.SystemPromptFile)
	} else {
		add("system prompt", statusOK, "built-in")
	}

	if cfg.TavilyAPIKey == "" {
		add("web search", statusWarn, "tavily_api_key not set: web_search is unavailable, web_reader uses Jina")
	} else {
		add("web search", statusOK, "Tavily")
	}

	return printChecks(cmd, results)
}

func printChecks(cmd *cobra.Command, results []checkResult) error {
	allOk := true
	rows := make([][]string, len(results))
	for i, r := range results {
		var icon string
		switch r.status {
		case statusOK:
			icon = "✓"
		case statusFail:
			icon = "⊗"
			allOk = false
		case statusWarn:
			icon = "⊘"
		}
		rows[i] = []string{r.name, icon, r.details}
	}

	t := newTable([]string{"Check", "Status", "Details"}, rows, func(row, col int) color.Color {
		if col != 1 {
			return nil
		}
		switch results[row].status {
		case statusOK:
			return colorSuccess
		case statusFail:
			return colorError
		default:
			return colorWarning
		}
	})

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, t)
	fmt.Fprintln(out)

	if allOk {
		fmt.Fprintln(out, successStyle.Render("✓ All checks passed!"))
		return nil
	}
	fmt.Fprintln(out, errorStyle.Render("⊗ Some checks failed."))
	return fmt.Errorf("doctor check failed")
}

func hasModel(models []openai.Model, id string) bool {
	return slices.ContainsFunc(models, func(m openai.Model) bool { return m.ID == id })
}

// checkWritable creates dir when missing and probes it with a temp file.
func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("cannot create %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return fmt.Errorf("%s is not writable: %w", filepath.Clean(dir), err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
