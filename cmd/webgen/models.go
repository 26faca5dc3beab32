package main

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/spf13/cobra"

	"github.com/mark3labs/webgen/internal/config"
)

const modelsTimeout = 15 * time.Second

var modelsFlags struct {
	filter string
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models the endpoint offers",
	Long: `Query the /models route next to the configured chat-completions URL and
list the model ids it reports.`,
	RunE: runModels,
}

func init() {
	modelsCmd.Flags().StringVarP(&modelsFlags.filter, "filter", "f", "", "Only show ids containing this text")
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	models, err := listModels(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	var rows [][]string
	for _, m := range models {
		if modelsFlags.filter != "" && !strings.Contains(m.ID, modelsFlags.filter) {
			continue
		}
		current := ""
		if m.ID == cfg.Model {
			current = "✓"
		}
		rows = append(rows, []string{m.ID, m.OwnedBy, current})
	}

	out := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("No models found."))
		return nil
	}
	fmt.Fprintln(out, titleStyle.Render("Models"))
	fmt.Fprintln(out, newTable([]string{"Model", "Owner", "Current"}, rows, nil))
	return nil
}

// baseURL turns a chat-completions URL into the API root the OpenAI client
// expects.
func baseURL(apiURL string) string {
	base := strings.TrimRight(apiURL, "/")
	base = strings.TrimSuffix(base, "/chat/completions")
	return base + "/"
}

func newOpenAIClient(cfg *config.Config) openai.Client {
	opts := []option.RequestOption{option.WithBaseURL(baseURL(cfg.APIURL))}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	for k, v := range cfg.Headers {
		opts = append(opts, option.WithHeader(k, v))
	}
	opts = append(opts, option.WithMaxRetries(0))
	return openai.NewClient(opts...)
}

// listModels returns the endpoint's models sorted by id.
func listModels(ctx context.Context, cfg *config.Config) ([]openai.Model, error) {
	ctx, cancel := context.WithTimeout(ctx, modelsTimeout)
	defer cancel()

	client := newOpenAIClient(cfg)
	page, err := client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	models := slices.Clone(page.Data)
	slices.SortFunc(models, func(a, b openai.Model) int { return strings.Compare(a.ID, b.ID) })
	return models, nil
}
