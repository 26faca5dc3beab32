package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mark3labs/webgen/internal/template"
)

var genTemplateFlags struct {
	output string
}

var genTemplateCmd = &cobra.Command{
	Use:   "gen-template",
	Short: "Export the default system prompt",
	Long: `Export the default system prompt to a file.

Point system_prompt_file at the exported file to customize it. The prompt
supports {{files}}, {{file_count}} and {{model}} placeholders; when {{files}}
is absent the project listing is appended to the end.`,
	RunE: runGenTemplate,
}

func init() {
	genTemplateCmd.Flags().StringVarP(&genTemplateFlags.output, "output", "o", "webgen.prompt.md", "Output file")
}

func runGenTemplate(cmd *cobra.Command, args []string) error {
	if err := os.WriteFile(genTemplateFlags.output, []byte(template.DefaultTemplate), 0644); err != nil {
		return fmt.Errorf("failed to write template: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Template exported to: %s\n", genTemplateFlags.output)
	return nil
}
