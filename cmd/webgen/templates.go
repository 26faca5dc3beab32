package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mark3labs/webgen/internal/config"
	"github.com/mark3labs/webgen/internal/templates"
	"github.com/mark3labs/webgen/internal/vfs"
)

var templatesCmd = &cobra.Command{
	Use:   "templates [name]",
	Short: "List project templates",
	Long: `List the templates init_project can start from: the built-in ones plus
those of templates_file. With a name, list that template's files.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTemplates,
}

func runTemplates(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	catalog, err := templates.Load(cfg.TemplatesFile)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(args) == 1 {
		files, ok := catalog.Template(args[0])
		if !ok {
			return fmt.Errorf("unknown template %q", args[0])
		}
		fs := vfs.New(files)
		rows := make([][]string, 0, fs.Len())
		for _, p := range fs.Paths() {
			rows = append(rows, []string{p, strconv.Itoa(len(files[p]))})
		}
		fmt.Fprintln(out, titleStyle.Render("Template "+args[0]))
		fmt.Fprintln(out, newTable([]string{"File", "Bytes"}, rows, nil))
		return nil
	}

	var rows [][]string
	for _, name := range catalog.Names() {
		t, _ := catalog.Get(name)
		label := name
		if name == templates.DefaultTemplate {
			label += " (default)"
		}
		rows = append(rows, []string{label, t.Main, strconv.Itoa(len(t.Files)), t.Description})
	}
	fmt.Fprintln(out, titleStyle.Render("Templates"))
	fmt.Fprintln(out, newTable([]string{"Name", "Entry", "Files", "Description"}, rows, nil))
	return nil
}
