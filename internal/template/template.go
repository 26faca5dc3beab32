// Package template renders the system prompt sent at the start of every
// model request.
package template

import (
	"slices"
	"strconv"
	"strings"
)

const (
	listingHeader = "Current project files:"
	emptyListing  = "(empty project)"
	filesVar      = "{{files}}"
)

// Variables holds the data to be injected into template placeholders.
type Variables struct {
	Files     string // Bullet listing of project paths, or "(empty project)"
	FileCount int    // Number of project files
	Model     string // Model id the prompt is sent to
}

// Render replaces {{variable}} placeholders in template with actual values.
// Supports the following variables:
// - {{files}} - Bullet listing of project paths
// - {{file_count}} - Number of project files
// - {{model}} - Model id
//
// Unknown placeholders are left untouched.
func Render(template string, vars Variables) string {
	replacements := map[string]string{
		filesVar:         vars.Files,
		"{{file_count}}": strconv.Itoa(vars.FileCount),
		"{{model}}":      vars.Model,
	}

	result := template
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}
	return result
}

// Listing formats paths as a sorted bullet list, or "(empty project)".
func Listing(paths []string) string {
	if len(paths) == 0 {
		return emptyListing
	}
	sorted := slices.Clone(paths)
	slices.Sort(sorted)

	var b strings.Builder
	for i, p := range sorted {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(p)
	}
	return b.String()
}

// Build renders the system prompt for a request. When the template does not
// place {{files}} itself, the listing is appended as
// "\n\nCurrent project files:\n<listing>".
func Build(template, model string, paths []string) string {
	listing := Listing(paths)
	vars := Variables{Files: listing, FileCount: len(paths), Model: model}

	if strings.Contains(template, filesVar) {
		return Render(template, vars)
	}
	return Render(template, vars) + "\n\n" + listingHeader + "\n" + listing
}
