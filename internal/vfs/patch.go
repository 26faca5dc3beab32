package vfs

import (
	"fmt"
	"strings"
)

// previewLimit caps how much of a missing search string is echoed back.
const previewLimit = 60

// Patch is one search/replace edit.
type Patch struct {
	Search  string `json:"search"`
	Replace string `json:"replace"`
}

// PatchReport is the outcome of one Patch within a batch.
type PatchReport struct {
	Index   int // 1-based
	Applied bool
	Search  string
}

// String renders the report line shown to the model.
func (r PatchReport) String() string {
	if r.Applied {
		return fmt.Sprintf("patch #%d: ✓ applied", r.Index)
	}
	return fmt.Sprintf("patch #%d: ✗ not found — \"%s\"", r.Index, Preview(r.Search))
}

// ApplyPatches applies patches left to right. Each one replaces the first
// plain-substring occurrence of Search in the content produced by the
// patches before it. A missing Search is reported and the batch continues.
func ApplyPatches(content string, patches []Patch) (string, []PatchReport) {
	reports := make([]PatchReport, 0, len(patches))
	for i, p := range patches {
		r := PatchReport{Index: i + 1, Search: p.Search}
		if idx := strings.Index(content, p.Search); idx >= 0 && p.Search != "" {
			content = content[:idx] + p.Replace + content[idx+len(p.Search):]
			r.Applied = true
		}
		reports = append(reports, r)
	}
	return content, reports
}

// FormatReports joins report lines with newlines.
func FormatReports(reports []PatchReport) string {
	lines := make([]string, len(reports))
	for i, r := range reports {
		lines[i] = r.String()
	}
	return strings.Join(lines, "\n")
}

// Preview truncates s to previewLimit runes, marking the cut with "…".
func Preview(s string) string {
	r := []rune(s)
	if len(r) <= previewLimit {
		return s
	}
	return string(r[:previewLimit]) + "…"
}
