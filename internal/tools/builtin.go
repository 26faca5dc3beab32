package tools

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dlclark/regexp2"

	"github.com/mark3labs/webgen/internal/logger"
	"github.com/mark3labs/webgen/internal/message"
	"github.com/mark3labs/webgen/internal/vfs"
)

func (d *Dispatcher) initProject(name string) (string, []message.FileChange) {
	var files message.Files
	ok := false
	if d.Templates != nil {
		files, ok = d.Templates.Template(name)
	}
	if !ok {
		var names []string
		if d.Templates != nil {
			names = d.Templates.Names()
		}
		return fmt.Sprintf(`Error: unknown template "%s". Use one of: %s`, name, strings.Join(names, ", ")), nil
	}

	d.FS.Replace(files)
	paths := d.FS.Paths()
	changes := make([]message.FileChange, len(paths))
	for i, p := range paths {
		changes[i] = message.FileChange{Path: p, Action: message.ActionCreated}
	}

	if d.Events.OnTemplateChange != nil {
		d.Events.OnTemplateChange(name, d.FS.Snapshot())
	}
	return fmt.Sprintf(`OK — initialized project with template "%s" (%d files)`, name, len(paths)), changes
}

func (d *Dispatcher) manageDependencies(packageJSON string) (string, []message.FileChange) {
	if !json.Valid([]byte(packageJSON)) {
		return "Error: invalid JSON in package_json", nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(packageJSON), &obj); err != nil || obj == nil {
		return "Error: package_json must be a JSON object", nil
	}

	path, ok := d.FS.Find("package.json")
	if !ok {
		path = "package.json"
	}
	action := d.FS.Put(path, packageJSON)

	if d.Events.OnDependenciesChange != nil {
		d.Events.OnDependenciesChange(d.FS.Snapshot())
	}
	return fmt.Sprintf("OK — %s %s, dependencies updated. Sandpack will restart.", action, path),
		[]message.FileChange{{Path: path, Action: action}}
}

func (d *Dispatcher) listFiles() string {
	paths := d.FS.Paths()
	if len(paths) == 0 {
		return "(empty project — no files)"
	}
	return strings.Join(paths, "\n")
}

func (d *Dispatcher) readFiles(raw any) string {
	list, ok := raw.([]any)
	if !ok || len(list) == 0 {
		return "Error: no paths provided"
	}

	blocks := make([]string, len(list))
	for i, item := range list {
		path := fmt.Sprint(item)
		content, found := d.FS.Get(path)
		if !found {
			blocks[i] = fmt.Sprintf("=== %s ===\nError: file not found", path)
			continue
		}
		blocks[i] = fmt.Sprintf("=== %s ===\n%s", path, content)
	}
	return strings.Join(blocks, "\n\n")
}

func (d *Dispatcher) writeFile(path, content string) (string, []message.FileChange) {
	path = vfs.Normalize(path)
	if path == "" {
		return "Error: path is required", nil
	}
	action := d.FS.Put(path, content)
	return fmt.Sprintf("OK — %s: %s (%d chars)", action, path, utf8.RuneCountInString(content)),
		[]message.FileChange{{Path: path, Action: action}}
}

func (d *Dispatcher) patchFile(path string, raw any) (string, []message.FileChange) {
	path = vfs.Normalize(path)
	content, ok := d.FS.Get(path)
	if !ok {
		return fmt.Sprintf(`Error: file not found — "%s"`, path), nil
	}

	patches := parsePatches(raw)
	if len(patches) == 0 {
		return "Error: no patches provided", nil
	}

	content, reports := vfs.ApplyPatches(content, patches)
	d.FS.Put(path, content)
	return vfs.FormatReports(reports), []message.FileChange{{Path: path, Action: message.ActionModified}}
}

// parsePatches accepts either a list of {search, replace} objects or a
// single object.
func parsePatches(raw any) []vfs.Patch {
	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case map[string]any:
		items = []any{v}
	default:
		return nil
	}

	patches := make([]vfs.Patch, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		patches = append(patches, vfs.Patch{
			Search:  stringArg(obj, "search"),
			Replace: stringArg(obj, "replace"),
		})
	}
	return patches
}

func (d *Dispatcher) deleteFile(path string) (string, []message.FileChange) {
	path = vfs.Normalize(path)
	if !d.FS.Delete(path) {
		return fmt.Sprintf(`Error: file not found — "%s"`, path), nil
	}
	return fmt.Sprintf("OK — deleted: %s", path), []message.FileChange{{Path: path, Action: message.ActionDeleted}}
}

// searchMatchTimeout bounds a single line match against runaway backtracking.
const searchMatchTimeout = time.Second

// searchInFiles takes JavaScript regex syntax, lookaround and backreferences
// included.
func (d *Dispatcher) searchInFiles(pattern string) string {
	re, err := regexp2.Compile(pattern, regexp2.ECMAScript)
	if err != nil {
		return fmt.Sprintf(`Error: invalid regex pattern — "%s"`, pattern)
	}
	re.MatchTimeout = searchMatchTimeout

	files := d.FS.Snapshot()
	var hits []string
	for _, path := range slices.Sorted(maps.Keys(files)) {
		content := files[path]
		for i, line := range strings.Split(content, "\n") {
			ok, err := re.MatchString(line)
			if err != nil {
				logger.Debug("search_in_files %s:%d: %v", path, i+1, err)
				continue
			}
			if ok {
				hits = append(hits, fmt.Sprintf("%s:%d: %s", path, i+1, strings.TrimSpace(line)))
			}
		}
	}
	if len(hits) == 0 {
		return "(no matches found)"
	}
	return strings.Join(hits, "\n")
}
