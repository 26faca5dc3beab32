package vfs

import (
	"slices"
	"strings"

	"github.com/aymanbagabas/go-udiff"

	"github.com/mark3labs/webgen/internal/message"
)

// FileDiff is the change to one path between two snapshots.
type FileDiff struct {
	Path    string
	Action  message.Action
	Unified string
}

// Diff compares two snapshots and returns one entry per changed path in
// sorted order. Deleted files diff against empty content and vice versa.
func Diff(before, after message.Files) []FileDiff {
	seen := make(map[string]struct{}, len(before)+len(after))
	for p := range before {
		seen[p] = struct{}{}
	}
	for p := range after {
		seen[p] = struct{}{}
	}
	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	slices.Sort(paths)

	var diffs []FileDiff
	for _, p := range paths {
		old, hadOld := before[p]
		cur, hasCur := after[p]

		var action message.Action
		switch {
		case !hadOld:
			action = message.ActionCreated
		case !hasCur:
			action = message.ActionDeleted
		case old != cur:
			action = message.ActionModified
		default:
			continue
		}

		diffs = append(diffs, FileDiff{
			Path:    p,
			Action:  action,
			Unified: udiff.Unified("a/"+p, "b/"+p, old, cur),
		})
	}
	return diffs
}

// FormatDiff concatenates the unified diffs of every entry.
func FormatDiff(diffs []FileDiff) string {
	var b strings.Builder
	for _, d := range diffs {
		b.WriteString(d.Unified)
	}
	return b.String()
}
