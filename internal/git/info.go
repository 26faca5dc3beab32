// Package git inspects the repository an output directory lives in, so
// writing a generated project never silently clobbers uncommitted work.
package git

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"
)

// Info describes the repository containing a directory.
type Info struct {
	Root   string // Top-level directory
	Branch string // Branch name or "HEAD" if detached
	Hash   string // Short commit hash, empty before the first commit
	Dirty  []string
}

// GetInfo returns repository information for dir. It returns nil, nil when
// dir is not inside a git repository or git is not installed.
func GetInfo(ctx context.Context, dir string) (*Info, error) {
	root, err := runGit(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, nil
	}
	info := &Info{Root: root}

	if info.Branch, err = runGit(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD"); err != nil {
		// No commits yet.
		info.Branch = "HEAD"
	}
	if hash, err := runGit(ctx, dir, "rev-parse", "--short=7", "HEAD"); err == nil {
		info.Hash = hash
	}

	status, err := runGit(ctx, dir, "status", "--porcelain", "--untracked-files=no")
	if err != nil {
		return nil, err
	}
	for line := range strings.SplitSeq(status, "\n") {
		if len(line) < 4 {
			continue
		}
		path := line[3:]
		// Renames are reported as "old -> new".
		if _, after, ok := strings.Cut(path, " -> "); ok {
			path = after
		}
		info.Dirty = append(info.Dirty, filepath.ToSlash(path))
	}
	return info, nil
}

// Overwrites returns the project paths, relative to dir, that would
// replace a file with uncommitted changes.
func (i *Info) Overwrites(dir string, paths []string) []string {
	if i == nil || len(i.Dirty) == 0 {
		return nil
	}
	dirty := make(map[string]bool, len(i.Dirty))
	for _, p := range i.Dirty {
		dirty[p] = true
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	prefix, err := filepath.Rel(i.Root, abs)
	if err != nil {
		return nil
	}

	var out []string
	for _, p := range paths {
		if dirty[filepath.ToSlash(filepath.Join(prefix, p))] {
			out = append(out, p)
		}
	}
	return out
}

// runGit executes a git command in dir and returns trimmed stdout.
func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(out), "\n"), nil
}
