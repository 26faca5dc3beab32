// Package vfs holds the in-memory project file system edited by tools.
package vfs

import (
	"slices"
	"strings"
	"sync"

	"github.com/mark3labs/webgen/internal/message"
)

// FS is a concurrency-safe map from normalized path to file content.
// Callers only ever receive copies of the underlying map.
type FS struct {
	mu    sync.RWMutex
	files map[string]string
}

// New creates an FS seeded with a copy of files.
func New(files message.Files) *FS {
	fs := &FS{files: make(map[string]string, len(files))}
	for p, c := range files {
		fs.files[Normalize(p)] = c
	}
	return fs
}

// Normalize converts a tool-supplied path to the canonical form: forward
// slashes, no leading "/" or "./".
func Normalize(p string) string {
	p = strings.ReplaceAll(strings.TrimSpace(p), `\`, "/")
	for {
		switch {
		case strings.HasPrefix(p, "/"):
			p = p[1:]
		case strings.HasPrefix(p, "./"):
			p = p[2:]
		default:
			return p
		}
	}
}

// Get returns the content at path.
func (fs *FS) Get(path string) (string, bool) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	c, ok := fs.files[Normalize(path)]
	return c, ok
}

// Has reports whether path exists.
func (fs *FS) Has(path string) bool {
	_, ok := fs.Get(path)
	return ok
}

// Put creates or overwrites path and reports which one happened.
func (fs *FS) Put(path, content string) message.Action {
	path = Normalize(path)
	fs.mu.Lock()
	defer fs.mu.Unlock()
	_, existed := fs.files[path]
	fs.files[path] = content
	if existed {
		return message.ActionModified
	}
	return message.ActionCreated
}

// Delete removes path. It reports false, leaving the map untouched, when
// path does not exist.
func (fs *FS) Delete(path string) bool {
	path = Normalize(path)
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.files[path]; !ok {
		return false
	}
	delete(fs.files, path)
	return true
}

// Paths returns every path in lexicographic order.
func (fs *FS) Paths() []string {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	paths := make([]string, 0, len(fs.files))
	for p := range fs.files {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// Find returns the first path, in sorted order, ending with suffix.
func (fs *FS) Find(suffix string) (string, bool) {
	for _, p := range fs.Paths() {
		if strings.HasSuffix(p, suffix) {
			return p, true
		}
	}
	return "", false
}

// Len returns the number of files.
func (fs *FS) Len() int {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return len(fs.files)
}

// Snapshot returns a copy of the whole map.
func (fs *FS) Snapshot() message.Files {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return message.Files(fs.files).Clone()
}

// Replace swaps the whole map for a normalized copy of files.
func (fs *FS) Replace(files message.Files) {
	next := make(map[string]string, len(files))
	for p, c := range files {
		next[Normalize(p)] = c
	}
	fs.mu.Lock()
	fs.files = next
	fs.mu.Unlock()
}
