// Package consolelog buffers runtime console output from a running preview
// so the model can inspect it through get_console_logs.
package consolelog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

// DefaultCapacity is the number of entries kept when New is given zero.
const DefaultCapacity = 200

// Empty is returned when nothing has been logged.
const Empty = "No console output yet."

// Entry is one console call.
type Entry struct {
	Method string
	Data   []any
	Time   time.Time
}

// Line formats the entry as "[METHOD] data...". Strings are written as-is,
// other values as JSON.
func (e Entry) Line() string {
	parts := make([]string, len(e.Data))
	for i, d := range e.Data {
		parts[i] = formatValue(d)
	}
	return fmt.Sprintf("[%s] %s", strings.ToUpper(e.Method), strings.Join(parts, " "))
}

func formatValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// Buffer is a bounded ring of console entries. The oldest entry is dropped
// once the capacity is reached.
type Buffer struct {
	mu      sync.Mutex
	entries []Entry
	cap     int
}

// New creates a buffer holding at most capacity entries.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{cap: capacity}
}

// Add records one console call.
func (b *Buffer) Add(method string, data ...any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.entries) == b.cap {
		copy(b.entries, b.entries[1:])
		b.entries = b.entries[:b.cap-1]
	}
	b.entries = append(b.entries, Entry{Method: method, Data: data, Time: time.Now()})
}

// Entries returns a copy of the buffered entries, oldest first.
func (b *Buffer) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Entry(nil), b.entries...)
}

// Len returns the number of buffered entries.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Clear drops every entry.
func (b *Buffer) Clear() {
	b.mu.Lock()
	b.entries = nil
	b.mu.Unlock()
}

// String joins all lines with newlines, or returns Empty.
func (b *Buffer) String() string {
	entries := b.Entries()
	if len(entries) == 0 {
		return Empty
	}
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.Line()
	}
	return strings.Join(lines, "\n")
}

// Issues counts error and warn entries.
func (b *Buffer) Issues() (errs, warns int) {
	for _, e := range b.Entries() {
		switch strings.ToLower(e.Method) {
		case "error":
			errs++
		case "warn":
			warns++
		}
	}
	return errs, warns
}

// Handle serves the get_console_logs tool. It matches tools.Handler.
func (b *Buffer) Handle(_ context.Context, _ string, _ map[string]any) (string, error) {
	return b.String(), nil
}
