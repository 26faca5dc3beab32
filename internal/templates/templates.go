// Package templates provides the project templates init_project can
// install. The built-in set is embedded; a YAML file with the same layout
// can add or override entries.
package templates

import (
	_ "embed"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/mark3labs/webgen/internal/message"
	"github.com/mark3labs/webgen/internal/vfs"
)

//go:embed catalog.yaml
var builtinCatalog []byte

// DefaultTemplate is the template the system prompt recommends.
const DefaultTemplate = "vite-react-ts"

// Template is one named file set.
type Template struct {
	Description string            `yaml:"description"`
	Main        string            `yaml:"main"`
	Files       map[string]string `yaml:"files"`
}

type catalogFile struct {
	Templates map[string]Template `yaml:"templates"`
}

// Catalog is a name to Template lookup. It satisfies the lookup the tool
// dispatcher expects.
type Catalog struct {
	templates map[string]Template
}

// Builtin returns the embedded catalog.
func Builtin() *Catalog {
	c, err := Parse(builtinCatalog)
	if err != nil {
		panic(fmt.Sprintf("templates: embedded catalog is invalid: %v", err))
	}
	return c
}

// Parse decodes a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse template catalog: %w", err)
	}
	c := &Catalog{templates: make(map[string]Template, len(f.Templates))}
	for name, t := range f.Templates {
		if len(t.Files) == 0 {
			return nil, fmt.Errorf("template %q has no files", name)
		}
		c.templates[name] = t
	}
	return c, nil
}

// Load returns the built-in catalog, merged with the catalog at path when
// path is not empty. Entries from path win on name clashes.
func Load(path string) (*Catalog, error) {
	c := Builtin()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template catalog: %w", err)
	}
	extra, err := Parse(data)
	if err != nil {
		return nil, err
	}
	c.Merge(extra)
	return c, nil
}

// Merge copies every template of other into c.
func (c *Catalog) Merge(other *Catalog) {
	for name, t := range other.templates {
		c.templates[name] = t
	}
}

// Template returns a normalized copy of the named file set.
func (c *Catalog) Template(name string) (message.Files, bool) {
	t, ok := c.templates[name]
	if !ok {
		return nil, false
	}
	files := make(message.Files, len(t.Files))
	for p, content := range t.Files {
		files[vfs.Normalize(p)] = content
	}
	return files, true
}

// Get returns the full template entry.
func (c *Catalog) Get(name string) (Template, bool) {
	t, ok := c.templates[name]
	return t, ok
}

// Names returns every template name, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.templates))
	for n := range c.templates {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
