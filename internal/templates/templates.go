package templates

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"text/template"

	"github.com/vango-dev/pulse/internal/config"
	"github.com/vango-dev/pulse/internal/errors"
)

// Config holds the values substituted into template files.
type Config struct {
	Title  string
	Addr   string
	Target string
}

func (c *Config) applyDefaults() {
	if c.Title == "" {
		c.Title = "pulse"
	}
	if c.Addr == "" {
		c.Addr = config.DefaultAddr
	}
}

// Template is a named starter board.
type Template struct {
	Name        string
	Description string

	// Files maps relative paths to template text.
	Files map[string]string
}

var templates = map[string]*Template{
	"empty":   emptyTemplate(),
	"todo":    todoTemplate(),
	"publish": publishTemplate(),
}

// Get returns a template by name.
func Get(name string) (*Template, error) {
	tmpl, ok := templates[name]
	if !ok {
		return nil, errors.New("P204").
			WithDetail("Template '" + name + "' not found").
			WithSuggestion("Available templates: empty, publish, todo")
	}
	return tmpl, nil
}

// List returns the template names in order.
func List() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Paths returns the files t writes, in order.
func (t *Template) Paths() []string {
	paths := make([]string, 0, len(t.Files))
	for p := range t.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Create renders every file of t into dir. JSON files are checked after
// rendering so a bad substitution never leaves an unreadable items file.
func (t *Template) Create(dir string, cfg Config) error {
	cfg.applyDefaults()
	for _, relPath := range t.Paths() {
		tmpl, err := template.New(relPath).Funcs(funcs).Parse(t.Files[relPath])
		if err != nil {
			return errors.Newf(errors.CategoryCLI, "invalid template %s: %v", relPath, err)
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, cfg); err != nil {
			return errors.Newf(errors.CategoryCLI, "template execute error %s: %v", relPath, err)
		}
		if filepath.Ext(relPath) == ".json" && !json.Valid(buf.Bytes()) {
			return errors.Newf(errors.CategoryCLI, "template %s rendered invalid JSON", relPath)
		}

		fullPath := filepath.Join(dir, relPath)
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(fullPath, buf.Bytes(), 0644); err != nil {
			return err
		}
	}
	return nil
}

// funcs are available to every template. quote produces a JSON string,
// which is also a valid YAML scalar.
var funcs = template.FuncMap{
	"quote": func(s string) (string, error) {
		b, err := json.Marshal(s)
		return string(b), err
	},
}

const configHeader = `# pulse configuration. Paths are relative to this file.
title: {{quote .Title}}
items: items.json

serve:
  addr: {{quote .Addr}}
  sendBuffer: 64
  writeTimeout: 10s
  shutdownTimeout: 5s

log:
  level: info
  format: text
`

func emptyTemplate() *Template {
	return &Template{
		Name:        "empty",
		Description: "A board with no items",
		Files: map[string]string{
			"pulse.yaml": configHeader,
			"items.json": "[]\n",
		},
	}
}

func todoTemplate() *Template {
	return &Template{
		Name:        "todo",
		Description: "A short todo list to edit while pulse serve --watch runs",
		Files: map[string]string{
			"pulse.yaml": configHeader,
			"items.json": `[
  {"id": "welcome", "text": "Open {{.Addr}} in two browser windows"},
  {"id": "edit", "text": "Edit items.json and watch both windows update"},
  {"id": "api", "text": "POST {\"text\": \"...\"} to /items"}
]
`,
		},
	}
}

func publishTemplate() *Template {
	return &Template{
		Name:        "publish",
		Description: "A board that publishes a static page on every change",
		Files: map[string]string{
			"pulse.yaml": configHeader + `
publish:
  target: {{if .Target}}{{quote .Target}}{{else}}dist{{end}}
  key: index.html

metrics:
  enabled: true
`,
			"items.json": "[]\n",
		},
	}
}
