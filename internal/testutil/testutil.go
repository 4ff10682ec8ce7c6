// Package testutil provides shared test helpers for setting up note gardens.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// PageTemplate is a minimal page template exercising every template field.
const PageTemplate = `<html><head><title>{{ name }}</title></head><body>
{% if is_index %}<p class="index">INDEX</p>{% endif %}
<main>{{ content }}</main>
<p class="mtime">{{ mtime }}</p>
<ul class="backlinks">{% for b in backlinks %}<li><a href="{{ b.URL }}">{{ b.Name }}</a></li>{% endfor %}</ul>
</body></html>
`

// Garden is a temporary site layout.
type Garden struct {
	Root      string
	Notes     string
	Templates string
	Static    string
	Sass      string
	Output    string
}

// NewGarden creates notes, templates, static/sass and output directories under
// a temp dir, writes the given notes (name -> markdown) and the default page
// template.
func NewGarden(t *testing.T, notes map[string]string) *Garden {
	t.Helper()
	root := t.TempDir()
	g := &Garden{
		Root:      root,
		Notes:     filepath.Join(root, "notes"),
		Templates: filepath.Join(root, "templates"),
		Static:    filepath.Join(root, "static"),
		Sass:      filepath.Join(root, "static", "sass"),
		Output:    filepath.Join(root, "public"),
	}
	for _, dir := range []string{g.Notes, g.Templates, g.Sass, g.Output} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	for name, body := range notes {
		g.WriteNote(t, name, body)
	}
	g.WriteTemplate(t, PageTemplate)
	return g
}

// WriteNote writes <Notes>/<name>.md.
func (g *Garden) WriteNote(t *testing.T, name, body string) {
	t.Helper()
	writeFile(t, filepath.Join(g.Notes, name+".md"), body)
}

// WriteTemplate replaces the page template.
func (g *Garden) WriteTemplate(t *testing.T, body string) {
	t.Helper()
	writeFile(t, filepath.Join(g.Templates, "index.html"), body)
}

// WriteStyle writes a style source relative to the sass directory.
func (g *Garden) WriteStyle(t *testing.T, rel, body string) {
	t.Helper()
	writeFile(t, filepath.Join(g.Sass, rel), body)
}

// ReadOutput returns the content of a generated file, failing the test if absent.
func (g *Garden) ReadOutput(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(g.Output, rel))
	if err != nil {
		t.Fatalf("read output %s: %v", rel, err)
	}
	return string(data)
}

// OutputExists reports whether a generated file exists.
func (g *Garden) OutputExists(rel string) bool {
	_, err := os.Stat(filepath.Join(g.Output, rel))
	return err == nil
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}
