package render

import (
	"fmt"

	"github.com/flosch/pongo2/v6"

	"github.com/starford/grove/internal/apperr"
	"github.com/starford/grove/internal/models"
)

// PageTemplate is the template file every note is rendered through.
const PageTemplate = "index.html"

// DateFormat is the display format of a note's modification date.
const DateFormat = "2006.01.02"

// Page is the data handed to the page template.
type Page struct {
	Content     string
	ModTime     string
	Name        models.NoteName
	Title       string
	IsIndex     bool
	Backlinks   []models.Backlink
	Frontmatter map[string]interface{}
}

func init() {
	// Match Jinja defaults: content is already HTML and is printed as is.
	pongo2.SetAutoescape(false)
}

// Templates executes the page template from a templates directory.
type Templates struct {
	page *pongo2.Template
}

// LoadTemplates parses PageTemplate from dir. Templates are not cached across
// calls, so a fresh load picks up edits.
func LoadTemplates(dir string) (*Templates, error) {
	loader, err := pongo2.NewLocalFileSystemLoader(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: templates dir %s: %v", apperr.ErrTemplateRender, dir, err)
	}
	set := pongo2.NewSet("grove", loader)
	tpl, err := set.FromFile(PageTemplate)
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %v", apperr.ErrTemplateRender, PageTemplate, err)
	}
	return &Templates{page: tpl}, nil
}

// Execute renders one page.
func (t *Templates) Execute(p Page) (string, error) {
	out, err := t.page.Execute(pongo2.Context{
		"content":     p.Content,
		"mtime":       p.ModTime,
		"name":        p.Name.String(),
		"title":       p.Title,
		"is_index":    p.IsIndex,
		"backlinks":   p.Backlinks,
		"frontmatter": p.Frontmatter,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", apperr.ErrTemplateRender, p.Name, err)
	}
	return out, nil
}
