package render

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/starford/grove/internal/apperr"
	"github.com/starford/grove/internal/models"
	"github.com/starford/grove/internal/parser"
	"github.com/starford/grove/internal/site"
	"github.com/starford/grove/internal/storage"
)

// Report summarises one render pass.
type Report struct {
	Written        []string
	TemplateErrors map[models.NoteName]error
	WriteErrors    map[models.NoteName]error
	Renamed        map[models.NoteName]string // note -> output file it clashed on
}

// Failures returns the number of notes that produced no page.
func (r *Report) Failures() int {
	return len(r.TemplateErrors) + len(r.WriteErrors)
}

// Executor renders a page through a template.
type Executor interface {
	Execute(p Page) (string, error)
}

// Renderer writes one HTML page per note.
type Renderer struct {
	md     *Markdown
	tpl    Executor
	out    storage.Provider
	logger *slog.Logger
}

// NewRenderer creates a renderer writing through out.
func NewRenderer(md *Markdown, tpl Executor, out storage.Provider, logger *slog.Logger) *Renderer {
	return &Renderer{md: md, tpl: tpl, out: out, logger: logger}
}

// RenderAll renders every note of s. It must only be called after the crawl
// that produced s has finished. A failing note is logged and skipped.
func (r *Renderer) RenderAll(ctx context.Context, s *site.Site) (*Report, error) {
	report := &Report{
		TemplateErrors: make(map[models.NoteName]error),
		WriteErrors:    make(map[models.NoteName]error),
	}

	notes := s.Repo.Notes()
	files, renamed := OutputNames(notes)
	report.Renamed = renamed
	for name, clashed := range renamed {
		r.logger.Warn("render: output file clash",
			slog.String("note", name.String()),
			slog.String("file", clashed),
			slog.String("renamed_to", files[name]))
	}

	for _, note := range notes {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		page, err := r.render(s, note, files)
		if err != nil {
			report.TemplateErrors[note.Name] = err
			r.logger.Error("render: note failed",
				slog.String("note", note.Name.String()),
				slog.String("error", err.Error()))
			continue
		}

		file := files[note.Name]
		if err := r.out.Write(file, []byte(page)); err != nil {
			report.WriteErrors[note.Name] = fmt.Errorf("%w: %s: %v", apperr.ErrIO, file, err)
			r.logger.Error("render: write failed",
				slog.String("note", note.Name.String()),
				slog.String("file", file),
				slog.String("error", err.Error()))
			continue
		}
		report.Written = append(report.Written, file)
		r.logger.Debug("render: wrote page", slog.String("note", note.Name.String()), slog.String("file", file))
	}

	return report, nil
}

// Render converts a single note into a complete HTML document and stores the
// converted body in note.RenderedHTML.
func (r *Renderer) Render(s *site.Site, note *models.Note) (string, error) {
	files, _ := OutputNames(s.Repo.Notes())
	return r.render(s, note, files)
}

func (r *Renderer) render(s *site.Site, note *models.Note, files map[models.NoteName]string) (string, error) {
	converted, err := r.md.Convert(note.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrTemplateRender, err)
	}
	note.RenderedHTML = parser.Rewrite(converted, resolver(s.Repo, files))

	return r.tpl.Execute(Page{
		Content:     note.RenderedHTML,
		ModTime:     note.ModTime.Local().Format(DateFormat),
		Name:        note.Name,
		Title:       note.Title,
		IsIndex:     note.IsEntry,
		Backlinks:   s.BacklinksFor(note.Name, func(n *models.Note) string { return files[n.Name] }),
		Frontmatter: note.Frontmatter,
	})
}

// resolver maps link targets found in converted HTML back to crawled notes.
// Targets arrive HTML-escaped by the markdown converter.
func resolver(repo *site.Repository, files map[models.NoteName]string) parser.Resolver {
	return func(target string) (string, bool) {
		name := models.NoteName(strings.TrimSpace(html.UnescapeString(target)))
		if !repo.Has(name) {
			return "", false
		}
		return files[name], true
	}
}
