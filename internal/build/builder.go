// Package build sequences a full site rebuild: styles, crawl, snapshot, render.
package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/starford/grove/internal/checksum"
	"github.com/starford/grove/internal/index"
	"github.com/starford/grove/internal/models"
	"github.com/starford/grove/internal/render"
	"github.com/starford/grove/internal/site"
	"github.com/starford/grove/internal/storage"
	"github.com/starford/grove/internal/styles"
)

// CSSDir is the output subdirectory receiving compiled style sheets.
const CSSDir = "css"

// Paths locates the inputs and output of a site.
type Paths struct {
	Notes     string
	Templates string
	Styles    string
	Output    string
}

// Report describes one rebuild.
type Report struct {
	Notes          int
	Pages          int
	Styles         int
	DeadLinks      map[models.NoteName][]models.NoteName
	FailedNotes    map[models.NoteName]error
	TemplateErrors map[models.NoteName]error
	WriteErrors    map[models.NoteName]error
	Renamed        map[models.NoteName]string
	SnapshotError  error
	Duration       time.Duration
}

// Warnings returns the number of non-fatal problems in the rebuild.
func (r *Report) Warnings() int {
	n := len(r.DeadLinks) + len(r.FailedNotes) + len(r.TemplateErrors) + len(r.WriteErrors) + len(r.Renamed)
	if r.SnapshotError != nil {
		n++
	}
	return n
}

// Option configures a Builder.
type Option func(*Builder)

// WithStyleCompiler replaces the default Sass compiler.
func WithStyleCompiler(c styles.Compiler) Option {
	return func(b *Builder) { b.styles = c }
}

// WithGraphStore enables the SQLite snapshot of each crawl.
func WithGraphStore(g index.GraphStore) Option {
	return func(b *Builder) { b.graph = g }
}

// WithRebuildHook registers fn to run after each successful rebuild.
func WithRebuildHook(fn func(*Report)) Option {
	return func(b *Builder) { b.onRebuild = fn }
}

// Builder runs full rebuilds. It is not safe for concurrent use; callers
// must serialize Rebuild calls.
type Builder struct {
	paths      Paths
	entry      models.NoteName
	extensions []string
	styles     styles.Compiler
	graph      index.GraphStore
	onRebuild  func(*Report)
	logger     *slog.Logger
}

// New creates a Builder for the site rooted at paths whose crawl starts at entry.
func New(paths Paths, entry models.NoteName, extensions []string, logger *slog.Logger, opts ...Option) *Builder {
	b := &Builder{
		paths:      paths,
		entry:      entry,
		extensions: extensions,
		styles:     styles.NewSassCompiler(),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Rebuild regenerates the whole site. Style, template and crawl failures
// abort before any page is written; per-note failures are counted in the
// report.
func (b *Builder) Rebuild(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{}

	if err := os.MkdirAll(filepath.Join(b.paths.Output, CSSDir), 0o755); err != nil {
		return nil, fmt.Errorf("build: create output dir: %w", err)
	}
	out, err := storage.NewFS(b.paths.Output)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	cssOut, err := storage.NewFS(filepath.Join(b.paths.Output, CSSDir))
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}

	report.Styles, err = b.styles.Compile(ctx, b.paths.Styles, cssOut)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}

	src, err := storage.NewFS(b.paths.Notes)
	if err != nil {
		return nil, fmt.Errorf("build: notes: %w", err)
	}
	s, crawl, err := site.Crawl(ctx, src, b.entry, b.logger)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	report.Notes = s.Repo.Len()
	report.DeadLinks = crawl.DeadLinks
	report.FailedNotes = crawl.Failed

	if b.graph != nil {
		if err := b.graph.ReplaceGraph(snapshot(s)); err != nil {
			report.SnapshotError = err
			b.logger.Warn("build: snapshot failed", slog.String("error", err.Error()))
		}
	}

	tpl, err := render.LoadTemplates(b.paths.Templates)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	r := render.NewRenderer(render.NewMarkdown(b.extensions), tpl, out, b.logger)
	rendered, err := r.RenderAll(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("build: render: %w", err)
	}
	report.Pages = len(rendered.Written)
	report.TemplateErrors = rendered.TemplateErrors
	report.WriteErrors = rendered.WriteErrors
	report.Renamed = rendered.Renamed
	report.Duration = time.Since(start)

	b.logger.Info("build: site rebuilt",
		slog.Int("notes", report.Notes),
		slog.Int("pages", report.Pages),
		slog.Int("styles", report.Styles),
		slog.Int("warnings", report.Warnings()),
		slog.Duration("duration", report.Duration))

	if b.onRebuild != nil {
		b.onRebuild(report)
	}
	return report, nil
}

func snapshot(s *site.Site) ([]index.NoteRow, []index.LinkRow) {
	var notes []index.NoteRow
	var links []index.LinkRow
	files, _ := render.OutputNames(s.Repo.Notes())
	for _, n := range s.Repo.Notes() {
		notes = append(notes, index.NoteRow{
			Name:      n.Name.String(),
			File:      files[n.Name],
			Title:     n.Title,
			Checksum:  checksum.String(n.RawText),
			IsEntry:   n.IsEntry,
			UpdatedAt: n.ModTime,
		})
		for _, target := range n.Links {
			links = append(links, index.LinkRow{Source: n.Name.String(), Target: target.String()})
		}
	}
	return notes, links
}
