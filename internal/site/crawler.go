package site

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/starford/grove/internal/apperr"
	"github.com/starford/grove/internal/models"
	"github.com/starford/grove/internal/parser"
	"github.com/starford/grove/internal/storage"
)

// CrawlReport summarises the non-fatal problems found by a crawl.
type CrawlReport struct {
	Visited   int
	DeadLinks map[models.NoteName][]models.NoteName // target -> referrers
	Failed    map[models.NoteName]error
}

// DeadTargets returns the dead link targets sorted by name.
func (r *CrawlReport) DeadTargets() []models.NoteName {
	out := make([]models.NoteName, 0, len(r.DeadLinks))
	for name := range r.DeadLinks {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type pending struct {
	name models.NoteName
	from models.NoteName // empty for the entry note
}

// Crawl discovers every note reachable from entry and returns a fully
// populated Site. Each reachable name is loaded at most once.
//
// A missing entry note is fatal. Any other note that cannot be loaded is
// recorded in the report and skipped; its referrers keep a dead link.
func Crawl(ctx context.Context, src storage.NoteSource, entry models.NoteName, logger *slog.Logger) (*Site, *CrawlReport, error) {
	s := New()
	report := &CrawlReport{
		DeadLinks: make(map[models.NoteName][]models.NoteName),
		Failed:    make(map[models.NoteName]error),
	}

	visited := make(map[models.NoteName]struct{})
	queue := []pending{{name: entry}}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		item := queue[0]
		queue = queue[1:]

		if _, seen := visited[item.name]; seen {
			if _, dead := report.DeadLinks[item.name]; dead {
				report.DeadLinks[item.name] = appendUnique(report.DeadLinks[item.name], item.from)
			}
			continue
		}
		visited[item.name] = struct{}{}

		note, err := load(src, item.name, item.name == entry)
		if err != nil {
			if item.name == entry {
				return nil, nil, fmt.Errorf("crawl: entry note %q: %w", entry, err)
			}
			if errors.Is(err, apperr.ErrContentNotFound) {
				report.DeadLinks[item.name] = appendUnique(nil, item.from)
				logger.Warn("crawl: dead link",
					slog.String("target", item.name.String()),
					slog.String("from", item.from.String()))
			} else {
				report.Failed[item.name] = err
				logger.Warn("crawl: load failed",
					slog.String("note", item.name.String()),
					slog.String("error", err.Error()))
			}
			continue
		}

		s.Repo.Add(note)
		report.Visited++

		for _, target := range note.Links {
			s.Backlinks.Add(target, note.Name)
			queue = append(queue, pending{name: target, from: note.Name})
		}

		logger.Debug("crawl: loaded",
			slog.String("note", note.Name.String()),
			slog.Int("links", len(note.Links)))
	}

	return s, report, nil
}

func load(src storage.NoteSource, name models.NoteName, isEntry bool) (*models.Note, error) {
	content, err := src.LoadNote(name)
	if err != nil {
		return nil, err
	}
	res, err := parser.Parse(content.Text)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return &models.Note{
		Name:        name,
		IsEntry:     isEntry,
		RawText:     string(content.Text),
		Body:        res.Body,
		Title:       res.Title,
		Frontmatter: res.Frontmatter,
		Links:       res.Links,
		ModTime:     content.ModTime,
	}, nil
}

func appendUnique(list []models.NoteName, name models.NoteName) []models.NoteName {
	for _, n := range list {
		if n == name {
			return list
		}
	}
	return append(list, name)
}
