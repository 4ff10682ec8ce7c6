package site

import (
	"sort"

	"github.com/starford/grove/internal/models"
)

// Site is the state of one rebuild. It is created fresh by the build
// orchestrator, written only by Crawl and read only by the render pass.
type Site struct {
	Repo      *Repository
	Backlinks *Backlinks
}

// New returns an empty site.
func New() *Site {
	return &Site{Repo: NewRepository(), Backlinks: NewBacklinks()}
}

// BacklinksFor returns the notes linking to name, entry note first and the
// rest by name. url maps each referrer to its href.
func (s *Site) BacklinksFor(name models.NoteName, url func(*models.Note) string) []models.Backlink {
	var out []models.Backlink
	for _, src := range s.Backlinks.Sources(name) {
		n, ok := s.Repo.Get(src)
		if !ok {
			continue
		}
		out = append(out, models.Backlink{Name: n.Name, URL: url(n), IsIndex: n.IsEntry})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].IsIndex && !out[j].IsIndex
	})
	return out
}
