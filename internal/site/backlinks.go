package site

import (
	"sort"

	"github.com/starford/grove/internal/models"
)

// Backlinks maps a note to the set of notes that link to it. A missing key
// behaves as an empty set.
type Backlinks struct {
	edges map[models.NoteName]map[models.NoteName]struct{}
}

// NewBacklinks returns an empty index.
func NewBacklinks() *Backlinks {
	return &Backlinks{edges: make(map[models.NoteName]map[models.NoteName]struct{})}
}

// Add records that source links to target.
func (b *Backlinks) Add(target, source models.NoteName) {
	set, ok := b.edges[target]
	if !ok {
		set = make(map[models.NoteName]struct{})
		b.edges[target] = set
	}
	set[source] = struct{}{}
}

// Has reports whether source links to target.
func (b *Backlinks) Has(target, source models.NoteName) bool {
	_, ok := b.edges[target][source]
	return ok
}

// Sources returns the notes linking to target, sorted by name.
func (b *Backlinks) Sources(target models.NoteName) []models.NoteName {
	set := b.edges[target]
	out := make([]models.NoteName, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of targets with at least one backlink.
func (b *Backlinks) Len() int { return len(b.edges) }
