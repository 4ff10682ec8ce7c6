// Package site holds the per-rebuild link graph: the note repository, the
// backlink index, and the crawler that populates them.
package site

import "github.com/starford/grove/internal/models"

// Repository is the set of notes discovered by one crawl.
type Repository struct {
	notes map[models.NoteName]*models.Note
	order []models.NoteName
	entry models.NoteName
}

// NewRepository returns an empty repository.
func NewRepository() *Repository {
	return &Repository{notes: make(map[models.NoteName]*models.Note)}
}

// Add inserts n unless a note with the same name is already present.
// It reports whether n was inserted; the first discovery wins.
func (r *Repository) Add(n *models.Note) bool {
	if _, ok := r.notes[n.Name]; ok {
		return false
	}
	r.notes[n.Name] = n
	r.order = append(r.order, n.Name)
	if n.IsEntry {
		r.entry = n.Name
	}
	return true
}

// Get returns the note with the given name.
func (r *Repository) Get(name models.NoteName) (*models.Note, bool) {
	n, ok := r.notes[name]
	return n, ok
}

// Has reports whether name was discovered.
func (r *Repository) Has(name models.NoteName) bool {
	_, ok := r.notes[name]
	return ok
}

// Len returns the number of notes.
func (r *Repository) Len() int { return len(r.order) }

// Notes returns all notes in discovery order.
func (r *Repository) Notes() []*models.Note {
	out := make([]*models.Note, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.notes[name])
	}
	return out
}

// Entry returns the entry note, if it was loaded.
func (r *Repository) Entry() (*models.Note, bool) {
	if r.entry == "" {
		return nil, false
	}
	return r.Get(r.entry)
}
