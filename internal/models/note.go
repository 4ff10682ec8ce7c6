// Package models defines the domain types for grove.
package models

import "time"

// NoteName is the identity of a note. Two notes are the same entity iff
// their names are equal.
type NoteName string

// String returns the name as a plain string.
func (n NoteName) String() string { return string(n) }

// Note is the mutable record of a discovered note, keyed by Name.
type Note struct {
	Name         NoteName
	IsEntry      bool
	RawText      string
	Body         string
	Title        string
	Frontmatter  map[string]interface{}
	RenderedHTML string
	Links        []NoteName // unique, in order of first appearance
	ModTime      time.Time
}

// Backlink is one entry of a rendered backlink list.
type Backlink struct {
	Name    NoteName
	URL     string
	IsIndex bool
}

// String returns the referring note's name, so templates can print a
// backlink directly.
func (b Backlink) String() string { return string(b.Name) }
