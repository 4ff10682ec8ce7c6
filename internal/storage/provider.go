// Package storage defines the file-system access used for note sources and
// generated output.
package storage

import (
	"time"

	"github.com/starford/grove/internal/models"
)

// NoteExt is the extension of note source files.
const NoteExt = ".md"

// Provider is the interface for rooted file operations.
type Provider interface {
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to root).
	Write(path string, content []byte) error
}

// Content is a loaded note source.
type Content struct {
	Text    []byte
	ModTime time.Time
}

// NoteSource loads notes by name.
type NoteSource interface {
	LoadNote(name models.NoteName) (*Content, error)
}
