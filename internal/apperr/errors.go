// Package apperr defines the error taxonomy shared by the build pipeline.
package apperr

import (
	"errors"

	pkgconfig "github.com/starford/grove/pkg/config"
)

var (
	// ErrConfigMissing is returned when the configuration file is absent.
	ErrConfigMissing = pkgconfig.ErrConfigMissing
	// ErrContentNotFound marks a note name with no backing file (dead link).
	ErrContentNotFound = errors.New("content not found")
	// ErrStyleCompile aborts a rebuild before any page is written.
	ErrStyleCompile = errors.New("style compile failed")
	// ErrTemplateRender is isolated to the note being rendered.
	ErrTemplateRender = errors.New("template render failed")
	// ErrIO marks an output write failure for a single file.
	ErrIO = errors.New("output write failed")
)
