// Package styles compiles style-sheet sources into minified CSS.
package styles

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bep/golibsass/libsass"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"

	"github.com/starford/grove/internal/apperr"
	"github.com/starford/grove/internal/storage"
)

const mediaType = "text/css"

// Compiler turns every source under srcDir into CSS under dst.
type Compiler interface {
	Compile(ctx context.Context, srcDir string, dst storage.Provider) (int, error)
}

// SassCompiler transpiles .scss and .sass sources with libsass, then minifies
// them together with plain .css files. Files whose name starts with "_" are
// partials: importable, never emitted.
type SassCompiler struct {
	m *minify.M
}

// NewSassCompiler returns a ready compiler.
func NewSassCompiler() *SassCompiler {
	m := minify.New()
	m.AddFunc(mediaType, css.Minify)
	return &SassCompiler{m: m}
}

// Compile writes <rel>.css into dst for every source below srcDir, mirroring
// the source layout. A missing srcDir compiles nothing. The first failing
// source aborts the walk.
func (c *SassCompiler) Compile(ctx context.Context, srcDir string, dst storage.Provider) (int, error) {
	if _, err := os.Stat(srcDir); os.IsNotExist(err) {
		return 0, nil
	}

	compiled := 0
	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !isSource(d.Name()) {
			return nil
		}

		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		plain, err := transpile(path, srcDir, string(src))
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		out, err := c.m.Bytes(mediaType, []byte(plain))
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		target := strings.TrimSuffix(rel, filepath.Ext(rel)) + ".css"
		if err := dst.Write(target, out); err != nil {
			return err
		}
		compiled++
		return nil
	})
	if err != nil {
		return compiled, fmt.Errorf("%w: %v", apperr.ErrStyleCompile, err)
	}
	return compiled, nil
}

// transpile returns plain CSS for one source. Imports resolve against the
// source's directory first, then srcDir.
func transpile(path, srcDir, src string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".css" {
		return src, nil
	}

	t, err := libsass.New(libsass.Options{
		IncludePaths: []string{filepath.Dir(path), srcDir},
		OutputStyle:  libsass.ExpandedStyle,
		SassSyntax:   ext == ".sass",
		Precision:    5,
	})
	if err != nil {
		return "", err
	}
	res, err := t.Execute(src)
	if err != nil {
		return "", err
	}
	return res.CSS, nil
}

func isSource(name string) bool {
	if strings.HasPrefix(name, "_") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".css", ".scss", ".sass":
		return true
	}
	return false
}
