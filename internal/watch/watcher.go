// Package watch triggers full rebuilds when templates or style sources change.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Debounce is the quiet period after the last change before a rebuild runs.
var Debounce = 200 * time.Millisecond

// RebuildFunc performs one full rebuild.
type RebuildFunc func(ctx context.Context) error

// Watch observes roots recursively and runs rebuild once per burst of
// changes until ctx is cancelled. Every value received on trigger also runs
// rebuild. All rebuilds execute on the calling goroutine, one at a time.
//
// New directories created under a root are added to the watch list. A root
// that does not exist yet is picked up as soon as it is created: its nearest
// existing parent is watched until then, and every manual trigger retries it.
func Watch(ctx context.Context, roots []string, trigger <-chan struct{}, rebuild RebuildFunc, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	set := &rootSet{w: w, logger: logger}
	for _, root := range roots {
		set.pending = append(set.pending, filepath.Clean(root))
	}
	if _, err := set.activate(); err != nil {
		return err
	}
	for _, root := range set.pending {
		logger.Warn("watcher: root unavailable, waiting for it", slog.String("root", root))
	}

	run := func(reason string) {
		logger.Info("watcher: rebuilding", slog.String("reason", reason))
		if err := rebuild(ctx); err != nil {
			logger.Error("watcher: rebuild failed", slog.String("error", err.Error()))
		}
	}

	// debounceTimer coalesces bursts of events (editors write, rename and
	// chmod for a single save).
	var debounceTimer *time.Timer
	var debounceCh <-chan time.Time

	scheduleRebuild := func() {
		if debounceTimer == nil {
			debounceTimer = time.NewTimer(Debounce)
			debounceCh = debounceTimer.C
		} else {
			debounceTimer.Reset(Debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-debounceCh:
			debounceTimer = nil
			debounceCh = nil
			run("change")

		case <-trigger:
			if _, err := set.activate(); err != nil {
				logger.Warn("watcher: add root failed", slog.String("error", err.Error()))
			}
			run("manual")

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}

			if ev.Op&fsnotify.Create != 0 && len(set.pending) > 0 {
				added, addErr := set.activate()
				if addErr != nil {
					logger.Warn("watcher: add root failed", slog.String("error", addErr.Error()))
				}
				if added {
					scheduleRebuild()
				}
			}
			if !set.covers(ev.Name) {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
					}
				}
			}

			logger.Debug("watcher: change", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			scheduleRebuild()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// rootSet tracks which roots are watched and which are still missing.
// Events from the parents watched on behalf of missing roots are not covered.
type rootSet struct {
	w       *fsnotify.Watcher
	active  []string
	pending []string
	logger  *slog.Logger
}

// activate starts watching every pending root that now exists and watches
// the nearest existing parent of the others. added reports whether any root
// became active.
func (s *rootSet) activate() (added bool, err error) {
	var still []string
	for _, root := range s.pending {
		if info, statErr := os.Stat(root); statErr == nil && info.IsDir() {
			if err := addDirsRecursive(s.w, root); err != nil {
				return added, err
			}
			s.active = append(s.active, root)
			added = true
			s.logger.Info("watcher: started", slog.String("root", root))
			continue
		}
		still = append(still, root)
		if parent, ok := nearestDir(root); ok {
			if err := s.w.Add(parent); err != nil {
				s.logger.Warn("watcher: watch parent failed", slog.String("path", parent), slog.String("error", err.Error()))
			}
		}
	}
	s.pending = still
	return added, nil
}

func (s *rootSet) covers(path string) bool {
	for _, root := range s.active {
		if within(path, root) {
			return true
		}
	}
	return false
}

// nearestDir returns the closest existing ancestor directory of path.
func nearestDir(path string) (string, bool) {
	dir := filepath.Dir(path)
	for {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

func within(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
