package site

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/starford/grove/internal/apperr"
	"github.com/starford/grove/internal/models"
	"github.com/starford/grove/internal/storage"
)

// memSource serves notes from a map and counts loads per name.
type memSource struct {
	notes map[models.NoteName]string
	loads map[models.NoteName]int
	fail  map[models.NoteName]error
}

func newMemSource(notes map[models.NoteName]string) *memSource {
	return &memSource{notes: notes, loads: make(map[models.NoteName]int), fail: map[models.NoteName]error{}}
}

func (m *memSource) LoadNote(name models.NoteName) (*storage.Content, error) {
	m.loads[name]++
	if err, ok := m.fail[name]; ok {
		return nil, err
	}
	text, ok := m.notes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperr.ErrContentNotFound, name)
	}
	return &storage.Content{Text: []byte(text), ModTime: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCrawl_CyclesAndSelfLoops(t *testing.T) {
	src := newMemSource(map[models.NoteName]string{
		"Home":   "[[A]] [[B]] [[Home]]",
		"A":      "[[B]] [[Home]] [[A]]",
		"B":      "[[A]] [[C]]",
		"C":      "[[Home]]",
		"Orphan": "[[Home]]",
	})

	s, report, err := Crawl(context.Background(), src, "Home", discardLogger())
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if s.Repo.Len() != 4 || report.Visited != 4 {
		t.Fatalf("visited %d notes (report %d), want 4", s.Repo.Len(), report.Visited)
	}
	for name, n := range src.loads {
		if n != 1 {
			t.Errorf("%s loaded %d times", name, n)
		}
	}
	if s.Repo.Has("Orphan") {
		t.Error("unreachable note was crawled")
	}
	if len(report.DeadLinks) != 0 {
		t.Errorf("dead links = %v", report.DeadLinks)
	}
}

func TestCrawl_BacklinkCorrectness(t *testing.T) {
	src := newMemSource(map[models.NoteName]string{
		"Home": "[[A]] [[B]]",
		"A":    "[[B]]",
		"B":    "[[B]]",
	})
	s, _, err := Crawl(context.Background(), src, "Home", discardLogger())
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	for _, n := range s.Repo.Notes() {
		for _, target := range n.Links {
			if !s.Backlinks.Has(target, n.Name) {
				t.Errorf("%s -> %s missing from backlink index", n.Name, target)
			}
		}
	}
	got := s.Backlinks.Sources("B")
	want := []models.NoteName{"A", "B", "Home"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("backlinks(B) = %v, want %v", got, want)
	}
	if len(s.Backlinks.Sources("Home")) != 0 {
		t.Error("Home should have no backlinks")
	}
}

func TestCrawl_EntryFlag(t *testing.T) {
	src := newMemSource(map[models.NoteName]string{"Home": "[[A]]", "A": ""})
	s, _, err := Crawl(context.Background(), src, "Home", discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	entry, ok := s.Repo.Entry()
	if !ok || entry.Name != "Home" || !entry.IsEntry {
		t.Fatalf("entry = %+v", entry)
	}
	a, _ := s.Repo.Get("A")
	if a.IsEntry {
		t.Error("A must not be the entry")
	}
}

func TestCrawl_DeadLinkSkipped(t *testing.T) {
	src := newMemSource(map[models.NoteName]string{
		"A":    "see [[Ghost]]",
		"B":    "also [[Ghost]]",
		"Home": "[[A]] [[B]]",
	})
	s, report, err := Crawl(context.Background(), src, "Home", discardLogger())
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if s.Repo.Has("Ghost") {
		t.Error("dead target must not be in repository")
	}
	refs := report.DeadLinks["Ghost"]
	if len(refs) != 2 {
		t.Errorf("Ghost referrers = %v, want [A B]", refs)
	}
	if src.loads["Ghost"] != 1 {
		t.Errorf("Ghost loaded %d times, want 1", src.loads["Ghost"])
	}
	if targets := report.DeadTargets(); len(targets) != 1 || targets[0] != "Ghost" {
		t.Errorf("dead targets = %v", targets)
	}
}

func TestCrawl_MissingEntryIsFatal(t *testing.T) {
	src := newMemSource(map[models.NoteName]string{})
	_, _, err := Crawl(context.Background(), src, "Home", discardLogger())
	if !errors.Is(err, apperr.ErrContentNotFound) {
		t.Fatalf("err = %v, want ErrContentNotFound", err)
	}
}

func TestCrawl_LoadFailureIsolated(t *testing.T) {
	src := newMemSource(map[models.NoteName]string{"Home": "[[Bad]] [[Good]]", "Good": "", "Bad": ""})
	src.fail["Bad"] = errors.New("permission denied")
	s, report, err := Crawl(context.Background(), src, "Home", discardLogger())
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if !s.Repo.Has("Good") || s.Repo.Has("Bad") {
		t.Errorf("unexpected repository contents: %d notes", s.Repo.Len())
	}
	if _, ok := report.Failed["Bad"]; !ok {
		t.Error("failure not recorded")
	}
}

func TestCrawl_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := newMemSource(map[models.NoteName]string{"Home": ""})
	if _, _, err := Crawl(ctx, src, "Home", discardLogger()); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestCrawl_DeepChainIterative(t *testing.T) {
	notes := make(map[models.NoteName]string)
	const depth = 5000
	for i := 0; i < depth; i++ {
		notes[models.NoteName(fmt.Sprintf("n%d", i))] = fmt.Sprintf("[[n%d]]", i+1)
	}
	notes[models.NoteName(fmt.Sprintf("n%d", depth))] = ""
	s, _, err := Crawl(context.Background(), newMemSource(notes), "n0", discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	if s.Repo.Len() != depth+1 {
		t.Errorf("len = %d, want %d", s.Repo.Len(), depth+1)
	}
}
