package internal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/grove/internal/apperr"
	"github.com/starford/grove/internal/index"
	"github.com/starford/grove/internal/server"
	"github.com/starford/grove/internal/testutil"
)

func gardenConfig(g *testutil.Garden) *Config {
	cfg := NewDefaultConfig()
	cfg.Site.BaseDir = g.Notes
	cfg.Site.TemplatesDir = g.Templates
	cfg.Site.StaticDir = g.Static
	cfg.Site.OutputDir = g.Output
	return cfg
}

func TestBuild_WritesSite(t *testing.T) {
	g := testutil.NewGarden(t, map[string]string{
		"Home":  "See [[About]].",
		"About": "Back to [[Home]].",
	})
	g.WriteStyle(t, "site.css", "a { color: red; }")
	cfg := gardenConfig(g)
	cfg.Index.Path = filepath.Join(t.TempDir(), "graph.db")

	if err := Build(context.Background(), WithConfig(cfg), WithLogOutput(io.Discard)); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(g.ReadOutput(t, "index.html"), `<a href="about.html">About</a>`) {
		t.Error("index.html should link to about.html")
	}
	if !g.OutputExists(filepath.Join("css", "site.css")) {
		t.Error("style sheet not compiled")
	}

	db, err := index.Open(cfg.Index.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	notes, err := db.Notes()
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 2 {
		t.Errorf("snapshot notes = %d, want 2", len(notes))
	}
}

func TestBuild_MissingStartPage(t *testing.T) {
	g := testutil.NewGarden(t, nil)
	err := Build(context.Background(), WithConfig(gardenConfig(g)), WithLogOutput(io.Discard))
	if !errors.Is(err, apperr.ErrContentNotFound) {
		t.Fatalf("err = %v, want ErrContentNotFound", err)
	}
}

func TestBuild_RequiresConfig(t *testing.T) {
	if err := Build(context.Background(), WithLogOutput(io.Discard)); err == nil {
		t.Fatal("Build without config should fail")
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestRun_ServesAndStops(t *testing.T) {
	g := testutil.NewGarden(t, map[string]string{"Home": "# Welcome"})
	cfg := gardenConfig(g)
	cfg.App.HTTP.Port = freePort(t)
	cfg.App.HTTP.LiveReload = true

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, WithConfig(cfg), WithLogOutput(io.Discard)) }()

	url := fmt.Sprintf("http://127.0.0.1:%d/", cfg.App.HTTP.Port)
	var resp *http.Response
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		r, err := http.Get(url)
		if err == nil {
			resp = r
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if resp == nil {
		cancel()
		t.Fatal("server did not start")
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "Welcome") {
		t.Errorf("GET / = %d %q", resp.StatusCode, body)
	}
	if resp.Header.Get("Cache-Control") != "no-cache, no-store, must-revalidate" {
		t.Errorf("Cache-Control = %q", resp.Header.Get("Cache-Control"))
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestRun_LiveReloadPublishesRebuild(t *testing.T) {
	g := testutil.NewGarden(t, map[string]string{"Home": "hello"})
	cfg := gardenConfig(g)
	cfg.App.HTTP.Port = freePort(t)
	cfg.App.HTTP.LiveReload = true
	trigger := make(chan struct{}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, WithConfig(cfg), WithLogOutput(io.Discard), WithRebuildTrigger(trigger))
	}()

	base := fmt.Sprintf("http://127.0.0.1:%d", cfg.App.HTTP.Port)
	var resp *http.Response
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, base+server.EventsPath, nil)
		r, err := http.DefaultClient.Do(req)
		if err == nil {
			resp = r
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if resp == nil {
		t.Fatal("events stream unavailable")
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	got := make(chan string, 1)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if line := scanner.Text(); strings.HasPrefix(line, "data: ") {
				got <- line
				return
			}
		}
	}()

	trigger <- struct{}{}
	select {
	case line := <-got:
		if line != `data: {"pages":1,"warnings":0}` {
			t.Errorf("event data = %q", line)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no site.rebuilt event after a manual rebuild")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
