// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/grove/internal/build"
	"github.com/starford/grove/internal/index"
	"github.com/starford/grove/internal/server"
	"github.com/starford/grove/internal/sse"
	"github.com/starford/grove/internal/watch"
)

const shutdownTimeout = 10 * time.Second

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := app.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return app, nil
}

func (a *application) newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
}

// newBuilder wires the optional graph snapshot and rebuild hook into a
// Builder. The returned closer releases the snapshot database.
func (a *application) newBuilder(logger *slog.Logger, hook func(*build.Report)) (*build.Builder, io.Closer, error) {
	cfg := a.config
	opts := []build.Option{}
	var closer io.Closer = nopCloser{}

	if cfg.Index.Enabled() {
		db, err := index.Open(cfg.Index.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("init index: %w", err)
		}
		opts = append(opts, build.WithGraphStore(db))
		closer = db
	}
	if hook != nil {
		opts = append(opts, build.WithRebuildHook(hook))
	}

	b := build.New(cfg.Site.Paths(), cfg.Site.Entry(), cfg.Site.MarkdownExtensions, logger, opts...)
	return b, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Build regenerates the site once and returns.
func Build(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.newLogger()
	slog.SetDefault(logger)

	b, closer, err := app.newBuilder(logger, nil)
	if err != nil {
		return err
	}
	defer closer.Close()

	report, err := b.Rebuild(ctx)
	if err != nil {
		logger.Error("Build failed", slog.String("error", err.Error()))
		return err
	}
	if report.Warnings() > 0 {
		logger.Warn("Build finished with warnings", slog.Int("warnings", report.Warnings()))
	}
	return nil
}

// Run builds the site, then serves the output directory and rebuilds on
// template or style changes until ctx is cancelled or a termination signal
// arrives. SIGHUP forces a rebuild.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := app.newLogger()
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("base_dir", cfg.Site.BaseDir),
		slog.String("output_dir", cfg.Site.OutputDir),
		slog.String("start_page", cfg.Site.StartPage),
		slog.Bool("live_reload", cfg.App.HTTP.LiveReload),
		slog.String("log_level", cfg.App.LogLevel.String()))

	var (
		broker *sse.Broker
		events http.Handler
		hook   func(*build.Report)
	)
	if cfg.App.HTTP.LiveReload {
		broker = sse.NewBroker()
		defer broker.Close()
		events = broker
		hook = func(r *build.Report) { broker.PublishRebuild(r.Pages, r.Warnings()) }
	}

	b, closer, err := app.newBuilder(logger, hook)
	if err != nil {
		return err
	}
	defer closer.Close()

	// The output directory must exist before the file server starts, even
	// when the first build fails.
	if err := os.MkdirAll(cfg.Site.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if _, err := b.Rebuild(ctx); err != nil {
		logger.Error("Initial build failed", slog.String("error", err.Error()))
	}

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           server.NewRouter(cfg.Site.OutputDir, events),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)
	trigger := app.trigger
	if trigger == nil {
		trigger = make(chan struct{}, 1)
	}

	g.Go(func() error {
		return watch.Watch(gCtx, cfg.Site.WatchRoots(), trigger, func(ctx context.Context) error {
			_, err := b.Rebuild(ctx)
			return err
		}, logger)
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		defer signal.Stop(sigs)

	loop:
		for {
			select {
			case sig := <-sigs:
				if sig == syscall.SIGHUP {
					select {
					case trigger <- struct{}{}:
					default:
					}
					continue
				}
				logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
				break loop
			case <-gCtx.Done():
				logger.Info("Context cancelled, initiating shutdown")
				break loop
			}
		}

		cancel()
		logger.Info("Shutting down server...")
		// Open event streams never go idle; end them before Shutdown waits.
		if broker != nil {
			broker.Close()
		}

		shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stop()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
