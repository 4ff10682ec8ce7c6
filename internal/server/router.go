package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// EventsPath is where the live-reload stream is mounted when enabled.
const EventsPath = "/_grove/events"

// NewRouter serves outputDir as static files. events, if non-nil, is mounted
// at EventsPath; otherwise the static files are the only route.
func NewRouter(outputDir string, events http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(NoCache)

	if events != nil {
		r.Get(EventsPath, events.ServeHTTP)
	}
	r.Handle("/*", http.FileServer(http.Dir(outputDir)))

	return r
}
