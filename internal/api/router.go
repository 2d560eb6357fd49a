package api

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router serving the search page, its static
// assets, and the JSON/HTML/SSE API under /api.
func NewRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(SecurityHeaders())

	// Health check endpoints.
	r.Get("/health/live", h.Live)
	r.Get("/health/ready", h.Ready)

	// Page.
	r.Get("/", h.Page)

	// Static assets.
	assets, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(assets))))

	r.Route("/api", func(r chi.Router) {
		r.Get("/cards", h.Cards)
		r.Get("/records", h.Records)
		r.Post("/sessions/{id}/search", h.SessionSearch)
		r.Get("/events", h.Events)
	})

	return r
}
