package api

import (
	"bytes"
	"embed"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/langcards/internal/catalog"
	"github.com/starford/langcards/internal/checksum"
	"github.com/starford/langcards/internal/models"
	"github.com/starford/langcards/internal/render"
	"github.com/starford/langcards/internal/search"
	"github.com/starford/langcards/internal/session"
	"github.com/starford/langcards/internal/sse"
)

//go:embed static
var staticFS embed.FS

// Handler holds the page and API route handlers.
type Handler struct {
	loader   *catalog.Loader
	renderer *render.Renderer
	sessions *session.Registry
	broker   *sse.Broker
	title    string
}

// NewHandler creates a new Handler.
func NewHandler(loader *catalog.Loader, renderer *render.Renderer, sessions *session.Registry, broker *sse.Broker, title string) *Handler {
	return &Handler{
		loader:   loader,
		renderer: renderer,
		sessions: sessions,
		broker:   broker,
		title:    title,
	}
}

// Page handles GET /.
//
// Every page load opens a session and runs the search for ?q= (empty on a
// plain visit) into the session's container; the page is then rendered
// with whatever that container holds. When the session limit is reached the
// page is still served, without live updates.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	page := render.Page{Title: h.title, Query: query}

	sess, err := h.sessions.Create()
	if err != nil {
		slog.Warn("page: no live session", slog.String("error", err.Error()))
		view := render.NewView()
		search.NewPipeline(h.loader, h.renderer, view, slog.Default()).HandleSearch(r.Context(), query)
		page.Cards = view.Cards()
	} else {
		sess.Search(r.Context(), query)
		page.Session = sess.ID
		page.Cards = sess.Cards()
		page.Seq = sess.Seq()
	}

	var buf bytes.Buffer
	if err := render.WritePage(&buf, page); err != nil {
		slog.Error("page: render failed", slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeHTML(w, buf.Bytes())
}

// Cards handles GET /api/cards.
//
// The response is the HTML body of the card container for ?q=. The page
// script echoes ?seq= so it can drop responses to superseded keystrokes;
// it is returned in X-Search-Seq untouched.
func (h *Handler) Cards(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	view := render.NewView()
	outcome := search.NewPipeline(h.loader, h.renderer, view, slog.Default()).HandleSearch(r.Context(), query)
	if outcome != search.Rendered {
		writeError(w, http.StatusServiceUnavailable, "catalog unavailable")
		return
	}

	html, err := view.HTML()
	if err != nil {
		slog.Error("cards: render failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	etag := checksum.ETag(html)
	w.Header().Set("ETag", etag)
	w.Header().Set("X-Card-Count", strconv.Itoa(view.Len()))
	if seq := r.URL.Query().Get("seq"); seq != "" {
		w.Header().Set("X-Search-Seq", seq)
	}
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeHTML(w, html)
}

// RecordsResponse is the body of GET /api/records.
type RecordsResponse struct {
	Records []models.Record `json:"records"`
	Total   int             `json:"total"`
}

// Records handles GET /api/records.
func (h *Handler) Records(w http.ResponseWriter, r *http.Request) {
	recs, err := search.Search(r.Context(), h.loader, r.URL.Query().Get("q"))
	if err != nil {
		writeLoadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RecordsResponse{Records: recs, Total: len(recs)})
}

// SessionSearchResponse is the body of POST /api/sessions/{id}/search.
type SessionSearchResponse struct {
	Outcome string `json:"outcome"`
	Cards   int    `json:"cards"` // zero unless Outcome is "rendered"
}

// SessionSearch handles POST /api/sessions/{id}/search. The cards
// themselves are delivered to the page over the session's event stream.
// The page numbers its queries with ?seq= in typing order; a query whose
// number is not above the latest one seen is superseded and reports no
// cards.
func (h *Handler) SessionSearch(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	query := r.URL.Query().Get("q")
	var outcome search.Outcome
	if raw := r.URL.Query().Get("seq"); raw != "" {
		seq, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid seq")
			return
		}
		outcome = sess.SearchSeq(r.Context(), query, seq)
	} else {
		outcome = sess.Search(r.Context(), query)
	}

	resp := SessionSearchResponse{Outcome: outcome.String()}
	switch outcome {
	case search.Aborted:
		writeError(w, http.StatusServiceUnavailable, "catalog unavailable")
		return
	case search.Rendered:
		resp.Cards = len(sess.Cards())
	}
	writeJSON(w, http.StatusOK, resp)
}

// Events handles GET /api/events?session={id}.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(r.URL.Query().Get("session"))
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	h.sessions.Attach(sess)
	defer h.sessions.Detach(sess)
	h.broker.ServeTopic(w, r, sess.ID)
}

// Live handles GET /health/live.
func (h *Handler) Live(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, http.StatusOK, "ok")
}

// Ready handles GET /health/ready. The service is ready once the catalog
// has been loaded.
func (h *Handler) Ready(w http.ResponseWriter, _ *http.Request) {
	if !h.loader.Loaded() {
		writeStatus(w, http.StatusServiceUnavailable, "loading")
		return
	}
	writeStatus(w, http.StatusOK, "ok")
}
