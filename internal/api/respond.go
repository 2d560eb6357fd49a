package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/langcards/internal/apperr"
)

type errResponse struct {
	Error string `json:"error"`
}

type statusResponse struct {
	Status string `json:"status"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errResponse{Error: msg})
}

func writeStatus(w http.ResponseWriter, status int, s string) {
	writeJSON(w, status, statusResponse{Status: s})
}

// writeHTML writes a rendered fragment or page. Rendered output reflects
// the current catalog and query, so it is never cached by intermediaries.
func writeHTML(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(body)
}

// writeLoadError maps a catalog load failure to a response.
func writeLoadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrResourceParse):
		writeError(w, http.StatusServiceUnavailable, "catalog resource is malformed")
	case errors.Is(err, apperr.ErrResourceLoad):
		writeError(w, http.StatusServiceUnavailable, "catalog unavailable")
	default:
		slog.Error("catalog request failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
