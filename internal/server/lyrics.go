package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lyricslide/internal/services"
	"github.com/desertthunder/lyricslide/internal/shared"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// LyricsHandler serves song lookups.
// Implements the Handler interface for registration with a Router.
//
//	GET /lyrics?song=<query>
//	200 {title, artist, album, releaseDate, lyrics}
//	400 missing query, 404 no result or no lyrics, 500 upstream failure
type LyricsHandler struct {
	service services.Service
	logger  *log.Logger
}

// NewLyricsHandler creates a handler backed by service.
func NewLyricsHandler(service services.Service, logger *log.Logger) *LyricsHandler {
	return &LyricsHandler{service: service, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *LyricsHandler) Routes() []string {
	return []string{"/lyrics", "/api/lyrics"}
}

// ServeHTTP handles a lookup request.
func (h *LyricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query := r.URL.Query().Get("song")
	if query == "" {
		writeError(w, http.StatusBadRequest, "No song query provided")
		return
	}

	song, err := h.service.Lookup(r.Context(), query)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, song)
	case errors.Is(err, shared.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "No song query provided")
	case errors.Is(err, services.ErrNoResults):
		writeError(w, http.StatusNotFound, "No results found")
	case errors.Is(err, services.ErrNoLyrics):
		writeError(w, http.StatusNotFound, "Could not extract lyrics")
	default:
		if h.logger != nil {
			h.logger.Error("lyrics lookup failed", "query", query, "service", h.service.Name(), "error", err)
		}
		writeError(w, http.StatusInternalServerError, "An error occurred while fetching lyrics")
	}
}
