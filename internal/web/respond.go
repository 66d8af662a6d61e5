package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tuneswipe/tuneswipe-api/internal/auth"
	"github.com/tuneswipe/tuneswipe-api/internal/catalog"
	"github.com/tuneswipe/tuneswipe-api/internal/db"
	"github.com/tuneswipe/tuneswipe-api/internal/playlist"
	"github.com/tuneswipe/tuneswipe-api/internal/session"
)

// envelope is the JSON shape every API response uses.
type envelope struct {
	Status    string `json:"status"`
	Data      any    `json:"data,omitempty"`
	Message   string `json:"message,omitempty"`
	NeedsAuth *bool  `json:"needs_auth,omitempty"`
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Errorw("writing response failed", "error", err)
	}
}

// success writes a 200 success envelope with data.
func (h *Handlers) success(w http.ResponseWriter, data any) {
	h.writeJSON(w, http.StatusOK, envelope{Status: "success", Data: data})
}

// successMsg writes a 200 success envelope with data and a message.
func (h *Handlers) successMsg(w http.ResponseWriter, data any, msg string) {
	h.writeJSON(w, http.StatusOK, envelope{Status: "success", Data: data, Message: msg})
}

// fail writes an error envelope with an explicit status code.
func (h *Handlers) fail(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, envelope{Status: "error", Message: msg})
}

// failAuth writes an error envelope flagged with needs_auth so the frontend
// restarts the OAuth flow.
func (h *Handlers) failAuth(w http.ResponseWriter, status int, msg string) {
	needsAuth := true
	h.writeJSON(w, status, envelope{Status: "error", Message: msg, NeedsAuth: &needsAuth})
}

// serviceError maps service-layer sentinel errors to HTTP responses.
func (h *Handlers) serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		h.fail(w, http.StatusNotFound, "not found")
	case errors.Is(err, db.ErrDuplicateSwipe):
		h.fail(w, http.StatusConflict, "song already swiped in this session")
	case errors.Is(err, session.ErrSessionNotActive):
		h.fail(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrInvalidTarget),
		errors.Is(err, session.ErrInvalidDirection),
		errors.Is(err, playlist.ErrNoLikedSongs),
		errors.Is(err, catalog.ErrNoResults):
		h.fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, catalog.ErrProviderUnavailable):
		h.fail(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, auth.ErrReauthRequired):
		h.failAuth(w, http.StatusUnauthorized, err.Error())
	default:
		h.log.Errorw("request failed", "error", err)
		h.fail(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON decodes a request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}
