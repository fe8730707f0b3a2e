package handler

import (
	"fmt"
	"net/http"

	"github.com/dmitrymomot/briefly/internal/sanitizer"
)

// validateUnsubscribe checks a token from an email link before the client
// shows the unsubscribe form. Inactive newsletters are reported as gone.
func (h *Handler) validateUnsubscribe(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, r, h.log, fmt.Errorf("%w: token is required", errBadRequest))
		return
	}

	n, err := h.store.Newsletters.GetByToken(r.Context(), token)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"title": n.Title})
}

type unsubscribeRequest struct {
	Token    string `json:"token" validate:"required"`
	Reason   string `json:"reason" validate:"omitempty,max=200"`
	Feedback string `json:"feedback" validate:"omitempty,max=2000"`
}

// unsubscribe deactivates the newsletter and appends the opt-out record.
// Repeating the request is not an error on the reader's side; the second
// call reports the newsletter as gone.
func (h *Handler) unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req unsubscribeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	err := h.store.Newsletters.Unsubscribe(r.Context(), req.Token,
		sanitizer.Text(req.Reason), sanitizer.Text(req.Feedback))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"unsubscribed": true})
}
