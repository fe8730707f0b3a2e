package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/briefly/internal/newsletter"
	"github.com/dmitrymomot/briefly/internal/sanitizer"
)

type componentRequest struct {
	Kind    newsletter.Kind           `json:"type" validate:"required"`
	Weather *newsletter.WeatherParams `json:"weather,omitempty"`
	Crypto  *newsletter.CryptoParams  `json:"crypto,omitempty"`
	Quote   *newsletter.QuoteParams   `json:"quote,omitempty"`
}

type createNewsletterRequest struct {
	Title      string              `json:"title" validate:"required,max=200"`
	Interval   newsletter.Interval `json:"interval" validate:"required"`
	TimeOfDay  string              `json:"time" validate:"omitempty,len=5"`
	Components []componentRequest  `json:"components" validate:"required,min=1,dive"`
}

func (h *Handler) createNewsletter(w http.ResponseWriter, r *http.Request) {
	s, _ := sessionFromContext(r.Context())

	var req createNewsletterRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	// Position mirrors the input slice order.
	components := make([]newsletter.Component, 0, len(req.Components))
	for i, c := range req.Components {
		component := newsletter.Component{
			Kind:     c.Kind,
			Position: i,
			Weather:  c.Weather,
			Crypto:   c.Crypto,
		}
		if c.Quote != nil {
			component.Quote = &newsletter.QuoteParams{
				Text:   sanitizer.Text(c.Quote.Text),
				Author: sanitizer.Text(c.Quote.Author),
			}
		}
		if err := component.Validate(); err != nil {
			respondError(w, r, h.log, err)
			return
		}
		components = append(components, component)
	}

	created, err := h.store.Newsletters.Create(r.Context(), &newsletter.Newsletter{
		UserID:     s.UserID,
		Title:      sanitizer.Text(req.Title),
		Interval:   req.Interval,
		TimeOfDay:  req.TimeOfDay,
		Components: components,
	})
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *Handler) listNewsletters(w http.ResponseWriter, r *http.Request) {
	s, _ := sessionFromContext(r.Context())

	newsletters, err := h.store.Newsletters.ListByUser(r.Context(), s.UserID)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, newsletters)
}

func (h *Handler) getNewsletter(w http.ResponseWriter, r *http.Request) {
	s, _ := sessionFromContext(r.Context())

	n, err := h.store.Newsletters.GetByID(r.Context(), s.UserID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, n)
}

func (h *Handler) deleteNewsletter(w http.ResponseWriter, r *http.Request) {
	s, _ := sessionFromContext(r.Context())

	if err := h.store.Newsletters.Delete(r.Context(), s.UserID, chi.URLParam(r, "id")); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// sendNewsletter runs the full pipeline and dispatches the email to the
// owner's address.
func (h *Handler) sendNewsletter(w http.ResponseWriter, r *http.Request) {
	s, _ := sessionFromContext(r.Context())

	n, err := h.store.Newsletters.GetByID(r.Context(), s.UserID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	user, err := h.store.Users.GetByID(r.Context(), s.UserID)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	if err := h.pipeline.Send(r.Context(), n, user.Email); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"sent": true})
}

// previewNewsletter renders the newsletter with live data but dispatches
// nothing.
func (h *Handler) previewNewsletter(w http.ResponseWriter, r *http.Request) {
	s, _ := sessionFromContext(r.Context())

	n, err := h.store.Newsletters.GetByID(r.Context(), s.UserID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	user, err := h.store.Users.GetByID(r.Context(), s.UserID)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	html, err := h.pipeline.Preview(r.Context(), n, user.Email)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(html))
}

type toggleRequest struct {
	Active bool `json:"active"`
}

func (h *Handler) toggleNewsletter(w http.ResponseWriter, r *http.Request) {
	s, _ := sessionFromContext(r.Context())

	var req toggleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	if err := h.store.Newsletters.SetActive(r.Context(), s.UserID, chi.URLParam(r, "id"), req.Active); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"active": req.Active})
}
