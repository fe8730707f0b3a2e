package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrymomot/briefly/internal/auth"
	"github.com/dmitrymomot/briefly/internal/newsletter"
	"github.com/dmitrymomot/briefly/internal/store"
)

// validate is shared across handlers; validator instances cache struct
// metadata and are safe for concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

type errorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// respondJSON writes v as a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// respondError maps domain errors onto HTTP statuses. Anything unmapped is a
// 500 with a generic message; the real error goes to the log only.
func respondError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			details[fe.Field()] = fe.Tag()
		}
		respondJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Details: details})
		return
	}

	status := http.StatusInternalServerError
	message := "internal server error"

	switch {
	case errors.Is(err, errBadRequest):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, errUnauthorized):
		status, message = http.StatusUnauthorized, "authentication required"
	case errors.Is(err, errForbidden):
		status, message = http.StatusForbidden, "forbidden"
	case errors.Is(err, store.ErrNotFound):
		status, message = http.StatusNotFound, "not found"
	case errors.Is(err, store.ErrNotActive):
		status, message = http.StatusGone, "newsletter is no longer active"
	case errors.Is(err, store.ErrEmailTaken):
		status, message = http.StatusConflict, "email already registered"
	case errors.Is(err, store.ErrInvalidCode):
		status, message = http.StatusBadRequest, "invalid or expired code"
	case errors.Is(err, auth.ErrPasswordTooShort), errors.Is(err, auth.ErrPasswordTooLong):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, newsletter.ErrInvalidInterval), errors.Is(err, newsletter.ErrUnknownKind):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, newsletter.ErrCorruptComponent):
		status, message = http.StatusUnprocessableEntity, "newsletter has a corrupt component"
	case errors.Is(err, newsletter.ErrRecipientRequired):
		status, message = http.StatusBadRequest, "account has no email address"
	case errors.Is(err, newsletter.ErrFetchWeather), errors.Is(err, newsletter.ErrFetchCrypto):
		status, message = http.StatusBadGateway, "failed to fetch newsletter data"
	}

	if status >= http.StatusInternalServerError {
		log.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
	}
	respondJSON(w, status, errorResponse{Error: message})
}

var (
	errBadRequest   = errors.New("bad request")
	errUnauthorized = errors.New("unauthorized")
	errForbidden    = errors.New("forbidden")
)

// decodeJSON decodes and validates a request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed request body", errBadRequest)
	}
	return validate.Struct(dst)
}
