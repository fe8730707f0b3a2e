package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/briefly/internal/auth"
	"github.com/dmitrymomot/briefly/internal/mailer"
	"github.com/dmitrymomot/briefly/internal/sanitizer"
	"github.com/dmitrymomot/briefly/internal/session"
	"github.com/dmitrymomot/briefly/internal/store"
)

// errInvalidCredentials maps to 401 without leaking whether the email exists.
var errInvalidCredentials = fmt.Errorf("%w: invalid credentials", errUnauthorized)

type signupRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	if err := auth.ValidatePassword(req.Password); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	code := auth.NewCode()
	user, err := h.store.Users.Create(r.Context(), store.CreateParams{
		Name:             sanitizer.Text(req.Name),
		Email:            req.Email,
		PasswordHash:     hash,
		VerificationCode: &code,
	})
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	if err := h.mail.Send(r.Context(), mailer.SendParams{
		To:       user.Email,
		Template: "verify_email.md",
		Data:     map[string]any{"Name": user.Name, "Code": code},
	}); err != nil {
		// The account exists either way; the code can be resent.
		h.log.ErrorContext(r.Context(), "failed to send verification email",
			"user_id", user.ID, "error", err)
	}

	if err := h.startSession(w, r, user.ID); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	user, err := h.store.Users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, r, h.log, errInvalidCredentials)
			return
		}
		respondError(w, r, h.log, err)
		return
	}

	ok, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil || !ok {
		respondError(w, r, h.log, errInvalidCredentials)
		return
	}

	if err := h.startSession(w, r, user.ID); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if s, ok := sessionFromContext(r.Context()); ok {
		if err := h.sessions.Delete(r.Context(), s.Token); err != nil {
			respondError(w, r, h.log, err)
			return
		}
	}
	h.cookies.Delete(w, SessionCookieName)
	respondJSON(w, http.StatusNoContent, nil)
}

type verifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  int    `json:"code" validate:"required,min=100000,max=999999"`
}

func (h *Handler) verifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	if err := h.store.Users.Verify(r.Context(), req.Email, req.Code); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"verified": true})
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *Handler) resendVerification(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	user, err := h.store.Users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if user.Verified {
		respondError(w, r, h.log, fmt.Errorf("%w: email already verified", errBadRequest))
		return
	}

	code := auth.NewCode()
	if err := h.store.Users.SetVerificationCode(r.Context(), req.Email, code); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if err := h.mail.Send(r.Context(), mailer.SendParams{
		To:       user.Email,
		Template: "verify_email.md",
		Data:     map[string]any{"Name": user.Name, "Code": code},
	}); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusAccepted, nil)
}

func (h *Handler) requestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	user, err := h.store.Users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		// Always 202: password reset must not reveal account existence.
		if errors.Is(err, store.ErrNotFound) {
			respondJSON(w, http.StatusAccepted, nil)
			return
		}
		respondError(w, r, h.log, err)
		return
	}

	code := auth.NewCode()
	if err := h.store.Users.SetPasswordResetCode(r.Context(), req.Email, code); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if err := h.mail.Send(r.Context(), mailer.SendParams{
		To:       user.Email,
		Template: "reset_password.md",
		Data:     map[string]any{"Name": user.Name, "Code": code},
	}); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusAccepted, nil)
}

type resetVerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  int    `json:"code" validate:"required,min=100000,max=999999"`
}

func (h *Handler) verifyPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req resetVerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	if err := h.store.Users.CheckPasswordResetCode(r.Context(), req.Email, req.Code); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

type resetConfirmRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Code     int    `json:"code" validate:"required,min=100000,max=999999"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) confirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req resetConfirmRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	if err := auth.ValidatePassword(req.Password); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	if err := h.store.Users.ResetPassword(r.Context(), req.Email, req.Code, hash); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	// All existing sessions die with the old password.
	if user, err := h.store.Users.GetByEmail(r.Context(), req.Email); err == nil {
		if err := h.sessions.DeleteByUserID(r.Context(), user.ID); err != nil {
			h.log.ErrorContext(r.Context(), "failed to invalidate sessions after password reset",
				"user_id", user.ID, "error", err)
		}
	}
	respondJSON(w, http.StatusOK, map[string]bool{"reset": true})
}

// oauthStateCookie holds the CSRF state between redirect and callback.
const oauthStateCookie = "briefly_oauth_state"

func (h *Handler) googleLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	h.cookies.Set(w, oauthStateCookie, state, int((10 * time.Minute).Seconds()))
	http.Redirect(w, r, h.google.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

func (h *Handler) googleCallback(w http.ResponseWriter, r *http.Request) {
	state, err := h.cookies.Get(r, oauthStateCookie)
	if err != nil || state == "" || state != r.URL.Query().Get("state") {
		respondError(w, r, h.log, fmt.Errorf("%w: oauth state mismatch", errBadRequest))
		return
	}
	h.cookies.Delete(w, oauthStateCookie)

	token, err := h.google.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		respondError(w, r, h.log, fmt.Errorf("%w: oauth code exchange failed", errBadRequest))
		return
	}
	info, err := h.google.FetchUserInfo(r.Context(), token)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	user, err := h.store.Users.GetByEmail(r.Context(), info.Email)
	if errors.Is(err, store.ErrNotFound) {
		// First Google login provisions the account, already verified.
		user, err = h.store.Users.Create(r.Context(), store.CreateParams{
			Name:      sanitizer.Text(info.Name),
			Email:     info.Email,
			AvatarURL: info.Picture,
			Verified:  true,
		})
	}
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	if err := h.startSession(w, r, user.ID); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

// startSession creates a session, persists it and sets the signed cookie.
func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, userID string) error {
	s := session.New(userID, h.sessionTTL)
	s.IP = r.RemoteAddr
	s.UserAgent = r.UserAgent()
	if err := h.sessions.Create(r.Context(), s); err != nil {
		return err
	}
	h.cookies.Set(w, SessionCookieName, s.Token, int(h.sessionTTL.Seconds()))
	return nil
}
