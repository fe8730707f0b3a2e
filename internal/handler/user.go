package handler

import (
	"fmt"
	"net/http"

	"github.com/dmitrymomot/briefly/internal/auth"
	"github.com/dmitrymomot/briefly/internal/sanitizer"
)

// maxAvatarSize caps avatar uploads at 5 MB.
const maxAvatarSize = 5 << 20

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	s, _ := sessionFromContext(r.Context())
	user, err := h.store.Users.GetByID(r.Context(), s.UserID)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

type updateProfileRequest struct {
	Name      string `json:"name" validate:"required,max=100"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,url"`
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	s, _ := sessionFromContext(r.Context())

	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	if err := h.store.Users.UpdateName(r.Context(), s.UserID, sanitizer.Text(req.Name)); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if req.AvatarURL != "" {
		if err := h.store.Users.UpdateAvatar(r.Context(), s.UserID, req.AvatarURL); err != nil {
			respondError(w, r, h.log, err)
			return
		}
	}

	user, err := h.store.Users.GetByID(r.Context(), s.UserID)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (h *Handler) uploadAvatar(w http.ResponseWriter, r *http.Request) {
	s, _ := sessionFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarSize)
	if err := r.ParseMultipartForm(maxAvatarSize); err != nil {
		respondError(w, r, h.log, fmt.Errorf("%w: avatar too large or malformed", errBadRequest))
		return
	}
	file, header, err := r.FormFile("avatar")
	if err != nil {
		respondError(w, r, h.log, fmt.Errorf("%w: avatar file is required", errBadRequest))
		return
	}
	defer file.Close()

	url, err := h.avatars.Upload(r.Context(), s.UserID, file, header.Header.Get("Content-Type"), header.Size)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if err := h.store.Users.UpdateAvatar(r.Context(), s.UserID, url); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"avatar_url": url})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	s, _ := sessionFromContext(r.Context())

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	user, err := h.store.Users.GetByID(r.Context(), s.UserID)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	ok, err := auth.VerifyPassword(req.CurrentPassword, user.PasswordHash)
	if err != nil || !ok {
		respondError(w, r, h.log, errInvalidCredentials)
		return
	}

	if err := auth.ValidatePassword(req.NewPassword); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if err := h.store.Users.UpdatePassword(r.Context(), s.UserID, hash); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	// Kill every other session; the current one stays alive.
	if err := h.sessions.DeleteByUserID(r.Context(), s.UserID); err != nil {
		h.log.ErrorContext(r.Context(), "failed to invalidate sessions after password change",
			"user_id", s.UserID, "error", err)
	}
	if err := h.startSession(w, r, s.UserID); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"changed": true})
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	s, _ := sessionFromContext(r.Context())

	user, err := h.store.Users.GetByID(r.Context(), s.UserID)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	if err := h.store.Users.Delete(r.Context(), s.UserID); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if err := h.sessions.DeleteByUserID(r.Context(), s.UserID); err != nil {
		h.log.ErrorContext(r.Context(), "failed to invalidate sessions after account deletion",
			"user_id", s.UserID, "error", err)
	}
	if h.avatars != nil && user.AvatarURL != "" {
		if err := h.avatars.Delete(r.Context(), user.AvatarURL); err != nil {
			h.log.ErrorContext(r.Context(), "failed to delete avatar",
				"user_id", s.UserID, "error", err)
		}
	}

	h.cookies.Delete(w, SessionCookieName)
	respondJSON(w, http.StatusNoContent, nil)
}
