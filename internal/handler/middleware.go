package handler

import (
	"context"
	"net/http"

	"github.com/dmitrymomot/briefly/internal/cookie"
	"github.com/dmitrymomot/briefly/internal/session"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "briefly_session"

type ctxKey int

const sessionCtxKey ctxKey = iota

// withSession resolves the session cookie on every request and, when valid,
// stores the session in the request context. Invalid or missing cookies pass
// through anonymously; route-level auth decides whether that matters.
func withSession(cookies *cookie.Manager, sessions session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := cookies.Get(r, SessionCookieName)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			s, err := sessions.Get(r.Context(), token)
			if err != nil {
				// Stale cookie for a dead session; clear it so the client
				// stops resending it.
				cookies.Delete(w, SessionCookieName)
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), sessionCtxKey, s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// sessionFromContext returns the authenticated session, if any.
func sessionFromContext(ctx context.Context) (*session.Session, bool) {
	s, ok := ctx.Value(sessionCtxKey).(*session.Session)
	return s, ok
}

// requireAuth rejects anonymous requests with 401.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := sessionFromContext(r.Context()); !ok {
			respondError(w, r, h.log, errUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
