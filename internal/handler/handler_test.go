package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/briefly/internal/cookie"
	"github.com/dmitrymomot/briefly/internal/newsletter"
	"github.com/dmitrymomot/briefly/internal/session"
	"github.com/dmitrymomot/briefly/internal/store"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type memorySessions struct {
	byToken map[string]*session.Session
}

func newMemorySessions() *memorySessions {
	return &memorySessions{byToken: map[string]*session.Session{}}
}

func (m *memorySessions) Create(_ context.Context, s *session.Session) error {
	m.byToken[s.Token] = s
	return nil
}

func (m *memorySessions) Get(_ context.Context, token string) (*session.Session, error) {
	s, ok := m.byToken[token]
	if !ok {
		return nil, session.ErrNotFound
	}
	if s.IsExpired() {
		return nil, session.ErrExpired
	}
	return s, nil
}

func (m *memorySessions) Delete(_ context.Context, token string) error {
	delete(m.byToken, token)
	return nil
}

func (m *memorySessions) DeleteByUserID(_ context.Context, userID string) error {
	for token, s := range m.byToken {
		if s.UserID == userID {
			delete(m.byToken, token)
		}
	}
	return nil
}

func testCookies(t *testing.T) *cookie.Manager {
	t.Helper()
	m, err := cookie.New(testSecret, false)
	require.NoError(t, err)
	return m
}

func echoUserID(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := sessionFromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(s.UserID))
	})
}

func TestSessionMiddlewareResolvesValidCookie(t *testing.T) {
	cookies := testCookies(t)
	sessions := newMemorySessions()

	s := session.New("user-1", time.Hour)
	require.NoError(t, sessions.Create(context.Background(), s))

	rec := httptest.NewRecorder()
	cookies.Set(rec, SessionCookieName, s.Token, 3600)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}

	out := httptest.NewRecorder()
	withSession(cookies, sessions)(echoUserID(t)).ServeHTTP(out, req)

	assert.Equal(t, http.StatusOK, out.Code)
	assert.Equal(t, "user-1", out.Body.String())
}

func TestSessionMiddlewarePassesAnonymousThrough(t *testing.T) {
	cookies := testCookies(t)
	sessions := newMemorySessions()

	var sawSession bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawSession = sessionFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	out := httptest.NewRecorder()
	withSession(cookies, sessions)(next).ServeHTTP(out, req)

	assert.False(t, sawSession)
}

func TestSessionMiddlewareClearsStaleCookie(t *testing.T) {
	cookies := testCookies(t)
	sessions := newMemorySessions()

	rec := httptest.NewRecorder()
	cookies.Set(rec, SessionCookieName, "token-for-dead-session", 3600)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}

	out := httptest.NewRecorder()
	withSession(cookies, sessions)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).ServeHTTP(out, req)

	var cleared bool
	for _, c := range out.Result().Cookies() {
		if c.Name == SessionCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared, "stale session cookie must be deleted")
}

func TestSessionMiddlewareRejectsTamperedCookie(t *testing.T) {
	cookies := testCookies(t)
	sessions := newMemorySessions()

	s := session.New("user-1", time.Hour)
	require.NoError(t, sessions.Create(context.Background(), s))

	rec := httptest.NewRecorder()
	cookies.Set(rec, SessionCookieName, s.Token, 3600)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		c.Value += "x"
		req.AddCookie(c)
	}

	var sawSession bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawSession = sessionFromContext(r.Context())
	})

	out := httptest.NewRecorder()
	withSession(cookies, sessions)(next).ServeHTTP(out, req)
	assert.False(t, sawSession, "tampered cookie must not resolve to a session")
}

func TestRequireAuthRejectsAnonymous(t *testing.T) {
	h := &Handler{log: slog.New(slog.DiscardHandler)}

	req := httptest.NewRequest(http.MethodGet, "/user/me", nil)
	out := httptest.NewRecorder()
	h.requireAuth(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("next must not run")
	})).ServeHTTP(out, req)

	assert.Equal(t, http.StatusUnauthorized, out.Code)
	assert.Contains(t, out.Body.String(), "authentication required")
}

func TestRespondErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "not found", err: store.ErrNotFound, status: http.StatusNotFound},
		{name: "email taken", err: store.ErrEmailTaken, status: http.StatusConflict},
		{name: "inactive newsletter", err: store.ErrNotActive, status: http.StatusGone},
		{name: "invalid code", err: store.ErrInvalidCode, status: http.StatusBadRequest},
		{name: "corrupt component", err: newsletter.ErrCorruptComponent, status: http.StatusUnprocessableEntity},
		{name: "missing recipient", err: newsletter.ErrRecipientRequired, status: http.StatusBadRequest},
		{name: "upstream fetch", err: newsletter.ErrFetchCrypto, status: http.StatusBadGateway},
		{name: "unauthorized", err: errUnauthorized, status: http.StatusUnauthorized},
		{name: "unknown", err: assert.AnError, status: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			out := httptest.NewRecorder()
			respondError(out, req, slog.New(slog.DiscardHandler), tt.err)
			assert.Equal(t, tt.status, out.Code)
		})
	}
}

func TestRespondErrorHidesInternalDetails(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	out := httptest.NewRecorder()
	respondError(out, req, slog.New(slog.DiscardHandler), assert.AnError)

	assert.Equal(t, http.StatusInternalServerError, out.Code)
	assert.NotContains(t, out.Body.String(), assert.AnError.Error())
}

func TestDecodeJSONValidates(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"not-an-email","password":"secret1"}`))

	var body loginRequest
	err := decodeJSON(req, &body)
	require.Error(t, err)

	out := httptest.NewRecorder()
	respondError(out, req, slog.New(slog.DiscardHandler), err)
	assert.Equal(t, http.StatusUnprocessableEntity, out.Code)
	assert.Contains(t, out.Body.String(), "Email")
}

func TestDecodeJSONRejectsMalformedBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("{"))

	var body loginRequest
	err := decodeJSON(req, &body)
	assert.ErrorIs(t, err, errBadRequest)
}

func TestHealth(t *testing.T) {
	h := &Handler{log: slog.New(slog.DiscardHandler)}
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	out := httptest.NewRecorder()
	h.health(out, req)

	assert.Equal(t, http.StatusOK, out.Code)
	assert.JSONEq(t, `{"status":"ok"}`, out.Body.String())
}
