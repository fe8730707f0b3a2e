package cookie_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/briefly/internal/cookie"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestNewRequiresStrongSecret(t *testing.T) {
	_, err := cookie.New("", false)
	assert.ErrorIs(t, err, cookie.ErrNoSecret)

	_, err = cookie.New("too short", false)
	assert.ErrorIs(t, err, cookie.ErrBadSecret)

	_, err = cookie.New(testSecret, false)
	assert.NoError(t, err)
}

func TestSignedRoundTrip(t *testing.T) {
	m, err := cookie.New(testSecret, false)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	m.Set(rec, "session", "token-value", 3600)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}

	got, err := m.Get(req, "session")
	require.NoError(t, err)
	assert.Equal(t, "token-value", got)
}

func TestGetMissingCookie(t *testing.T) {
	m, err := cookie.New(testSecret, false)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err = m.Get(req, "session")
	assert.ErrorIs(t, err, cookie.ErrNotFound)
}

func TestTamperedSignatureRejected(t *testing.T) {
	m, err := cookie.New(testSecret, false)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	m.Set(rec, "session", "token-value", 3600)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		c.Value += "x"
		req.AddCookie(c)
	}

	_, err = m.Get(req, "session")
	assert.ErrorIs(t, err, cookie.ErrBadSig)
}

func TestDifferentSecretRejected(t *testing.T) {
	m1, err := cookie.New(testSecret, false)
	require.NoError(t, err)
	m2, err := cookie.New("fedcba9876543210fedcba9876543210", false)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	m1.Set(rec, "session", "token-value", 3600)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}

	_, err = m2.Get(req, "session")
	assert.ErrorIs(t, err, cookie.ErrBadSig)
}
