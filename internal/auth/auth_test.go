package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/briefly/internal/auth"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := auth.HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))

	ok, err := auth.VerifyPassword("correct horse battery staple", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = auth.VerifyPassword("wrong password", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPasswordUniqueSalts(t *testing.T) {
	h1, err := auth.HashPassword("secret123")
	require.NoError(t, err)
	h2, err := auth.HashPassword("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{name: "empty", hash: ""},
		{name: "wrong algorithm", hash: "$bcrypt$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA"},
		{name: "missing sections", hash: "$argon2id$v=19$m=65536"},
		{name: "bad base64 salt", hash: "$argon2id$v=19$m=65536,t=3,p=2$!!!$aGFzaA"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := auth.VerifyPassword("whatever", tt.hash)
			assert.False(t, ok)
			assert.ErrorIs(t, err, auth.ErrInvalidHashFormat)
		})
	}
}

func TestValidatePassword(t *testing.T) {
	assert.ErrorIs(t, auth.ValidatePassword("short"), auth.ErrPasswordTooShort)
	assert.ErrorIs(t, auth.ValidatePassword(strings.Repeat("x", 129)), auth.ErrPasswordTooLong)
	assert.NoError(t, auth.ValidatePassword("secret123"))
}

func TestNewCodeBounds(t *testing.T) {
	for range 1000 {
		code := auth.NewCode()
		require.GreaterOrEqual(t, code, 100000)
		require.LessOrEqual(t, code, 999999)
	}
}
