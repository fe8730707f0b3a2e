package session_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/briefly/internal/session"
)

func TestNew(t *testing.T) {
	s := session.New("user-1", time.Hour)

	require.NotEmpty(t, s.ID)
	require.NotEmpty(t, s.Token)
	assert.NotEqual(t, s.ID, s.Token)
	assert.Equal(t, "user-1", s.UserID)
	assert.False(t, s.IsExpired())
	assert.WithinDuration(t, time.Now().Add(time.Hour), s.ExpiresAt, time.Second)
}

func TestIsExpired(t *testing.T) {
	s := session.New("user-1", -time.Minute)
	assert.True(t, s.IsExpired())
}

func TestTokensAreUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for range 100 {
		s := session.New("user-1", time.Hour)
		_, dup := seen[s.Token]
		require.False(t, dup)
		seen[s.Token] = struct{}{}
	}
}
