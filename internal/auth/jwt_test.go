package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigner_RoundTrip(t *testing.T) {
	s, err := NewSigner("secret")
	require.NoError(t, err)

	token, err := s.GenerateToken(7, "a", "a@a.com")
	require.NoError(t, err)

	claims, err := s.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "a@a.com", claims.Email)
	assert.Equal(t, "7", claims.Subject)
}

func TestSigner_RejectsOtherSecret(t *testing.T) {
	a, _ := NewSigner("secret-a")
	b, _ := NewSigner("secret-b")

	token, err := a.GenerateToken(1, "a", "a@a.com")
	require.NoError(t, err)

	_, err = b.ValidateToken(token)
	assert.Error(t, err)
}

func TestSigner_RejectsExpired(t *testing.T) {
	s, _ := NewSigner("secret")
	issued := time.Now().Add(-TokenTTL - time.Hour)
	s.now = func() time.Time { return issued }

	token, err := s.GenerateToken(1, "a", "a@a.com")
	require.NoError(t, err)

	s.now = time.Now
	_, err = s.ValidateToken(token)
	assert.Error(t, err)
}

func TestNewSigner_EmptySecret(t *testing.T) {
	_, err := NewSigner("")
	assert.Error(t, err)
}

func TestExpired(t *testing.T) {
	s, _ := NewSigner("secret")
	token, err := s.GenerateToken(1, "a", "a@a.com")
	require.NoError(t, err)

	now := time.Now()
	assert.False(t, Expired(token, now))
	assert.True(t, Expired(token, now.Add(TokenTTL+time.Minute)))

	// opaque tokens are never considered expired locally
	assert.False(t, Expired("dev-token", now))
	_, ok := TokenExpiry("dev-token")
	assert.False(t, ok)
}
