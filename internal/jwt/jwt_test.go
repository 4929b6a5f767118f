package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndDecode(t *testing.T) {
	s := NewSigner("test-secret", time.Hour)

	token, err := s.Issue("session-1", "admin")
	require.NoError(t, err)

	claim, err := s.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "session-1", claim.SessionID)
	assert.Equal(t, "admin", claim.Role)
}

func TestDecode_WrongSecret(t *testing.T) {
	token, err := NewSigner("one", time.Hour).Issue("s", "satgas")
	require.NoError(t, err)

	_, err = NewSigner("two", time.Hour).Decode(token)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestDecode_Expired(t *testing.T) {
	token, err := NewSigner("k", -time.Minute).Issue("s", "satgas")
	require.NoError(t, err)

	_, err = NewSigner("k", time.Hour).Decode(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestIssue_EmptySecret(t *testing.T) {
	_, err := NewSigner("", time.Hour).Issue("s", "satgas")
	assert.ErrorIs(t, err, ErrEmptySecret)
}
