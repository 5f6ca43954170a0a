package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("test-secret", 42, "ANALYST", 5)
	require.NoError(t, err)
	assert.NotEmpty(t, tok.Token)
	assert.WithinDuration(t, time.Now().UTC().Add(5*time.Minute), tok.Exp, 5*time.Second)

	uid, role, err := ParseAccessToken("test-secret", tok.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), uid)
	assert.Equal(t, "ANALYST", role)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	tok, err := NewAccessToken("secret-a", 1, "ADMIN", 5)
	require.NoError(t, err)

	_, _, err = ParseAccessToken("secret-b", tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpired(t *testing.T) {
	tok, err := NewAccessToken("secret", 1, "ADMIN", -1)
	require.NoError(t, err)

	_, _, err = ParseAccessToken("secret", tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, _, err := ParseAccessToken("secret", "not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashAndVerify(t *testing.T) {
	hash, err := HashPassword("s3nh4-forte", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "s3nh4-forte", hash)
	assert.True(t, VerifyPassword(hash, "s3nh4-forte"))
	assert.False(t, VerifyPassword(hash, "errada"))
}
