package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	token, err := GenerateAccessToken(42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ParseToken(token)
	require.NoError(t, err)

	assert.Equal(t, TokenTypeAccess, claims.TokenType)

	userID, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint(42), userID)
}

func TestRefreshTokenCarriesRefreshType(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	token, err := GenerateRefreshToken(7)
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, claims.TokenType)
}

func TestParseTokenRejectsTampering(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	token, err := GenerateAccessToken(1)
	require.NoError(t, err)

	tampered := token[:len(token)-2] + "xx"
	_, err = ParseToken(tampered)
	assert.Error(t, err)
}

func TestParseTokenRejectsWrongKey(t *testing.T) {
	t.Setenv("SECRET_KEY", "first-secret")
	token, err := GenerateAccessToken(1)
	require.NoError(t, err)

	t.Setenv("SECRET_KEY", "second-secret")
	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	_, err := ParseToken("not-a-token")
	assert.Error(t, err)
}
