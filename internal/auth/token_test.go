package auth

import (
	"testing"
	"time"

	"github.com/inknechoes/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-unit-tests-only"

func newTestTokenManager() *TokenManager {
	return NewTokenManager(testSecret, 15*time.Minute, 7*24*time.Hour)
}

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := newTestTokenManager()

	accessToken, err := tm.GenerateAccessToken("user123")
	require.NoError(t, err)

	claims, err := tm.VerifyToken(accessToken, models.TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, "user123", claims.Subject)
	assert.Equal(t, models.TokenTypeAccess, claims.Type)
}

func TestTokenManager_TypeMismatch(t *testing.T) {
	tm := newTestTokenManager()

	accessToken, err := tm.GenerateAccessToken("user123")
	require.NoError(t, err)
	refreshToken, err := tm.GenerateRefreshToken("user123")
	require.NoError(t, err)

	// An access token must never pass where a refresh token is required
	_, err = tm.VerifyToken(accessToken, models.TokenTypeRefresh)
	assert.ErrorIs(t, err, models.ErrInvalidToken)

	// And vice versa
	_, err = tm.VerifyToken(refreshToken, models.TokenTypeAccess)
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestTokenManager_Expired(t *testing.T) {
	tm := NewTokenManager(testSecret, -1*time.Minute, 7*24*time.Hour)

	expired, err := tm.GenerateAccessToken("user123")
	require.NoError(t, err)

	_, err = tm.VerifyToken(expired, models.TokenTypeAccess)
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestTokenManager_WrongSecret(t *testing.T) {
	tm := newTestTokenManager()
	other := NewTokenManager("a-completely-different-secret-key", 15*time.Minute, 7*24*time.Hour)

	token, err := tm.GenerateAccessToken("user123")
	require.NoError(t, err)

	_, err = other.VerifyToken(token, models.TokenTypeAccess)
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestTokenManager_Malformed(t *testing.T) {
	tm := newTestTokenManager()

	for _, tok := range []string{"", "garbage", "a.b.c"} {
		_, err := tm.VerifyToken(tok, models.TokenTypeAccess)
		assert.ErrorIs(t, err, models.ErrInvalidToken)
	}
}
