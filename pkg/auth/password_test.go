package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_Success(t *testing.T) {
	hash, err := HashPassword("CorrectHorse1!")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, "CorrectHorse1!", hash)
	assert.True(t, strings.HasPrefix(hash, "$2a$"))
}

func TestHashPassword_Empty(t *testing.T) {
	_, err := HashPassword("")
	assert.Error(t, err)
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("CorrectHorse1!")
	require.NoError(t, err)

	assert.True(t, VerifyPassword(hash, "CorrectHorse1!"))
	assert.False(t, VerifyPassword(hash, "WrongHorse1!"))
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	// Garbage stored hash must verify as false, never panic
	assert.False(t, VerifyPassword("not-a-bcrypt-hash", "anything"))
	assert.False(t, VerifyPassword("", "anything"))
}

func TestGenerateOneTimeToken(t *testing.T) {
	a, err := GenerateOneTimeToken()
	require.NoError(t, err)
	b, err := GenerateOneTimeToken()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	// URL-safe: no characters needing escaping in a query string
	assert.NotContains(t, a, "+")
	assert.NotContains(t, a, "/")
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid", "LongEnough1", false},
		{"too short", "short", true},
		{"too long", strings.Repeat("a", 200), true},
		{"exactly minimum", "12345678", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
