package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// Token types embedded in the signed payload. Tagging the type inside the
// signature prevents a long-lived refresh token from being replayed where a
// short-lived access token is expected, and vice versa.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenClaims are the claims carried by both access and refresh tokens.
// Subject holds the user id, string-encoded.
type TokenClaims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}
