// Package cache provides the ephemeral token store used for refresh tokens
// and one-time action tokens. The store is optional: when Redis is not
// configured or unreachable the always-miss implementation is used and
// callers that tolerate degraded semantics keep working.
package cache

import (
	"context"
	"time"
)

// Key namespaces for cache entries.
const (
	RefreshTokenPrefix  = "refresh_token:"
	PasswordResetPrefix = "password_reset:"
	EmailVerifyPrefix   = "email_verify:"
)

// Semantic lifetimes for one-time tokens.
const (
	PasswordResetTTL = 1 * time.Hour
	EmailVerifyTTL   = 24 * time.Hour
)

// TokenCache is a fallible key-value store with TTL eviction. Every call may
// fail; callers must check Available before depending on cache contents.
type TokenCache interface {
	// Get returns the value for key, or ("", false, nil) on a miss.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key with the given TTL.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// TTL returns the remaining lifetime of key, or false if the key is absent.
	TTL(ctx context.Context, key string) (time.Duration, bool, error)
	// Available reports whether the backing store is reachable right now.
	Available(ctx context.Context) bool
}

// NoopCache is the stand-in used when Redis is not configured. Every read
// misses and the store never reports itself available, so fail-closed
// callers reject and best-effort callers skip cache work entirely.
type NoopCache struct{}

func NewNoopCache() *NoopCache { return &NoopCache{} }

func (*NoopCache) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, nil
}

func (*NoopCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return nil
}

func (*NoopCache) Delete(ctx context.Context, key string) error {
	return nil
}

func (*NoopCache) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	return 0, false, nil
}

func (*NoopCache) Available(ctx context.Context) bool {
	return false
}
