package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inknechoes/backend/internal/auth"
	"github.com/inknechoes/backend/internal/models"
	"github.com/inknechoes/backend/internal/services"
	pkghttp "github.com/inknechoes/backend/pkg/http"
)

func newTestAuthHandler(service AuthServiceInterface) *AuthHandler {
	tm := auth.NewTokenManager("test-secret-at-least-32-characters-long", time.Hour, 7*24*time.Hour)
	return NewAuthHandler(service, tm, &pkghttp.IPConfig{}, auth.CookieConfig{})
}

func authedRequest(method, target, body string) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	claims := &models.TokenClaims{
		Type:             models.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
	}
	return r.WithContext(context.WithValue(r.Context(), auth.UserContextKey, claims))
}

func cookieNamed(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLoginHandler(t *testing.T) {
	t.Run("success returns tokens and sets cookies", func(t *testing.T) {
		service := &MockAuthService{
			LoginFunc: func(ctx context.Context, email, password, ipAddress, userAgent string) (*services.LoginResult, error) {
				return &services.LoginResult{
					AccessToken:  "access",
					RefreshToken: "refresh",
					User:         &models.User{ID: "user-1", Email: email, Username: "reader"},
				}, nil
			},
		}
		h := newTestAuthHandler(service)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/login",
			strings.NewReader(`{"email":"reader@example.com","password":"secretpass"}`))
		h.Login(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp TokenResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "access", resp.AccessToken)
		assert.Equal(t, "refresh", resp.RefreshToken)
		assert.Equal(t, "bearer", resp.TokenType)

		accessCookie := cookieNamed(t, rec, auth.AccessTokenCookie)
		require.NotNil(t, accessCookie)
		assert.Equal(t, "access", accessCookie.Value)
		assert.True(t, accessCookie.HttpOnly)
		assert.Equal(t, http.SameSiteLaxMode, accessCookie.SameSite)

		refreshCookie := cookieNamed(t, rec, auth.RefreshTokenCookie)
		require.NotNil(t, refreshCookie)
		assert.Equal(t, "refresh", refreshCookie.Value)
	})

	t.Run("bad credentials surface the attempts message", func(t *testing.T) {
		service := &MockAuthService{
			LoginFunc: func(ctx context.Context, email, password, ipAddress, userAgent string) (*services.LoginResult, error) {
				return nil, &services.BadCredentialsError{AttemptsRemaining: 2}
			},
		}
		h := newTestAuthHandler(service)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/login",
			strings.NewReader(`{"email":"reader@example.com","password":"wrong"}`))
		h.Login(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "2 attempts remaining")
	})

	t.Run("locked account returns 401 with unlock time", func(t *testing.T) {
		until := time.Now().Add(30 * time.Minute)
		service := &MockAuthService{
			LoginFunc: func(ctx context.Context, email, password, ipAddress, userAgent string) (*services.LoginResult, error) {
				return nil, &services.AccountLockedError{Until: until}
			},
		}
		h := newTestAuthHandler(service)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/login",
			strings.NewReader(`{"email":"reader@example.com","password":"secretpass"}`))
		h.Login(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "locked")
	})

	t.Run("malformed body", func(t *testing.T) {
		h := newTestAuthHandler(&MockAuthService{})

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("{"))
		h.Login(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRegisterHandler(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		service := &MockAuthService{
			RegisterFunc: func(ctx context.Context, input services.RegisterInput) (*models.User, error) {
				return &models.User{ID: "user-1", Email: input.Email, Username: input.Username, IsActive: true}, nil
			},
		}
		h := newTestAuthHandler(service)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/register",
			strings.NewReader(`{"email":"new@example.com","username":"newbie","password":"longenough"}`))
		h.Register(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)

		var resp UserResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "new@example.com", resp.Email)
	})

	t.Run("email conflict", func(t *testing.T) {
		service := &MockAuthService{
			RegisterFunc: func(ctx context.Context, input services.RegisterInput) (*models.User, error) {
				return nil, models.ErrEmailTaken
			},
		}
		h := newTestAuthHandler(service)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/register",
			strings.NewReader(`{"email":"taken@example.com","username":"newbie","password":"longenough"}`))
		h.Register(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), "Email already registered")
	})

	t.Run("username conflict", func(t *testing.T) {
		service := &MockAuthService{
			RegisterFunc: func(ctx context.Context, input services.RegisterInput) (*models.User, error) {
				return nil, models.ErrUsernameTaken
			},
		}
		h := newTestAuthHandler(service)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/register",
			strings.NewReader(`{"email":"new@example.com","username":"taken","password":"longenough"}`))
		h.Register(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), "Username already taken")
	})

	t.Run("short password fails validation", func(t *testing.T) {
		h := newTestAuthHandler(&MockAuthService{})

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/register",
			strings.NewReader(`{"email":"new@example.com","username":"newbie","password":"short"}`))
		h.Register(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRefreshHandler(t *testing.T) {
	t.Run("token from cookie", func(t *testing.T) {
		var seen string
		service := &MockAuthService{
			RefreshFunc: func(ctx context.Context, refreshToken string) (string, error) {
				seen = refreshToken
				return "new-access", nil
			},
		}
		h := newTestAuthHandler(service)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/refresh", strings.NewReader("{}"))
		req.AddCookie(&http.Cookie{Name: auth.RefreshTokenCookie, Value: "cookie-token"})
		h.Refresh(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "cookie-token", seen)

		accessCookie := cookieNamed(t, rec, auth.AccessTokenCookie)
		require.NotNil(t, accessCookie)
		assert.Equal(t, "new-access", accessCookie.Value)
	})

	t.Run("body token wins over cookie", func(t *testing.T) {
		var seen string
		service := &MockAuthService{
			RefreshFunc: func(ctx context.Context, refreshToken string) (string, error) {
				seen = refreshToken
				return "new-access", nil
			},
		}
		h := newTestAuthHandler(service)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/refresh",
			strings.NewReader(`{"refresh_token":"body-token"}`))
		req.AddCookie(&http.Cookie{Name: auth.RefreshTokenCookie, Value: "cookie-token"})
		h.Refresh(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "body-token", seen)
	})

	t.Run("missing token", func(t *testing.T) {
		h := newTestAuthHandler(&MockAuthService{})

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/refresh", strings.NewReader("{}"))
		h.Refresh(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejected token", func(t *testing.T) {
		service := &MockAuthService{
			RefreshFunc: func(ctx context.Context, refreshToken string) (string, error) {
				return "", models.ErrInvalidToken
			},
		}
		h := newTestAuthHandler(service)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/refresh",
			strings.NewReader(`{"refresh_token":"stale"}`))
		h.Refresh(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestLogoutHandler(t *testing.T) {
	var loggedOut string
	service := &MockAuthService{
		LogoutFunc: func(ctx context.Context, userID, refreshToken string) {
			loggedOut = userID
		},
	}
	h := newTestAuthHandler(service)

	rec := httptest.NewRecorder()
	req := authedRequest(http.MethodPost, "/auth/logout", "{}")
	h.Logout(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", loggedOut)

	accessCookie := cookieNamed(t, rec, auth.AccessTokenCookie)
	require.NotNil(t, accessCookie)
	assert.Less(t, accessCookie.MaxAge, 0)
}

func TestResetPasswordHandler(t *testing.T) {
	t.Run("degraded cache returns 503", func(t *testing.T) {
		service := &MockAuthService{
			ConfirmPasswordResetFunc: func(ctx context.Context, token, newPassword string) error {
				return models.ErrCacheUnavailable
			},
		}
		h := newTestAuthHandler(service)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/reset-password",
			strings.NewReader(`{"token":"tok","new_password":"longenough"}`))
		h.ResetPassword(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("invalid token returns 400", func(t *testing.T) {
		service := &MockAuthService{
			ConfirmPasswordResetFunc: func(ctx context.Context, token, newPassword string) error {
				return models.ErrInvalidToken
			},
		}
		h := newTestAuthHandler(service)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/reset-password",
			strings.NewReader(`{"token":"tok","new_password":"longenough"}`))
		h.ResetPassword(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestForgotPasswordHandler(t *testing.T) {
	var requested string
	service := &MockAuthService{
		RequestPasswordResetFunc: func(ctx context.Context, email string) {
			requested = email
		},
	}
	h := newTestAuthHandler(service)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/forgot-password",
		strings.NewReader(`{"email":"someone@example.com"}`))
	h.ForgotPassword(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "someone@example.com", requested)
	assert.Contains(t, rec.Body.String(), "If the email is registered")
}

func TestVerifyEmailHandler(t *testing.T) {
	t.Run("first verification", func(t *testing.T) {
		service := &MockAuthService{
			VerifyEmailFunc: func(ctx context.Context, token string) (bool, error) {
				return false, nil
			},
		}
		h := newTestAuthHandler(service)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/verify-email",
			strings.NewReader(`{"token":"tok"}`))
		h.VerifyEmail(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Email verified")
	})

	t.Run("already verified stays a success", func(t *testing.T) {
		service := &MockAuthService{
			VerifyEmailFunc: func(ctx context.Context, token string) (bool, error) {
				return true, nil
			},
		}
		h := newTestAuthHandler(service)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/verify-email",
			strings.NewReader(`{"token":"tok"}`))
		h.VerifyEmail(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "already verified")
	})
}

func TestDeleteAccountHandler(t *testing.T) {
	t.Run("wrong password", func(t *testing.T) {
		service := &MockAuthService{
			DeleteAccountFunc: func(ctx context.Context, userID, password, ipAddress, userAgent string) error {
				return models.ErrUnauthorized
			},
		}
		h := newTestAuthHandler(service)

		rec := httptest.NewRecorder()
		req := authedRequest(http.MethodDelete, "/auth/account", `{"password":"wrong"}`)
		h.DeleteAccount(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("success clears cookies", func(t *testing.T) {
		service := &MockAuthService{
			DeleteAccountFunc: func(ctx context.Context, userID, password, ipAddress, userAgent string) error {
				return nil
			},
		}
		h := newTestAuthHandler(service)

		rec := httptest.NewRecorder()
		req := authedRequest(http.MethodDelete, "/auth/account", `{"password":"secretpass"}`)
		h.DeleteAccount(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		refreshCookie := cookieNamed(t, rec, auth.RefreshTokenCookie)
		require.NotNil(t, refreshCookie)
		assert.Less(t, refreshCookie.MaxAge, 0)
	})
}
