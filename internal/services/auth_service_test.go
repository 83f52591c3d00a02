package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inknechoes/backend/internal/auth"
	"github.com/inknechoes/backend/internal/cache"
	"github.com/inknechoes/backend/internal/config"
	"github.com/inknechoes/backend/internal/models"
	pkgauth "github.com/inknechoes/backend/pkg/auth"
)

const testPassword = "correct-horse-battery"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type authFixture struct {
	users    *MockUserRepository
	prefs    *MockPreferencesRepository
	sessions *MockSessionRepository
	audits   *MockAuditLogRepository
	notifier *MockNotificationSender
	cache    cache.TokenCache
	svc      *AuthService
}

func newAuthFixture(t *testing.T, tokenCache cache.TokenCache) *authFixture {
	t.Helper()

	logger := discardLogger()
	f := &authFixture{
		users:    &MockUserRepository{},
		prefs:    &MockPreferencesRepository{},
		sessions: &MockSessionRepository{},
		audits:   &MockAuditLogRepository{},
		notifier: &MockNotificationSender{},
		cache:    tokenCache,
	}

	tm := auth.NewTokenManager("test-secret-at-least-32-characters-long", time.Hour, 7*24*time.Hour)
	sessionSvc := NewSessionService(f.sessions, logger, 7*24*time.Hour)
	auditSvc := NewAuditService(f.audits, logger)

	f.svc = NewAuthService(
		f.users, f.prefs, tm, tokenCache, sessionSvc, auditSvc, f.notifier, logger,
		LockoutConfig{Threshold: 5, Duration: 30 * time.Minute},
	)
	return f
}

func newMiniredisCache(t *testing.T) (*miniredis.Miniredis, *cache.RedisCache) {
	t.Helper()

	mr := miniredis.RunT(t)
	rc, err := cache.NewRedisCache(context.Background(), config.RedisConfig{Addr: mr.Addr()}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { rc.Close() })
	return mr, rc
}

func testUser(t *testing.T) *models.User {
	t.Helper()

	hash, err := pkgauth.HashPassword(testPassword)
	require.NoError(t, err)
	return &models.User{
		ID:           "user-1",
		Email:        "reader@example.com",
		Username:     "reader",
		PasswordHash: hash,
		IsActive:     true,
	}
}

func TestRegister(t *testing.T) {
	t.Run("creates user and sends verification", func(t *testing.T) {
		_, rc := newMiniredisCache(t)
		f := newAuthFixture(t, rc)

		var created *models.User
		f.users.CreateFunc = func(ctx context.Context, user *models.User) (*models.User, error) {
			user.ID = "user-1"
			created = user
			return user, nil
		}

		user, err := f.svc.Register(context.Background(), RegisterInput{
			Email:    "Reader@Example.com",
			Username: "reader",
			Password: testPassword,
		})
		require.NoError(t, err)
		assert.Equal(t, "reader@example.com", user.Email)
		require.NotNil(t, created)

		kinds := make([]string, 0, len(f.notifier.Sent))
		for _, n := range f.notifier.Sent {
			kinds = append(kinds, n.Kind)
		}
		assert.Contains(t, kinds, EmailKindVerification)
		assert.Contains(t, kinds, EmailKindWelcome)
	})

	t.Run("duplicate email", func(t *testing.T) {
		f := newAuthFixture(t, cache.NewNoopCache())
		f.users.GetByEmailFunc = func(ctx context.Context, email string) (*models.User, error) {
			return &models.User{ID: "other"}, nil
		}

		_, err := f.svc.Register(context.Background(), RegisterInput{
			Email: "taken@example.com", Username: "newname", Password: testPassword,
		})
		assert.ErrorIs(t, err, models.ErrEmailTaken)
	})

	t.Run("duplicate username", func(t *testing.T) {
		f := newAuthFixture(t, cache.NewNoopCache())
		f.users.GetByUsernameFunc = func(ctx context.Context, username string) (*models.User, error) {
			return &models.User{ID: "other"}, nil
		}

		_, err := f.svc.Register(context.Background(), RegisterInput{
			Email: "free@example.com", Username: "taken", Password: testPassword,
		})
		assert.ErrorIs(t, err, models.ErrUsernameTaken)
	})

	t.Run("weak password", func(t *testing.T) {
		f := newAuthFixture(t, cache.NewNoopCache())

		_, err := f.svc.Register(context.Background(), RegisterInput{
			Email: "a@example.com", Username: "a", Password: "short",
		})
		assert.ErrorIs(t, err, models.ErrBadRequest)
	})
}

func TestLogin(t *testing.T) {
	t.Run("success issues token pair and caches refresh token", func(t *testing.T) {
		mr, rc := newMiniredisCache(t)
		f := newAuthFixture(t, rc)
		user := testUser(t)
		f.users.GetByEmailFunc = func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		}
		f.prefs.GetOrCreateFunc = func(ctx context.Context, userID string) (*models.UserPreferences, error) {
			return &models.UserPreferences{UserID: userID, EmailOnLogin: false}, nil
		}

		result, err := f.svc.Login(context.Background(), user.Email, testPassword, "10.0.0.1", "test-agent")
		require.NoError(t, err)
		assert.NotEmpty(t, result.AccessToken)
		assert.NotEmpty(t, result.RefreshToken)

		stored, err := mr.Get(cache.RefreshTokenPrefix + user.ID)
		require.NoError(t, err)
		assert.Equal(t, result.RefreshToken, stored)
	})

	t.Run("wrong password counts down attempts", func(t *testing.T) {
		f := newAuthFixture(t, cache.NewNoopCache())
		user := testUser(t)
		f.users.GetByEmailFunc = func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		}
		f.users.RecordFailedLoginFunc = func(ctx context.Context, id string, threshold int, lockDuration time.Duration) (int, *time.Time, error) {
			return 3, nil, nil
		}

		_, err := f.svc.Login(context.Background(), user.Email, "wrong", "", "")
		var bad *BadCredentialsError
		require.ErrorAs(t, err, &bad)
		assert.Equal(t, 2, bad.AttemptsRemaining)
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	})

	t.Run("unknown email yields same base message without attempts", func(t *testing.T) {
		f := newAuthFixture(t, cache.NewNoopCache())

		_, err := f.svc.Login(context.Background(), "nobody@example.com", testPassword, "", "")
		var bad *BadCredentialsError
		require.ErrorAs(t, err, &bad)
		assert.Equal(t, -1, bad.AttemptsRemaining)

		known := newAuthFixture(t, cache.NewNoopCache())
		user := testUser(t)
		known.users.GetByEmailFunc = func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		}
		known.users.RecordFailedLoginFunc = func(ctx context.Context, id string, threshold int, lockDuration time.Duration) (int, *time.Time, error) {
			return 0, nil, errors.New("db down")
		}
		_, err2 := known.svc.Login(context.Background(), user.Email, "wrong", "", "")
		var bad2 *BadCredentialsError
		require.ErrorAs(t, err2, &bad2)
		assert.Equal(t, bad.Error(), bad2.Error())
	})

	t.Run("fifth failure locks the account", func(t *testing.T) {
		f := newAuthFixture(t, cache.NewNoopCache())
		user := testUser(t)
		until := time.Now().Add(30 * time.Minute)
		f.users.GetByEmailFunc = func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		}
		f.users.RecordFailedLoginFunc = func(ctx context.Context, id string, threshold int, lockDuration time.Duration) (int, *time.Time, error) {
			return 5, &until, nil
		}

		_, err := f.svc.Login(context.Background(), user.Email, "wrong", "", "")
		var locked *AccountLockedError
		require.ErrorAs(t, err, &locked)
		assert.ErrorIs(t, err, models.ErrAccountLocked)
	})

	t.Run("locked account rejects even the correct password", func(t *testing.T) {
		f := newAuthFixture(t, cache.NewNoopCache())
		user := testUser(t)
		until := time.Now().Add(10 * time.Minute)
		user.FailedLoginAttempts = 5
		user.LockedUntil = &until
		f.users.GetByEmailFunc = func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		}

		_, err := f.svc.Login(context.Background(), user.Email, testPassword, "", "")
		var locked *AccountLockedError
		require.ErrorAs(t, err, &locked)
	})

	t.Run("expired lock clears lazily and login succeeds", func(t *testing.T) {
		f := newAuthFixture(t, cache.NewNoopCache())
		user := testUser(t)
		past := time.Now().Add(-time.Minute)
		user.FailedLoginAttempts = 5
		user.LockedUntil = &past
		cleared := false
		f.users.GetByEmailFunc = func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		}
		f.users.ClearLockoutFunc = func(ctx context.Context, id string) error {
			cleared = true
			return nil
		}
		f.prefs.GetOrCreateFunc = func(ctx context.Context, userID string) (*models.UserPreferences, error) {
			return &models.UserPreferences{UserID: userID}, nil
		}

		result, err := f.svc.Login(context.Background(), user.Email, testPassword, "", "")
		require.NoError(t, err)
		assert.True(t, cleared)
		assert.NotEmpty(t, result.AccessToken)
	})

	t.Run("inactive account is rejected", func(t *testing.T) {
		f := newAuthFixture(t, cache.NewNoopCache())
		user := testUser(t)
		user.IsActive = false
		f.users.GetByEmailFunc = func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		}

		_, err := f.svc.Login(context.Background(), user.Email, testPassword, "", "")
		assert.ErrorIs(t, err, models.ErrAccountInactive)
	})

	t.Run("cache outage does not block login", func(t *testing.T) {
		f := newAuthFixture(t, cache.NewNoopCache())
		user := testUser(t)
		f.users.GetByEmailFunc = func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		}
		f.prefs.GetOrCreateFunc = func(ctx context.Context, userID string) (*models.UserPreferences, error) {
			return &models.UserPreferences{UserID: userID}, nil
		}

		result, err := f.svc.Login(context.Background(), user.Email, testPassword, "", "")
		require.NoError(t, err)
		assert.NotEmpty(t, result.RefreshToken)
	})

	t.Run("login notification respects preference gate", func(t *testing.T) {
		f := newAuthFixture(t, cache.NewNoopCache())
		user := testUser(t)
		f.users.GetByEmailFunc = func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		}
		f.prefs.GetOrCreateFunc = func(ctx context.Context, userID string) (*models.UserPreferences, error) {
			return &models.UserPreferences{UserID: userID, EmailOnLogin: true}, nil
		}

		_, err := f.svc.Login(context.Background(), user.Email, testPassword, "1.2.3.4", "agent")
		require.NoError(t, err)
		require.Len(t, f.notifier.Sent, 1)
		assert.Equal(t, EmailKindNewLogin, f.notifier.Sent[0].Kind)
	})
}

func TestRefresh(t *testing.T) {
	t.Run("valid token yields a new access token", func(t *testing.T) {
		_, rc := newMiniredisCache(t)
		f := newAuthFixture(t, rc)
		user := testUser(t)
		f.users.GetByEmailFunc = func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		}
		f.prefs.GetOrCreateFunc = func(ctx context.Context, userID string) (*models.UserPreferences, error) {
			return &models.UserPreferences{UserID: userID}, nil
		}

		result, err := f.svc.Login(context.Background(), user.Email, testPassword, "", "")
		require.NoError(t, err)

		accessToken, err := f.svc.Refresh(context.Background(), result.RefreshToken)
		require.NoError(t, err)
		assert.NotEmpty(t, accessToken)
	})

	t.Run("superseded token is rejected", func(t *testing.T) {
		mr, rc := newMiniredisCache(t)
		f := newAuthFixture(t, rc)
		user := testUser(t)
		f.users.GetByEmailFunc = func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		}
		f.prefs.GetOrCreateFunc = func(ctx context.Context, userID string) (*models.UserPreferences, error) {
			return &models.UserPreferences{UserID: userID}, nil
		}

		first, err := f.svc.Login(context.Background(), user.Email, testPassword, "", "")
		require.NoError(t, err)

		// A later login overwrites the cached token for the user
		require.NoError(t, mr.Set(cache.RefreshTokenPrefix+user.ID, "a-newer-token"))

		_, err = f.svc.Refresh(context.Background(), first.RefreshToken)
		assert.ErrorIs(t, err, models.ErrInvalidToken)
	})

	t.Run("cache miss is accepted on signature validity alone", func(t *testing.T) {
		_, rc := newMiniredisCache(t)
		f := newAuthFixture(t, rc)
		user := testUser(t)
		f.users.GetByEmailFunc = func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		}
		f.prefs.GetOrCreateFunc = func(ctx context.Context, userID string) (*models.UserPreferences, error) {
			return &models.UserPreferences{UserID: userID}, nil
		}

		result, err := f.svc.Login(context.Background(), user.Email, testPassword, "", "")
		require.NoError(t, err)

		// Simulate cache flush
		require.NoError(t, rc.Delete(context.Background(), cache.RefreshTokenPrefix+user.ID))

		accessToken, err := f.svc.Refresh(context.Background(), result.RefreshToken)
		require.NoError(t, err)
		assert.NotEmpty(t, accessToken)
	})

	t.Run("access token is not accepted as refresh token", func(t *testing.T) {
		f := newAuthFixture(t, cache.NewNoopCache())
		user := testUser(t)
		f.users.GetByEmailFunc = func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		}
		f.prefs.GetOrCreateFunc = func(ctx context.Context, userID string) (*models.UserPreferences, error) {
			return &models.UserPreferences{UserID: userID}, nil
		}

		result, err := f.svc.Login(context.Background(), user.Email, testPassword, "", "")
		require.NoError(t, err)

		_, err = f.svc.Refresh(context.Background(), result.AccessToken)
		assert.ErrorIs(t, err, models.ErrInvalidToken)
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		f := newAuthFixture(t, cache.NewNoopCache())

		_, err := f.svc.Refresh(context.Background(), "not-a-jwt")
		assert.ErrorIs(t, err, models.ErrInvalidToken)
	})
}

func TestLogout(t *testing.T) {
	mr, rc := newMiniredisCache(t)
	f := newAuthFixture(t, rc)
	user := testUser(t)
	f.users.GetByEmailFunc = func(ctx context.Context, email string) (*models.User, error) {
		return user, nil
	}
	f.prefs.GetOrCreateFunc = func(ctx context.Context, userID string) (*models.UserPreferences, error) {
		return &models.UserPreferences{UserID: userID}, nil
	}

	result, err := f.svc.Login(context.Background(), user.Email, testPassword, "", "")
	require.NoError(t, err)
	require.True(t, mr.Exists(cache.RefreshTokenPrefix+user.ID))

	f.svc.Logout(context.Background(), user.ID, result.RefreshToken)
	assert.False(t, mr.Exists(cache.RefreshTokenPrefix+user.ID))
}

func TestPasswordReset(t *testing.T) {
	t.Run("token round trip", func(t *testing.T) {
		mr, rc := newMiniredisCache(t)
		f := newAuthFixture(t, rc)
		user := testUser(t)
		f.users.GetByEmailFunc = func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		}
		f.users.GetByIDFunc = func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		}
		var newHash string
		f.users.UpdatePasswordFunc = func(ctx context.Context, id, passwordHash string) error {
			newHash = passwordHash
			return nil
		}

		f.svc.RequestPasswordReset(context.Background(), user.Email)
		require.Len(t, f.notifier.Sent, 1)
		token := f.notifier.Sent[0].Data["token"]
		require.NotEmpty(t, token)
		require.True(t, mr.Exists(cache.PasswordResetPrefix+token))

		err := f.svc.ConfirmPasswordReset(context.Background(), token, "a-brand-new-password")
		require.NoError(t, err)
		assert.True(t, pkgauth.VerifyPassword(newHash, "a-brand-new-password"))

		// One-time use: a second confirmation with the same token fails
		err = f.svc.ConfirmPasswordReset(context.Background(), token, "yet-another-password")
		assert.ErrorIs(t, err, models.ErrInvalidToken)
	})

	t.Run("unknown email sends nothing and reveals nothing", func(t *testing.T) {
		_, rc := newMiniredisCache(t)
		f := newAuthFixture(t, rc)

		f.svc.RequestPasswordReset(context.Background(), "nobody@example.com")
		assert.Empty(t, f.notifier.Sent)
	})

	t.Run("confirmation fails closed without the cache", func(t *testing.T) {
		f := newAuthFixture(t, cache.NewNoopCache())

		err := f.svc.ConfirmPasswordReset(context.Background(), "some-token", "a-brand-new-password")
		assert.ErrorIs(t, err, models.ErrCacheUnavailable)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		mr, rc := newMiniredisCache(t)
		f := newAuthFixture(t, rc)
		user := testUser(t)
		f.users.GetByEmailFunc = func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		}

		f.svc.RequestPasswordReset(context.Background(), user.Email)
		require.Len(t, f.notifier.Sent, 1)
		token := f.notifier.Sent[0].Data["token"]

		mr.FastForward(2 * time.Hour)

		err := f.svc.ConfirmPasswordReset(context.Background(), token, "a-brand-new-password")
		assert.ErrorIs(t, err, models.ErrInvalidToken)
	})
}

func TestVerifyEmail(t *testing.T) {
	t.Run("marks verified and consumes the token", func(t *testing.T) {
		mr, rc := newMiniredisCache(t)
		f := newAuthFixture(t, rc)
		user := testUser(t)
		f.users.GetByIDFunc = func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		}
		marked := false
		f.users.MarkEmailVerifiedFunc = func(ctx context.Context, id string) error {
			marked = true
			return nil
		}

		require.NoError(t, rc.Set(context.Background(), cache.EmailVerifyPrefix+"tok", user.ID, cache.EmailVerifyTTL))

		already, err := f.svc.VerifyEmail(context.Background(), "tok")
		require.NoError(t, err)
		assert.False(t, already)
		assert.True(t, marked)
		assert.False(t, mr.Exists(cache.EmailVerifyPrefix+"tok"))
	})

	t.Run("already verified is an idempotent success", func(t *testing.T) {
		_, rc := newMiniredisCache(t)
		f := newAuthFixture(t, rc)
		user := testUser(t)
		user.EmailVerified = true
		f.users.GetByIDFunc = func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		}

		require.NoError(t, rc.Set(context.Background(), cache.EmailVerifyPrefix+"tok", user.ID, cache.EmailVerifyTTL))

		already, err := f.svc.VerifyEmail(context.Background(), "tok")
		require.NoError(t, err)
		assert.True(t, already)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, rc := newMiniredisCache(t)
		f := newAuthFixture(t, rc)

		_, err := f.svc.VerifyEmail(context.Background(), "missing")
		assert.ErrorIs(t, err, models.ErrInvalidToken)
	})

	t.Run("resend skips verified accounts", func(t *testing.T) {
		_, rc := newMiniredisCache(t)
		f := newAuthFixture(t, rc)
		user := testUser(t)
		user.EmailVerified = true
		f.users.GetByEmailFunc = func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		}

		f.svc.ResendVerification(context.Background(), user.Email)
		assert.Empty(t, f.notifier.Sent)
	})
}

func TestChangePassword(t *testing.T) {
	t.Run("wrong current password leaves the hash untouched", func(t *testing.T) {
		f := newAuthFixture(t, cache.NewNoopCache())
		user := testUser(t)
		f.users.GetByIDFunc = func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		}
		updated := false
		f.users.UpdatePasswordFunc = func(ctx context.Context, id, passwordHash string) error {
			updated = true
			return nil
		}

		err := f.svc.ChangePassword(context.Background(), user.ID, "wrong", "a-brand-new-password", "", "")
		assert.ErrorIs(t, err, models.ErrUnauthorized)
		assert.False(t, updated)
	})

	t.Run("success updates and notifies", func(t *testing.T) {
		f := newAuthFixture(t, cache.NewNoopCache())
		user := testUser(t)
		f.users.GetByIDFunc = func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		}
		var newHash string
		f.users.UpdatePasswordFunc = func(ctx context.Context, id, passwordHash string) error {
			newHash = passwordHash
			return nil
		}

		err := f.svc.ChangePassword(context.Background(), user.ID, testPassword, "a-brand-new-password", "", "")
		require.NoError(t, err)
		assert.True(t, pkgauth.VerifyPassword(newHash, "a-brand-new-password"))
		require.Len(t, f.notifier.Sent, 1)
		assert.Equal(t, EmailKindPasswordChanged, f.notifier.Sent[0].Kind)
	})
}

func TestDeleteAccount(t *testing.T) {
	t.Run("wrong password is audited and rejected", func(t *testing.T) {
		f := newAuthFixture(t, cache.NewNoopCache())
		user := testUser(t)
		f.users.GetByIDFunc = func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		}
		deleted := false
		f.users.DeleteCascadeFunc = func(ctx context.Context, id string) error {
			deleted = true
			return nil
		}

		err := f.svc.DeleteAccount(context.Background(), user.ID, "wrong", "", "")
		assert.ErrorIs(t, err, models.ErrUnauthorized)
		assert.False(t, deleted)
	})

	t.Run("success cascades and audits with identity in details", func(t *testing.T) {
		mr, rc := newMiniredisCache(t)
		f := newAuthFixture(t, rc)
		user := testUser(t)
		require.NoError(t, rc.Set(context.Background(), cache.RefreshTokenPrefix+user.ID, "tok", time.Hour))
		f.users.GetByIDFunc = func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		}

		var lastAudit *models.AuditLog
		f.audits.CreateFunc = func(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error) {
			lastAudit = log
			return log, nil
		}

		err := f.svc.DeleteAccount(context.Background(), user.ID, testPassword, "", "")
		require.NoError(t, err)
		assert.False(t, mr.Exists(cache.RefreshTokenPrefix+user.ID))

		require.NotNil(t, lastAudit)
		assert.Nil(t, lastAudit.UserID)
		assert.Equal(t, models.AuditActionAccountDeleted, lastAudit.Action)
		assert.Contains(t, lastAudit.Details, user.Email)
	})
}
