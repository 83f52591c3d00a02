package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/inknechoes/backend/internal/auth"
	"github.com/inknechoes/backend/internal/cache"
	"github.com/inknechoes/backend/internal/models"
	pkgauth "github.com/inknechoes/backend/pkg/auth"
	pkglogger "github.com/inknechoes/backend/pkg/logger"
)

// UserRepository defines the interface for credential storage
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	RecordFailedLogin(ctx context.Context, id string, threshold int, lockDuration time.Duration) (int, *time.Time, error)
	ClearLockout(ctx context.Context, id string) error
	MarkEmailVerified(ctx context.Context, id string) error
	DeleteCascade(ctx context.Context, id string) error
}

// PreferencesRepository defines the interface for notification preferences
type PreferencesRepository interface {
	GetOrCreate(ctx context.Context, userID string) (*models.UserPreferences, error)
	Update(ctx context.Context, userID string, update *models.PreferencesUpdate) (*models.UserPreferences, error)
}

// LockoutConfig holds the lockout state machine parameters.
type LockoutConfig struct {
	Threshold int
	Duration  time.Duration
}

// AuthService orchestrates the credential and session lifecycle: it composes
// the credential store, the password hasher, the token codec, the ephemeral
// cache, the session ledger and the audit sink.
type AuthService struct {
	users    UserRepository
	prefs    PreferencesRepository
	tm       *auth.TokenManager
	cache    cache.TokenCache
	sessions *SessionService
	audit    *AuditService
	notifier NotificationSender
	logger   *slog.Logger
	lockout  LockoutConfig
}

func NewAuthService(
	users UserRepository,
	prefs PreferencesRepository,
	tm *auth.TokenManager,
	tokenCache cache.TokenCache,
	sessions *SessionService,
	audit *AuditService,
	notifier NotificationSender,
	logger *slog.Logger,
	lockout LockoutConfig,
) *AuthService {
	return &AuthService{
		users:    users,
		prefs:    prefs,
		tm:       tm,
		cache:    tokenCache,
		sessions: sessions,
		audit:    audit,
		notifier: notifier,
		logger:   logger,
		lockout:  lockout,
	}
}

// RegisterInput carries the fields accepted at registration.
type RegisterInput struct {
	Email     string
	Username  string
	Password  string
	Bio       string
	GenreTags string
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         *models.User
}

// Register creates a new user account. Email and username must each be
// globally unique; the error tells the caller which field collided. A
// one-time verification token is issued and the welcome/verification
// notifications are dispatched best-effort.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	username := strings.TrimSpace(input.Username)

	if email == "" || username == "" {
		return nil, models.ErrBadRequest
	}
	if err := pkgauth.ValidatePassword(input.Password); err != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrBadRequest, err.Error())
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, models.ErrEmailTaken
	} else if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check email uniqueness", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, models.ErrUsernameTaken
	} else if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check username uniqueness", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	passwordHash, err := pkgauth.HashPassword(input.Password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user, err := s.users.Create(ctx, &models.User{
		Email:        email,
		Username:     username,
		PasswordHash: passwordHash,
		Bio:          input.Bio,
		GenreTags:    input.GenreTags,
	})
	if err != nil {
		// The uniqueness checks race with concurrent registrations; the
		// unique constraints are authoritative
		if errors.Is(err, models.ErrEmailTaken) || errors.Is(err, models.ErrUsernameTaken) {
			return nil, err
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.issueVerificationToken(ctx, user)

	if err := s.notifier.Send(ctx, EmailKindWelcome, user.Email, map[string]string{"username": user.Username}); err != nil {
		s.logger.Warn("failed to send welcome email", slog.Any("error", err))
	}

	s.audit.Record(ctx, &user.ID, models.AuditActionUserRegistered, models.AuditStatusSuccess, "", "",
		fmt.Sprintf("email=%s username=%s", user.Email, user.Username))

	s.logger.Info("user registered", slog.String("user_id", user.ID))

	return user, nil
}

// Login authenticates a user, applying the lockout state machine, and on
// success issues an access/refresh token pair, records the refresh token in
// the ephemeral cache (best-effort), creates a session record and writes an
// audit entry.
func (s *AuthService) Login(ctx context.Context, email, password, ipAddress, userAgent string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		var uid *string
		if user != nil {
			uid = &user.ID
		}
		s.audit.Record(ctx, uid, models.AuditActionLoginAttempt, models.AuditStatusFailed, ipAddress, userAgent,
			fmt.Sprintf("email=%s error=%s", pkglogger.SanitizedEmail(email), err.Error()))
		return nil, err
	}

	accessToken, err := s.tm.GenerateAccessToken(user.ID)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	refreshToken, err := s.tm.GenerateRefreshToken(user.ID)
	if err != nil {
		s.logger.Error("failed to generate refresh token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	// Best-effort: a cache failure weakens revocation but never fails login
	if s.cache.Available(ctx) {
		if err := s.cache.Set(ctx, cache.RefreshTokenPrefix+user.ID, refreshToken, s.tm.RefreshTokenExpiry()); err != nil {
			s.logger.Warn("failed to store refresh token in cache", slog.Any("error", err))
		}
	}

	// Best-effort: session bookkeeping failure must not prevent returning tokens
	if _, err := s.sessions.Create(ctx, user.ID, refreshToken, ipAddress, userAgent); err != nil {
		s.logger.Warn("failed to create session record",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
	}

	s.audit.Record(ctx, &user.ID, models.AuditActionLogin, models.AuditStatusSuccess, ipAddress, userAgent, "")

	s.notifyLogin(ctx, user, ipAddress, userAgent)

	s.logger.Info("user logged in", slog.String("user_id", user.ID))

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}

// authenticate evaluates credentials and the lockout state machine.
// On failure the returned user is non-nil when the account exists, so the
// caller can attribute the audit entry.
func (s *AuthService) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Same message as a wrong password: no account enumeration
			return nil, &BadCredentialsError{AttemptsRemaining: -1}
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !user.IsActive {
		return user, models.ErrAccountInactive
	}

	now := time.Now()
	if user.Locked(now) {
		return user, &AccountLockedError{Until: *user.LockedUntil}
	}

	// Lazy lock expiry: a past lock is cleared before the password is evaluated
	if user.LockedUntil != nil {
		if err := s.users.ClearLockout(ctx, user.ID); err != nil {
			s.logger.Warn("failed to clear expired lockout", slog.String("user_id", user.ID), slog.Any("error", err))
		} else {
			user.FailedLoginAttempts = 0
			user.LockedUntil = nil
		}
	}

	if !pkgauth.VerifyPassword(user.PasswordHash, password) {
		attempts, lockedUntil, err := s.users.RecordFailedLogin(ctx, user.ID, s.lockout.Threshold, s.lockout.Duration)
		if err != nil {
			s.logger.Error("failed to record failed login", slog.String("user_id", user.ID), slog.Any("error", err))
			return user, &BadCredentialsError{AttemptsRemaining: -1}
		}

		if lockedUntil != nil && now.Before(*lockedUntil) {
			return user, &AccountLockedError{Until: *lockedUntil}
		}
		return user, &BadCredentialsError{AttemptsRemaining: s.lockout.Threshold - attempts}
	}

	// Any successful authentication resets the counter and clears the lock
	if user.FailedLoginAttempts > 0 || user.LockedUntil != nil {
		if err := s.users.ClearLockout(ctx, user.ID); err != nil {
			s.logger.Warn("failed to reset lockout counters", slog.String("user_id", user.ID), slog.Any("error", err))
		}
	}

	return user, nil
}

// Refresh exchanges a valid refresh token for a new access token. When the
// cache is reachable and holds a different token for the user, the presented
// token has been superseded or revoked and is rejected. When the cache is
// cold or down, signature validity alone is trusted: availability is chosen
// over strict revocation. The refresh token itself is never rotated here.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", models.ErrUnauthorized
	}

	claims, err := s.tm.VerifyToken(refreshToken, models.TokenTypeRefresh)
	if err != nil {
		return "", models.ErrInvalidToken
	}
	userID := claims.Subject

	if s.cache.Available(ctx) {
		stored, found, err := s.cache.Get(ctx, cache.RefreshTokenPrefix+userID)
		if err != nil {
			s.logger.Warn("cache error during refresh verification", slog.Any("error", err))
		} else if found && stored != refreshToken {
			s.logger.Info("superseded refresh token rejected", slog.String("user_id", userID))
			return "", models.ErrInvalidToken
		}
	}

	accessToken, err := s.tm.GenerateAccessToken(userID)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.String("user_id", userID), slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	// Best-effort: bump the matching session's activity timestamp
	if session, err := s.sessions.FindByToken(ctx, userID, refreshToken); err == nil && session != nil {
		s.sessions.Touch(ctx, session.ID)
	}

	return accessToken, nil
}

// Logout deactivates the matching session and deletes the cached refresh
// token. Both steps are best-effort; a missing session is not an error.
func (s *AuthService) Logout(ctx context.Context, userID, refreshToken string) {
	if refreshToken != "" {
		session, err := s.sessions.FindByToken(ctx, userID, refreshToken)
		if err != nil {
			s.logger.Warn("failed to look up session at logout", slog.Any("error", err))
		} else if session != nil {
			if err := s.sessions.Deactivate(ctx, session.ID, userID); err != nil {
				s.logger.Warn("failed to deactivate session at logout", slog.Any("error", err))
			}
		}
	}

	if s.cache.Available(ctx) {
		if err := s.cache.Delete(ctx, cache.RefreshTokenPrefix+userID); err != nil {
			s.logger.Warn("failed to delete cached refresh token", slog.Any("error", err))
		}
	}

	s.audit.Record(ctx, &userID, models.AuditActionLogout, models.AuditStatusSuccess, "", "", "")

	s.logger.Info("user logged out", slog.String("user_id", userID))
}

// RequestPasswordReset issues a one-time reset token when the email is
// registered. The caller always receives the same acknowledgement either
// way; nothing here discloses whether the account exists.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to look up user for password reset", slog.Any("error", err))
		}
		return
	}

	token, err := pkgauth.GenerateOneTimeToken()
	if err != nil {
		s.logger.Error("failed to generate reset token", slog.Any("error", err))
		return
	}

	if s.cache.Available(ctx) {
		if err := s.cache.Set(ctx, cache.PasswordResetPrefix+token, user.ID, cache.PasswordResetTTL); err != nil {
			s.logger.Error("failed to store reset token", slog.Any("error", err))
			return
		}
	} else {
		s.logger.Warn("cache unavailable: password reset token not stored",
			slog.String("email", pkglogger.SanitizedEmail(email)))
		return
	}

	if err := s.notifier.Send(ctx, EmailKindPasswordReset, user.Email, map[string]string{
		"username": user.Username,
		"token":    token,
	}); err != nil {
		s.logger.Warn("failed to send password reset email", slog.Any("error", err))
	}
}

// ConfirmPasswordReset consumes a one-time reset token and sets a new
// password. The cache lookup is mandatory: without the cache there is no
// authoritative record of the token, so this operation fails closed.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return fmt.Errorf("%w: %s", models.ErrBadRequest, err.Error())
	}

	if !s.cache.Available(ctx) {
		s.logger.Error("cache unavailable during password reset confirmation")
		return models.ErrCacheUnavailable
	}

	key := cache.PasswordResetPrefix + token
	userID, found, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Error("cache error during password reset confirmation", slog.Any("error", err))
		return models.ErrCacheUnavailable
	}
	if !found {
		s.logger.Info("password reset token absent or expired")
		return models.ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrInvalidToken
		}
		return models.ErrInternalServer
	}

	passwordHash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		return models.ErrInternalServer
	}
	if err := s.users.UpdatePassword(ctx, user.ID, passwordHash); err != nil {
		s.logger.Error("failed to update password", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	// Strict one-time use
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to delete consumed reset token", slog.Any("error", err))
	}

	s.audit.Record(ctx, &user.ID, models.AuditActionPasswordReset, models.AuditStatusSuccess, "", "", "")

	s.logger.Info("password reset", slog.String("user_id", user.ID))

	return nil
}

// ChangePassword re-verifies the current password before setting a new one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword, ipAddress, userAgent string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrUnauthorized
		}
		return models.ErrInternalServer
	}

	if !pkgauth.VerifyPassword(user.PasswordHash, currentPassword) {
		s.audit.Record(ctx, &user.ID, models.AuditActionPasswordChange, models.AuditStatusFailed, ipAddress, userAgent,
			"current password incorrect")
		return fmt.Errorf("%w: current password is incorrect", models.ErrUnauthorized)
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return fmt.Errorf("%w: %s", models.ErrBadRequest, err.Error())
	}

	passwordHash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		return models.ErrInternalServer
	}
	if err := s.users.UpdatePassword(ctx, user.ID, passwordHash); err != nil {
		s.logger.Error("failed to update password", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.audit.Record(ctx, &user.ID, models.AuditActionPasswordChange, models.AuditStatusSuccess, ipAddress, userAgent, "")

	if err := s.notifier.Send(ctx, EmailKindPasswordChanged, user.Email, map[string]string{"username": user.Username}); err != nil {
		s.logger.Warn("failed to send password change notification", slog.Any("error", err))
	}

	s.logger.Info("password changed", slog.String("user_id", user.ID))

	return nil
}

// VerifyEmail consumes a one-time verification token. Verifying an already
// verified account is an idempotent success; the token is not re-consumed.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (alreadyVerified bool, err error) {
	key := cache.EmailVerifyPrefix + token

	var userID string
	if s.cache.Available(ctx) {
		stored, found, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("cache error during email verification", slog.Any("error", err))
		} else if found {
			userID = stored
		}
	}
	if userID == "" {
		return false, models.ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, models.ErrInvalidToken
		}
		return false, models.ErrInternalServer
	}

	if user.EmailVerified {
		return true, nil
	}

	if err := s.users.MarkEmailVerified(ctx, user.ID); err != nil {
		s.logger.Error("failed to mark email verified", slog.String("user_id", user.ID), slog.Any("error", err))
		return false, models.ErrInternalServer
	}

	// One-time use
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to delete consumed verification token", slog.Any("error", err))
	}

	s.audit.Record(ctx, &user.ID, models.AuditActionEmailVerified, models.AuditStatusSuccess, "", "", "")

	s.logger.Info("email verified", slog.String("user_id", user.ID))

	return false, nil
}

// ResendVerification issues a fresh verification token for an unverified
// account. The acknowledgement is generic regardless of account existence.
// Older tokens are left to expire on their own; both are one-time-use.
func (s *AuthService) ResendVerification(ctx context.Context, email string) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to look up user for verification resend", slog.Any("error", err))
		}
		return
	}

	if user.EmailVerified {
		return
	}

	s.issueVerificationToken(ctx, user)
}

// DeleteAccount removes the user and every dependent row after password
// re-verification. The cascade runs in one transaction; the final audit
// entry carries a null user id with the identity preserved in details.
func (s *AuthService) DeleteAccount(ctx context.Context, userID, password, ipAddress, userAgent string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrUnauthorized
		}
		return models.ErrInternalServer
	}

	if !pkgauth.VerifyPassword(user.PasswordHash, password) {
		s.audit.Record(ctx, &user.ID, models.AuditActionAccountDeletion, models.AuditStatusFailed, ipAddress, userAgent,
			"incorrect password")
		return fmt.Errorf("%w: incorrect password", models.ErrUnauthorized)
	}

	email, username := user.Email, user.Username

	if err := s.users.DeleteCascade(ctx, user.ID); err != nil {
		s.logger.Error("failed to delete account", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if s.cache.Available(ctx) {
		if err := s.cache.Delete(ctx, cache.RefreshTokenPrefix+user.ID); err != nil {
			s.logger.Warn("failed to delete cached refresh token", slog.Any("error", err))
		}
	}

	s.audit.Record(ctx, nil, models.AuditActionAccountDeleted, models.AuditStatusSuccess, ipAddress, userAgent,
		fmt.Sprintf("email=%s username=%s", email, username))

	if err := s.notifier.Send(ctx, EmailKindAccountDeleted, email, map[string]string{"username": username}); err != nil {
		s.logger.Warn("failed to send deletion confirmation", slog.Any("error", err))
	}

	s.logger.Info("account deleted", slog.String("email", pkglogger.SanitizedEmail(email)))

	return nil
}

// issueVerificationToken stores a fresh one-time email verification token
// and dispatches the verification email. Best-effort throughout.
func (s *AuthService) issueVerificationToken(ctx context.Context, user *models.User) {
	token, err := pkgauth.GenerateOneTimeToken()
	if err != nil {
		s.logger.Error("failed to generate verification token", slog.Any("error", err))
		return
	}

	if s.cache.Available(ctx) {
		if err := s.cache.Set(ctx, cache.EmailVerifyPrefix+token, user.ID, cache.EmailVerifyTTL); err != nil {
			s.logger.Warn("failed to store verification token", slog.Any("error", err))
		}
	} else {
		s.logger.Warn("cache unavailable: verification token not stored",
			slog.String("user_id", user.ID))
	}

	if err := s.notifier.Send(ctx, EmailKindVerification, user.Email, map[string]string{
		"username": user.Username,
		"token":    token,
	}); err != nil {
		s.logger.Warn("failed to send verification email", slog.Any("error", err))
	}
}

// notifyLogin dispatches a login alert when the user's preferences ask for
// one. Preference lookup failures never abort the login.
func (s *AuthService) notifyLogin(ctx context.Context, user *models.User, ipAddress, userAgent string) {
	prefs, err := s.prefs.GetOrCreate(ctx, user.ID)
	if err != nil {
		s.logger.Warn("failed to load notification preferences", slog.Any("error", err))
		return
	}
	if !prefs.EmailOnLogin {
		return
	}

	if err := s.notifier.Send(ctx, EmailKindNewLogin, user.Email, map[string]string{
		"username":   user.Username,
		"ip_address": ipAddress,
		"user_agent": userAgent,
	}); err != nil {
		s.logger.Warn("failed to send login notification", slog.Any("error", err))
	}
}
