package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/inknechoes/backend/internal/auth"
	"github.com/inknechoes/backend/internal/models"
)

// SessionRepository defines the interface for durable session records
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) (*models.Session, error)
	GetByTokenHash(ctx context.Context, userID, tokenHash string) (*models.Session, error)
	List(ctx context.Context, userID string, activeOnly bool) ([]*models.Session, error)
	Touch(ctx context.Context, id string) error
	Deactivate(ctx context.Context, id, userID string) error
	DeactivateAll(ctx context.Context, userID string) (int64, error)
	SweepExpired(ctx context.Context) (int64, error)
}

// SessionService is the durable ledger of issued sessions. It stores only a
// SHA-256 hash of each refresh token; the raw token never touches the
// database.
type SessionService struct {
	repo          SessionRepository
	logger        *slog.Logger
	refreshExpiry time.Duration
}

func NewSessionService(repo SessionRepository, logger *slog.Logger, refreshExpiry time.Duration) *SessionService {
	return &SessionService{
		repo:          repo,
		logger:        logger,
		refreshExpiry: refreshExpiry,
	}
}

// HashToken derives the session lookup key from a raw refresh token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Create records a new session for a fresh login.
func (s *SessionService) Create(ctx context.Context, userID, refreshToken, ipAddress, userAgent string) (*models.Session, error) {
	session := &models.Session{
		UserID:     userID,
		TokenHash:  HashToken(refreshToken),
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		DeviceInfo: auth.DeviceLabel(userAgent),
		ExpiresAt:  time.Now().Add(s.refreshExpiry),
	}

	created, err := s.repo.Create(ctx, session)
	if err != nil {
		return nil, err
	}

	s.logger.Info("session created",
		slog.String("session_id", created.ID),
		slog.String("user_id", userID))

	return created, nil
}

// FindByToken re-hashes the presented token and looks up the active session
// for (user, hash). Returns (nil, nil) when no matching session exists.
func (s *SessionService) FindByToken(ctx context.Context, userID, refreshToken string) (*models.Session, error) {
	session, err := s.repo.GetByTokenHash(ctx, userID, HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return session, nil
}

// Touch updates the session's last activity timestamp. Best-effort.
func (s *SessionService) Touch(ctx context.Context, sessionID string) {
	if err := s.repo.Touch(ctx, sessionID); err != nil {
		s.logger.Warn("failed to touch session",
			slog.String("session_id", sessionID),
			slog.Any("error", err))
	}
}

// List returns a user's sessions ordered by most recent activity.
func (s *SessionService) List(ctx context.Context, userID string, activeOnly bool) ([]*models.Session, error) {
	return s.repo.List(ctx, userID, activeOnly)
}

// Deactivate revokes a single session. The repository enforces that the
// session belongs to userID.
func (s *SessionService) Deactivate(ctx context.Context, sessionID, userID string) error {
	if err := s.repo.Deactivate(ctx, sessionID, userID); err != nil {
		return err
	}

	s.logger.Info("session deactivated",
		slog.String("session_id", sessionID),
		slog.String("user_id", userID))
	return nil
}

// DeactivateAll revokes every active session for a user.
func (s *SessionService) DeactivateAll(ctx context.Context, userID string) (int64, error) {
	count, err := s.repo.DeactivateAll(ctx, userID)
	if err != nil {
		return 0, err
	}

	s.logger.Info("all sessions deactivated",
		slog.String("user_id", userID),
		slog.Int64("count", count))
	return count, nil
}

// SweepExpired marks expired sessions inactive. Idempotent; intended to be
// invoked periodically.
func (s *SessionService) SweepExpired(ctx context.Context) (int64, error) {
	return s.repo.SweepExpired(ctx)
}
