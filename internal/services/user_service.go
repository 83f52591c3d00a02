package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/inknechoes/backend/internal/models"
)

// UserProfileRepository is the slice of user storage the profile service needs.
type UserProfileRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, update *models.UserProfileUpdate) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	DeleteCascade(ctx context.Context, id string) error
}

// UserService handles profile reads and partial updates and the user's
// notification preferences.
type UserService struct {
	users  UserProfileRepository
	prefs  PreferencesRepository
	audit  *AuditService
	logger *slog.Logger
}

func NewUserService(users UserProfileRepository, prefs PreferencesRepository, audit *AuditService, logger *slog.Logger) *UserService {
	return &UserService{
		users:  users,
		prefs:  prefs,
		audit:  audit,
		logger: logger,
	}
}

func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		s.logger.Error("failed to get user", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return user, nil
}

// UpdateProfile applies a partial profile update. Nil fields are left
// untouched; only the provided fields change.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, update *models.UserProfileUpdate, ipAddress, userAgent string) (*models.User, error) {
	if update == nil || (update.Bio == nil && update.GenreTags == nil) {
		return nil, models.ErrBadRequest
	}

	user, err := s.users.UpdateProfile(ctx, userID, update)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		s.logger.Error("failed to update profile", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.audit.Record(ctx, &userID, models.AuditActionProfileUpdated, models.AuditStatusSuccess, ipAddress, userAgent, "")

	return user, nil
}

func (s *UserService) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.users.List(ctx, limit, offset)
}

// Preferences returns the user's notification preferences, creating the
// default row on first access.
func (s *UserService) Preferences(ctx context.Context, userID string) (*models.UserPreferences, error) {
	prefs, err := s.prefs.GetOrCreate(ctx, userID)
	if err != nil {
		s.logger.Error("failed to load preferences", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return prefs, nil
}

// AuditTrail returns the user's own audit entries, newest first. An empty
// action returns all actions.
func (s *UserService) AuditTrail(ctx context.Context, userID, action string, limit int) ([]*models.AuditLog, error) {
	return s.audit.Trail(ctx, userID, action, limit)
}

// DeleteUser removes an account on behalf of an administrator. Admin
// accounts cannot be deleted this way.
func (s *UserService) DeleteUser(ctx context.Context, userID, ipAddress, userAgent string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return err
		}
		s.logger.Error("failed to load user for deletion", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if user.IsAdmin {
		return models.ErrForbidden
	}

	email, username := user.Email, user.Username
	if err := s.users.DeleteCascade(ctx, userID); err != nil {
		s.logger.Error("failed to delete user", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	// The row is gone, so the entry carries no user id; the identity
	// lives on in the details.
	s.audit.Record(ctx, nil, models.AuditActionAccountDeleted, models.AuditStatusSuccess, ipAddress, userAgent,
		fmt.Sprintf("email=%s username=%s", email, username))

	return nil
}

// UpdatePreferences applies a partial preferences update.
func (s *UserService) UpdatePreferences(ctx context.Context, userID string, update *models.PreferencesUpdate) (*models.UserPreferences, error) {
	if update == nil || (update.EmailOnLogin == nil && update.EmailOnComment == nil && update.EmailDigest == nil) {
		return nil, models.ErrBadRequest
	}

	prefs, err := s.prefs.Update(ctx, userID, update)
	if err != nil {
		s.logger.Error("failed to update preferences", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return prefs, nil
}
