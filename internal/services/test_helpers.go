package services

import (
	"context"
	"time"

	"github.com/inknechoes/backend/internal/models"
)

// MockUserRepository implements UserRepository and UserProfileRepository
// with overridable function fields.
type MockUserRepository struct {
	GetByIDFunc           func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc        func(ctx context.Context, email string) (*models.User, error)
	GetByUsernameFunc     func(ctx context.Context, username string) (*models.User, error)
	CreateFunc            func(ctx context.Context, user *models.User) (*models.User, error)
	UpdateProfileFunc     func(ctx context.Context, id string, update *models.UserProfileUpdate) (*models.User, error)
	UpdatePasswordFunc    func(ctx context.Context, id, passwordHash string) error
	RecordFailedLoginFunc func(ctx context.Context, id string, threshold int, lockDuration time.Duration) (int, *time.Time, error)
	ClearLockoutFunc      func(ctx context.Context, id string) error
	MarkEmailVerifiedFunc func(ctx context.Context, id string) error
	DeleteCascadeFunc     func(ctx context.Context, id string) error
	ListFunc              func(ctx context.Context, limit, offset int) ([]*models.User, error)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(ctx, username)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return user, nil
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, id string, update *models.UserProfileUpdate) (*models.User, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, id, update)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash)
	}
	return nil
}

func (m *MockUserRepository) RecordFailedLogin(ctx context.Context, id string, threshold int, lockDuration time.Duration) (int, *time.Time, error) {
	if m.RecordFailedLoginFunc != nil {
		return m.RecordFailedLoginFunc(ctx, id, threshold, lockDuration)
	}
	return 1, nil, nil
}

func (m *MockUserRepository) ClearLockout(ctx context.Context, id string) error {
	if m.ClearLockoutFunc != nil {
		return m.ClearLockoutFunc(ctx, id)
	}
	return nil
}

func (m *MockUserRepository) MarkEmailVerified(ctx context.Context, id string) error {
	if m.MarkEmailVerifiedFunc != nil {
		return m.MarkEmailVerifiedFunc(ctx, id)
	}
	return nil
}

func (m *MockUserRepository) DeleteCascade(ctx context.Context, id string) error {
	if m.DeleteCascadeFunc != nil {
		return m.DeleteCascadeFunc(ctx, id)
	}
	return nil
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return nil, nil
}

// MockSessionRepository implements SessionRepository with overridable
// function fields.
type MockSessionRepository struct {
	CreateFunc         func(ctx context.Context, session *models.Session) (*models.Session, error)
	GetByTokenHashFunc func(ctx context.Context, userID, tokenHash string) (*models.Session, error)
	ListFunc           func(ctx context.Context, userID string, activeOnly bool) ([]*models.Session, error)
	TouchFunc          func(ctx context.Context, id string) error
	DeactivateFunc     func(ctx context.Context, id, userID string) error
	DeactivateAllFunc  func(ctx context.Context, userID string) (int64, error)
	SweepExpiredFunc   func(ctx context.Context) (int64, error)
}

func (m *MockSessionRepository) Create(ctx context.Context, session *models.Session) (*models.Session, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, session)
	}
	return session, nil
}

func (m *MockSessionRepository) GetByTokenHash(ctx context.Context, userID, tokenHash string) (*models.Session, error) {
	if m.GetByTokenHashFunc != nil {
		return m.GetByTokenHashFunc(ctx, userID, tokenHash)
	}
	return nil, models.ErrNotFound
}

func (m *MockSessionRepository) List(ctx context.Context, userID string, activeOnly bool) ([]*models.Session, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, userID, activeOnly)
	}
	return nil, nil
}

func (m *MockSessionRepository) Touch(ctx context.Context, id string) error {
	if m.TouchFunc != nil {
		return m.TouchFunc(ctx, id)
	}
	return nil
}

func (m *MockSessionRepository) Deactivate(ctx context.Context, id, userID string) error {
	if m.DeactivateFunc != nil {
		return m.DeactivateFunc(ctx, id, userID)
	}
	return nil
}

func (m *MockSessionRepository) DeactivateAll(ctx context.Context, userID string) (int64, error) {
	if m.DeactivateAllFunc != nil {
		return m.DeactivateAllFunc(ctx, userID)
	}
	return 0, nil
}

func (m *MockSessionRepository) SweepExpired(ctx context.Context) (int64, error) {
	if m.SweepExpiredFunc != nil {
		return m.SweepExpiredFunc(ctx)
	}
	return 0, nil
}

// MockAuditLogRepository implements AuditLogRepository with overridable
// function fields.
type MockAuditLogRepository struct {
	CreateFunc            func(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error)
	GetByUserIDFunc       func(ctx context.Context, userID string, action string, limit int) ([]*models.AuditLog, error)
	GetFailedAttemptsFunc func(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
}

func (m *MockAuditLogRepository) Create(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, log)
	}
	return log, nil
}

func (m *MockAuditLogRepository) GetByUserID(ctx context.Context, userID string, action string, limit int) ([]*models.AuditLog, error) {
	if m.GetByUserIDFunc != nil {
		return m.GetByUserIDFunc(ctx, userID, action, limit)
	}
	return nil, nil
}

func (m *MockAuditLogRepository) GetFailedAttempts(ctx context.Context, limit, offset int) ([]*models.AuditLog, error) {
	if m.GetFailedAttemptsFunc != nil {
		return m.GetFailedAttemptsFunc(ctx, limit, offset)
	}
	return nil, nil
}

// MockNotificationSender implements NotificationSender with an overridable
// function field and records every dispatched message.
type MockNotificationSender struct {
	SendFunc func(ctx context.Context, kind, recipient string, data map[string]string) error
	Sent     []SentNotification
}

type SentNotification struct {
	Kind      string
	Recipient string
	Data      map[string]string
}

func (m *MockNotificationSender) Send(ctx context.Context, kind, recipient string, data map[string]string) error {
	m.Sent = append(m.Sent, SentNotification{Kind: kind, Recipient: recipient, Data: data})
	if m.SendFunc != nil {
		return m.SendFunc(ctx, kind, recipient, data)
	}
	return nil
}

// MockPreferencesRepository implements PreferencesRepository with
// overridable function fields.
type MockPreferencesRepository struct {
	GetOrCreateFunc func(ctx context.Context, userID string) (*models.UserPreferences, error)
	UpdateFunc      func(ctx context.Context, userID string, update *models.PreferencesUpdate) (*models.UserPreferences, error)
}

func (m *MockPreferencesRepository) GetOrCreate(ctx context.Context, userID string) (*models.UserPreferences, error) {
	if m.GetOrCreateFunc != nil {
		return m.GetOrCreateFunc(ctx, userID)
	}
	return &models.UserPreferences{UserID: userID, EmailOnLogin: true, EmailOnComment: true}, nil
}

func (m *MockPreferencesRepository) Update(ctx context.Context, userID string, update *models.PreferencesUpdate) (*models.UserPreferences, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, userID, update)
	}
	return nil, models.ErrNotFound
}
