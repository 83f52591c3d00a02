package handlers

import (
	"context"

	"github.com/inknechoes/backend/internal/models"
	"github.com/inknechoes/backend/internal/services"
)

// MockAuthService implements AuthServiceInterface with overridable function
// fields.
type MockAuthService struct {
	RegisterFunc             func(ctx context.Context, input services.RegisterInput) (*models.User, error)
	LoginFunc                func(ctx context.Context, email, password, ipAddress, userAgent string) (*services.LoginResult, error)
	RefreshFunc              func(ctx context.Context, refreshToken string) (string, error)
	LogoutFunc               func(ctx context.Context, userID, refreshToken string)
	RequestPasswordResetFunc func(ctx context.Context, email string)
	ConfirmPasswordResetFunc func(ctx context.Context, token, newPassword string) error
	ChangePasswordFunc       func(ctx context.Context, userID, currentPassword, newPassword, ipAddress, userAgent string) error
	VerifyEmailFunc          func(ctx context.Context, token string) (bool, error)
	ResendVerificationFunc   func(ctx context.Context, email string)
	DeleteAccountFunc        func(ctx context.Context, userID, password, ipAddress, userAgent string) error
}

func (m *MockAuthService) Register(ctx context.Context, input services.RegisterInput) (*models.User, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, input)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAuthService) Login(ctx context.Context, email, password, ipAddress, userAgent string) (*services.LoginResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password, ipAddress, userAgent)
	}
	return nil, models.ErrUnauthorized
}

func (m *MockAuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, refreshToken)
	}
	return "", models.ErrInvalidToken
}

func (m *MockAuthService) Logout(ctx context.Context, userID, refreshToken string) {
	if m.LogoutFunc != nil {
		m.LogoutFunc(ctx, userID, refreshToken)
	}
}

func (m *MockAuthService) RequestPasswordReset(ctx context.Context, email string) {
	if m.RequestPasswordResetFunc != nil {
		m.RequestPasswordResetFunc(ctx, email)
	}
}

func (m *MockAuthService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if m.ConfirmPasswordResetFunc != nil {
		return m.ConfirmPasswordResetFunc(ctx, token, newPassword)
	}
	return models.ErrInvalidToken
}

func (m *MockAuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword, ipAddress, userAgent string) error {
	if m.ChangePasswordFunc != nil {
		return m.ChangePasswordFunc(ctx, userID, currentPassword, newPassword, ipAddress, userAgent)
	}
	return nil
}

func (m *MockAuthService) VerifyEmail(ctx context.Context, token string) (bool, error) {
	if m.VerifyEmailFunc != nil {
		return m.VerifyEmailFunc(ctx, token)
	}
	return false, models.ErrInvalidToken
}

func (m *MockAuthService) ResendVerification(ctx context.Context, email string) {
	if m.ResendVerificationFunc != nil {
		m.ResendVerificationFunc(ctx, email)
	}
}

func (m *MockAuthService) DeleteAccount(ctx context.Context, userID, password, ipAddress, userAgent string) error {
	if m.DeleteAccountFunc != nil {
		return m.DeleteAccountFunc(ctx, userID, password, ipAddress, userAgent)
	}
	return models.ErrUnauthorized
}

// MockUserService implements UserServiceInterface with overridable function
// fields.
type MockUserService struct {
	GetByIDFunc           func(ctx context.Context, id string) (*models.User, error)
	UpdateProfileFunc     func(ctx context.Context, userID string, update *models.UserProfileUpdate, ipAddress, userAgent string) (*models.User, error)
	ListFunc              func(ctx context.Context, limit, offset int) ([]*models.User, error)
	PreferencesFunc       func(ctx context.Context, userID string) (*models.UserPreferences, error)
	UpdatePreferencesFunc func(ctx context.Context, userID string, update *models.PreferencesUpdate) (*models.UserPreferences, error)
	AuditTrailFunc        func(ctx context.Context, userID, action string, limit int) ([]*models.AuditLog, error)
}

func (m *MockUserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserService) UpdateProfile(ctx context.Context, userID string, update *models.UserProfileUpdate, ipAddress, userAgent string) (*models.User, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, userID, update, ipAddress, userAgent)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserService) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return nil, nil
}

func (m *MockUserService) Preferences(ctx context.Context, userID string) (*models.UserPreferences, error) {
	if m.PreferencesFunc != nil {
		return m.PreferencesFunc(ctx, userID)
	}
	return &models.UserPreferences{UserID: userID}, nil
}

func (m *MockUserService) UpdatePreferences(ctx context.Context, userID string, update *models.PreferencesUpdate) (*models.UserPreferences, error) {
	if m.UpdatePreferencesFunc != nil {
		return m.UpdatePreferencesFunc(ctx, userID, update)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserService) AuditTrail(ctx context.Context, userID, action string, limit int) ([]*models.AuditLog, error) {
	if m.AuditTrailFunc != nil {
		return m.AuditTrailFunc(ctx, userID, action, limit)
	}
	return nil, nil
}
