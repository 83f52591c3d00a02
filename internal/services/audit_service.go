package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/inknechoes/backend/internal/models"
	pkglogger "github.com/inknechoes/backend/pkg/logger"
)

// AuditLogRepository defines the interface for the durable audit trail
type AuditLogRepository interface {
	Create(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error)
	GetByUserID(ctx context.Context, userID string, action string, limit int) ([]*models.AuditLog, error)
	GetFailedAttempts(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
}

// AuditService records security-relevant events with a dual-write pattern:
// immediate structured log output plus a durable audit_logs row. Persistence
// failures are logged and swallowed; audit writes never fail the operation
// they accompany.
type AuditService struct {
	repo        AuditLogRepository
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewAuditService(repo AuditLogRepository, logger *slog.Logger) *AuditService {
	return &AuditService{
		repo:        repo,
		logger:      logger,
		auditLogger: pkglogger.NewAuditLogger(logger),
	}
}

// Record writes an audit entry. userID may be nil for system or anonymous
// events (failed login with unknown email, completed account deletion).
func (s *AuditService) Record(ctx context.Context, userID *string, action, status, ipAddress, userAgent, details string) {
	uid := ""
	if userID != nil {
		uid = *userID
	}
	s.auditLogger.LogEvent(action, uid, ipAddress, userAgent, status == models.AuditStatusSuccess, details)

	entry := &models.AuditLog{
		UserID:    userID,
		Action:    action,
		Status:    status,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		Details:   details,
	}

	if _, err := s.repo.Create(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist audit log",
			slog.String("action", action),
			slog.Any("error", err),
		)
	}
}

// Trail retrieves a user's audit entries, newest first.
func (s *AuditService) Trail(ctx context.Context, userID string, action string, limit int) ([]*models.AuditLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	logs, err := s.repo.GetByUserID(ctx, userID, action, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit trail: %w", err)
	}

	return logs, nil
}

// FailedAttempts retrieves recent failed and errored events across all
// users, newest first. Admin-only surface.
func (s *AuditService) FailedAttempts(ctx context.Context, limit, offset int) ([]*models.AuditLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	logs, err := s.repo.GetFailedAttempts(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get failed attempts: %w", err)
	}

	return logs, nil
}
