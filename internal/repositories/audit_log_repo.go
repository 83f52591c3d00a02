package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/inknechoes/backend/internal/database"
	"github.com/inknechoes/backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const auditColumns = `id, user_id, action, status, ip_address, user_agent, details, created_at`

// AuditLogRepository handles the append-only audit trail. Entries are never
// updated or deleted by the core.
type AuditLogRepository struct {
	pool *pgxpool.Pool
}

func NewAuditLogRepository(db *database.DB) *AuditLogRepository {
	return &AuditLogRepository{pool: db.Pool}
}

func scanAuditLogRow(scanner rowScanner) (*models.AuditLog, error) {
	var log models.AuditLog
	var ipAddress, userAgent, details *string

	err := scanner.Scan(
		&log.ID, &log.UserID, &log.Action, &log.Status,
		&ipAddress, &userAgent, &details, &log.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if ipAddress != nil {
		log.IPAddress = *ipAddress
	}
	if userAgent != nil {
		log.UserAgent = *userAgent
	}
	if details != nil {
		log.Details = *details
	}

	return &log, nil
}

func scanAuditLogRows(rows pgx.Rows) ([]*models.AuditLog, error) {
	defer rows.Close()

	logs := make([]*models.AuditLog, 0)

	for rows.Next() {
		log, err := scanAuditLogRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log rows: %w", err)
	}

	return logs, nil
}

func (r *AuditLogRepository) Create(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error) {
	log.ID = uuid.New().String()

	query := `
		INSERT INTO audit_logs (id, user_id, action, status, ip_address, user_agent, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING ` + auditColumns

	result, err := scanAuditLogRow(r.pool.QueryRow(ctx, query,
		log.ID, log.UserID, log.Action, log.Status,
		nullIfEmpty(log.IPAddress), nullIfEmpty(log.UserAgent), nullIfEmpty(log.Details),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create audit log: %w", err)
	}

	return result, nil
}

// GetByUserID retrieves audit entries for a user, newest first, optionally
// filtered by action.
func (r *AuditLogRepository) GetByUserID(ctx context.Context, userID string, action string, limit int) ([]*models.AuditLog, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_logs WHERE user_id = $1`
	args := []interface{}{userID}

	if action != "" {
		query += ` AND action = $2`
		args = append(args, action)
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}

	return scanAuditLogRows(rows)
}

// GetFailedAttempts retrieves failed events across all users, newest first.
func (r *AuditLogRepository) GetFailedAttempts(ctx context.Context, limit, offset int) ([]*models.AuditLog, error) {
	query := `
		SELECT ` + auditColumns + `
		FROM audit_logs
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, models.AuditStatusFailed, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query failed audit logs: %w", err)
	}

	return scanAuditLogRows(rows)
}
