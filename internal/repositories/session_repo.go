package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/inknechoes/backend/internal/database"
	"github.com/inknechoes/backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const sessionColumns = `id, user_id, token_hash, ip_address, user_agent, device_info,
	is_active, last_activity, created_at, expires_at`

type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{pool: db.Pool}
}

func scanSessionRow(scanner rowScanner) (*models.Session, error) {
	var session models.Session
	var ipAddress, userAgent, deviceInfo *string

	err := scanner.Scan(
		&session.ID, &session.UserID, &session.TokenHash,
		&ipAddress, &userAgent, &deviceInfo,
		&session.IsActive, &session.LastActivity, &session.CreatedAt, &session.ExpiresAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if ipAddress != nil {
		session.IPAddress = *ipAddress
	}
	if userAgent != nil {
		session.UserAgent = *userAgent
	}
	if deviceInfo != nil {
		session.DeviceInfo = *deviceInfo
	}

	return &session, nil
}

func scanSessionRows(rows pgx.Rows) ([]*models.Session, error) {
	defer rows.Close()

	sessions := make([]*models.Session, 0)

	for rows.Next() {
		session, err := scanSessionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session rows: %w", err)
	}

	return sessions, nil
}

func (r *SessionRepository) Create(ctx context.Context, session *models.Session) (*models.Session, error) {
	session.ID = uuid.New().String()

	now := time.Now()
	session.IsActive = true
	session.LastActivity = now
	session.CreatedAt = now

	query := `
		INSERT INTO user_sessions (id, user_id, token_hash, ip_address, user_agent, device_info,
			is_active, last_activity, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + sessionColumns

	return scanSessionRow(r.pool.QueryRow(ctx, query,
		session.ID, session.UserID, session.TokenHash,
		nullIfEmpty(session.IPAddress), nullIfEmpty(session.UserAgent), nullIfEmpty(session.DeviceInfo),
		session.IsActive, session.LastActivity, session.CreatedAt, session.ExpiresAt,
	))
}

// GetByTokenHash looks up the active session for (user, hash). Expired
// sessions are filtered at query time regardless of their stored flag.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, userID, tokenHash string) (*models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM user_sessions
		WHERE user_id = $1 AND token_hash = $2 AND is_active = TRUE AND expires_at > $3
	`

	return scanSessionRow(r.pool.QueryRow(ctx, query, userID, tokenHash, time.Now()))
}

func (r *SessionRepository) List(ctx context.Context, userID string, activeOnly bool) ([]*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM user_sessions WHERE user_id = $1`
	args := []interface{}{userID}

	if activeOnly {
		query += ` AND is_active = TRUE AND expires_at > $2`
		args = append(args, time.Now())
	}

	query += ` ORDER BY last_activity DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}

	return scanSessionRows(rows)
}

// Touch updates last_activity.
func (r *SessionRepository) Touch(ctx context.Context, id string) error {
	query := `UPDATE user_sessions SET last_activity = $1 WHERE id = $2`

	_, err := r.pool.Exec(ctx, query, time.Now(), id)
	return database.MapPostgresError(err)
}

// Deactivate flips is_active only when the session belongs to userID.
// The ownership check is part of this contract, not the caller's.
func (r *SessionRepository) Deactivate(ctx context.Context, id, userID string) error {
	query := `UPDATE user_sessions SET is_active = FALSE WHERE id = $1 AND user_id = $2`

	result, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeactivateAll flips every active session for a user.
func (r *SessionRepository) DeactivateAll(ctx context.Context, userID string) (int64, error) {
	query := `UPDATE user_sessions SET is_active = FALSE WHERE user_id = $1 AND is_active = TRUE`

	result, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}

// SweepExpired marks expired sessions inactive. Idempotent and safe to run
// concurrently; the flag only ever moves one way here.
func (r *SessionRepository) SweepExpired(ctx context.Context) (int64, error) {
	query := `UPDATE user_sessions SET is_active = FALSE WHERE expires_at < $1 AND is_active = TRUE`

	result, err := r.pool.Exec(ctx, query, time.Now())
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}
