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

const userColumns = `id, email, username, password_hash, bio, genre_tags, is_active, is_admin,
	email_verified, failed_login_attempts, locked_until, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
	db   *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{pool: db.Pool, db: db}
}

// rowScanner interface for scanning rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User
	var bio, genreTags *string
	var lockedUntil *time.Time

	err := scanner.Scan(
		&user.ID, &user.Email, &user.Username, &user.PasswordHash,
		&bio, &genreTags, &user.IsActive, &user.IsAdmin,
		&user.EmailVerified, &user.FailedLoginAttempts, &lockedUntil,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if bio != nil {
		user.Bio = *bio
	}
	if genreTags != nil {
		user.GenreTags = *genreTags
	}
	user.LockedUntil = lockedUntil

	return &user, nil
}

func scanUserRows(rows pgx.Rows) ([]*models.User, error) {
	defer rows.Close()

	users := make([]*models.User, 0)

	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return users, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, username))
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	return scanUserRows(rows)
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = uuid.New().String()

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.IsActive = true

	query := `
		INSERT INTO users (id, email, username, password_hash, bio, genre_tags, is_active, is_admin,
			email_verified, failed_login_attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query,
		user.ID, user.Email, user.Username, user.PasswordHash,
		nullIfEmpty(user.Bio), nullIfEmpty(user.GenreTags), user.IsActive, user.IsAdmin,
		user.EmailVerified, user.FailedLoginAttempts, user.CreatedAt, user.UpdatedAt,
	))
}

// UpdateProfile applies only the fields that are set on the update.
func (r *UserRepository) UpdateProfile(ctx context.Context, id string, update *models.UserProfileUpdate) (*models.User, error) {
	query := `
		UPDATE users
		SET bio = COALESCE($1, bio), genre_tags = COALESCE($2, genre_tags), updated_at = $3
		WHERE id = $4
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query,
		update.Bio, update.GenreTags, time.Now(), id,
	))
}

// UpdatePassword stores a new password hash and clears the lockout state.
// Any successful password change resets the failure counter.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $1, failed_login_attempts = 0, locked_until = NULL, updated_at = $2
		WHERE id = $3
	`

	result, err := r.pool.Exec(ctx, query, passwordHash, time.Now(), id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// RecordFailedLogin increments the failure counter and, once the threshold
// is reached, sets the lock. Returns the updated counter and lock time.
func (r *UserRepository) RecordFailedLogin(ctx context.Context, id string, threshold int, lockDuration time.Duration) (int, *time.Time, error) {
	query := `
		UPDATE users
		SET failed_login_attempts = failed_login_attempts + 1,
		    locked_until = CASE WHEN failed_login_attempts + 1 >= $1 THEN $2 ELSE locked_until END,
		    updated_at = $3
		WHERE id = $4
		RETURNING failed_login_attempts, locked_until
	`

	var attempts int
	var lockedUntil *time.Time
	lockAt := time.Now().Add(lockDuration)

	err := r.pool.QueryRow(ctx, query, threshold, lockAt, time.Now(), id).Scan(&attempts, &lockedUntil)
	if err != nil {
		return 0, nil, database.MapPostgresError(err)
	}

	return attempts, lockedUntil, nil
}

// ClearLockout resets the failure counter and removes any lock. Used on
// successful authentication and on lazy lock expiry.
func (r *UserRepository) ClearLockout(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET failed_login_attempts = 0, locked_until = NULL, updated_at = $1
		WHERE id = $2
	`

	_, err := r.pool.Exec(ctx, query, time.Now(), id)
	return database.MapPostgresError(err)
}

// MarkEmailVerified flips the verification flag.
func (r *UserRepository) MarkEmailVerified(ctx context.Context, id string) error {
	query := `UPDATE users SET email_verified = TRUE, updated_at = $1 WHERE id = $2`

	result, err := r.pool.Exec(ctx, query, time.Now(), id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeleteCascade removes the user and every dependent row in a single
// transaction.
func (r *UserRepository) DeleteCascade(ctx context.Context, id string) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		// Engagement rows are removed both by owner and by target post,
		// so other readers' activity on the deleted author's posts does
		// not block the post deletes.
		statements := []string{
			`DELETE FROM reading_progress WHERE user_id = $1 OR post_id IN (SELECT id FROM posts WHERE author_id = $1)`,
			`DELETE FROM bookmarks WHERE user_id = $1 OR post_id IN (SELECT id FROM posts WHERE author_id = $1)`,
			`DELETE FROM comments WHERE user_id = $1 OR post_id IN (SELECT id FROM posts WHERE author_id = $1)`,
			`DELETE FROM chapters WHERE post_id IN (SELECT id FROM posts WHERE author_id = $1)`,
			`DELETE FROM posts WHERE author_id = $1`,
			`DELETE FROM user_preferences WHERE user_id = $1`,
			`DELETE FROM user_sessions WHERE user_id = $1`,
		}

		for _, stmt := range statements {
			if _, err := tx.Exec(ctx, stmt, id); err != nil {
				return database.MapPostgresError(err)
			}
		}

		result, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return database.MapPostgresError(err)
		}
		if result.RowsAffected() == 0 {
			return models.ErrNotFound
		}
		return nil
	})
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
