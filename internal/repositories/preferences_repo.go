package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/inknechoes/backend/internal/database"
	"github.com/inknechoes/backend/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

const preferencesColumns = `id, user_id, email_on_login, email_on_comment, email_digest, updated_at`

type PreferencesRepository struct {
	pool *pgxpool.Pool
}

func NewPreferencesRepository(db *database.DB) *PreferencesRepository {
	return &PreferencesRepository{pool: db.Pool}
}

func scanPreferencesRow(scanner rowScanner) (*models.UserPreferences, error) {
	var prefs models.UserPreferences

	err := scanner.Scan(
		&prefs.ID, &prefs.UserID, &prefs.EmailOnLogin, &prefs.EmailOnComment,
		&prefs.EmailDigest, &prefs.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &prefs, nil
}

// GetOrCreate returns the user's preferences, creating a row with defaults
// on first access.
func (r *PreferencesRepository) GetOrCreate(ctx context.Context, userID string) (*models.UserPreferences, error) {
	query := `SELECT ` + preferencesColumns + ` FROM user_preferences WHERE user_id = $1`

	prefs, err := scanPreferencesRow(r.pool.QueryRow(ctx, query, userID))
	if err == nil {
		return prefs, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	insert := `
		INSERT INTO user_preferences (id, user_id, email_on_login, email_on_comment, email_digest, updated_at)
		VALUES ($1, $2, TRUE, TRUE, FALSE, $3)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING ` + preferencesColumns

	return scanPreferencesRow(r.pool.QueryRow(ctx, insert, uuid.New().String(), userID, time.Now()))
}

// Update applies only the fields that are set on the update.
func (r *PreferencesRepository) Update(ctx context.Context, userID string, update *models.PreferencesUpdate) (*models.UserPreferences, error) {
	if _, err := r.GetOrCreate(ctx, userID); err != nil {
		return nil, err
	}

	query := `
		UPDATE user_preferences
		SET email_on_login = COALESCE($1, email_on_login),
		    email_on_comment = COALESCE($2, email_on_comment),
		    email_digest = COALESCE($3, email_digest),
		    updated_at = $4
		WHERE user_id = $5
		RETURNING ` + preferencesColumns

	return scanPreferencesRow(r.pool.QueryRow(ctx, query,
		update.EmailOnLogin, update.EmailOnComment, update.EmailDigest, time.Now(), userID,
	))
}
