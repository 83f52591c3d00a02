package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/inknechoes/backend/internal/database"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ContentRepository covers the small slice of the content tables the
// security core touches: creating rows that participate in the account
// deletion cascade and counting what a user owns. Content CRUD proper
// lives elsewhere.
type ContentRepository struct {
	pool *pgxpool.Pool
}

func NewContentRepository(db *database.DB) *ContentRepository {
	return &ContentRepository{pool: db.Pool}
}

// UserContentCounts summarizes a user's dependent rows, surfaced before
// account deletion so the caller knows what will go.
type UserContentCounts struct {
	Posts           int64 `json:"posts"`
	Comments        int64 `json:"comments"`
	Bookmarks       int64 `json:"bookmarks"`
	ReadingProgress int64 `json:"reading_progress"`
}

func (r *ContentRepository) CountByUser(ctx context.Context, userID string) (*UserContentCounts, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM posts WHERE author_id = $1),
			(SELECT COUNT(*) FROM comments WHERE user_id = $1),
			(SELECT COUNT(*) FROM bookmarks WHERE user_id = $1),
			(SELECT COUNT(*) FROM reading_progress WHERE user_id = $1)
	`

	var counts UserContentCounts
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&counts.Posts, &counts.Comments, &counts.Bookmarks, &counts.ReadingProgress,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &counts, nil
}

// CreatePost inserts a minimal post row. Used by seeding and tests of the
// deletion cascade.
func (r *ContentRepository) CreatePost(ctx context.Context, authorID, title, contentType string) (string, error) {
	id := uuid.New().String()
	query := `
		INSERT INTO posts (id, author_id, title, content_type, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query, id, authorID, title, contentType, time.Now())
	if err != nil {
		return "", database.MapPostgresError(err)
	}
	return id, nil
}

func (r *ContentRepository) CreateComment(ctx context.Context, userID, postID, body string) (string, error) {
	id := uuid.New().String()
	query := `
		INSERT INTO comments (id, user_id, post_id, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query, id, userID, postID, body, time.Now())
	if err != nil {
		return "", database.MapPostgresError(err)
	}
	return id, nil
}

func (r *ContentRepository) CreateBookmark(ctx context.Context, userID, postID string) (string, error) {
	id := uuid.New().String()
	query := `
		INSERT INTO bookmarks (id, user_id, post_id, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.pool.Exec(ctx, query, id, userID, postID, time.Now())
	if err != nil {
		return "", database.MapPostgresError(err)
	}
	return id, nil
}

func (r *ContentRepository) CreateReadingProgress(ctx context.Context, userID, postID string, position int) (string, error) {
	id := uuid.New().String()
	query := `
		INSERT INTO reading_progress (id, user_id, post_id, position, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query, id, userID, postID, position, time.Now())
	if err != nil {
		return "", database.MapPostgresError(err)
	}
	return id, nil
}
