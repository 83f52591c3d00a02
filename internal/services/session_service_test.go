package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inknechoes/backend/internal/models"
)

func TestHashToken(t *testing.T) {
	h1 := HashToken("token-a")
	h2 := HashToken("token-b")

	assert.NotEqual(t, h1, h2)
	assert.Equal(t, h1, HashToken("token-a"))
	assert.Len(t, h1, 64)
	assert.NotContains(t, h1, "token-a")
}

func TestSessionServiceCreate(t *testing.T) {
	repo := &MockSessionRepository{}
	var stored *models.Session
	repo.CreateFunc = func(ctx context.Context, session *models.Session) (*models.Session, error) {
		stored = session
		return session, nil
	}
	svc := NewSessionService(repo, discardLogger(), 7*24*time.Hour)

	before := time.Now()
	session, err := svc.Create(context.Background(), "user-1", "refresh-token", "10.0.0.1",
		"Mozilla/5.0 (X11; Linux x86_64) Chrome/126.0")
	require.NoError(t, err)
	require.NotNil(t, stored)

	assert.Equal(t, "user-1", session.UserID)
	assert.Equal(t, HashToken("refresh-token"), session.TokenHash)
	assert.Equal(t, "Chrome", session.DeviceInfo)
	assert.True(t, session.ExpiresAt.After(before.Add(7*24*time.Hour-time.Minute)))
}

func TestSessionServiceFindByToken(t *testing.T) {
	t.Run("missing session is not an error", func(t *testing.T) {
		repo := &MockSessionRepository{}
		svc := NewSessionService(repo, discardLogger(), time.Hour)

		session, err := svc.FindByToken(context.Background(), "user-1", "unknown-token")
		require.NoError(t, err)
		assert.Nil(t, session)
	})

	t.Run("tampered token hashes to a different session", func(t *testing.T) {
		repo := &MockSessionRepository{}
		repo.GetByTokenHashFunc = func(ctx context.Context, userID, tokenHash string) (*models.Session, error) {
			if tokenHash == HashToken("real-token") {
				return &models.Session{ID: "sess-1", UserID: userID}, nil
			}
			return nil, models.ErrNotFound
		}
		svc := NewSessionService(repo, discardLogger(), time.Hour)

		session, err := svc.FindByToken(context.Background(), "user-1", "real-token")
		require.NoError(t, err)
		require.NotNil(t, session)

		session, err = svc.FindByToken(context.Background(), "user-1", "real-tokeN")
		require.NoError(t, err)
		assert.Nil(t, session)
	})
}

func TestSessionServiceDeactivate(t *testing.T) {
	repo := &MockSessionRepository{}
	repo.DeactivateFunc = func(ctx context.Context, id, userID string) error {
		if userID != "owner" {
			return models.ErrNotFound
		}
		return nil
	}
	svc := NewSessionService(repo, discardLogger(), time.Hour)

	assert.NoError(t, svc.Deactivate(context.Background(), "sess-1", "owner"))
	assert.ErrorIs(t, svc.Deactivate(context.Background(), "sess-1", "intruder"), models.ErrNotFound)
}
