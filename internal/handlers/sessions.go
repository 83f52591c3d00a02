package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inknechoes/backend/internal/auth"
	"github.com/inknechoes/backend/internal/models"
	"github.com/inknechoes/backend/internal/services"
	pkghttp "github.com/inknechoes/backend/pkg/http"
)

// SessionHandler exposes the authenticated user's session ledger
type SessionHandler struct {
	sessions *services.SessionService
}

func NewSessionHandler(sessions *services.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// SessionResponse is the public view of one session. The token hash never
// leaves the server.
type SessionResponse struct {
	ID           string `json:"id"`
	IPAddress    string `json:"ip_address"`
	DeviceInfo   string `json:"device_info"`
	IsActive     bool   `json:"is_active"`
	LastActivity string `json:"last_activity"`
	CreatedAt    string `json:"created_at"`
	ExpiresAt    string `json:"expires_at"`
}

func toSessionResponse(s *models.Session) *SessionResponse {
	const layout = "2006-01-02T15:04:05Z07:00"
	return &SessionResponse{
		ID:           s.ID,
		IPAddress:    s.IPAddress,
		DeviceInfo:   s.DeviceInfo,
		IsActive:     s.IsActive,
		LastActivity: s.LastActivity.UTC().Format(layout),
		CreatedAt:    s.CreatedAt.UTC().Format(layout),
		ExpiresAt:    s.ExpiresAt.UTC().Format(layout),
	}
}

// List returns the authenticated user's sessions, most recently active
// first. ?active=true filters to live sessions.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	activeOnly := r.URL.Query().Get("active") == "true"

	sessions, err := h.sessions.List(r.Context(), claims.Subject, activeOnly)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	out := make([]*SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, toSessionResponse(s))
	}
	pkghttp.WriteJSON(w, http.StatusOK, out)
}

// Revoke deactivates one of the authenticated user's sessions.
func (h *SessionHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		pkghttp.WriteBadRequest(w, "Session ID required")
		return
	}

	if err := h.sessions.Deactivate(r.Context(), sessionID, claims.Subject); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Session not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Session revoked"})
}

// RevokeAll deactivates every session belonging to the authenticated user.
func (h *SessionHandler) RevokeAll(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	count, err := h.sessions.DeactivateAll(r.Context(), claims.Subject)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":        "All sessions revoked",
		"sessions_ended": count,
	})
}
