package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/inknechoes/backend/internal/models"
	"github.com/inknechoes/backend/internal/services"
	pkghttp "github.com/inknechoes/backend/pkg/http"
)

// AdminHandler exposes admin-only account management and audit trail views
type AdminHandler struct {
	users    *services.UserService
	audit    *services.AuditService
	ipConfig *pkghttp.IPConfig
}

func NewAdminHandler(users *services.UserService, audit *services.AuditService, ipConfig *pkghttp.IPConfig) *AdminHandler {
	return &AdminHandler{
		users:    users,
		audit:    audit,
		ipConfig: ipConfig,
	}
}

// AuditLogResponse is the admin view of one audit entry
type AuditLogResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id,omitempty"`
	Action    string `json:"action"`
	Status    string `json:"status"`
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	Details   string `json:"details"`
	CreatedAt string `json:"created_at"`
}

func toAuditLogResponse(l *models.AuditLog) *AuditLogResponse {
	resp := &AuditLogResponse{
		ID:        l.ID,
		Action:    l.Action,
		Status:    l.Status,
		IPAddress: l.IPAddress,
		UserAgent: l.UserAgent,
		Details:   l.Details,
		CreatedAt: l.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if l.UserID != nil {
		resp.UserID = *l.UserID
	}
	return resp
}

// ListUsers returns a page of accounts.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	users, err := h.users.List(r.Context(), limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	out := make([]*UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	pkghttp.WriteJSON(w, http.StatusOK, out)
}

// DeleteUser removes a non-admin account and all of its content.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		pkghttp.WriteBadRequest(w, "User ID required")
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)
	userAgent := r.Header.Get("User-Agent")

	if err := h.users.DeleteUser(r.Context(), userID, ipAddress, userAgent); err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "User not found")
		case errors.Is(err, models.ErrForbidden):
			pkghttp.WriteBadRequest(w, "Cannot delete admin user")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UserAuditTrail returns one user's audit entries, newest first.
// ?action= filters to a single action.
func (h *AdminHandler) UserAuditTrail(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		pkghttp.WriteBadRequest(w, "User ID required")
		return
	}

	action := r.URL.Query().Get("action")
	limit := queryInt(r, "limit", 50)

	logs, err := h.audit.Trail(r.Context(), userID, action, limit)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	out := make([]*AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, toAuditLogResponse(l))
	}
	pkghttp.WriteJSON(w, http.StatusOK, out)
}

// FailedAttempts returns recent failed and errored events across all users.
func (h *AdminHandler) FailedAttempts(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	logs, err := h.audit.FailedAttempts(r.Context(), limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	out := make([]*AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, toAuditLogResponse(l))
	}
	pkghttp.WriteJSON(w, http.StatusOK, out)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
