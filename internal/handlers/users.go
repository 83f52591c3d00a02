package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/inknechoes/backend/internal/auth"
	"github.com/inknechoes/backend/internal/models"
	pkghttp "github.com/inknechoes/backend/pkg/http"
)

// UserServiceInterface defines the interface for user profile logic
type UserServiceInterface interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, update *models.UserProfileUpdate, ipAddress, userAgent string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	Preferences(ctx context.Context, userID string) (*models.UserPreferences, error)
	UpdatePreferences(ctx context.Context, userID string, update *models.PreferencesUpdate) (*models.UserPreferences, error)
	AuditTrail(ctx context.Context, userID, action string, limit int) ([]*models.AuditLog, error)
}

// UserHandler handles profile and preferences HTTP requests
type UserHandler struct {
	service  UserServiceInterface
	ipConfig *pkghttp.IPConfig
}

func NewUserHandler(service UserServiceInterface, ipConfig *pkghttp.IPConfig) *UserHandler {
	return &UserHandler{
		service:  service,
		ipConfig: ipConfig,
	}
}

// UpdateProfileRequest represents a partial profile update. Absent fields
// are left untouched.
type UpdateProfileRequest struct {
	Bio       *string `json:"bio" validate:"omitempty,max=500"`
	GenreTags *string `json:"genre_tags" validate:"omitempty,max=200"`
}

// UpdatePreferencesRequest represents a partial preferences update
type UpdatePreferencesRequest struct {
	EmailOnLogin   *bool `json:"email_on_login"`
	EmailOnComment *bool `json:"email_on_comment"`
	EmailDigest    *bool `json:"email_digest"`
}

// PreferencesResponse is the public view of notification preferences
type PreferencesResponse struct {
	EmailOnLogin   bool `json:"email_on_login"`
	EmailOnComment bool `json:"email_on_comment"`
	EmailDigest    bool `json:"email_digest"`
}

func toPreferencesResponse(p *models.UserPreferences) *PreferencesResponse {
	return &PreferencesResponse{
		EmailOnLogin:   p.EmailOnLogin,
		EmailOnComment: p.EmailOnComment,
		EmailDigest:    p.EmailDigest,
	}
}

// Me returns the authenticated user's account.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	user, err := h.service.GetByID(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "User not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

// UpdateProfile applies a partial profile update for the authenticated user.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)
	userAgent := r.Header.Get("User-Agent")

	user, err := h.service.UpdateProfile(r.Context(), claims.Subject, &models.UserProfileUpdate{
		Bio:       req.Bio,
		GenreTags: req.GenreTags,
	}, ipAddress, userAgent)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "No fields to update")
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "User not found")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

// Preferences returns the authenticated user's notification preferences.
func (h *UserHandler) Preferences(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	prefs, err := h.service.Preferences(r.Context(), claims.Subject)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, toPreferencesResponse(prefs))
}

// AuditLog returns the authenticated user's own audit trail, newest first.
// ?action= filters to a single action.
func (h *UserHandler) AuditLog(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	action := r.URL.Query().Get("action")
	limit := queryInt(r, "limit", 50)

	logs, err := h.service.AuditTrail(r.Context(), claims.Subject, action, limit)
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

// UpdatePreferences applies a partial preferences update.
func (h *UserHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req UpdatePreferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	prefs, err := h.service.UpdatePreferences(r.Context(), claims.Subject, &models.PreferencesUpdate{
		EmailOnLogin:   req.EmailOnLogin,
		EmailOnComment: req.EmailOnComment,
		EmailDigest:    req.EmailDigest,
	})
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			pkghttp.WriteBadRequest(w, "No fields to update")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, toPreferencesResponse(prefs))
}
