package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/inknechoes/backend/internal/auth"
	"github.com/inknechoes/backend/internal/handlers"
	"github.com/inknechoes/backend/internal/middleware"
	"github.com/inknechoes/backend/internal/repositories"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	sessionHandler *handlers.SessionHandler,
	adminHandler *handlers.AdminHandler,
	tokenManager *auth.TokenManager,
	userRepo *repositories.UserRepository,
) {
	rateLimit := middleware.RateLimitByIP(middleware.DefaultAuthRateLimit())

	// Public routes, rate limited per client IP
	router.With(rateLimit).Post("/auth/register", authHandler.Register)
	router.With(rateLimit).Post("/auth/login", authHandler.Login)
	router.With(rateLimit).Post("/auth/refresh", authHandler.Refresh)
	router.With(rateLimit).Post("/auth/forgot-password", authHandler.ForgotPassword)
	router.With(rateLimit).Post("/auth/reset-password", authHandler.ResetPassword)
	router.With(rateLimit).Post("/auth/verify-email", authHandler.VerifyEmail)
	router.With(rateLimit).Post("/auth/resend-verification", authHandler.ResendVerification)

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tokenManager))

		r.Post("/auth/logout", authHandler.Logout)
		r.Post("/auth/change-password", authHandler.ChangePassword)
		r.Delete("/auth/account", authHandler.DeleteAccount)
		r.Get("/auth/audit-log", userHandler.AuditLog)

		r.Get("/users/me", userHandler.Me)
		r.Patch("/users/me", userHandler.UpdateProfile)
		r.Get("/users/me/preferences", userHandler.Preferences)
		r.Patch("/users/me/preferences", userHandler.UpdatePreferences)

		r.Get("/users/me/sessions", sessionHandler.List)
		r.Delete("/users/me/sessions", sessionHandler.RevokeAll)
		r.Delete("/users/me/sessions/{sessionID}", sessionHandler.Revoke)

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin(userRepo))
			r.Get("/admin/users", adminHandler.ListUsers)
			r.Delete("/admin/users/{userID}", adminHandler.DeleteUser)
			r.Get("/admin/users/{userID}/audit", adminHandler.UserAuditTrail)
			r.Get("/admin/audit/failed", adminHandler.FailedAttempts)
		})
	})
}
