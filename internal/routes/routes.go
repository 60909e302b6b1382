package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/digicom/complaints/internal/auth"
	"github.com/digicom/complaints/internal/handlers"
	"github.com/digicom/complaints/internal/middleware"
	"github.com/digicom/complaints/internal/models"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	complaintHandler *handlers.ComplaintHandler,
	dashboardHandler *handlers.DashboardHandler,
	tokenManager *auth.TokenManager,
	userRepo auth.UserRepository,
) {
	authLimit := middleware.PublicAuthRateLimit()

	// Public routes - no authentication required
	router.With(authLimit).Post("/auth/register", authHandler.Register)
	router.With(authLimit).Post("/auth/login", authHandler.Login)

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tokenManager, userRepo))

		r.Get("/auth/user", authHandler.Me)

		r.Post("/complaints", complaintHandler.Create)
		r.Get("/complaints", complaintHandler.List)
		r.Get("/complaints/images/{filename}", complaintHandler.GetImage)
		r.Get("/complaints/{id}", complaintHandler.Get)
		r.Put("/complaints/{id}", complaintHandler.Update)

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(models.RoleAdmin))
			r.Get("/dashboard", dashboardHandler.Stats)
		})
	})
}
