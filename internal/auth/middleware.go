package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/digicom/complaints/internal/models"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// ActorContextKey is the key for storing the authenticated actor in context
	ActorContextKey contextKey = "actor"
)

// UserRepository interface for loading the authenticated user
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Middleware validates the Bearer token, loads the user record and injects
// the actor (id, email, role) into the request context.
func Middleware(tm *TokenManager, userRepo UserRepository) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "invalid authorization header format", http.StatusUnauthorized)
				return
			}

			claims, err := tm.ValidateToken(parts[1])
			if err != nil {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			// Load the user so role changes take effect immediately
			user, err := userRepo.GetByID(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					http.Error(w, "user not found", http.StatusUnauthorized)
					return
				}
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}

			actor := &models.Actor{ID: user.ID, Email: user.Email, Role: user.Role}
			ctx := context.WithValue(r.Context(), ActorContextKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole creates a middleware that enforces role-based access control
func RequireRole(role models.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := GetActorFromContext(r)
			if actor == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			if actor.Role != role {
				http.Error(w, "forbidden: insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetActorFromContext extracts the authenticated actor from request context
func GetActorFromContext(r *http.Request) *models.Actor {
	actor, ok := r.Context().Value(ActorContextKey).(*models.Actor)
	if !ok {
		return nil
	}
	return actor
}
