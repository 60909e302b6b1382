package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/digicom/complaints/internal/auth"
	"github.com/digicom/complaints/internal/models"
	pkgauth "github.com/digicom/complaints/pkg/auth"
	pkglogger "github.com/digicom/complaints/pkg/logger"
)

// AuthService handles authentication business logic
type AuthService struct {
	repo        UserRepository
	tm          *auth.TokenManager
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewAuthService creates a new AuthService
func NewAuthService(repo UserRepository, tm *auth.TokenManager, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AuthService {
	return &AuthService{
		repo:        repo,
		tm:          tm,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// RegisterInput carries the fields for creating an account
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Phone    *string
	DOB      *time.Time
	Role     models.Role // optional; defaults to CITIZEN
}

// UserResponse represents a user in the HTTP response
type UserResponse struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	Name      string  `json:"name"`
	Phone     *string `json:"phone,omitempty"`
	Role      string  `json:"role"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

// AuthResponse represents the response from a successful login
type AuthResponse struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	User        *UserResponse `json:"user"`
}

// Register creates a new account. Either role may be requested at
// registration; unset defaults to CITIZEN.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*UserResponse, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, models.ErrBadRequest
	}

	role := input.Role
	if role == "" {
		role = models.RoleCitizen
	}
	if !models.ValidRole(role) {
		return nil, models.ErrBadRequest
	}

	if err := pkgauth.ValidatePassword(input.Password); err != nil {
		return nil, err
	}

	hash, err := pkgauth.HashPassword(input.Password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(input.Name),
		Phone:        input.Phone,
		DOB:          input.DOB,
		Role:         role,
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     "registration_failed",
				FailureReason: "email_taken",
				Success:       false,
			})
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("registered", created.ID, map[string]string{
		"role":  string(created.Role),
		"email": pkglogger.SanitizedEmail(created.Email),
	})

	return toUserResponse(created), nil
}

// Login authenticates a user and returns an access token
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	if email = strings.ToLower(strings.TrimSpace(email)); email == "" {
		s.logger.Warn("login attempt with empty email")
		return nil, models.ErrUnauthorized
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Log login failure without exposing email
			s.logger.Info("login failed: invalid credentials")
			s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     "login_failed",
				FailureReason: "invalid_credentials",
				Success:       false,
			})
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		s.logger.Info("login failed: invalid credentials")
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			ActorID:       user.ID,
			FailureReason: "invalid_credentials",
			Success:       false,
		})
		return nil, models.ErrUnauthorized
	}

	token, err := s.tm.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_success",
		ActorID:   user.ID,
		Success:   true,
	})

	return &AuthResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        toUserResponse(user),
	}, nil
}

// Me returns the profile of the authenticated user
func (s *AuthService) Me(ctx context.Context, userID string) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return toUserResponse(user), nil
}

func toUserResponse(u *models.User) *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Phone:     u.Phone,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
		UpdatedAt: u.UpdatedAt.Format(time.RFC3339),
	}
}
