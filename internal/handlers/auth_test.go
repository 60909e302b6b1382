package handlers_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/digicom/complaints/internal/handlers"
	"github.com/digicom/complaints/internal/models"
	"github.com/digicom/complaints/internal/services"
)

func TestRegister_Success(t *testing.T) {
	var gotInput services.RegisterInput
	mockAuth := &handlers.MockAuthService{
		RegisterFunc: func(ctx context.Context, input services.RegisterInput) (*services.UserResponse, error) {
			gotInput = input
			return &services.UserResponse{
				ID:    "user_1",
				Email: "citizen@example.com",
				Name:  "Jordan Citizen",
				Role:  "CITIZEN",
			}, nil
		},
	}

	handler := handlers.NewAuthHandler(mockAuth)
	req := handlers.NewTestRequest(t, "POST", "/auth/register", handlers.RegisterRequest{
		Email:    "citizen@example.com",
		Password: "correct-horse-42",
		Name:     "Jordan Citizen",
		DOB:      "1990-04-01",
	})

	w := httptest.NewRecorder()
	handler.Register(w, req)

	var resp services.UserResponse
	handlers.AssertJSONResponse(t, w, 201, &resp)
	assert.Equal(t, "user_1", resp.ID)
	assert.Equal(t, "citizen@example.com", gotInput.Email)
	assert.NotNil(t, gotInput.DOB)
	assert.Equal(t, 1990, gotInput.DOB.Year())
}

func TestRegister_InvalidEmail(t *testing.T) {
	handler := handlers.NewAuthHandler(&handlers.MockAuthService{})
	req := handlers.NewTestRequest(t, "POST", "/auth/register", handlers.RegisterRequest{
		Email:    "not-an-email",
		Password: "correct-horse-42",
		Name:     "Jordan",
	})

	w := httptest.NewRecorder()
	handler.Register(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestRegister_InvalidRole(t *testing.T) {
	handler := handlers.NewAuthHandler(&handlers.MockAuthService{})
	req := handlers.NewTestRequest(t, "POST", "/auth/register", handlers.RegisterRequest{
		Email:    "user@example.com",
		Password: "correct-horse-42",
		Name:     "Jordan",
		Role:     "SUPERUSER",
	})

	w := httptest.NewRecorder()
	handler.Register(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		RegisterFunc: func(ctx context.Context, input services.RegisterInput) (*services.UserResponse, error) {
			return nil, models.ErrConflict
		},
	}

	handler := handlers.NewAuthHandler(mockAuth)
	req := handlers.NewTestRequest(t, "POST", "/auth/register", handlers.RegisterRequest{
		Email:    "taken@example.com",
		Password: "correct-horse-42",
		Name:     "Jordan",
	})

	w := httptest.NewRecorder()
	handler.Register(w, req)

	handlers.AssertErrorResponse(t, w, 409, "conflict")
}

func TestLogin_Success(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, email, password string) (*services.AuthResponse, error) {
			return &services.AuthResponse{
				AccessToken: "access_token_123",
				TokenType:   "bearer",
			}, nil
		},
	}

	handler := handlers.NewAuthHandler(mockAuth)
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email:    "user@example.com",
		Password: "password123",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	var resp services.AuthResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "access_token_123", resp.AccessToken)
	assert.Equal(t, "bearer", resp.TokenType)
}

func TestLogin_AuthenticationFailed(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, email, password string) (*services.AuthResponse, error) {
			return nil, models.ErrUnauthorized
		},
	}

	handler := handlers.NewAuthHandler(mockAuth)
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email:    "user@example.com",
		Password: "wrongpassword",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	handlers.AssertErrorResponse(t, w, 401, "unauthorized")
}

func TestLogin_MissingPassword(t *testing.T) {
	handler := handlers.NewAuthHandler(&handlers.MockAuthService{})
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email: "user@example.com",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestMe_Success(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		MeFunc: func(ctx context.Context, userID string) (*services.UserResponse, error) {
			return &services.UserResponse{ID: userID, Email: "citizen@example.com"}, nil
		},
	}

	handler := handlers.NewAuthHandler(mockAuth)
	req := handlers.NewTestRequest(t, "GET", "/auth/user", nil)
	req = handlers.WithActor(req, testCitizen())

	w := httptest.NewRecorder()
	handler.Me(w, req)

	var resp services.UserResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "user_1", resp.ID)
}

func TestMe_Unauthenticated(t *testing.T) {
	handler := handlers.NewAuthHandler(&handlers.MockAuthService{})
	req := handlers.NewTestRequest(t, "GET", "/auth/user", nil)

	w := httptest.NewRecorder()
	handler.Me(w, req)

	handlers.AssertErrorResponse(t, w, 401, "unauthorized")
}
