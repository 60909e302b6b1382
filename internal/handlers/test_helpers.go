package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/digicom/complaints/internal/auth"
	"github.com/digicom/complaints/internal/models"
	"github.com/digicom/complaints/internal/services"
	"github.com/digicom/complaints/internal/workflow"
	pkghttp "github.com/digicom/complaints/pkg/http"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewMultipartRequest builds a multipart form request from field values and
// in-memory image files.
func NewMultipartRequest(t *testing.T, method, url string, fields map[string][]string, images map[string][]byte) *http.Request {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for name, values := range fields {
		for _, value := range values {
			if err := mw.WriteField(name, value); err != nil {
				t.Fatalf("failed to write form field: %v", err)
			}
		}
	}
	for filename, content := range images {
		part, err := mw.CreateFormFile("images", filename)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("failed to write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// WithActor injects an authenticated actor into the request context
func WithActor(req *http.Request, actor *models.Actor) *http.Request {
	ctx := context.WithValue(req.Context(), auth.ActorContextKey, actor)
	return req.WithContext(ctx)
}

// WithURLParam attaches a chi route parameter to the request context
func WithURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	RegisterFunc func(ctx context.Context, input services.RegisterInput) (*services.UserResponse, error)
	LoginFunc    func(ctx context.Context, email, password string) (*services.AuthResponse, error)
	MeFunc       func(ctx context.Context, userID string) (*services.UserResponse, error)
}

func (m *MockAuthService) Register(ctx context.Context, input services.RegisterInput) (*services.UserResponse, error) {
	if m.RegisterFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.RegisterFunc(ctx, input)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*services.AuthResponse, error) {
	if m.LoginFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.LoginFunc(ctx, email, password)
}

func (m *MockAuthService) Me(ctx context.Context, userID string) (*services.UserResponse, error) {
	if m.MeFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.MeFunc(ctx, userID)
}

// MockComplaintService implements ComplaintServiceInterface for testing
type MockComplaintService struct {
	CreateFunc   func(ctx context.Context, actor *models.Actor, input services.CreateComplaintInput) (*models.Complaint, error)
	GetFunc      func(ctx context.Context, actor *models.Actor, id string) (*models.Complaint, []workflow.Action, error)
	ListFunc     func(ctx context.Context, actor *models.Actor, input services.ListComplaintsInput) (*services.ComplaintPage, error)
	EditFunc     func(ctx context.Context, actor *models.Actor, id string, input services.EditComplaintInput) (*models.Complaint, error)
	GetImageFunc func(ctx context.Context, name string) (io.ReadCloser, error)
}

func (m *MockComplaintService) Create(ctx context.Context, actor *models.Actor, input services.CreateComplaintInput) (*models.Complaint, error) {
	if m.CreateFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.CreateFunc(ctx, actor, input)
}

func (m *MockComplaintService) Get(ctx context.Context, actor *models.Actor, id string) (*models.Complaint, []workflow.Action, error) {
	if m.GetFunc == nil {
		return nil, nil, models.ErrNotFound
	}
	return m.GetFunc(ctx, actor, id)
}

func (m *MockComplaintService) List(ctx context.Context, actor *models.Actor, input services.ListComplaintsInput) (*services.ComplaintPage, error) {
	if m.ListFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.ListFunc(ctx, actor, input)
}

func (m *MockComplaintService) Edit(ctx context.Context, actor *models.Actor, id string, input services.EditComplaintInput) (*models.Complaint, error) {
	if m.EditFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.EditFunc(ctx, actor, id, input)
}

func (m *MockComplaintService) GetImage(ctx context.Context, name string) (io.ReadCloser, error) {
	if m.GetImageFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetImageFunc(ctx, name)
}

// MockDashboardService implements DashboardServiceInterface for testing
type MockDashboardService struct {
	StatsFunc func(ctx context.Context) (*models.DashboardStats, error)
}

func (m *MockDashboardService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	if m.StatsFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.StatsFunc(ctx)
}
