package services

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/digicom/complaints/internal/models"
	"github.com/digicom/complaints/internal/repositories"
	"github.com/digicom/complaints/internal/storage"
	pkglogger "github.com/digicom/complaints/pkg/logger"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc    func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc func(ctx context.Context, email string) (*models.User, error)
	CreateFunc     func(ctx context.Context, user *models.User) (*models.User, error)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

// MockComplaintRepository implements ComplaintRepository for testing
type MockComplaintRepository struct {
	GetByIDFunc func(ctx context.Context, id string) (*models.Complaint, error)
	CreateFunc  func(ctx context.Context, c *models.Complaint) (*models.Complaint, error)
	UpdateFunc  func(ctx context.Context, id string, c *models.Complaint) (*models.Complaint, error)
	ListFunc    func(ctx context.Context, filter repositories.ComplaintFilter, sort repositories.ComplaintSort, limit, offset int) ([]*models.Complaint, error)
	CountFunc   func(ctx context.Context, filter repositories.ComplaintFilter) (int, error)
}

func (m *MockComplaintRepository) GetByID(ctx context.Context, id string) (*models.Complaint, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockComplaintRepository) Create(ctx context.Context, c *models.Complaint) (*models.Complaint, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, c)
	}
	return nil, models.ErrInternalServer
}

func (m *MockComplaintRepository) Update(ctx context.Context, id string, c *models.Complaint) (*models.Complaint, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, c)
	}
	return nil, models.ErrInternalServer
}

func (m *MockComplaintRepository) List(ctx context.Context, filter repositories.ComplaintFilter, sort repositories.ComplaintSort, limit, offset int) ([]*models.Complaint, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter, sort, limit, offset)
	}
	return []*models.Complaint{}, nil
}

func (m *MockComplaintRepository) Count(ctx context.Context, filter repositories.ComplaintFilter) (int, error) {
	if m.CountFunc != nil {
		return m.CountFunc(ctx, filter)
	}
	return 0, nil
}

// MockDashboardRepository implements DashboardRepository for testing
type MockDashboardRepository struct {
	CountByStatusFunc     func(ctx context.Context) (map[models.Status]int, error)
	CountCreatedSinceFunc func(ctx context.Context, cutoff time.Time) (int, error)
	RecentFunc            func(ctx context.Context, limit int) ([]models.ComplaintSummary, error)
	LongestOpenFunc       func(ctx context.Context, limit int) ([]models.ComplaintSummary, error)
	CountPerDayFunc       func(ctx context.Context, cutoff time.Time) ([]models.DayCount, error)
	TopFilersFunc         func(ctx context.Context, limit int) ([]models.FilerCount, error)
	CreationTimesFunc     func(ctx context.Context) ([]time.Time, error)
}

func (m *MockDashboardRepository) CountByStatus(ctx context.Context) (map[models.Status]int, error) {
	if m.CountByStatusFunc != nil {
		return m.CountByStatusFunc(ctx)
	}
	return map[models.Status]int{}, nil
}

func (m *MockDashboardRepository) CountCreatedSince(ctx context.Context, cutoff time.Time) (int, error) {
	if m.CountCreatedSinceFunc != nil {
		return m.CountCreatedSinceFunc(ctx, cutoff)
	}
	return 0, nil
}

func (m *MockDashboardRepository) Recent(ctx context.Context, limit int) ([]models.ComplaintSummary, error) {
	if m.RecentFunc != nil {
		return m.RecentFunc(ctx, limit)
	}
	return []models.ComplaintSummary{}, nil
}

func (m *MockDashboardRepository) LongestOpen(ctx context.Context, limit int) ([]models.ComplaintSummary, error) {
	if m.LongestOpenFunc != nil {
		return m.LongestOpenFunc(ctx, limit)
	}
	return []models.ComplaintSummary{}, nil
}

func (m *MockDashboardRepository) CountPerDay(ctx context.Context, cutoff time.Time) ([]models.DayCount, error) {
	if m.CountPerDayFunc != nil {
		return m.CountPerDayFunc(ctx, cutoff)
	}
	return []models.DayCount{}, nil
}

func (m *MockDashboardRepository) TopFilers(ctx context.Context, limit int) ([]models.FilerCount, error) {
	if m.TopFilersFunc != nil {
		return m.TopFilersFunc(ctx, limit)
	}
	return []models.FilerCount{}, nil
}

func (m *MockDashboardRepository) CreationTimes(ctx context.Context) ([]time.Time, error) {
	if m.CreationTimesFunc != nil {
		return m.CreationTimesFunc(ctx)
	}
	return []time.Time{}, nil
}

// MockFileStore implements storage.FileStore for testing. By default it
// keeps saved files in memory so tests can assert on stored content.
type MockFileStore struct {
	SaveFunc   func(ctx context.Context, ownerID, filename string, content []byte) (string, error)
	OpenFunc   func(ctx context.Context, name string) (io.ReadCloser, error)
	DeleteFunc func(ctx context.Context, name string) error
	ListFunc   func(ctx context.Context) ([]storage.StoredFile, error)

	Saved   map[string][]byte
	Deleted []string
}

func (m *MockFileStore) Save(ctx context.Context, ownerID, filename string, content []byte) (string, error) {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, ownerID, filename, content)
	}
	name := ownerID + "_" + filename
	if m.Saved == nil {
		m.Saved = make(map[string][]byte)
	}
	m.Saved[name] = content
	return name, nil
}

func (m *MockFileStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if m.OpenFunc != nil {
		return m.OpenFunc(ctx, name)
	}
	content, ok := m.Saved[name]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (m *MockFileStore) Delete(ctx context.Context, name string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, name)
	}
	m.Deleted = append(m.Deleted, name)
	delete(m.Saved, name)
	return nil
}

func (m *MockFileStore) List(ctx context.Context) ([]storage.StoredFile, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	files := make([]storage.StoredFile, 0, len(m.Saved))
	for name := range m.Saved {
		files = append(files, storage.StoredFile{Name: name})
	}
	return files, nil
}

// MockNotifier implements Notifier for testing
type MockNotifier struct {
	SendStatusUpdateFunc func(ctx context.Context, to, complaintTitle, complaintID, oldStatus, newStatus string) error

	Sent []SentNotification
}

// SentNotification records one captured notification
type SentNotification struct {
	To        string
	Title     string
	ID        string
	OldStatus string
	NewStatus string
}

func (m *MockNotifier) SendStatusUpdate(ctx context.Context, to, complaintTitle, complaintID, oldStatus, newStatus string) error {
	if m.SendStatusUpdateFunc != nil {
		return m.SendStatusUpdateFunc(ctx, to, complaintTitle, complaintID, oldStatus, newStatus)
	}
	m.Sent = append(m.Sent, SentNotification{
		To:        to,
		Title:     complaintTitle,
		ID:        complaintID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
	})
	return nil
}

// NewTestUser creates a user with sensible defaults for testing
func NewTestUser(role models.Role) *models.User {
	now := time.Now().UTC()
	return &models.User{
		ID:           uuid.New().String(),
		Email:        uuid.New().String()[:8] + "@example.com",
		PasswordHash: "$2a$12$notarealhashnotarealhashnotarealhashnotarealha",
		Name:         "Test User",
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NewTestComplaint creates a complaint with sensible defaults for testing
func NewTestComplaint(userID string, status models.Status) *models.Complaint {
	now := time.Now().UTC()
	return &models.Complaint{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       "Broken streetlight",
		Description: "The light on the corner has been out for a week",
		Status:      status,
		Images:      []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAuditLogger() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(testLogger())
}
