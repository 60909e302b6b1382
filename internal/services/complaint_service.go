package services

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/digicom/complaints/internal/models"
	"github.com/digicom/complaints/internal/repositories"
	"github.com/digicom/complaints/internal/storage"
	"github.com/digicom/complaints/internal/workflow"
	pkglogger "github.com/digicom/complaints/pkg/logger"
)

// ComplaintRepository defines the interface for complaint data access
type ComplaintRepository interface {
	GetByID(ctx context.Context, id string) (*models.Complaint, error)
	Create(ctx context.Context, c *models.Complaint) (*models.Complaint, error)
	Update(ctx context.Context, id string, c *models.Complaint) (*models.Complaint, error)
	List(ctx context.Context, filter repositories.ComplaintFilter, sort repositories.ComplaintSort, limit, offset int) ([]*models.Complaint, error)
	Count(ctx context.Context, filter repositories.ComplaintFilter) (int, error)
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
}

// ImageUpload is one file received from a multipart request
type ImageUpload struct {
	Filename string
	Content  []byte
}

// CreateComplaintInput carries the fields for filing a new complaint
type CreateComplaintInput struct {
	Title       string
	Description string
	Status      models.Status // optional; defaults to OPEN
	Images      []ImageUpload
}

// EditComplaintInput carries the optional mutations of an edit request.
// Nil pointers mean "leave unchanged"; an empty Action means no transition.
type EditComplaintInput struct {
	Title        *string
	Description  *string
	Action       workflow.Action
	RemoveImages []string
	NewImages    []ImageUpload
}

// ListComplaintsInput carries pagination, filtering and sorting parameters
type ListComplaintsInput struct {
	Page   int
	Limit  int
	Status models.Status // optional filter
	SortBy string        // e.g. "createdAt", "-updatedAt"; default "updatedAt"
}

// ComplaintPage is one page of complaints plus the pagination envelope
type ComplaintPage struct {
	Complaints []*models.Complaint
	Page       int
	Limit      int
	TotalCount int
	TotalPages int
	HasNext    bool
	HasPrev    bool
}

// ComplaintService handles complaint business logic: filing, listing, edits
// and the status workflow with its notification side effect.
type ComplaintService struct {
	repo     ComplaintRepository
	users    UserRepository
	files    storage.FileStore
	notifier Notifier // nil disables notifications
	logger   *slog.Logger
	audit    *pkglogger.AuditLogger
}

// NewComplaintService creates a new ComplaintService
func NewComplaintService(repo ComplaintRepository, users UserRepository, files storage.FileStore, notifier Notifier, logger *slog.Logger, audit *pkglogger.AuditLogger) *ComplaintService {
	return &ComplaintService{
		repo:     repo,
		users:    users,
		files:    files,
		notifier: notifier,
		logger:   logger,
		audit:    audit,
	}
}

// Create files a new complaint for a citizen. Administrators may not create
// complaints. Images are stored before the record is inserted; the insert
// happens only if every upload succeeded.
func (s *ComplaintService) Create(ctx context.Context, actor *models.Actor, input CreateComplaintInput) (*models.Complaint, error) {
	if actor.Role == models.RoleAdmin {
		return nil, models.ErrForbidden
	}

	status := input.Status
	if status == "" {
		status = models.StatusOpen
	}
	if !models.ValidStatus(status) {
		return nil, models.ErrBadRequest
	}

	imageNames, err := s.saveImages(ctx, actor.ID, input.Images)
	if err != nil {
		return nil, err
	}

	complaint := &models.Complaint{
		UserID:      actor.ID,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Status:      status,
		Images:      imageNames,
	}

	created, err := s.repo.Create(ctx, complaint)
	if err != nil {
		s.logger.Error("failed to create complaint", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("complaint created",
		slog.String("complaint_id", created.ID),
		slog.String("user_id", actor.ID),
		slog.Int("images", len(created.Images)))

	return created, nil
}

// Get returns a complaint plus the actions the actor may currently take on
// it. Citizens may only view their own complaints.
func (s *ComplaintService) Get(ctx context.Context, actor *models.Actor, id string) (*models.Complaint, []workflow.Action, error) {
	complaint, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil, models.ErrNotFound
		}
		s.logger.Error("failed to get complaint", slog.String("complaint_id", id), slog.Any("error", err))
		return nil, nil, models.ErrInternalServer
	}

	if actor.Role == models.RoleCitizen && complaint.UserID != actor.ID {
		return nil, nil, models.ErrForbidden
	}

	return complaint, workflow.AllowedActions(complaint.Status, actor.Role), nil
}

// List returns a page of complaints. Citizens always see only their own.
func (s *ComplaintService) List(ctx context.Context, actor *models.Actor, input ListComplaintsInput) (*ComplaintPage, error) {
	if input.Page < 1 {
		input.Page = 1
	}
	if input.Limit < 1 || input.Limit > 100 {
		input.Limit = 10
	}
	if input.Status != "" && !models.ValidStatus(input.Status) {
		return nil, models.ErrBadRequest
	}

	filter := repositories.ComplaintFilter{Status: input.Status}
	if actor.Role == models.RoleCitizen {
		filter.UserID = actor.ID
	}

	sort, err := parseSort(input.SortBy)
	if err != nil {
		return nil, models.ErrBadRequest
	}

	totalCount, err := s.repo.Count(ctx, filter)
	if err != nil {
		s.logger.Error("failed to count complaints", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	offset := (input.Page - 1) * input.Limit
	complaints, err := s.repo.List(ctx, filter, sort, input.Limit, offset)
	if err != nil {
		s.logger.Error("failed to list complaints", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	totalPages := (totalCount + input.Limit - 1) / input.Limit

	return &ComplaintPage{
		Complaints: complaints,
		Page:       input.Page,
		Limit:      input.Limit,
		TotalCount: totalCount,
		TotalPages: totalPages,
		HasNext:    input.Page < totalPages,
		HasPrev:    input.Page > 1,
	}, nil
}

// parseSort turns an API sort key ("title", "-createdAt", ...) into a
// repository sort. Empty input sorts by updatedAt ascending.
func parseSort(sortBy string) (repositories.ComplaintSort, error) {
	sort := repositories.ComplaintSort{Field: "updatedAt"}
	if sortBy == "" {
		return sort, nil
	}

	if strings.HasPrefix(sortBy, "-") {
		sort.Desc = true
		sortBy = sortBy[1:]
	}
	sort.Field = sortBy

	if _, err := sort.OrderBy(); err != nil {
		return repositories.ComplaintSort{}, err
	}
	return sort, nil
}

// Edit applies field, image and status mutations to a complaint.
//
// Only the complaint owner (citizen) or an administrator may edit. Image
// mutations are applied before the transition is validated; if the action
// turns out to be illegal, the already-applied image and field changes are
// persisted anyway and only the status stays unchanged. The transition
// error is still returned to the caller.
func (s *ComplaintService) Edit(ctx context.Context, actor *models.Actor, id string, input EditComplaintInput) (*models.Complaint, error) {
	complaint, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get complaint", slog.String("complaint_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if actor.Role == models.RoleCitizen && complaint.UserID != actor.ID {
		return nil, models.ErrForbidden
	}

	oldStatus := complaint.Status

	// Image removals: drop from the list and delete the stored file.
	// File deletion is best-effort; the sweeper catches leftovers.
	for _, name := range input.RemoveImages {
		if !removeImage(complaint, name) {
			continue
		}
		if err := s.files.Delete(ctx, name); err != nil {
			s.logger.Warn("failed to delete complaint image",
				slog.String("complaint_id", id),
				slog.String("image", name),
				slog.Any("error", err))
		}
	}

	newNames, err := s.saveImages(ctx, complaint.UserID, input.NewImages)
	if err != nil {
		return nil, err
	}
	complaint.Images = append(complaint.Images, newNames...)

	if input.Title != nil {
		complaint.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		complaint.Description = strings.TrimSpace(*input.Description)
	}

	var transitionErr error
	if input.Action != "" {
		newStatus, err := workflow.ValidateAction(input.Action, complaint.Status, actor.Role)
		if err != nil {
			transitionErr = err
		} else {
			complaint.Status = newStatus
		}
	}

	updated, err := s.repo.Update(ctx, id, complaint)
	if err != nil {
		s.logger.Error("failed to update complaint", slog.String("complaint_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if transitionErr != nil {
		return nil, transitionErr
	}

	if updated.Status != oldStatus {
		s.audit.LogStatusTransition(actor.ID, updated.ID, string(input.Action), string(oldStatus), string(updated.Status))

		if actor.Role == models.RoleAdmin {
			s.dispatchNotification(updated, oldStatus)
		}
	}

	return updated, nil
}

// GetImage streams a stored complaint image by file name.
func (s *ComplaintService) GetImage(ctx context.Context, name string) (io.ReadCloser, error) {
	rc, err := s.files.Open(ctx, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to open complaint image", slog.String("image", name), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return rc, nil
}

func (s *ComplaintService) saveImages(ctx context.Context, ownerID string, uploads []ImageUpload) ([]string, error) {
	names := make([]string, 0, len(uploads))
	for _, upload := range uploads {
		if upload.Filename == "" {
			continue
		}
		name, err := s.files.Save(ctx, ownerID, upload.Filename, upload.Content)
		if err != nil {
			if errors.Is(err, models.ErrInvalidUpload) {
				return nil, err
			}
			s.logger.Error("failed to store complaint image", slog.String("filename", upload.Filename), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		names = append(names, name)
	}
	return names, nil
}

func removeImage(c *models.Complaint, name string) bool {
	for i, img := range c.Images {
		if img == name {
			c.Images = append(c.Images[:i], c.Images[i+1:]...)
			return true
		}
	}
	return false
}

// dispatchNotification emails the owner about an admin-initiated status
// change. It is fire-and-forget: the edit has already been persisted and a
// delivery failure must not affect the caller.
func (s *ComplaintService) dispatchNotification(c *models.Complaint, oldStatus models.Status) {
	if s.notifier == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		owner, err := s.users.GetByID(ctx, c.UserID)
		if err != nil {
			s.logger.Warn("notification skipped: owner lookup failed",
				slog.String("complaint_id", c.ID),
				slog.Any("error", err))
			return
		}

		if err := s.notifier.SendStatusUpdate(ctx, owner.Email, c.Title, c.ID, string(oldStatus), string(c.Status)); err != nil {
			s.logger.Warn("status update notification failed",
				slog.String("complaint_id", c.ID),
				slog.Any("error", err))
		}
	}()
}
