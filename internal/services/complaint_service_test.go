package services

import (
	"context"
	"io"
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digicom/complaints/internal/models"
	"github.com/digicom/complaints/internal/repositories"
	"github.com/digicom/complaints/internal/workflow"
)

func citizenActor(u *models.User) *models.Actor {
	return &models.Actor{ID: u.ID, Email: u.Email, Role: u.Role}
}

func newComplaintService(repo *MockComplaintRepository, users *MockUserRepository, files *MockFileStore, notifier Notifier) *ComplaintService {
	return NewComplaintService(repo, users, files, notifier, testLogger(), testAuditLogger())
}

func TestComplaintService_Create_Success(t *testing.T) {
	user := NewTestUser(models.RoleCitizen)

	mockRepo := &MockComplaintRepository{
		CreateFunc: func(ctx context.Context, c *models.Complaint) (*models.Complaint, error) {
			created := *c
			created.ID = "complaint_1"
			created.Status = models.StatusOpen
			return &created, nil
		},
	}
	files := &MockFileStore{}

	svc := newComplaintService(mockRepo, &MockUserRepository{}, files, nil)

	result, err := svc.Create(context.Background(), citizenActor(user), CreateComplaintInput{
		Title:       "  Pothole on Main St  ",
		Description: "Deep pothole near the crosswalk",
		Images: []ImageUpload{
			{Filename: "photo.jpg", Content: []byte("jpegdata")},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "complaint_1", result.ID)
	assert.Equal(t, "Pothole on Main St", result.Title)
	assert.Equal(t, models.StatusOpen, result.Status)
	assert.Len(t, result.Images, 1)
	assert.Len(t, files.Saved, 1)
}

func TestComplaintService_Create_AdminForbidden(t *testing.T) {
	admin := NewTestUser(models.RoleAdmin)

	svc := newComplaintService(&MockComplaintRepository{}, &MockUserRepository{}, &MockFileStore{}, nil)

	result, err := svc.Create(context.Background(), citizenActor(admin), CreateComplaintInput{
		Title:       "Test",
		Description: "Test",
	})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestComplaintService_Create_InvalidStatus(t *testing.T) {
	user := NewTestUser(models.RoleCitizen)

	svc := newComplaintService(&MockComplaintRepository{}, &MockUserRepository{}, &MockFileStore{}, nil)

	_, err := svc.Create(context.Background(), citizenActor(user), CreateComplaintInput{
		Title:       "Test",
		Description: "Test",
		Status:      "PENDING",
	})

	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestComplaintService_Create_InvalidUploadRejected(t *testing.T) {
	user := NewTestUser(models.RoleCitizen)

	files := &MockFileStore{
		SaveFunc: func(ctx context.Context, ownerID, filename string, content []byte) (string, error) {
			return "", models.ErrInvalidUpload
		},
	}

	svc := newComplaintService(&MockComplaintRepository{}, &MockUserRepository{}, files, nil)

	_, err := svc.Create(context.Background(), citizenActor(user), CreateComplaintInput{
		Title:       "Test",
		Description: "Test",
		Images:      []ImageUpload{{Filename: "malware.exe", Content: []byte("x")}},
	})

	assert.ErrorIs(t, err, models.ErrInvalidUpload)
}

func TestComplaintService_Get_OwnerSeesAllowedActions(t *testing.T) {
	user := NewTestUser(models.RoleCitizen)
	complaint := NewTestComplaint(user.ID, models.StatusOpen)

	mockRepo := &MockComplaintRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Complaint, error) {
			return complaint, nil
		},
	}

	svc := newComplaintService(mockRepo, &MockUserRepository{}, &MockFileStore{}, nil)

	result, actions, err := svc.Get(context.Background(), citizenActor(user), complaint.ID)

	require.NoError(t, err)
	assert.Equal(t, complaint.ID, result.ID)
	assert.Equal(t, []workflow.Action{workflow.ActionClose}, actions)
}

func TestComplaintService_Get_AdminSeesAnyComplaint(t *testing.T) {
	owner := NewTestUser(models.RoleCitizen)
	admin := NewTestUser(models.RoleAdmin)
	complaint := NewTestComplaint(owner.ID, models.StatusOpen)

	mockRepo := &MockComplaintRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Complaint, error) {
			return complaint, nil
		},
	}

	svc := newComplaintService(mockRepo, &MockUserRepository{}, &MockFileStore{}, nil)

	_, actions, err := svc.Get(context.Background(), citizenActor(admin), complaint.ID)

	require.NoError(t, err)
	assert.Equal(t, []workflow.Action{workflow.ActionStart, workflow.ActionReject}, actions)
}

func TestComplaintService_Get_OtherCitizenForbidden(t *testing.T) {
	owner := NewTestUser(models.RoleCitizen)
	other := NewTestUser(models.RoleCitizen)
	complaint := NewTestComplaint(owner.ID, models.StatusOpen)

	mockRepo := &MockComplaintRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Complaint, error) {
			return complaint, nil
		},
	}

	svc := newComplaintService(mockRepo, &MockUserRepository{}, &MockFileStore{}, nil)

	result, actions, err := svc.Get(context.Background(), citizenActor(other), complaint.ID)

	assert.Nil(t, result)
	assert.Nil(t, actions)
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestComplaintService_Get_NotFound(t *testing.T) {
	user := NewTestUser(models.RoleCitizen)

	svc := newComplaintService(&MockComplaintRepository{}, &MockUserRepository{}, &MockFileStore{}, nil)

	_, _, err := svc.Get(context.Background(), citizenActor(user), "missing")

	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestComplaintService_List_CitizenScopedToOwn(t *testing.T) {
	user := NewTestUser(models.RoleCitizen)

	var gotFilter repositories.ComplaintFilter
	mockRepo := &MockComplaintRepository{
		CountFunc: func(ctx context.Context, filter repositories.ComplaintFilter) (int, error) {
			return 1, nil
		},
		ListFunc: func(ctx context.Context, filter repositories.ComplaintFilter, sort repositories.ComplaintSort, limit, offset int) ([]*models.Complaint, error) {
			gotFilter = filter
			return []*models.Complaint{NewTestComplaint(user.ID, models.StatusOpen)}, nil
		},
	}

	svc := newComplaintService(mockRepo, &MockUserRepository{}, &MockFileStore{}, nil)

	page, err := svc.List(context.Background(), citizenActor(user), ListComplaintsInput{})

	require.NoError(t, err)
	assert.Equal(t, user.ID, gotFilter.UserID)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.Limit)
	assert.Equal(t, 1, page.TotalCount)
	assert.Equal(t, 1, page.TotalPages)
	assert.False(t, page.HasNext)
	assert.False(t, page.HasPrev)
}

func TestComplaintService_List_PaginationEnvelope(t *testing.T) {
	admin := NewTestUser(models.RoleAdmin)

	var gotLimit, gotOffset int
	mockRepo := &MockComplaintRepository{
		CountFunc: func(ctx context.Context, filter repositories.ComplaintFilter) (int, error) {
			return 45, nil
		},
		ListFunc: func(ctx context.Context, filter repositories.ComplaintFilter, sort repositories.ComplaintSort, limit, offset int) ([]*models.Complaint, error) {
			gotLimit, gotOffset = limit, offset
			return []*models.Complaint{}, nil
		},
	}

	svc := newComplaintService(mockRepo, &MockUserRepository{}, &MockFileStore{}, nil)

	page, err := svc.List(context.Background(), citizenActor(admin), ListComplaintsInput{Page: 3, Limit: 10})

	require.NoError(t, err)
	assert.Equal(t, 10, gotLimit)
	assert.Equal(t, 20, gotOffset)
	assert.Equal(t, 5, page.TotalPages)
	assert.True(t, page.HasNext)
	assert.True(t, page.HasPrev)
}

func TestComplaintService_List_InvalidStatusFilter(t *testing.T) {
	user := NewTestUser(models.RoleCitizen)

	svc := newComplaintService(&MockComplaintRepository{}, &MockUserRepository{}, &MockFileStore{}, nil)

	_, err := svc.List(context.Background(), citizenActor(user), ListComplaintsInput{Status: "WEIRD"})

	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestComplaintService_List_SortParsing(t *testing.T) {
	admin := NewTestUser(models.RoleAdmin)

	var gotSort repositories.ComplaintSort
	mockRepo := &MockComplaintRepository{
		ListFunc: func(ctx context.Context, filter repositories.ComplaintFilter, sort repositories.ComplaintSort, limit, offset int) ([]*models.Complaint, error) {
			gotSort = sort
			return []*models.Complaint{}, nil
		},
	}

	svc := newComplaintService(mockRepo, &MockUserRepository{}, &MockFileStore{}, nil)

	_, err := svc.List(context.Background(), citizenActor(admin), ListComplaintsInput{SortBy: "-createdAt"})
	require.NoError(t, err)
	assert.Equal(t, "createdAt", gotSort.Field)
	assert.True(t, gotSort.Desc)

	_, err = svc.List(context.Background(), citizenActor(admin), ListComplaintsInput{SortBy: "status"})
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestComplaintService_Edit_FieldsOnly(t *testing.T) {
	user := NewTestUser(models.RoleCitizen)
	complaint := NewTestComplaint(user.ID, models.StatusOpen)

	mockRepo := &MockComplaintRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Complaint, error) {
			return complaint, nil
		},
		UpdateFunc: func(ctx context.Context, id string, c *models.Complaint) (*models.Complaint, error) {
			return c, nil
		},
	}

	svc := newComplaintService(mockRepo, &MockUserRepository{}, &MockFileStore{}, nil)

	title := "Updated title"
	result, err := svc.Edit(context.Background(), citizenActor(user), complaint.ID, EditComplaintInput{Title: &title})

	require.NoError(t, err)
	assert.Equal(t, "Updated title", result.Title)
	assert.Equal(t, models.StatusOpen, result.Status)
}

func TestComplaintService_Edit_OwnershipCheckedBeforeChanges(t *testing.T) {
	owner := NewTestUser(models.RoleCitizen)
	other := NewTestUser(models.RoleCitizen)
	complaint := NewTestComplaint(owner.ID, models.StatusOpen)

	updated := false
	mockRepo := &MockComplaintRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Complaint, error) {
			return complaint, nil
		},
		UpdateFunc: func(ctx context.Context, id string, c *models.Complaint) (*models.Complaint, error) {
			updated = true
			return c, nil
		},
	}
	files := &MockFileStore{}

	svc := newComplaintService(mockRepo, &MockUserRepository{}, files, nil)

	_, err := svc.Edit(context.Background(), citizenActor(other), complaint.ID, EditComplaintInput{
		NewImages: []ImageUpload{{Filename: "a.jpg", Content: []byte("x")}},
	})

	assert.ErrorIs(t, err, models.ErrForbidden)
	assert.False(t, updated)
	assert.Empty(t, files.Saved)
}

func TestComplaintService_Edit_ValidTransition(t *testing.T) {
	owner := NewTestUser(models.RoleCitizen)
	admin := NewTestUser(models.RoleAdmin)
	complaint := NewTestComplaint(owner.ID, models.StatusOpen)

	mockRepo := &MockComplaintRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Complaint, error) {
			return complaint, nil
		},
		UpdateFunc: func(ctx context.Context, id string, c *models.Complaint) (*models.Complaint, error) {
			return c, nil
		},
	}

	svc := newComplaintService(mockRepo, &MockUserRepository{}, &MockFileStore{}, nil)

	result, err := svc.Edit(context.Background(), citizenActor(admin), complaint.ID, EditComplaintInput{
		Action: workflow.ActionStart,
	})

	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, result.Status)
}

func TestComplaintService_Edit_InvalidTransitionKeepsImageChanges(t *testing.T) {
	user := NewTestUser(models.RoleCitizen)
	complaint := NewTestComplaint(user.ID, models.StatusOpen)

	var persisted *models.Complaint
	mockRepo := &MockComplaintRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Complaint, error) {
			return complaint, nil
		},
		UpdateFunc: func(ctx context.Context, id string, c *models.Complaint) (*models.Complaint, error) {
			persisted = c
			return c, nil
		},
	}
	files := &MockFileStore{}

	svc := newComplaintService(mockRepo, &MockUserRepository{}, files, nil)

	// RESOLVE is not legal from OPEN; the image must still be persisted.
	_, err := svc.Edit(context.Background(), citizenActor(user), complaint.ID, EditComplaintInput{
		Action:    workflow.ActionResolve,
		NewImages: []ImageUpload{{Filename: "evidence.png", Content: []byte("png")}},
	})

	assert.ErrorIs(t, err, models.ErrInvalidTransition)
	require.NotNil(t, persisted)
	assert.Len(t, persisted.Images, 1)
	assert.Equal(t, models.StatusOpen, persisted.Status)
}

func TestComplaintService_Edit_ForbiddenActionForRole(t *testing.T) {
	user := NewTestUser(models.RoleCitizen)
	complaint := NewTestComplaint(user.ID, models.StatusOpen)

	mockRepo := &MockComplaintRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Complaint, error) {
			return complaint, nil
		},
		UpdateFunc: func(ctx context.Context, id string, c *models.Complaint) (*models.Complaint, error) {
			return c, nil
		},
	}

	svc := newComplaintService(mockRepo, &MockUserRepository{}, &MockFileStore{}, nil)

	// START from OPEN is admin-only.
	_, err := svc.Edit(context.Background(), citizenActor(user), complaint.ID, EditComplaintInput{
		Action: workflow.ActionStart,
	})

	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestComplaintService_Edit_RemoveImages(t *testing.T) {
	user := NewTestUser(models.RoleCitizen)
	complaint := NewTestComplaint(user.ID, models.StatusOpen)
	complaint.Images = []string{"img_a.jpg", "img_b.jpg"}

	var persisted *models.Complaint
	mockRepo := &MockComplaintRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Complaint, error) {
			return complaint, nil
		},
		UpdateFunc: func(ctx context.Context, id string, c *models.Complaint) (*models.Complaint, error) {
			persisted = c
			return c, nil
		},
	}
	files := &MockFileStore{}

	svc := newComplaintService(mockRepo, &MockUserRepository{}, files, nil)

	_, err := svc.Edit(context.Background(), citizenActor(user), complaint.ID, EditComplaintInput{
		RemoveImages: []string{"img_a.jpg", "not_attached.jpg"},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"img_b.jpg"}, persisted.Images)
	assert.Equal(t, []string{"img_a.jpg"}, files.Deleted)
}

func TestComplaintService_Edit_AdminTransitionNotifiesOwner(t *testing.T) {
	owner := NewTestUser(models.RoleCitizen)
	admin := NewTestUser(models.RoleAdmin)
	complaint := NewTestComplaint(owner.ID, models.StatusOpen)

	mockRepo := &MockComplaintRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Complaint, error) {
			return complaint, nil
		},
		UpdateFunc: func(ctx context.Context, id string, c *models.Complaint) (*models.Complaint, error) {
			return c, nil
		},
	}
	users := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return owner, nil
		},
	}

	sent := make(chan SentNotification, 1)
	notifier := &MockNotifier{
		SendStatusUpdateFunc: func(ctx context.Context, to, complaintTitle, complaintID, oldStatus, newStatus string) error {
			sent <- SentNotification{To: to, Title: complaintTitle, ID: complaintID, OldStatus: oldStatus, NewStatus: newStatus}
			return nil
		},
	}

	svc := newComplaintService(mockRepo, users, &MockFileStore{}, notifier)

	_, err := svc.Edit(context.Background(), citizenActor(admin), complaint.ID, EditComplaintInput{
		Action: workflow.ActionStart,
	})
	require.NoError(t, err)

	select {
	case n := <-sent:
		assert.Equal(t, owner.Email, n.To)
		assert.Equal(t, string(models.StatusOpen), n.OldStatus)
		assert.Equal(t, string(models.StatusInProgress), n.NewStatus)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a status update notification")
	}
}

func TestComplaintService_Edit_CitizenTransitionDoesNotNotify(t *testing.T) {
	owner := NewTestUser(models.RoleCitizen)
	complaint := NewTestComplaint(owner.ID, models.StatusOpen)

	mockRepo := &MockComplaintRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Complaint, error) {
			return complaint, nil
		},
		UpdateFunc: func(ctx context.Context, id string, c *models.Complaint) (*models.Complaint, error) {
			return c, nil
		},
	}

	called := make(chan struct{}, 1)
	notifier := &MockNotifier{
		SendStatusUpdateFunc: func(ctx context.Context, to, complaintTitle, complaintID, oldStatus, newStatus string) error {
			called <- struct{}{}
			return nil
		},
	}

	svc := newComplaintService(mockRepo, &MockUserRepository{}, &MockFileStore{}, notifier)

	_, err := svc.Edit(context.Background(), citizenActor(owner), complaint.ID, EditComplaintInput{
		Action: workflow.ActionClose,
	})
	require.NoError(t, err)

	select {
	case <-called:
		t.Fatal("citizen transitions must not send notifications")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestComplaintService_GetImage_Success(t *testing.T) {
	files := &MockFileStore{Saved: map[string][]byte{"img.jpg": []byte("jpegdata")}}

	svc := newComplaintService(&MockComplaintRepository{}, &MockUserRepository{}, files, nil)

	rc, err := svc.GetImage(context.Background(), "img.jpg")
	require.NoError(t, err)
	defer rc.Close()

	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpegdata"), content)
}

func TestComplaintService_GetImage_NotFound(t *testing.T) {
	files := &MockFileStore{
		OpenFunc: func(ctx context.Context, name string) (io.ReadCloser, error) {
			return nil, fs.ErrNotExist
		},
	}

	svc := newComplaintService(&MockComplaintRepository{}, &MockUserRepository{}, files, nil)

	_, err := svc.GetImage(context.Background(), "missing.jpg")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

// TestComplaintService_Lifecycle drives one complaint through the full
// workflow: filed, started and resolved by an admin, then closed by the
// citizen with no further actions available.
func TestComplaintService_Lifecycle(t *testing.T) {
	owner := NewTestUser(models.RoleCitizen)
	admin := NewTestUser(models.RoleAdmin)

	var stored *models.Complaint
	mockRepo := &MockComplaintRepository{
		CreateFunc: func(ctx context.Context, c *models.Complaint) (*models.Complaint, error) {
			created := *c
			created.ID = "lifecycle_1"
			stored = &created
			return &created, nil
		},
		GetByIDFunc: func(ctx context.Context, id string) (*models.Complaint, error) {
			if stored == nil || stored.ID != id {
				return nil, models.ErrNotFound
			}
			copied := *stored
			return &copied, nil
		},
		UpdateFunc: func(ctx context.Context, id string, c *models.Complaint) (*models.Complaint, error) {
			copied := *c
			stored = &copied
			return c, nil
		},
	}
	users := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return owner, nil
		},
	}

	sent := make(chan SentNotification, 4)
	notifier := &MockNotifier{
		SendStatusUpdateFunc: func(ctx context.Context, to, complaintTitle, complaintID, oldStatus, newStatus string) error {
			sent <- SentNotification{To: to, OldStatus: oldStatus, NewStatus: newStatus}
			return nil
		},
	}

	svc := newComplaintService(mockRepo, users, &MockFileStore{}, notifier)
	ctx := context.Background()

	created, err := svc.Create(ctx, citizenActor(owner), CreateComplaintInput{
		Title:       "Noise complaint",
		Description: "Construction before permitted hours",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, created.Status)

	// Admin starts work.
	updated, err := svc.Edit(ctx, citizenActor(admin), created.ID, EditComplaintInput{Action: workflow.ActionStart})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, updated.Status)
	waitForNotification(t, sent, models.StatusOpen, models.StatusInProgress)

	// Admin resolves.
	updated, err = svc.Edit(ctx, citizenActor(admin), created.ID, EditComplaintInput{Action: workflow.ActionResolve})
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, updated.Status)
	waitForNotification(t, sent, models.StatusInProgress, models.StatusResolved)

	// Citizen closes.
	updated, err = svc.Edit(ctx, citizenActor(owner), created.ID, EditComplaintInput{Action: workflow.ActionClose})
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, updated.Status)

	// Nothing left to do from CLOSED.
	_, actions, err := svc.Get(ctx, citizenActor(owner), created.ID)
	require.NoError(t, err)
	assert.Empty(t, actions)

	_, err = svc.Edit(ctx, citizenActor(admin), created.ID, EditComplaintInput{Action: workflow.ActionReopen})
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func waitForNotification(t *testing.T, sent chan SentNotification, oldStatus, newStatus models.Status) {
	t.Helper()
	select {
	case n := <-sent:
		assert.Equal(t, string(oldStatus), n.OldStatus)
		assert.Equal(t, string(newStatus), n.NewStatus)
	case <-time.After(2 * time.Second):
		t.Fatalf("expected notification %s -> %s", oldStatus, newStatus)
	}
}
