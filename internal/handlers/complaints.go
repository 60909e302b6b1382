package handlers

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/digicom/complaints/internal/auth"
	"github.com/digicom/complaints/internal/models"
	"github.com/digicom/complaints/internal/services"
	"github.com/digicom/complaints/internal/workflow"
	pkghttp "github.com/digicom/complaints/pkg/http"
)

// ComplaintServiceInterface defines the interface for complaint business logic
type ComplaintServiceInterface interface {
	Create(ctx context.Context, actor *models.Actor, input services.CreateComplaintInput) (*models.Complaint, error)
	Get(ctx context.Context, actor *models.Actor, id string) (*models.Complaint, []workflow.Action, error)
	List(ctx context.Context, actor *models.Actor, input services.ListComplaintsInput) (*services.ComplaintPage, error)
	Edit(ctx context.Context, actor *models.Actor, id string, input services.EditComplaintInput) (*models.Complaint, error)
	GetImage(ctx context.Context, name string) (io.ReadCloser, error)
}

// ComplaintHandler handles complaint-related HTTP requests
type ComplaintHandler struct {
	service       ComplaintServiceInterface
	maxUploadSize int64
}

// NewComplaintHandler creates a new ComplaintHandler
func NewComplaintHandler(service ComplaintServiceInterface, maxUploadSize int64) *ComplaintHandler {
	return &ComplaintHandler{
		service:       service,
		maxUploadSize: maxUploadSize,
	}
}

const timeFormat = time.RFC3339

// ComplaintResponse represents a complaint in the HTTP response
type ComplaintResponse struct {
	ID             string   `json:"id"`
	UserID         string   `json:"user_id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Status         string   `json:"status"`
	Images         []string `json:"images"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
	AllowedActions []string `json:"allowed_actions,omitempty"`
}

// ComplaintListResponse is the pagination envelope for complaint listings
type ComplaintListResponse struct {
	Complaints []*ComplaintResponse `json:"complaints"`
	Page       int                  `json:"page"`
	Limit      int                  `json:"limit"`
	TotalCount int                  `json:"total_count"`
	TotalPages int                  `json:"total_pages"`
	HasNext    bool                 `json:"has_next"`
	HasPrev    bool                 `json:"has_prev"`
}

// Create handles filing a new complaint via multipart form
func (h *ComplaintHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetActorFromContext(r)
	if actor == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	input, ok := h.parseCreateForm(w, r)
	if !ok {
		return
	}

	if input.Title == "" || input.Description == "" {
		pkghttp.WriteBadRequest(w, "Title and description are required")
		return
	}

	complaint, err := h.service.Create(r.Context(), actor, *input)
	if err != nil {
		writeComplaintError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, toComplaintResponse(complaint, nil))
}

// Get returns one complaint with the actions available to the caller
func (h *ComplaintHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetActorFromContext(r)
	if actor == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	id := chi.URLParam(r, "id")
	complaint, actions, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		writeComplaintError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, toComplaintResponse(complaint, actions))
}

// List returns a page of complaints
func (h *ComplaintHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetActorFromContext(r)
	if actor == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	query := r.URL.Query()
	input := services.ListComplaintsInput{
		Status: models.Status(query.Get("status")),
		SortBy: query.Get("sort_by"),
	}
	if page := query.Get("page"); page != "" {
		n, err := strconv.Atoi(page)
		if err != nil {
			pkghttp.WriteBadRequest(w, "Invalid page parameter")
			return
		}
		input.Page = n
	}
	if limit := query.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			pkghttp.WriteBadRequest(w, "Invalid limit parameter")
			return
		}
		input.Limit = n
	}

	page, err := h.service.List(r.Context(), actor, input)
	if err != nil {
		writeComplaintError(w, err)
		return
	}

	resp := &ComplaintListResponse{
		Complaints: make([]*ComplaintResponse, 0, len(page.Complaints)),
		Page:       page.Page,
		Limit:      page.Limit,
		TotalCount: page.TotalCount,
		TotalPages: page.TotalPages,
		HasNext:    page.HasNext,
		HasPrev:    page.HasPrev,
	}
	for _, c := range page.Complaints {
		resp.Complaints = append(resp.Complaints, toComplaintResponse(c, nil))
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// Update handles edits: field changes, image add/remove and workflow actions
func (h *ComplaintHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetActorFromContext(r)
	if actor == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	id := chi.URLParam(r, "id")
	input, ok := h.parseEditForm(w, r)
	if !ok {
		return
	}

	complaint, err := h.service.Edit(r.Context(), actor, id, *input)
	if err != nil {
		writeComplaintError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, toComplaintResponse(complaint, nil))
}

// GetImage streams a stored complaint image
func (h *ComplaintHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if filename == "" {
		pkghttp.WriteBadRequest(w, "Missing filename")
		return
	}

	rc, err := h.service.GetImage(r.Context(), filename)
	if err != nil {
		writeComplaintError(w, err)
		return
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	io.Copy(w, rc)
}

func (h *ComplaintHandler) parseCreateForm(w http.ResponseWriter, r *http.Request) (*services.CreateComplaintInput, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize*4)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid multipart form")
		return nil, false
	}

	input := &services.CreateComplaintInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Status:      models.Status(r.FormValue("status")),
	}

	images, ok := h.readUploads(w, r)
	if !ok {
		return nil, false
	}
	input.Images = images

	return input, true
}

func (h *ComplaintHandler) parseEditForm(w http.ResponseWriter, r *http.Request) (*services.EditComplaintInput, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize*4)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid multipart form")
		return nil, false
	}

	input := &services.EditComplaintInput{
		Action: workflow.Action(r.FormValue("action")),
	}
	if values, ok := r.MultipartForm.Value["title"]; ok && len(values) > 0 {
		input.Title = &values[0]
	}
	if values, ok := r.MultipartForm.Value["description"]; ok && len(values) > 0 {
		input.Description = &values[0]
	}
	input.RemoveImages = r.MultipartForm.Value["remove_images"]

	images, ok := h.readUploads(w, r)
	if !ok {
		return nil, false
	}
	input.NewImages = images

	return input, true
}

func (h *ComplaintHandler) readUploads(w http.ResponseWriter, r *http.Request) ([]services.ImageUpload, bool) {
	if r.MultipartForm == nil {
		return nil, true
	}

	var uploads []services.ImageUpload
	for _, header := range r.MultipartForm.File["images"] {
		if header.Size > h.maxUploadSize {
			pkghttp.WriteBadRequest(w, "Image exceeds the maximum allowed size")
			return nil, false
		}
		content, ok := readUpload(w, header)
		if !ok {
			return nil, false
		}
		uploads = append(uploads, services.ImageUpload{
			Filename: header.Filename,
			Content:  content,
		})
	}
	return uploads, true
}

func readUpload(w http.ResponseWriter, header *multipart.FileHeader) ([]byte, bool) {
	file, err := header.Open()
	if err != nil {
		pkghttp.WriteBadRequest(w, "Unreadable upload")
		return nil, false
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		pkghttp.WriteBadRequest(w, "Unreadable upload")
		return nil, false
	}
	return content, true
}

func toComplaintResponse(c *models.Complaint, actions []workflow.Action) *ComplaintResponse {
	resp := &ComplaintResponse{
		ID:          c.ID,
		UserID:      c.UserID,
		Title:       c.Title,
		Description: c.Description,
		Status:      string(c.Status),
		Images:      c.Images,
		CreatedAt:   c.CreatedAt.Format(timeFormat),
		UpdatedAt:   c.UpdatedAt.Format(timeFormat),
	}
	if actions != nil {
		resp.AllowedActions = make([]string, 0, len(actions))
		for _, a := range actions {
			resp.AllowedActions = append(resp.AllowedActions, string(a))
		}
	}
	return resp
}

// writeComplaintError maps service errors onto HTTP status codes
func writeComplaintError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Complaint not found")
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, "You do not have permission to perform this action")
	case errors.Is(err, models.ErrUnknownAction):
		pkghttp.WriteBadRequest(w, "Unknown action")
	case errors.Is(err, models.ErrInvalidTransition):
		pkghttp.WriteBadRequest(w, "Action not valid for the current status")
	case errors.Is(err, models.ErrInvalidUpload):
		pkghttp.WriteBadRequest(w, "Unsupported or oversized image upload")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Invalid request")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "Conflicting change")
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Authentication required")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
