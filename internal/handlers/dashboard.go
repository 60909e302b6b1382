package handlers

import (
	"context"
	"net/http"

	"github.com/digicom/complaints/internal/models"
	pkghttp "github.com/digicom/complaints/pkg/http"
)

// DashboardServiceInterface defines the interface for dashboard aggregation
type DashboardServiceInterface interface {
	Stats(ctx context.Context) (*models.DashboardStats, error)
}

// DashboardHandler serves the admin dashboard statistics
type DashboardHandler struct {
	service DashboardServiceInterface
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(service DashboardServiceInterface) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// DashboardResponse represents the dashboard statistics payload
type DashboardResponse struct {
	TotalComplaints      int                       `json:"total_complaints"`
	StatusCounts         map[models.Status]int     `json:"status_counts"`
	Last24hComplaints    int                       `json:"last_24h_complaints"`
	RecentComplaints     []models.ComplaintSummary `json:"recent_complaints"`
	ComplaintsPerDay7    []models.DayCount         `json:"complaints_per_day_7"`
	ComplaintsPerDay30   []models.DayCount         `json:"complaints_per_day_30"`
	TopUsers             []models.FilerCount       `json:"top_users"`
	CompletionRate       float64                   `json:"completion_rate"`
	AgingBuckets         map[string]int            `json:"aging_buckets"`
	LongestOpen          []models.ComplaintSummary `json:"longest_open_complaints"`
	AdminEfficiencyScore float64                   `json:"admin_efficiency_score"`
}

// Stats handles GET /dashboard
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, &DashboardResponse{
		TotalComplaints:      stats.TotalComplaints,
		StatusCounts:         stats.StatusCounts,
		Last24hComplaints:    stats.Last24hComplaints,
		RecentComplaints:     stats.RecentComplaints,
		ComplaintsPerDay7:    stats.ComplaintsPerDay7,
		ComplaintsPerDay30:   stats.ComplaintsPerDay30,
		TopUsers:             stats.TopUsers,
		CompletionRate:       stats.CompletionRate,
		AgingBuckets:         stats.AgingBuckets,
		LongestOpen:          stats.LongestOpen,
		AdminEfficiencyScore: stats.AdminEfficiencyScore,
	})
}
