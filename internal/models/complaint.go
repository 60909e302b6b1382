package models

import (
	"time"
)

// Status of a complaint inside the triage workflow
type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusInProgress Status = "IN_PROGRESS"
	StatusResolved   Status = "RESOLVED"
	StatusRejected   Status = "REJECTED"
	StatusClosed     Status = "CLOSED"
)

// Statuses lists every status in a stable order
var Statuses = []Status{StatusOpen, StatusInProgress, StatusResolved, StatusRejected, StatusClosed}

// ValidStatus reports whether s is one of the known statuses
func ValidStatus(s Status) bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Complaint is a citizen-filed record tracked through the status workflow.
// UserID is set at creation and never changes. Images holds the stored file
// names of uploaded attachments, in upload order.
type Complaint struct {
	ID          string
	UserID      string
	Title       string
	Description string
	Status      Status
	Images      []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
