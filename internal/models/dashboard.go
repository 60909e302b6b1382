package models

import "time"

// ComplaintSummary is the trimmed complaint shape used by dashboard lists.
type ComplaintSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// DayCount is one bucket of a per-day complaint histogram.
// Day is a date-only string (YYYY-MM-DD); days without complaints are absent.
type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// FilerCount ranks a user by how many complaints they have filed.
type FilerCount struct {
	UserID string `json:"user_id"`
	Count  int    `json:"count"`
}

// Aging bucket labels. A complaint falls in exactly one bucket based on
// hours since creation: [0,24), [24,72), [72,168), [168,inf).
const (
	AgingBucketUnder24h = "<24h"
	AgingBucket1To3d    = "1-3d"
	AgingBucket3To7d    = "3-7d"
	AgingBucketOver7d   = ">7d"
)

// DashboardStats is the full admin dashboard payload.
type DashboardStats struct {
	TotalComplaints      int
	StatusCounts         map[Status]int
	Last24hComplaints    int
	RecentComplaints     []ComplaintSummary
	ComplaintsPerDay7    []DayCount
	ComplaintsPerDay30   []DayCount
	TopUsers             []FilerCount
	CompletionRate       float64
	AgingBuckets         map[string]int
	LongestOpen          []ComplaintSummary
	AdminEfficiencyScore float64
}
