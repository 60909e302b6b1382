package services

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/digicom/complaints/internal/models"
)

// DashboardRepository defines the aggregation queries the dashboard needs
type DashboardRepository interface {
	CountByStatus(ctx context.Context) (map[models.Status]int, error)
	CountCreatedSince(ctx context.Context, cutoff time.Time) (int, error)
	Recent(ctx context.Context, limit int) ([]models.ComplaintSummary, error)
	LongestOpen(ctx context.Context, limit int) ([]models.ComplaintSummary, error)
	CountPerDay(ctx context.Context, cutoff time.Time) ([]models.DayCount, error)
	TopFilers(ctx context.Context, limit int) ([]models.FilerCount, error)
	CreationTimes(ctx context.Context) ([]time.Time, error)
}

// DashboardService aggregates complaint statistics for the admin dashboard
type DashboardService struct {
	repo   DashboardRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(repo DashboardRepository, logger *slog.Logger) *DashboardService {
	return &DashboardService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// Stats runs every dashboard aggregation. The independent queries run
// concurrently; the first failure cancels the rest.
func (s *DashboardService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	now := s.now().UTC()
	stats := &models.DashboardStats{}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		counts, err := s.repo.CountByStatus(gctx)
		if err != nil {
			return err
		}
		// The query only returns statuses that occur; consumers expect a
		// count for every status, so zero-fill the rest.
		filled := make(map[models.Status]int, len(models.Statuses))
		for _, status := range models.Statuses {
			filled[status] = counts[status]
		}
		stats.StatusCounts = filled
		for _, n := range filled {
			stats.TotalComplaints += n
		}
		return nil
	})

	g.Go(func() error {
		n, err := s.repo.CountCreatedSince(gctx, now.Add(-24*time.Hour))
		if err != nil {
			return err
		}
		stats.Last24hComplaints = n
		return nil
	})

	g.Go(func() error {
		recent, err := s.repo.Recent(gctx, 5)
		if err != nil {
			return err
		}
		stats.RecentComplaints = recent
		return nil
	})

	g.Go(func() error {
		oldest, err := s.repo.LongestOpen(gctx, 5)
		if err != nil {
			return err
		}
		stats.LongestOpen = oldest
		return nil
	})

	g.Go(func() error {
		days, err := s.repo.CountPerDay(gctx, now.AddDate(0, 0, -7))
		if err != nil {
			return err
		}
		stats.ComplaintsPerDay7 = days
		return nil
	})

	g.Go(func() error {
		days, err := s.repo.CountPerDay(gctx, now.AddDate(0, 0, -30))
		if err != nil {
			return err
		}
		stats.ComplaintsPerDay30 = days
		return nil
	})

	g.Go(func() error {
		filers, err := s.repo.TopFilers(gctx, 5)
		if err != nil {
			return err
		}
		stats.TopUsers = filers
		return nil
	})

	g.Go(func() error {
		times, err := s.repo.CreationTimes(gctx)
		if err != nil {
			return err
		}
		stats.AgingBuckets = agingBuckets(times, now)
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("dashboard aggregation failed", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	stats.CompletionRate = completionRate(stats.StatusCounts, stats.TotalComplaints)
	stats.AdminEfficiencyScore = stats.CompletionRate

	return stats, nil
}

// completionRate is the percentage of complaints that reached a terminal
// "done" state. Zero when there are no complaints at all.
func completionRate(counts map[models.Status]int, total int) float64 {
	if total == 0 {
		return 0
	}
	done := counts[models.StatusResolved] + counts[models.StatusClosed]
	return float64(done) / float64(total) * 100
}

// agingBuckets sorts complaint ages into fixed ranges. A complaint aged
// exactly 24h falls into "1-3d"; exactly 7 days into ">7d".
func agingBuckets(createdAt []time.Time, now time.Time) map[string]int {
	buckets := map[string]int{
		models.AgingBucketUnder24h: 0,
		models.AgingBucket1To3d:    0,
		models.AgingBucket3To7d:    0,
		models.AgingBucketOver7d:   0,
	}

	for _, t := range createdAt {
		age := now.Sub(t)
		switch {
		case age < 24*time.Hour:
			buckets[models.AgingBucketUnder24h]++
		case age < 72*time.Hour:
			buckets[models.AgingBucket1To3d]++
		case age < 168*time.Hour:
			buckets[models.AgingBucket3To7d]++
		default:
			buckets[models.AgingBucketOver7d]++
		}
	}

	return buckets
}
