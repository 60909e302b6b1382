package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/digicom/complaints/internal/storage"
)

// ImageReferenceSource reports which stored image names are still attached
// to a complaint.
type ImageReferenceSource interface {
	ImageReferences(ctx context.Context) (map[string]bool, error)
}

// UploadSweeper periodically deletes stored images no complaint references
// anymore. Orphans appear when an upload succeeds but the complaint write
// fails, or when an image removal persists before its file deletion.
//
// Uploads are saved before the complaint row that references them, so a
// file can be briefly unreferenced while still live. Files younger than
// the grace period (one sweep interval) are never deleted.
type UploadSweeper struct {
	refs     ImageReferenceSource
	files    storage.FileStore
	logger   *slog.Logger
	interval time.Duration
	grace    time.Duration
	stopCh   chan struct{}
}

// NewUploadSweeper creates a new upload sweeper
func NewUploadSweeper(
	refs ImageReferenceSource,
	files storage.FileStore,
	logger *slog.Logger,
	interval time.Duration,
) *UploadSweeper {
	return &UploadSweeper{
		refs:     refs,
		files:    files,
		logger:   logger,
		interval: interval,
		grace:    interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep task
func (us *UploadSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(us.interval)
	defer ticker.Stop()

	// Run immediately on startup
	us.runSweep(ctx)

	for {
		select {
		case <-ticker.C:
			us.runSweep(ctx)
		case <-us.stopCh:
			us.logger.Info("upload sweeper stopped")
			return
		case <-ctx.Done():
			us.logger.Info("upload sweeper context cancelled")
			return
		}
	}
}

// runSweep deletes every stored file that no complaint references
func (us *UploadSweeper) runSweep(ctx context.Context) {
	us.logger.Info("starting orphaned upload sweep")

	sweepCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	referenced, err := us.refs.ImageReferences(sweepCtx)
	if err != nil {
		us.logger.Error("failed to load image references", slog.Any("error", err))
		return
	}

	stored, err := us.files.List(sweepCtx)
	if err != nil {
		us.logger.Error("failed to list stored uploads", slog.Any("error", err))
		return
	}

	cutoff := time.Now().Add(-us.grace)

	removed := 0
	for _, file := range stored {
		if referenced[file.Name] {
			continue
		}
		// A fresh upload may not be referenced yet; leave it for the
		// next sweep.
		if file.ModTime.After(cutoff) {
			continue
		}
		if err := us.files.Delete(sweepCtx, file.Name); err != nil {
			us.logger.Warn("failed to delete orphaned upload",
				slog.String("file", file.Name),
				slog.Any("error", err))
			continue
		}
		removed++
	}

	if removed > 0 {
		us.logger.Info("orphaned upload sweep completed", slog.Int("files_removed", removed))
	}
}

// Stop signals the sweeper to stop
func (us *UploadSweeper) Stop() {
	close(us.stopCh)
}
