package market

import (
	"context"
	"log"
	"time"

	"vibemint/internal/domain"
	"vibemint/internal/observability"
	"vibemint/internal/storage"
)

// SnapshotArchiver writes fetch snapshots to a SnapshotStore. Writes are
// best-effort: errors are logged and counted, never propagated to the fetch.
type SnapshotArchiver struct {
	store   storage.SnapshotStore
	logger  *log.Logger
	timeout time.Duration
}

// NewSnapshotArchiver creates an archiver over the given store.
func NewSnapshotArchiver(store storage.SnapshotStore, logger *log.Logger) *SnapshotArchiver {
	return &SnapshotArchiver{
		store:   store,
		logger:  logger,
		timeout: 10 * time.Second,
	}
}

// Compile-time interface check.
var _ Archiver = (*SnapshotArchiver)(nil)

// Archive stores one fetch worth of snapshots.
func (a *SnapshotArchiver) Archive(ctx context.Context, snapshots []*domain.CoinSnapshot) {
	if len(snapshots) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	err := a.store.InsertBulk(ctx, snapshots)
	observability.RecordSnapshotsArchived(len(snapshots), err)
	if err != nil {
		a.logger.Printf("[market] archive %d snapshots failed: %v", len(snapshots), err)
	}
}
