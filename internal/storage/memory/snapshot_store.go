package memory

import (
	"context"
	"sort"
	"sync"

	"vibemint/internal/domain"
	"vibemint/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data []*domain.CoinSnapshot
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// InsertBulk adds one fetch worth of snapshots in a single batch.
func (s *SnapshotStore) InsertBulk(_ context.Context, snapshots []*domain.CoinSnapshot) error {
	for _, snap := range snapshots {
		if snap == nil || snap.CoinID == "" || !snap.Criterion.Valid() {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, snap := range snapshots {
		snapCopy := *snap
		s.data = append(s.data, &snapCopy)
	}
	return nil
}

// GetByCoinID retrieves all snapshots for a coin, ordered by fetched_at ASC.
func (s *SnapshotStore) GetByCoinID(_ context.Context, coinID string) ([]*domain.CoinSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.CoinSnapshot
	for _, snap := range s.data {
		if snap.CoinID == coinID {
			snapCopy := *snap
			result = append(result, &snapCopy)
		}
	}

	sortSnapshots(result)
	return result, nil
}

// GetByTimeRange retrieves snapshots for a criterion within [start, end] (inclusive).
func (s *SnapshotStore) GetByTimeRange(_ context.Context, criterion domain.ListCriterion, start, end int64) ([]*domain.CoinSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.CoinSnapshot
	for _, snap := range s.data {
		ms := snap.FetchedAt.UnixMilli()
		if snap.Criterion == criterion && ms >= start && ms <= end {
			snapCopy := *snap
			result = append(result, &snapCopy)
		}
	}

	sortSnapshots(result)
	return result, nil
}

func sortSnapshots(snaps []*domain.CoinSnapshot) {
	sort.Slice(snaps, func(i, j int) bool {
		if snaps[i].FetchedAt.Equal(snaps[j].FetchedAt) {
			return snaps[i].Rank < snaps[j].Rank
		}
		return snaps[i].FetchedAt.Before(snaps[j].FetchedAt)
	})
}

// Verify interface compliance at compile time.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)
