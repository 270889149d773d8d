package memory

import (
	"context"
	"sort"
	"sync"

	"vibemint/internal/domain"
	"vibemint/internal/storage"
)

// CreationStore is an in-memory implementation of storage.CreationStore.
type CreationStore struct {
	mu   sync.RWMutex
	data map[string]*domain.CreationRecord // keyed by session_id
}

// NewCreationStore creates a new in-memory creation store.
func NewCreationStore() *CreationStore {
	return &CreationStore{
		data: make(map[string]*domain.CreationRecord),
	}
}

// Insert adds a new creation record. Returns ErrDuplicateKey if session_id exists.
func (s *CreationStore) Insert(_ context.Context, r *domain.CreationRecord) error {
	if r == nil || r.SessionID == "" || r.WalletAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.SessionID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	recordCopy := *r
	recordCopy.SourceCoinIDs = append([]string(nil), r.SourceCoinIDs...)
	s.data[r.SessionID] = &recordCopy
	return nil
}

// GetBySessionID retrieves a creation by its session ID. Returns ErrNotFound if not exists.
func (s *CreationStore) GetBySessionID(_ context.Context, sessionID string) (*domain.CreationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[sessionID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	recordCopy := *r
	recordCopy.SourceCoinIDs = append([]string(nil), r.SourceCoinIDs...)
	return &recordCopy, nil
}

// GetByWallet retrieves all creations for a wallet, ordered by created_at ASC.
func (s *CreationStore) GetByWallet(_ context.Context, walletAddress string) ([]*domain.CreationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.CreationRecord
	for _, r := range s.data {
		if r.WalletAddress == walletAddress {
			recordCopy := *r
			recordCopy.SourceCoinIDs = append([]string(nil), r.SourceCoinIDs...)
			result = append(result, &recordCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].SessionID < result[j].SessionID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.CreationStore = (*CreationStore)(nil)
