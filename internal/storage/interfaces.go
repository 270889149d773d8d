package storage

import (
	"context"

	"vibemint/internal/domain"
)

// CreationStore provides access to the completed-creations ledger.
type CreationStore interface {
	// Insert adds a new creation record. Returns ErrDuplicateKey if session_id exists.
	Insert(ctx context.Context, r *domain.CreationRecord) error

	// GetBySessionID retrieves a creation by its session ID. Returns ErrNotFound if not exists.
	GetBySessionID(ctx context.Context, sessionID string) (*domain.CreationRecord, error)

	// GetByWallet retrieves all creations for a wallet, ordered by created_at ASC.
	GetByWallet(ctx context.Context, walletAddress string) ([]*domain.CreationRecord, error)
}

// SnapshotStore provides access to the market snapshot archive.
type SnapshotStore interface {
	// InsertBulk adds one fetch worth of snapshots in a single batch.
	InsertBulk(ctx context.Context, snapshots []*domain.CoinSnapshot) error

	// GetByCoinID retrieves all snapshots for a coin, ordered by fetched_at ASC.
	GetByCoinID(ctx context.Context, coinID string) ([]*domain.CoinSnapshot, error)

	// GetByTimeRange retrieves snapshots for a criterion within [start, end] (inclusive),
	// as unix milliseconds.
	GetByTimeRange(ctx context.Context, criterion domain.ListCriterion, start, end int64) ([]*domain.CoinSnapshot, error)
}
