package clickhouse

import (
	"context"
	"fmt"
	"time"

	"vibemint/internal/domain"
	"vibemint/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using ClickHouse.
// The archive is append-only; MergeTree does not enforce uniqueness and the
// archive does not need it (one fetch produces one batch of distinct rows).
type SnapshotStore struct {
	conn *Conn
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(conn *Conn) *SnapshotStore {
	return &SnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// InsertBulk adds one fetch worth of snapshots in a single batch.
func (s *SnapshotStore) InsertBulk(ctx context.Context, snapshots []*domain.CoinSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	for _, snap := range snapshots {
		if snap == nil || snap.CoinID == "" || !snap.Criterion.Valid() {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO market_snapshots (
			criterion, rank, coin_id, name, symbol,
			volume_24h, market_cap, market_cap_delta_24h, unique_holders, fetched_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, snap := range snapshots {
		err = batch.Append(
			string(snap.Criterion), snap.Rank, snap.CoinID, snap.Name, snap.Symbol,
			snap.Volume24h, snap.MarketCap, snap.MarketCapDelta24h, snap.UniqueHolders,
			snap.FetchedAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByCoinID retrieves all snapshots for a coin, ordered by fetched_at ASC.
func (s *SnapshotStore) GetByCoinID(ctx context.Context, coinID string) ([]*domain.CoinSnapshot, error) {
	query := `
		SELECT criterion, rank, coin_id, name, symbol,
		       volume_24h, market_cap, market_cap_delta_24h, unique_holders, fetched_at
		FROM market_snapshots
		WHERE coin_id = ?
		ORDER BY fetched_at ASC, rank ASC
	`

	rows, err := s.conn.Query(ctx, query, coinID)
	if err != nil {
		return nil, fmt.Errorf("query by coin id: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// GetByTimeRange retrieves snapshots for a criterion within [start, end] (inclusive).
func (s *SnapshotStore) GetByTimeRange(ctx context.Context, criterion domain.ListCriterion, start, end int64) ([]*domain.CoinSnapshot, error) {
	query := `
		SELECT criterion, rank, coin_id, name, symbol,
		       volume_24h, market_cap, market_cap_delta_24h, unique_holders, fetched_at
		FROM market_snapshots
		WHERE criterion = ? AND fetched_at >= ? AND fetched_at <= ?
		ORDER BY fetched_at ASC, rank ASC
	`

	rows, err := s.conn.Query(ctx, query,
		string(criterion), time.UnixMilli(start).UTC(), time.UnixMilli(end).UTC())
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanSnapshots scans multiple rows.
func scanSnapshots(rows chRows) ([]*domain.CoinSnapshot, error) {
	var snapshots []*domain.CoinSnapshot

	for rows.Next() {
		var snap domain.CoinSnapshot
		var criterion string

		err := rows.Scan(
			&criterion, &snap.Rank, &snap.CoinID, &snap.Name, &snap.Symbol,
			&snap.Volume24h, &snap.MarketCap, &snap.MarketCapDelta24h,
			&snap.UniqueHolders, &snap.FetchedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}

		snap.Criterion = domain.ListCriterion(criterion)
		snapshots = append(snapshots, &snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}

	return snapshots, nil
}
