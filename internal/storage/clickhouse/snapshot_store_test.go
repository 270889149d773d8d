package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibemint/internal/domain"
	"vibemint/internal/storage"
)

func testSnapshot(coinID string, criterion domain.ListCriterion, rank uint16, at time.Time) *domain.CoinSnapshot {
	return &domain.CoinSnapshot{
		Criterion:         criterion,
		Rank:              rank,
		CoinID:            coinID,
		Name:              "Coin " + coinID,
		Symbol:            "CN",
		Volume24h:         12345.67,
		MarketCap:         1e6,
		MarketCapDelta24h: -3.2,
		UniqueHolders:     420,
		FetchedAt:         at.UTC().Truncate(time.Millisecond),
	}
}

func TestSnapshotStoreInsertBulkAndGetByCoinID(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSnapshotStore(conn)
	base := time.Now()

	err := store.InsertBulk(ctx, []*domain.CoinSnapshot{
		testSnapshot("0xaaa", domain.ListVolume, 1, base),
		testSnapshot("0xbbb", domain.ListVolume, 2, base),
		testSnapshot("0xaaa", domain.ListGainers, 5, base.Add(time.Minute)),
	})
	require.NoError(t, err)

	got, err := store.GetByCoinID(ctx, "0xaaa")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.ListVolume, got[0].Criterion)
	assert.Equal(t, domain.ListGainers, got[1].Criterion)
	assert.Equal(t, uint16(1), got[0].Rank)
	assert.InDelta(t, 12345.67, got[0].Volume24h, 1e-9)
}

func TestSnapshotStoreInsertBulkEmpty(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSnapshotStore(conn)
	require.NoError(t, store.InsertBulk(context.Background(), nil))
}

func TestSnapshotStoreInvalidInput(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSnapshotStore(conn)
	err := store.InsertBulk(context.Background(), []*domain.CoinSnapshot{
		{Criterion: domain.ListVolume, CoinID: ""},
	})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestSnapshotStoreGetByTimeRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSnapshotStore(conn)
	base := time.UnixMilli(1_700_000_000_000)

	err := store.InsertBulk(ctx, []*domain.CoinSnapshot{
		testSnapshot("0xaaa", domain.ListVolume, 1, base),
		testSnapshot("0xbbb", domain.ListGainers, 1, base),
		testSnapshot("0xccc", domain.ListVolume, 1, base.Add(2*time.Hour)),
	})
	require.NoError(t, err)

	got, err := store.GetByTimeRange(ctx, domain.ListVolume,
		base.UnixMilli(), base.Add(time.Hour).UnixMilli())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "0xaaa", got[0].CoinID)
}
