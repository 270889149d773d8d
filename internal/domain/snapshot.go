package domain

import "time"

// ListCriterion selects which market ranking to fetch.
type ListCriterion string

const (
	ListVolume  ListCriterion = "VOLUME"
	ListGainers ListCriterion = "GAINERS"
)

// Valid reports whether c is a known criterion.
func (c ListCriterion) Valid() bool {
	return c == ListVolume || c == ListGainers
}

// CoinSnapshot is one coin's market state at fetch time, archived per ranking
// fetch for later analysis. Nullable coin fields flatten to zero values here;
// the archive is an analytics feed, not a source of truth.
type CoinSnapshot struct {
	Criterion         ListCriterion
	Rank              uint16 // 1-based position within the fetched list
	CoinID            string
	Name              string
	Symbol            string
	Volume24h         float64
	MarketCap         float64
	MarketCapDelta24h float64
	UniqueHolders     float64
	FetchedAt         time.Time
}
