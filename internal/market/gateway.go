package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"vibemint/internal/domain"
	"vibemint/internal/observability"
)

// PlaceholderImageURL marks a coin with no resolvable preview image. Reference
// fetchers skip it.
const PlaceholderImageURL = "/placeholder-coin.png"

// Archiver receives one fetch worth of snapshots. Archive failures are the
// archiver's problem; the gateway only logs them.
type Archiver interface {
	Archive(ctx context.Context, snapshots []*domain.CoinSnapshot)
}

// Gateway fetches ranked coin lists from the explore API.
//
// FetchRanked distinguishes failure from emptiness: a transport or parse
// failure yields a nil slice, a successful fetch with no results yields an
// empty non-nil slice. Callers render the two differently.
type Gateway struct {
	baseURL  string
	client   *http.Client
	logger   *log.Logger
	archiver Archiver // optional
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.client = c }
}

// WithArchiver enables best-effort snapshot archiving of each successful fetch.
func WithArchiver(a Archiver) Option {
	return func(g *Gateway) { g.archiver = a }
}

// NewGateway creates a market gateway against the given explore API base URL.
func NewGateway(baseURL string, logger *log.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Page is one page of ranked coins plus the cursor for the next page.
type Page struct {
	Coins  []domain.Coin
	Cursor string // empty when there are no more pages
}

// FetchRanked retrieves the top coins for a criterion. A nil slice means the
// fetch failed; an empty slice means the API returned no coins.
func (g *Gateway) FetchRanked(ctx context.Context, criterion domain.ListCriterion, count int) []domain.Coin {
	page := g.FetchRankedPage(ctx, criterion, count, "")
	if page == nil {
		return nil
	}
	return page.Coins
}

// FetchRankedPage retrieves one page of ranked coins starting after the given
// cursor. Returns nil on failure.
func (g *Gateway) FetchRankedPage(ctx context.Context, criterion domain.ListCriterion, count int, after string) *Page {
	start := time.Now()

	if !criterion.Valid() {
		g.logger.Printf("[market] invalid list criterion %q", criterion)
		observability.RecordMarketFetch(string(criterion), "invalid", time.Since(start).Seconds())
		return nil
	}
	if count <= 0 {
		g.logger.Printf("[market] invalid count %d", count)
		observability.RecordMarketFetch(string(criterion), "invalid", time.Since(start).Seconds())
		return nil
	}

	raw, err := g.fetch(ctx, criterion, count, after)
	if err != nil {
		g.logger.Printf("[market] fetch %s failed: %v", criterion, err)
		observability.RecordMarketFetch(string(criterion), "error", time.Since(start).Seconds())
		return nil
	}

	coins := make([]domain.Coin, 0, len(raw.Data.ExploreList.Edges))
	for _, edge := range raw.Data.ExploreList.Edges {
		coins = append(coins, edge.Node.toCoin())
	}

	observability.RecordMarketFetch(string(criterion), "ok", time.Since(start).Seconds())

	if g.archiver != nil {
		g.archiver.Archive(ctx, toSnapshots(criterion, coins, time.Now().UTC()))
	}

	cursor := ""
	if raw.Data.ExploreList.PageInfo.HasNextPage {
		cursor = raw.Data.ExploreList.PageInfo.EndCursor
	}
	return &Page{Coins: coins, Cursor: cursor}
}

func (g *Gateway) fetch(ctx context.Context, criterion domain.ListCriterion, count int, after string) (*exploreResponse, error) {
	listType := "TOP_VOLUME_24H"
	if criterion == domain.ListGainers {
		listType = "TOP_GAINERS"
	}

	q := url.Values{}
	q.Set("listType", listType)
	q.Set("count", strconv.Itoa(count))
	if after != "" {
		q.Set("after", after)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/explore?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("explore API returned %d: %s", resp.StatusCode, body)
	}

	var parsed exploreResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &parsed, nil
}

// toSnapshots flattens coins into archive rows. Nullable fields become zeros.
func toSnapshots(criterion domain.ListCriterion, coins []domain.Coin, at time.Time) []*domain.CoinSnapshot {
	snaps := make([]*domain.CoinSnapshot, 0, len(coins))
	for i, c := range coins {
		snap := &domain.CoinSnapshot{
			Criterion: criterion,
			Rank:      uint16(i + 1),
			CoinID:    c.ID,
			FetchedAt: at,
		}
		if c.Name != nil {
			snap.Name = *c.Name
		}
		if c.Symbol != nil {
			snap.Symbol = *c.Symbol
		}
		if c.Volume24h != nil {
			snap.Volume24h = *c.Volume24h
		}
		if c.MarketCap != nil {
			snap.MarketCap = *c.MarketCap
		}
		if c.MarketCapDelta24h != nil {
			snap.MarketCapDelta24h = *c.MarketCapDelta24h
		}
		if c.UniqueHolders != nil {
			snap.UniqueHolders = *c.UniqueHolders
		}
		snaps = append(snaps, snap)
	}
	return snaps
}
