package domain

// Coin represents one tradable coin surfaced in the market gallery.
// A Coin is immutable once fetched; a re-fetch replaces it wholesale.
type Coin struct {
	ID                string   // contract address plus chain qualifier
	Name              *string  // nullable, the API may omit it
	Symbol            *string  // nullable
	ImageURL          *string  // resolved preview image, nil when only the placeholder applies
	Volume24h         *float64 // nullable numerics: unparsable values become nil
	MarketCap         *float64
	MarketCapDelta24h *float64 // percentage change over 24h
	UniqueHolders     *float64
}

// DisplayName returns the coin's name, or its symbol, or its ID as a last resort.
func (c Coin) DisplayName() string {
	if c.Name != nil && *c.Name != "" {
		return *c.Name
	}
	if c.Symbol != nil && *c.Symbol != "" {
		return *c.Symbol
	}
	return c.ID
}
