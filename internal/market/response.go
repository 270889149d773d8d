package market

import (
	"encoding/json"
	"strconv"
	"strings"

	"vibemint/internal/domain"
)

// exploreResponse mirrors the explore API payload. Every field below the edges
// is optional in practice, so everything nests pointers or raw messages.
type exploreResponse struct {
	Data struct {
		ExploreList struct {
			Edges []struct {
				Node coinNode `json:"node"`
			} `json:"edges"`
			PageInfo struct {
				EndCursor   string `json:"endCursor"`
				HasNextPage bool   `json:"hasNextPage"`
			} `json:"pageInfo"`
		} `json:"exploreList"`
	} `json:"data"`
}

type coinNode struct {
	ID                string          `json:"id"`
	Address           string          `json:"address"`
	Name              *string         `json:"name"`
	Symbol            *string         `json:"symbol"`
	Volume24h         json.RawMessage `json:"volume24h"`
	MarketCap         json.RawMessage `json:"marketCap"`
	MarketCapDelta24h json.RawMessage `json:"marketCapDelta24h"`
	UniqueHolders     json.RawMessage `json:"uniqueHolders"`
	Image             *string         `json:"image"`
	MediaContent      *mediaContent   `json:"mediaContent"`
	ContractMetadata  *struct {
		Image *string `json:"image"`
	} `json:"contractMetadata"`
	Metadata *struct {
		Image *string `json:"image"`
	} `json:"metadata"`
}

// mediaContent.previewImage arrives either as an object with size variants or
// as a bare string, depending on the API version.
type mediaContent struct {
	PreviewImage json.RawMessage `json:"previewImage"`
}

type previewImage struct {
	Small  *string `json:"small"`
	Medium *string `json:"medium"`
	Large  *string `json:"large"`
}

// toCoin converts a raw node into a domain coin, resolving the preview image
// and parsing numerics defensively.
func (n coinNode) toCoin() domain.Coin {
	id := n.Address
	if id == "" {
		id = n.ID
	}

	return domain.Coin{
		ID:                id,
		Name:              n.Name,
		Symbol:            n.Symbol,
		ImageURL:          n.resolveImage(),
		Volume24h:         parseNumber(n.Volume24h),
		MarketCap:         parseNumber(n.MarketCap),
		MarketCapDelta24h: parseNumber(n.MarketCapDelta24h),
		UniqueHolders:     parseNumber(n.UniqueHolders),
	}
}

// resolveImage walks the image sources in priority order:
// mediaContent.previewImage.medium, mediaContent.previewImage as a string,
// image, contractMetadata.image, metadata.image. Nil means only the
// placeholder applies.
func (n coinNode) resolveImage() *string {
	if n.MediaContent != nil && len(n.MediaContent.PreviewImage) > 0 {
		var obj previewImage
		if err := json.Unmarshal(n.MediaContent.PreviewImage, &obj); err == nil {
			if obj.Medium != nil && *obj.Medium != "" {
				return obj.Medium
			}
		}
		var s string
		if err := json.Unmarshal(n.MediaContent.PreviewImage, &s); err == nil && s != "" {
			return &s
		}
	}
	if n.Image != nil && *n.Image != "" {
		return n.Image
	}
	if n.ContractMetadata != nil && n.ContractMetadata.Image != nil && *n.ContractMetadata.Image != "" {
		return n.ContractMetadata.Image
	}
	if n.Metadata != nil && n.Metadata.Image != nil && *n.Metadata.Image != "" {
		return n.Metadata.Image
	}
	return nil
}

// parseNumber accepts a JSON number, a numeric string, or nothing. Anything
// unparsable becomes nil rather than zero so the UI can show a blank.
func parseNumber(raw json.RawMessage) *float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return &f
		}
	}

	return nil
}

// ResolveImageURL returns the coin's image URL or the placeholder.
func ResolveImageURL(c domain.Coin) string {
	if c.ImageURL != nil && *c.ImageURL != "" {
		return *c.ImageURL
	}
	return PlaceholderImageURL
}
