// Package identity resolves wallet addresses to display profiles and backend
// account records. Both lookups degrade to empty sentinels instead of errors:
// a missing profile is a normal state, not a failure.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vibemint/internal/domain"
)

// Resolver looks up profiles against the profile API and accounts against the
// backend user API.
type Resolver struct {
	profileAPIURL string
	backendURL    string
	client        *http.Client
	logger        *log.Logger
}

// NewResolver creates a resolver over the two identity services.
func NewResolver(profileAPIURL, backendURL string, logger *log.Logger) *Resolver {
	return &Resolver{
		profileAPIURL: profileAPIURL,
		backendURL:    backendURL,
		client:        &http.Client{Timeout: 10 * time.Second},
		logger:        logger,
	}
}

// profileResponse mirrors the profile API payload. The avatar arrives with
// several size variants, any of which may be missing.
type profileResponse struct {
	Profile struct {
		Handle string `json:"handle"`
		Avatar struct {
			Small        *string `json:"small"`
			PreviewImage *string `json:"previewImage"`
			Large        *string `json:"large"`
			ProfileImage *string `json:"profileImage"`
			Image        *string `json:"image"`
		} `json:"avatar"`
	} `json:"profile"`
}

// ResolveProfile fetches the display profile for a wallet address. Any failure
// yields the empty sentinel; Exists is true only when an avatar resolved.
func (r *Resolver) ResolveProfile(ctx context.Context, address string) domain.Profile {
	if address == "" {
		return domain.EmptyProfile()
	}

	endpoint := fmt.Sprintf("%s/profile?identifier=%s", r.profileAPIURL, url.QueryEscape(address))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		r.logger.Printf("[identity] build profile request: %v", err)
		return domain.EmptyProfile()
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Printf("[identity] profile fetch for %s failed: %v", address, err)
		return domain.EmptyProfile()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 512))
		return domain.EmptyProfile()
	}

	var parsed profileResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		r.logger.Printf("[identity] decode profile for %s: %v", address, err)
		return domain.EmptyProfile()
	}

	avatar := firstNonEmpty(
		parsed.Profile.Avatar.Small,
		parsed.Profile.Avatar.PreviewImage,
		parsed.Profile.Avatar.Large,
		parsed.Profile.Avatar.ProfileImage,
		parsed.Profile.Avatar.Image,
	)

	handle := parsed.Profile.Handle
	if handle != "" && !strings.HasPrefix(handle, "@") {
		handle = "@" + handle
	}

	return domain.Profile{
		Handle:    handle,
		AvatarURL: avatar,
		Exists:    avatar != "",
	}
}

// accountResponse mirrors the backend user record, with or without a data
// wrapper.
type accountResponse struct {
	Data *accountPayload `json:"data"`
	accountPayload
}

type accountPayload struct {
	ID                         string `json:"id"`
	WalletAddress              string `json:"walletAddress"`
	IsAutoMintEnabled          bool   `json:"isAutoMintEnabled"`
	IsSentimentAnalysisEnabled bool   `json:"isSentimentAnalysisEnabled"`
	BasePrompt                 string `json:"basePrompt"`
}

// ResolveAccount fetches the backend account for a wallet address. Unknown
// wallets (404) and failures alike yield the empty sentinel.
func (r *Resolver) ResolveAccount(ctx context.Context, address string) domain.Account {
	if address == "" {
		return domain.EmptyAccount(address)
	}

	endpoint := fmt.Sprintf("%s/api/users/by-wallet?walletAddress=%s", r.backendURL, url.QueryEscape(address))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		r.logger.Printf("[identity] build account request: %v", err)
		return domain.EmptyAccount(address)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Printf("[identity] account fetch for %s failed: %v", address, err)
		return domain.EmptyAccount(address)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 512))
		return domain.EmptyAccount(address)
	}

	var parsed accountResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		r.logger.Printf("[identity] decode account for %s: %v", address, err)
		return domain.EmptyAccount(address)
	}

	payload := parsed.accountPayload
	if parsed.Data != nil {
		payload = *parsed.Data
	}
	if payload.ID == "" {
		return domain.EmptyAccount(address)
	}

	wallet := payload.WalletAddress
	if wallet == "" {
		wallet = address
	}

	return domain.Account{
		ID:                       payload.ID,
		WalletAddress:            wallet,
		AutoMintEnabled:          payload.IsAutoMintEnabled,
		SentimentAnalysisEnabled: payload.IsSentimentAnalysisEnabled,
		BasePrompt:               payload.BasePrompt,
		Exists:                   true,
	}
}

// firstNonEmpty returns the first candidate that is set and non-empty.
func firstNonEmpty(candidates ...*string) string {
	for _, c := range candidates {
		if c != nil && *c != "" {
			return *c
		}
	}
	return ""
}
