package domain

import "errors"

// ErrEmptyRequest is returned when a generation request carries neither
// reference images nor a prompt.
var ErrEmptyRequest = errors.New("generation request needs at least one image URL or a prompt")

// MaxReferenceImages bounds how many reference image URLs one request may carry.
const MaxReferenceImages = MaxSelectedCoins

// GenerationRequest describes one image generation attempt: up to two reference
// image URLs taken from the selected coins, plus a free-form prompt.
type GenerationRequest struct {
	ImageURLs []string
	Prompt    string
	CoinNames []string // display names of the selected coins, for prompt synthesis
}

// Validate rejects requests that carry nothing to work with or too many
// reference URLs.
func (r GenerationRequest) Validate() error {
	if len(r.ImageURLs) == 0 && r.Prompt == "" {
		return ErrEmptyRequest
	}
	if len(r.ImageURLs) > MaxReferenceImages {
		return errors.New("too many reference image URLs")
	}
	return nil
}

// GenerationResult is the tagged outcome of a pipeline run. Exactly one of the
// success fields or Reason is populated; pipeline failures are results, not
// Go errors.
type GenerationResult struct {
	OK        bool
	ImageData string // base64-encoded image bytes
	MimeType  string
	Reason    string // human-readable failure reason when !OK
}

// GenerationSuccess builds a successful result.
func GenerationSuccess(imageData, mimeType string) GenerationResult {
	return GenerationResult{OK: true, ImageData: imageData, MimeType: mimeType}
}

// GenerationFailure builds a failed result carrying a user-presentable reason.
func GenerationFailure(reason string) GenerationResult {
	return GenerationResult{OK: false, Reason: reason}
}
