// Package upload pushes generated images to the metadata backend, which pins
// them and returns a content URI for minting.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"vibemint/internal/domain"
	"vibemint/internal/observability"
)

// Client uploads coin metadata. Upload never returns a Go error; failures are
// tagged results carrying a user-presentable reason.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *log.Logger
}

// NewClient creates an upload client against the backend base URL.
func NewClient(baseURL string, logger *log.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  logger,
	}
}

// WithHTTPClient overrides the HTTP client, for tests.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.client = h
	return c
}

type uploadRequest struct {
	Prompt   string   `json:"prompt"`
	Pictures []string `json:"pictures"`
}

// uploadPayload is the response body, with or without a data wrapper, and
// with metadata either nested or at the top level. Field presence varies by
// backend version, so everything is optional and resolved in order.
type uploadPayload struct {
	IpfsURI         string `json:"ipfsUri"`
	IpfsMetadataURI string `json:"ipfsMetadataUri"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	Metadata        *struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Image       string `json:"image"`
	} `json:"metadata"`
}

type uploadResponse struct {
	Data *uploadPayload `json:"data"`
	uploadPayload
}

// Upload submits the image and prompt. The image travels base64-encoded in
// the pictures array; the backend pins it and replies with a metadata URI.
func (c *Client) Upload(ctx context.Context, imageData, prompt string) domain.UploadResult {
	start := time.Now()

	body, err := json.Marshal(uploadRequest{
		Prompt:   prompt,
		Pictures: []string{imageData},
	})
	if err != nil {
		observability.RecordUpload("error", time.Since(start).Seconds())
		return domain.UploadFailure(fmt.Sprintf("encode upload request: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/content/content", bytes.NewReader(body))
	if err != nil {
		observability.RecordUpload("error", time.Since(start).Seconds())
		return domain.UploadFailure(fmt.Sprintf("build upload request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		// A transport-level failure against this backend is almost always its
		// CORS/network configuration, so say so instead of a generic message.
		c.logger.Printf("[upload] request failed: %v", err)
		observability.RecordUpload("network_error", time.Since(start).Seconds())
		return domain.UploadFailure("upload blocked: the server's CORS or network configuration rejected the request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 512))
		c.logger.Printf("[upload] backend returned %d", resp.StatusCode)
		observability.RecordUpload("http_error", time.Since(start).Seconds())
		return domain.UploadFailure(fmt.Sprintf("upload failed with HTTP status %d", resp.StatusCode))
	}

	var parsed uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		c.logger.Printf("[upload] decode response: %v", err)
		observability.RecordUpload("error", time.Since(start).Seconds())
		return domain.UploadFailure("upload response could not be parsed")
	}

	payload := parsed.uploadPayload
	if parsed.Data != nil {
		payload = *parsed.Data
	}

	uri := payload.IpfsURI
	if uri == "" {
		uri = payload.IpfsMetadataURI
	}
	if uri == "" {
		observability.RecordUpload("error", time.Since(start).Seconds())
		return domain.UploadFailure("upload response carried no content URI")
	}

	name := payload.Name
	description := payload.Description
	preview := imageData
	if payload.Metadata != nil {
		if payload.Metadata.Name != "" {
			name = payload.Metadata.Name
		}
		if payload.Metadata.Description != "" {
			description = payload.Metadata.Description
		}
		if payload.Metadata.Image != "" {
			preview = payload.Metadata.Image
		}
	}

	observability.RecordUpload("ok", time.Since(start).Seconds())
	return domain.UploadSuccess(uri, name, description, preview)
}
