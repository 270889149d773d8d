package imagegen

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"vibemint/internal/observability"
)

// maxImageBytes bounds a single reference image download.
const maxImageBytes = 10 << 20

// Fetcher materializes reference image URLs into base64 payloads. Each URL is
// tried directly first, then through the relay proxy; a URL that fails both
// ways is skipped rather than failing the whole generation.
type Fetcher struct {
	proxyBase string
	client    *http.Client
	logger    *log.Logger
}

// NewFetcher creates a fetcher with the given proxy relay base URL.
func NewFetcher(proxyBase string, logger *log.Logger) *Fetcher {
	return &Fetcher{
		proxyBase: proxyBase,
		client:    &http.Client{Timeout: 20 * time.Second},
		logger:    logger,
	}
}

// WithClient overrides the HTTP client, for tests.
func (f *Fetcher) WithClient(c *http.Client) *Fetcher {
	f.client = c
	return f
}

// FetchAll materializes the given URLs concurrently, preserving order.
// Placeholder and unfetchable URLs are dropped from the result.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string, placeholder string) []Image {
	results := make([]*Image, len(urls))
	var wg sync.WaitGroup

	for i, u := range urls {
		if u == "" || u == placeholder {
			observability.RecordReferenceFetch("skipped")
			continue
		}
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			results[i] = f.fetchOne(ctx, u)
		}(i, u)
	}
	wg.Wait()

	images := make([]Image, 0, len(urls))
	for _, r := range results {
		if r != nil {
			images = append(images, *r)
		}
	}
	return images
}

// fetchOne tries the direct URL, then the proxy relay, then gives up.
func (f *Fetcher) fetchOne(ctx context.Context, imageURL string) *Image {
	if img, err := f.get(ctx, imageURL); err == nil {
		observability.RecordReferenceFetch("direct")
		return img
	} else {
		f.logger.Printf("[imagegen] direct fetch %s failed: %v", imageURL, err)
	}

	proxied := f.proxyURL(imageURL)
	if img, err := f.get(ctx, proxied); err == nil {
		observability.RecordReferenceFetch("proxy")
		return img
	} else {
		f.logger.Printf("[imagegen] proxy fetch %s failed: %v", imageURL, err)
	}

	observability.RecordReferenceFetch("skipped")
	return nil
}

func (f *Fetcher) proxyURL(imageURL string) string {
	return f.proxyBase + "?url=" + url.QueryEscape(imageURL)
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (*Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty body")
	}

	return &Image{
		Data:     base64.StdEncoding.EncodeToString(data),
		MimeType: MimeTypeFor(rawURL),
	}, nil
}

// MimeTypeFor guesses a MIME type from the URL's file extension. Unknown
// extensions fall back to webp, which is what the coin APIs mostly serve.
func MimeTypeFor(rawURL string) string {
	ext := strings.ToLower(path.Ext(stripQuery(rawURL)))
	switch ext {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	default:
		return "image/webp"
	}
}

func stripQuery(rawURL string) string {
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}
