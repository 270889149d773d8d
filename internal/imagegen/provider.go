// Package imagegen runs the image generation pipeline: materialize reference
// images, call a provider, fall back once on failure.
package imagegen

import "context"

// Image is one materialized reference image.
type Image struct {
	Data     string // base64-encoded bytes
	MimeType string
}

// Provider generates images. Edit conditions the output on reference images;
// Generate is text-only. Both return base64 image data plus its MIME type.
type Provider interface {
	Name() string
	Edit(ctx context.Context, images []Image, prompt string) (data, mimeType string, err error)
	Generate(ctx context.Context, prompt string) (data, mimeType string, err error)
}
