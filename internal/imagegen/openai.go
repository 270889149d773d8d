package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// DefaultOpenAIBaseURL is the OpenAI REST endpoint.
const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIProvider generates images through the OpenAI images API.
type OpenAIProvider struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewOpenAIProvider creates an OpenAI provider for the given model.
func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	return &OpenAIProvider{
		baseURL: DefaultOpenAIBaseURL,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// WithBaseURL overrides the API endpoint, for tests.
func (o *OpenAIProvider) WithBaseURL(u string) *OpenAIProvider {
	o.baseURL = u
	return o
}

// Compile-time interface check.
var _ Provider = (*OpenAIProvider)(nil)

func (o *OpenAIProvider) Name() string { return "openai" }

type openAIImageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Generate creates an image from text via the generations endpoint.
func (o *OpenAIProvider) Generate(ctx context.Context, prompt string) (string, string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"model":  o.model,
		"prompt": prompt,
		"n":      1,
	})
	if err != nil {
		return "", "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/images/generations", bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	return o.send(req)
}

// Edit creates an image conditioned on reference images via the edits
// endpoint, which takes multipart form data.
func (o *OpenAIProvider) Edit(ctx context.Context, images []Image, prompt string) (string, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("model", o.model); err != nil {
		return "", "", fmt.Errorf("write model field: %w", err)
	}
	if err := w.WriteField("prompt", prompt); err != nil {
		return "", "", fmt.Errorf("write prompt field: %w", err)
	}

	for i, img := range images {
		raw, err := base64.StdEncoding.DecodeString(img.Data)
		if err != nil {
			return "", "", fmt.Errorf("decode reference image %d: %w", i, err)
		}
		part, err := w.CreateFormFile("image[]", fmt.Sprintf("reference-%d%s", i, extFor(img.MimeType)))
		if err != nil {
			return "", "", fmt.Errorf("create image part: %w", err)
		}
		if _, err := part.Write(raw); err != nil {
			return "", "", fmt.Errorf("write image part: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return "", "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/images/edits", &buf)
	if err != nil {
		return "", "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	return o.send(req)
}

func (o *OpenAIProvider) send(req *http.Request) (string, string, error) {
	resp, err := o.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return "", "", fmt.Errorf("read response: %w", err)
	}

	var parsed openAIImageResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", "", fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if parsed.Error != nil {
		return "", "", fmt.Errorf("openai error: %s", parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("openai status %d", resp.StatusCode)
	}
	if len(parsed.Data) == 0 || parsed.Data[0].B64JSON == "" {
		return "", "", ErrNoImageInResponse
	}

	return parsed.Data[0].B64JSON, "image/png", nil
}

func extFor(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
