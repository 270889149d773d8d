package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultGeminiBaseURL is the Gemini REST endpoint.
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// ErrNoImageInResponse is returned when the model answered with text only.
var ErrNoImageInResponse = errors.New("model response contains no image")

// GeminiProvider generates images through the Gemini generateContent API.
type GeminiProvider struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewGeminiProvider creates a Gemini provider for the given model.
func NewGeminiProvider(apiKey, model string) *GeminiProvider {
	return &GeminiProvider{
		baseURL: DefaultGeminiBaseURL,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// WithBaseURL overrides the API endpoint, for tests.
func (g *GeminiProvider) WithBaseURL(u string) *GeminiProvider {
	g.baseURL = u
	return g
}

// Compile-time interface check.
var _ Provider = (*GeminiProvider)(nil)

func (g *GeminiProvider) Name() string { return "gemini" }

// Request/response shapes for generateContent, limited to what we use.
type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiRequest struct {
	Contents []struct {
		Parts []geminiPart `json:"parts"`
	} `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiGenerationConfig struct {
	Temperature        float64  `json:"temperature"`
	TopP               float64  `json:"topP"`
	TopK               int      `json:"topK"`
	MaxOutputTokens    int      `json:"maxOutputTokens"`
	ResponseModalities []string `json:"responseModalities"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Edit generates an image conditioned on the reference images.
func (g *GeminiProvider) Edit(ctx context.Context, images []Image, prompt string) (string, string, error) {
	parts := make([]geminiPart, 0, len(images)+1)
	parts = append(parts, geminiPart{Text: prompt})
	for _, img := range images {
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{
			MimeType: img.MimeType,
			Data:     img.Data,
		}})
	}
	return g.generateContent(ctx, parts)
}

// Generate generates an image from text alone.
func (g *GeminiProvider) Generate(ctx context.Context, prompt string) (string, string, error) {
	return g.generateContent(ctx, []geminiPart{{Text: prompt}})
}

func (g *GeminiProvider) generateContent(ctx context.Context, parts []geminiPart) (string, string, error) {
	reqBody := geminiRequest{
		GenerationConfig: geminiGenerationConfig{
			Temperature:        1,
			TopP:               0.95,
			TopK:               40,
			MaxOutputTokens:    8192,
			ResponseModalities: []string{"TEXT", "IMAGE"},
		},
	}
	reqBody.Contents = append(reqBody.Contents, struct {
		Parts []geminiPart `json:"parts"`
	}{Parts: parts})

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return "", "", fmt.Errorf("read response: %w", err)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", "", fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if parsed.Error != nil {
		return "", "", fmt.Errorf("gemini error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("gemini status %d", resp.StatusCode)
	}

	// Scan all candidates for the first inline image part.
	for _, cand := range parsed.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				mime := part.InlineData.MimeType
				if mime == "" {
					mime = "image/png"
				}
				return part.InlineData.Data, mime, nil
			}
		}
	}

	return "", "", ErrNoImageInResponse
}
