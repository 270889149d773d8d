package imagegen_test

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vibemint/internal/domain"
	"vibemint/internal/imagegen"
	"vibemint/internal/imagegen/stub"
)

const placeholder = "/placeholder-coin.png"

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newPipeline(t *testing.T, primary, fallback imagegen.Provider, imageSrv http.Handler) (*imagegen.Pipeline, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(imageSrv)
	t.Cleanup(srv.Close)

	fetcher := imagegen.NewFetcher(srv.URL+"/proxy", testLogger())
	return imagegen.NewPipeline(fetcher, primary, fallback, placeholder, testLogger()), srv
}

func serveImages(paths map[string][]byte) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if body, ok := paths[r.URL.Path]; ok {
			w.Write(body)
			return
		}
		http.NotFound(w, r)
	})
}

func TestGenerateTextOnly(t *testing.T) {
	primary := stub.NewProvider("gemini", "aW1n", "image/png")
	p, _ := newPipeline(t, primary, nil, serveImages(nil))

	res := p.Generate(context.Background(), domain.GenerationRequest{Prompt: "a happy dog"})
	if !res.OK {
		t.Fatalf("Generate failed: %s", res.Reason)
	}
	if res.ImageData != "aW1n" || res.MimeType != "image/png" {
		t.Errorf("unexpected result: %+v", res)
	}
	if got := primary.LastCall(); got.Path != "text" {
		t.Errorf("path = %q, want text with no reference images", got.Path)
	}
}

func TestGenerateEmptyRequestFails(t *testing.T) {
	primary := stub.NewProvider("gemini", "aW1n", "image/png")
	p, _ := newPipeline(t, primary, nil, serveImages(nil))

	res := p.Generate(context.Background(), domain.GenerationRequest{})
	if res.OK {
		t.Fatal("empty request should fail")
	}
	if primary.CallCount() != 0 {
		t.Error("invalid request must not reach a provider")
	}
}

func TestGenerateUsesEditWithImages(t *testing.T) {
	primary := stub.NewProvider("gemini", "aW1n", "image/png")
	p, srv := newPipeline(t, primary, nil, serveImages(map[string][]byte{
		"/a.png": []byte("imagebytes-a"),
		"/b.jpg": []byte("imagebytes-b"),
	}))

	res := p.Generate(context.Background(), domain.GenerationRequest{
		ImageURLs: []string{srv.URL + "/a.png", srv.URL + "/b.jpg"},
		Prompt:    "combine them",
	})
	if !res.OK {
		t.Fatalf("Generate failed: %s", res.Reason)
	}
	call := primary.LastCall()
	if call.Path != "edit" || call.Images != 2 {
		t.Errorf("call = %+v, want edit with 2 images", call)
	}
}

func TestGenerateProceedsWhenOneFetchFails(t *testing.T) {
	primary := stub.NewProvider("gemini", "aW1n", "image/png")
	p, srv := newPipeline(t, primary, nil, serveImages(map[string][]byte{
		"/ok.png": []byte("imagebytes"),
	}))

	res := p.Generate(context.Background(), domain.GenerationRequest{
		ImageURLs: []string{srv.URL + "/ok.png", srv.URL + "/missing.png"},
		Prompt:    "combine them",
	})
	if !res.OK {
		t.Fatalf("Generate failed: %s", res.Reason)
	}
	call := primary.LastCall()
	if call.Path != "edit" || call.Images != 1 {
		t.Errorf("call = %+v, want edit with exactly 1 surviving image", call)
	}
}

func TestGeneratePlaceholderSkipped(t *testing.T) {
	primary := stub.NewProvider("gemini", "aW1n", "image/png")
	p, _ := newPipeline(t, primary, nil, serveImages(nil))

	res := p.Generate(context.Background(), domain.GenerationRequest{
		ImageURLs: []string{placeholder},
		Prompt:    "just the prompt then",
	})
	if !res.OK {
		t.Fatalf("Generate failed: %s", res.Reason)
	}
	if got := primary.LastCall(); got.Path != "text" {
		t.Errorf("placeholder should be skipped, provider saw path %q", got.Path)
	}
}

func TestGenerateDefaultPromptNamesCoins(t *testing.T) {
	primary := stub.NewProvider("gemini", "aW1n", "image/png")
	p, srv := newPipeline(t, primary, nil, serveImages(map[string][]byte{
		"/a.png": []byte("imagebytes"),
	}))

	p.Generate(context.Background(), domain.GenerationRequest{
		ImageURLs: []string{srv.URL + "/a.png"},
		CoinNames: []string{"Doge Classic", "Cat Coin"},
	})

	prompt := primary.LastCall().Prompt
	if !strings.Contains(prompt, "Doge Classic") || !strings.Contains(prompt, "Cat Coin") {
		t.Errorf("default prompt should name the coins, got %q", prompt)
	}
}

func TestGenerateFallbackOnce(t *testing.T) {
	primary := stub.NewProvider("gemini", "", "")
	primary.EditErr = errors.New("quota exceeded")
	primary.GenerateErr = errors.New("quota exceeded")
	fallback := stub.NewProvider("openai", "ZmFsbGJhY2s=", "image/png")

	p, srv := newPipeline(t, primary, fallback, serveImages(map[string][]byte{
		"/a.png": []byte("imagebytes"),
	}))

	res := p.Generate(context.Background(), domain.GenerationRequest{
		ImageURLs: []string{srv.URL + "/a.png"},
		Prompt:    "try it",
		CoinNames: []string{"Doge Classic"},
	})
	if !res.OK {
		t.Fatalf("fallback should have succeeded: %s", res.Reason)
	}
	if res.ImageData != "ZmFsbGJhY2s=" {
		t.Error("result should come from the fallback provider")
	}
	if primary.CallCount() != 1 || fallback.CallCount() != 1 {
		t.Errorf("calls = %d primary / %d fallback, want exactly 1 each",
			primary.CallCount(), fallback.CallCount())
	}

	call := fallback.LastCall()
	if call.Path != "text" {
		t.Errorf("fallback path = %q, want text-only", call.Path)
	}
	if !strings.Contains(call.Prompt, "Doge Classic") {
		t.Errorf("fallback prompt should be enriched with coin names, got %q", call.Prompt)
	}
}

func TestGenerateBothFailReportsSpecificReason(t *testing.T) {
	primary := stub.NewProvider("gemini", "", "")
	primary.GenerateErr = errors.New("primary broke")
	fallback := stub.NewProvider("openai", "", "")
	fallback.GenerateErr = errors.New("fallback broke")

	p, _ := newPipeline(t, primary, fallback, serveImages(nil))

	res := p.Generate(context.Background(), domain.GenerationRequest{Prompt: "x"})
	if res.OK {
		t.Fatal("should have failed")
	}
	if res.Reason != "fallback broke" {
		t.Errorf("Reason = %q, want the fallback's error", res.Reason)
	}
	if primary.CallCount() != 1 || fallback.CallCount() != 1 {
		t.Error("no more than two provider calls total")
	}
}

func TestGenerateNoFallbackConfigured(t *testing.T) {
	primary := stub.NewProvider("gemini", "", "")
	primary.GenerateErr = errors.New("primary broke")

	p, _ := newPipeline(t, primary, nil, serveImages(nil))

	res := p.Generate(context.Background(), domain.GenerationRequest{Prompt: "x"})
	if res.OK {
		t.Fatal("should have failed")
	}
	if res.Reason != "primary broke" {
		t.Errorf("Reason = %q", res.Reason)
	}
}
