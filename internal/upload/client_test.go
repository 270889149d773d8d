package upload

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vibemint/internal/domain"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestUploadWrappedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/content/content" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req uploadRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Prompt != "a dog" || len(req.Pictures) != 1 || req.Pictures[0] != "aW1n" {
			t.Errorf("unexpected request: %+v", req)
		}
		w.Write([]byte(`{"data":{"ipfsUri":"ipfs://meta","metadata":{"name":"Doge Supreme","description":"much wow"}}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	res := c.Upload(context.Background(), "aW1n", "a dog")

	if !res.OK {
		t.Fatalf("Upload failed: %s", res.Reason)
	}
	if res.StorageURI != "ipfs://meta" || res.Name != "Doge Supreme" || res.Description != "much wow" {
		t.Errorf("unexpected result: %+v", res)
	}
	if res.PreviewImage != "aW1n" {
		t.Error("preview should echo the submitted image when the backend sends none")
	}
}

func TestUploadUnwrappedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ipfsMetadataUri":"ipfs://alt","name":"Flat Coin"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	res := c.Upload(context.Background(), "aW1n", "p")

	if !res.OK {
		t.Fatalf("Upload failed: %s", res.Reason)
	}
	if res.StorageURI != "ipfs://alt" {
		t.Errorf("StorageURI = %q, ipfsMetadataUri should be accepted", res.StorageURI)
	}
	if res.Name != "Flat Coin" {
		t.Errorf("Name = %q, top-level name should be accepted", res.Name)
	}
}

func TestUploadDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ipfsUri":"ipfs://bare"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	res := c.Upload(context.Background(), "aW1n", "p")

	if !res.OK {
		t.Fatalf("Upload failed: %s", res.Reason)
	}
	if res.Name != domain.DefaultCoinName || res.Description != domain.DefaultCoinDescription {
		t.Errorf("missing metadata should default, got name=%q desc=%q", res.Name, res.Description)
	}
}

func TestUploadHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	res := c.Upload(context.Background(), "aW1n", "p")

	if res.OK {
		t.Fatal("should have failed")
	}
	if !strings.Contains(res.Reason, "502") {
		t.Errorf("HTTP failure reason should name the status, got %q", res.Reason)
	}
	if strings.Contains(strings.ToLower(res.Reason), "cors") {
		t.Error("HTTP failure must not be reported as a CORS problem")
	}
}

func TestUploadNetworkFailureMentionsCORS(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := NewClient(srv.URL, testLogger())
	res := c.Upload(context.Background(), "aW1n", "p")

	if res.OK {
		t.Fatal("should have failed")
	}
	if !strings.Contains(strings.ToLower(res.Reason), "cors") {
		t.Errorf("network failure reason should point at CORS configuration, got %q", res.Reason)
	}
}

func TestUploadMissingURI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"metadata":{"name":"No URI"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	res := c.Upload(context.Background(), "aW1n", "p")

	if res.OK {
		t.Fatal("response without a URI should fail")
	}
}
