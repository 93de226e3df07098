package images

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"autopress/internal/config"
)

func TestPexelsProvider_SearchImages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "test-key" {
			t.Errorf("missing API key header")
		}
		if got := r.URL.Query().Get("per_page"); got != "2" {
			t.Errorf("per_page = %s, want 2", got)
		}
		_, _ = w.Write([]byte(`{
			"photos": [
				{"alt": "a laptop on a desk", "photographer": "Ada", "src": {"large": "https://img.example.com/1.jpg"}},
				{"alt": "", "photographer": "Grace", "src": {"large": "https://img.example.com/2.jpg"}},
				{"alt": "broken entry", "photographer": "X", "src": {"large": ""}}
			]
		}`))
	}))
	defer server.Close()

	p := NewPexelsProvider("test-key")
	p.baseURL = server.URL

	images, err := p.SearchImages(context.Background(), "budget laptops", 2)
	if err != nil {
		t.Fatalf("SearchImages failed: %v", err)
	}
	if len(images) != 2 {
		t.Fatalf("expected 2 images (entry without a URL dropped), got %d", len(images))
	}
	if images[1].Alt != "budget laptops" {
		t.Errorf("empty alt should fall back to the query, got %q", images[1].Alt)
	}
}

func TestPexelsProvider_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	p := NewPexelsProvider("bad-key")
	p.baseURL = server.URL

	if _, err := p.SearchImages(context.Background(), "q", 3); err == nil {
		t.Fatal("non-200 response should be an error")
	}
}

func TestNewProvider(t *testing.T) {
	if p, err := NewProvider(config.Images{}); err != nil || p != nil {
		t.Errorf("empty provider config should disable image sourcing, got %v, %v", p, err)
	}
	if _, err := NewProvider(config.Images{Provider: "pexels"}); err == nil {
		t.Error("pexels without an API key should error")
	}
	if p, err := NewProvider(config.Images{Provider: "mock"}); err != nil || p == nil {
		t.Errorf("mock provider should always construct, got %v, %v", p, err)
	}
	if _, err := NewProvider(config.Images{Provider: "shutterstock"}); err == nil {
		t.Error("unknown provider should error")
	}
}
