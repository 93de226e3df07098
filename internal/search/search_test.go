package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name         string
		providerType ProviderType
		credentials  map[string]string
		wantErr      error
	}{
		{"mock needs nothing", ProviderTypeMock, nil, nil},
		{"serpapi with key", ProviderTypeSerpAPI, map[string]string{"api_key": "k"}, nil},
		{"serpapi missing key", ProviderTypeSerpAPI, map[string]string{}, ErrMissingAPIKey},
		{"google with credentials", ProviderTypeGoogle, map[string]string{"api_key": "k", "search_id": "cx"}, nil},
		{"google missing search id", ProviderTypeGoogle, map[string]string{"api_key": "k"}, ErrMissingSearchID},
		{"unknown type", ProviderType("bing"), nil, ErrUnsupportedProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.providerType, tt.credentials)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("NewProvider error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && p == nil {
				t.Error("expected a provider")
			}
		})
	}
}

func TestSerpAPIProvider_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "budget laptops" {
			t.Errorf("unexpected query: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"organic_results": [
				{"title": "Top Laptops", "link": "https://www.example.com/laptops", "snippet": "The best picks.", "position": 1},
				{"title": "Runner Up", "link": "https://other.org/post", "snippet": "Also good.", "position": 2}
			]
		}`))
	}))
	defer server.Close()

	p := NewSerpAPIProvider("test-key")
	p.baseURL = server.URL
	p.rateLimit = 0

	results, err := p.Search(context.Background(), "budget laptops", Config{MaxResults: 5})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Domain != "example.com" {
		t.Errorf("www. prefix should be stripped from domain, got %q", results[0].Domain)
	}
	if results[0].Rank != 1 || results[1].Rank != 2 {
		t.Error("result ranks should follow API positions")
	}
}

func TestSerpAPIProvider_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error": {"code": 429, "message": "rate limited"}}`))
	}))
	defer server.Close()

	p := NewSerpAPIProvider("test-key")
	p.baseURL = server.URL
	p.rateLimit = 0

	if _, err := p.Search(context.Background(), "anything", Config{MaxResults: 5}); err == nil {
		t.Fatal("API-level error should surface as an error")
	}
}

func TestGoogleProvider_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("num"); got != "10" {
			t.Errorf("results should be capped at 10 per request, got num=%s", got)
		}
		_, _ = w.Write([]byte(`{"items": [{"title": "Hit", "link": "https://example.com/a", "snippet": "s"}]}`))
	}))
	defer server.Close()

	p := NewGoogleProvider("key", "cx")
	p.baseURL = server.URL
	p.rateLimit = 0

	results, err := p.Search(context.Background(), "q", Config{MaxResults: 25})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 || results[0].Source != "Google" {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestGoogleProvider_ConcurrentSearches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items": [{"title": "Hit", "link": "https://example.com/a", "snippet": "s"}]}`))
	}))
	defer server.Close()

	// One provider instance is shared by all parallel project goroutines.
	p := NewGoogleProvider("key", "cx")
	p.baseURL = server.URL
	p.rateLimit = time.Millisecond

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 2; j++ {
				if _, err := p.Search(context.Background(), "q", Config{MaxResults: 3}); err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent search failed: %v", err)
	}
}

func TestMockProvider_Search(t *testing.T) {
	p := NewMockProvider()

	results, err := p.Search(context.Background(), "test query", Config{MaxResults: 1})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	p.SetError(ErrNoResults)
	if _, err := p.Search(context.Background(), "q", Config{}); !errors.Is(err, ErrNoResults) {
		t.Error("configured error should be returned")
	}
}
