package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"autopress/internal/logger"
)

// GoogleProvider implements Provider using Google Custom Search API
type GoogleProvider struct {
	apiKey    string
	searchID  string
	client    *http.Client
	baseURL   string
	rateLimit time.Duration

	mu       sync.Mutex // Guards lastCall; one provider is shared across project goroutines
	lastCall time.Time
}

// NewGoogleProvider creates a new Google Custom Search provider
func NewGoogleProvider(apiKey, searchID string) *GoogleProvider {
	return &GoogleProvider{
		apiKey:    apiKey,
		searchID:  searchID,
		client:    &http.Client{Timeout: 30 * time.Second},
		baseURL:   "https://www.googleapis.com/customsearch/v1",
		rateLimit: 100 * time.Millisecond,
	}
}

// GetName returns the name of this provider
func (g *GoogleProvider) GetName() string {
	return "Google Custom Search"
}

// Search performs a search using Google Custom Search API
func (g *GoogleProvider) Search(ctx context.Context, query string, config Config) ([]Result, error) {
	g.throttle()

	params := url.Values{}
	params.Set("key", g.apiKey)
	params.Set("cx", g.searchID)
	params.Set("q", query)
	// Google CSE allows at most 10 results per request
	params.Set("num", strconv.Itoa(min(config.MaxResults, 10)))

	if config.SinceTime > 0 {
		days := int(config.SinceTime.Hours() / 24)
		params.Set("sort", "date:r:"+time.Now().AddDate(0, 0, -days).Format("20060102"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google CSE request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute Google CSE request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google CSE request failed with status: %d", resp.StatusCode)
	}

	var apiResponse struct {
		Items []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"items"`
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, fmt.Errorf("failed to parse Google CSE response: %w", err)
	}
	if apiResponse.Error.Code != 0 {
		return nil, fmt.Errorf("google CSE API error (%d): %s", apiResponse.Error.Code, apiResponse.Error.Message)
	}

	var results []Result
	for i, item := range apiResponse.Items {
		results = append(results, Result{
			URL:     item.Link,
			Title:   item.Title,
			Snippet: item.Snippet,
			Domain:  extractDomain(item.Link),
			Source:  "Google",
			Rank:    i + 1,
		})
	}

	logger.Debug("Google Custom Search completed", "query", query, "results_found", len(results))
	return results, nil
}

// throttle spaces out API calls. Holding the lock through the sleep
// serializes concurrent callers at the rate limit.
func (g *GoogleProvider) throttle() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if elapsed := time.Since(g.lastCall); elapsed < g.rateLimit {
		time.Sleep(g.rateLimit - elapsed)
	}
	g.lastCall = time.Now()
}
