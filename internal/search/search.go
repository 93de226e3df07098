// Package search provides pluggable web-search providers for keyword and
// competitive-content research. Providers are best-effort collaborators: any
// of them may be absent or failing, and callers absorb that through the
// pipeline's stage fallback policy.
package search

import (
	"context"
	"time"
)

// Provider defines the unified interface for search providers
type Provider interface {
	// Search performs a search with configuration
	Search(ctx context.Context, query string, config Config) ([]Result, error)

	// GetName returns the name of the search provider
	GetName() string
}

// Config holds configuration for search requests
type Config struct {
	MaxResults int           // Maximum number of results to return
	SinceTime  time.Duration // Only return results newer than this duration
}

// Result represents a unified search result
type Result struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Domain  string `json:"domain"`
	Source  string `json:"source"` // Provider-specific source identifier
	Rank    int    `json:"rank"`   // Position in search results
}

// ProviderType represents the type of search provider
type ProviderType string

const (
	ProviderTypeGoogle  ProviderType = "google"
	ProviderTypeSerpAPI ProviderType = "serpapi"
	ProviderTypeMock    ProviderType = "mock"
)

// NewProvider creates a search provider of the specified type. Credentials
// come in as a flat map so config wiring stays in one place.
func NewProvider(providerType ProviderType, credentials map[string]string) (Provider, error) {
	switch providerType {
	case ProviderTypeGoogle:
		apiKey, ok := credentials["api_key"]
		if !ok || apiKey == "" {
			return nil, ErrMissingAPIKey
		}
		searchID, ok := credentials["search_id"]
		if !ok || searchID == "" {
			return nil, ErrMissingSearchID
		}
		return NewGoogleProvider(apiKey, searchID), nil
	case ProviderTypeSerpAPI:
		apiKey, ok := credentials["api_key"]
		if !ok || apiKey == "" {
			return nil, ErrMissingAPIKey
		}
		return NewSerpAPIProvider(apiKey), nil
	case ProviderTypeMock:
		return NewMockProvider(), nil
	default:
		return nil, ErrUnsupportedProvider
	}
}
