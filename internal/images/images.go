// Package images sources stock photography for drafts. Image sourcing is
// strictly best-effort: a project with no provider configured, or a provider
// outage, results in an article with zero images, never a failed run.
package images

import (
	"context"
	"fmt"

	"autopress/internal/config"
	"autopress/internal/core"
)

// Provider is a stock-image search backend.
type Provider interface {
	// SearchImages returns up to limit images matching the query.
	SearchImages(ctx context.Context, query string, limit int) ([]core.Image, error)

	// GetName returns the name of the image provider
	GetName() string
}

// NewProvider creates the configured image provider, or nil when image
// sourcing is disabled.
func NewProvider(cfg config.Images) (Provider, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "pexels":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("pexels provider requires an API key")
		}
		return NewPexelsProvider(cfg.APIKey), nil
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unsupported image provider: %s", cfg.Provider)
	}
}
