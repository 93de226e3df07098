package images

import (
	"context"

	"autopress/internal/core"
)

// MockProvider implements Provider for testing purposes
type MockProvider struct {
	images []core.Image
	err    error
}

// NewMockProvider creates a mock image provider with a fixed result set.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		images: []core.Image{
			{URL: "https://images.example.com/1.jpg", Alt: "stock photo one", Photographer: "Test Author"},
			{URL: "https://images.example.com/2.jpg", Alt: "stock photo two", Photographer: "Test Author"},
		},
	}
}

// GetName returns the name of this provider
func (m *MockProvider) GetName() string {
	return "Mock"
}

// SearchImages returns the configured images, trimmed to limit.
func (m *MockProvider) SearchImages(ctx context.Context, query string, limit int) ([]core.Image, error) {
	if m.err != nil {
		return nil, m.err
	}
	if limit > 0 && limit < len(m.images) {
		return m.images[:limit], nil
	}
	return m.images, nil
}

// SetImages replaces the mock result set.
func (m *MockProvider) SetImages(images []core.Image) {
	m.images = images
}

// SetError makes every subsequent search fail with err.
func (m *MockProvider) SetError(err error) {
	m.err = err
}
