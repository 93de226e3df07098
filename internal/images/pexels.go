package images

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"autopress/internal/core"
	"autopress/internal/logger"
)

// PexelsProvider implements Provider using the Pexels photo API.
type PexelsProvider struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
}

// NewPexelsProvider creates a new Pexels API client
func NewPexelsProvider(apiKey string) *PexelsProvider {
	return &PexelsProvider{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    "https://api.pexels.com/v1",
	}
}

// GetName returns the name of this provider
func (p *PexelsProvider) GetName() string {
	return "Pexels"
}

// pexelsPhoto is one photo entry in a Pexels search response.
type pexelsPhoto struct {
	Alt          string `json:"alt"`
	Photographer string `json:"photographer"`
	Src          struct {
		Large string `json:"large"`
	} `json:"src"`
}

// SearchImages queries the Pexels search endpoint.
func (p *PexelsProvider) SearchImages(ctx context.Context, query string, limit int) ([]core.Image, error) {
	if limit <= 0 {
		limit = 3
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Pexels request: %w", err)
	}
	req.Header.Set("Authorization", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute Pexels request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pexels request failed with status: %d", resp.StatusCode)
	}

	var apiResponse struct {
		Photos []pexelsPhoto `json:"photos"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, fmt.Errorf("failed to parse Pexels response: %w", err)
	}

	images := make([]core.Image, 0, len(apiResponse.Photos))
	for _, photo := range apiResponse.Photos {
		if photo.Src.Large == "" {
			continue
		}
		alt := photo.Alt
		if alt == "" {
			alt = query
		}
		images = append(images, core.Image{
			URL:          photo.Src.Large,
			Alt:          alt,
			Photographer: photo.Photographer,
		})
	}

	logger.Debug("Pexels search completed", "query", query, "images_found", len(images))
	return images, nil
}
