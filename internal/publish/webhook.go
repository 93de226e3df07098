package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"autopress/internal/config"
	"autopress/internal/core"
	"autopress/internal/logger"
)

// WebhookSink publishes articles to a CMS webhook endpoint as JSON, using a
// bearer token for authentication.
type WebhookSink struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

// NewWebhookSink creates a sink for the configured endpoint, or nil when
// publishing is disabled (no endpoint configured).
func NewWebhookSink(cfg config.Publish) *WebhookSink {
	if cfg.Endpoint == "" {
		return nil
	}
	return &WebhookSink{
		endpoint:   cfg.Endpoint,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: config.Duration(cfg.Timeout, 60*time.Second)},
	}
}

// GetName returns the name of this sink
func (s *WebhookSink) GetName() string {
	return "CMS Webhook"
}

// publishRequest is the wire format the sink expects.
type publishRequest struct {
	Title           string       `json:"title"`
	HTMLBody        string       `json:"html_body"`
	MetaDescription string       `json:"meta_description"`
	Keywords        []string     `json:"keywords"`
	Images          []core.Image `json:"images"`
	Metadata        Metadata     `json:"metadata"`
}

// Publish POSTs the draft to the configured endpoint and decodes the receipt.
func (s *WebhookSink) Publish(ctx context.Context, draft *core.ArticleDraft, meta Metadata) (*Receipt, error) {
	payload := publishRequest{
		Title:           draft.Title,
		HTMLBody:        draft.HTMLBody,
		MetaDescription: draft.MetaDescription,
		Keywords:        draft.Keywords,
		Images:          draft.Images,
		Metadata:        meta,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal publish request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create publish request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute publish request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("content sink rejected publish with status %d: %s", resp.StatusCode, detail)
	}

	var receipt Receipt
	if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
		return nil, fmt.Errorf("failed to parse sink response: %w", err)
	}
	if receipt.PublicURL == "" {
		return nil, fmt.Errorf("content sink returned no public URL")
	}

	logger.Info("article published", "title", draft.Title, "url", receipt.PublicURL)
	return &receipt, nil
}
