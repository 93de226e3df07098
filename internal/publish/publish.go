// Package publish forwards finished drafts to an external content sink (a CMS
// or similar). Publishing may fail independently of generation; a sink failure
// never discards the generated artifact.
package publish

import (
	"context"

	"autopress/internal/core"
)

// Metadata carries publication metadata alongside the article body.
type Metadata struct {
	ProjectID       string   `json:"project_id"`
	Category        string   `json:"category"`
	Keywords        []string `json:"keywords"`
	MetaDescription string   `json:"meta_description"`
}

// Receipt is the sink's acknowledgment of a published article.
type Receipt struct {
	PublicURL  string `json:"public_url"`
	ExternalID string `json:"external_id"`
}

// Sink accepts an article and returns its public address.
type Sink interface {
	// Publish sends the draft to the sink and returns its receipt.
	Publish(ctx context.Context, draft *core.ArticleDraft, meta Metadata) (*Receipt, error)

	// GetName returns the name of the sink
	GetName() string
}
