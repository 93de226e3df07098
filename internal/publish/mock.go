package publish

import (
	"context"
	"fmt"
	"sync"

	"autopress/internal/core"
)

// MockSink implements Sink for testing purposes
type MockSink struct {
	mu        sync.Mutex
	err       error
	published []string // Titles, in publish order
}

// NewMockSink creates a mock content sink.
func NewMockSink() *MockSink {
	return &MockSink{}
}

// GetName returns the name of this sink
func (m *MockSink) GetName() string {
	return "Mock"
}

// Publish records the draft title and returns a synthetic receipt.
func (m *MockSink) Publish(ctx context.Context, draft *core.ArticleDraft, meta Metadata) (*Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.published = append(m.published, draft.Title)
	return &Receipt{
		PublicURL:  fmt.Sprintf("https://cms.example.com/posts/%d", len(m.published)),
		ExternalID: fmt.Sprintf("post-%d", len(m.published)),
	}, nil
}

// Published returns the titles published so far.
func (m *MockSink) Published() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.published...)
}

// SetError makes every subsequent publish fail with err.
func (m *MockSink) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}
