package research

import (
	"context"
	"errors"
	"strings"
	"testing"

	"autopress/internal/core"
	"autopress/internal/llm"
	"autopress/internal/search"
)

type fakeLLM struct {
	response string
	err      error
	prompt   string
}

func (f *fakeLLM) Complete(_ context.Context, _, userPrompt string, _ llm.Options) (string, error) {
	f.prompt = userPrompt
	return f.response, f.err
}

func testProject() core.Project {
	return core.Project{
		ID:       "proj-1",
		Name:     "Garden Site",
		SiteURL:  "https://garden.example.com",
		Keywords: []string{"composting", "raised beds"},
		Mode:     core.ModeResearch,
	}
}

func TestProposeFiltersDuplicates(t *testing.T) {
	model := &fakeLLM{response: `[
		{"title": "10 Best Budget Laptops 2024", "topic": "budget laptops", "priority": "high", "category": "reviews", "score": 0.9, "search_volume": 5000},
		{"title": "Top 10 Budget Laptops of 2024", "topic": "budget laptops", "priority": "high", "category": "reviews", "score": 0.8, "search_volume": 4000},
		{"title": "How to Water Succulents Properly", "topic": "watering succulents", "priority": "medium", "category": "guides", "score": 0.6, "search_volume": 900}
	]`}

	r := NewRefiller(model, nil, 0)
	items, err := r.Propose(context.Background(), testProject(), nil, 5)
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}

	// The second proposal is a near-duplicate of the first within the batch.
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2: %+v", len(items), items)
	}
	if items[0].Title != "10 Best Budget Laptops 2024" {
		t.Errorf("first item = %q", items[0].Title)
	}
	if items[1].Title != "How to Water Succulents Properly" {
		t.Errorf("second item = %q", items[1].Title)
	}
	for _, item := range items {
		if item.Status != core.ItemIdea {
			t.Errorf("item %s status = %s, want idea", item.Title, item.Status)
		}
		if item.ProjectID != "proj-1" {
			t.Errorf("item %s project = %s", item.Title, item.ProjectID)
		}
		if item.ID == "" {
			t.Errorf("item %s has no id", item.Title)
		}
	}
}

func TestProposeFiltersAgainstExistingTitles(t *testing.T) {
	model := &fakeLLM{response: `[
		{"title": "Complete Guide to Composting at Home", "topic": "composting", "priority": "high", "category": "guides", "score": 0.9}
	]`}

	r := NewRefiller(model, nil, 0)
	existing := []string{"The Complete Guide to Composting at Home"}
	items, err := r.Propose(context.Background(), testProject(), existing, 5)
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected duplicate of an existing title to be dropped, got %+v", items)
	}
}

func TestProposeRespectsCap(t *testing.T) {
	model := &fakeLLM{response: `[
		{"title": "Growing Tomatoes in Containers"},
		{"title": "Pruning Fruit Trees in Winter"},
		{"title": "Building a Simple Cold Frame"}
	]`}

	r := NewRefiller(model, nil, 2)
	items, err := r.Propose(context.Background(), testProject(), nil, 5)
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("cap not applied: got %d items", len(items))
	}
}

func TestProposeIncludesSearchSnapshotAndExclusions(t *testing.T) {
	provider := search.NewMockProvider()
	provider.SetResults([]search.Result{
		{Title: "Composting 101", Snippet: "A beginner guide.", URL: "https://x.example.com"},
	})
	model := &fakeLLM{response: `[]`}

	r := NewRefiller(model, provider, 0)
	_, err := r.Propose(context.Background(), testProject(), []string{"Old Post"}, 3)
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	if !strings.Contains(model.prompt, "Composting 101") {
		t.Errorf("search snapshot missing from prompt:\n%s", model.prompt)
	}
	if !strings.Contains(model.prompt, "Old Post") {
		t.Errorf("existing titles missing from prompt:\n%s", model.prompt)
	}
}

func TestProposeModelFailure(t *testing.T) {
	model := &fakeLLM{err: errors.New("quota exhausted")}
	r := NewRefiller(model, nil, 0)
	if _, err := r.Propose(context.Background(), testProject(), nil, 3); err == nil {
		t.Fatal("expected error when the model fails")
	}
}

func TestNormalizePriority(t *testing.T) {
	tests := []struct {
		in   string
		want core.Priority
	}{
		{"high", core.PriorityHigh},
		{"HIGH", core.PriorityHigh},
		{"low", core.PriorityLow},
		{"medium", core.PriorityMedium},
		{"urgent", core.PriorityMedium},
		{"", core.PriorityMedium},
	}
	for _, tt := range tests {
		if got := normalizePriority(tt.in); got != tt.want {
			t.Errorf("normalizePriority(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
