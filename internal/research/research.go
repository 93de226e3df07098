// Package research refills a project's idea backlog with fresh topic
// proposals. Proposals come from the model, optionally informed by a live
// search snapshot, and are filtered against everything the project has
// already covered so the backlog never accumulates near-duplicates.
package research

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"autopress/internal/core"
	"autopress/internal/dedup"
	"autopress/internal/llm"
	"autopress/internal/logger"
	"autopress/internal/search"
)

// DefaultCap bounds how many proposals one refill may produce.
const DefaultCap = 10

// TextCompleter is the model capability the refiller needs.
type TextCompleter interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, opts llm.Options) (string, error)
}

// Refiller proposes new work items for research-mode projects.
type Refiller struct {
	llm    TextCompleter
	search search.Provider // Optional; nil skips the search snapshot
	cap    int
}

// NewRefiller creates a refiller. maxProposals <= 0 uses DefaultCap.
func NewRefiller(llmClient TextCompleter, searchProvider search.Provider, maxProposals int) *Refiller {
	if maxProposals <= 0 {
		maxProposals = DefaultCap
	}
	return &Refiller{
		llm:    llmClient,
		search: searchProvider,
		cap:    maxProposals,
	}
}

// proposal is the wire shape the model is asked to return.
type proposal struct {
	Title        string  `json:"title"`
	Topic        string  `json:"topic"`
	Priority     string  `json:"priority"`
	Category     string  `json:"category"`
	Score        float64 `json:"score"`
	SearchVolume int     `json:"search_volume"`
}

// Propose returns up to n new idea items for the project. Candidates too
// similar to an existing title, or to an earlier candidate in the same batch,
// are dropped silently.
func (r *Refiller) Propose(ctx context.Context, project core.Project, existingTitles []string, n int) ([]core.WorkItem, error) {
	if n <= 0 {
		return nil, nil
	}
	if n > r.cap {
		n = r.cap
	}

	snapshot := r.searchSnapshot(ctx, project)
	prompt := buildPrompt(project, existingTitles, snapshot, n)

	resp, err := r.llm.Complete(ctx, researchSystemPrompt, prompt, llm.Options{MaxTokens: 2048, Temperature: 0.8})
	if err != nil {
		return nil, fmt.Errorf("failed to generate topic proposals: %w", err)
	}

	var proposals []proposal
	if err := llm.ExtractJSON(resp, &proposals); err != nil {
		return nil, fmt.Errorf("failed to parse topic proposals: %w", err)
	}

	seen := append([]string(nil), existingTitles...)
	now := time.Now().UTC()
	var items []core.WorkItem
	for _, p := range proposals {
		if len(items) >= n {
			break
		}
		if p.Title == "" {
			continue
		}
		if dedup.IsDuplicate(p.Title, seen) {
			logger.Debug("dropping near-duplicate proposal", "project", project.ID, "title", p.Title)
			continue
		}
		seen = append(seen, p.Title)
		items = append(items, core.WorkItem{
			ID:           uuid.NewString(),
			ProjectID:    project.ID,
			Title:        p.Title,
			Topic:        p.Topic,
			Priority:     normalizePriority(p.Priority),
			Category:     p.Category,
			Score:        p.Score,
			SearchVolume: p.SearchVolume,
			Status:       core.ItemIdea,
			CreatedAt:    now,
		})
	}

	logger.Info("research refill proposed items",
		"project", project.ID, "proposed", len(proposals), "accepted", len(items))
	return items, nil
}

const researchSystemPrompt = "You are a content strategist planning an editorial calendar. Respond with exactly the JSON requested and nothing else."

// searchSnapshot gathers a small view of what currently ranks for the
// project's seed keywords. Best-effort: failures degrade to no snapshot.
func (r *Refiller) searchSnapshot(ctx context.Context, project core.Project) string {
	if r.search == nil || len(project.Keywords) == 0 {
		return ""
	}
	results, err := r.search.Search(ctx, strings.Join(project.Keywords, " "), search.Config{MaxResults: 8})
	if err != nil {
		logger.Warn("research search snapshot failed", "project", project.ID, "error", err.Error())
		return ""
	}
	var b strings.Builder
	for i, res := range results {
		b.WriteString(fmt.Sprintf("%d. %s\n   %s\n", i+1, res.Title, res.Snippet))
	}
	return b.String()
}

func buildPrompt(project core.Project, existingTitles []string, snapshot string, n int) string {
	var b strings.Builder
	fmt.Fprintf(&b, `Propose %d new article topics for %s.

Site: %s
Seed keywords: %s
Audience: %s
`, n, project.Name, orNone(project.SiteURL), strings.Join(project.Keywords, ", "), orNone(project.Audience))

	if snapshot != "" {
		fmt.Fprintf(&b, "\nCurrent top search results for the seed keywords:\n%s", snapshot)
	}
	if len(existingTitles) > 0 {
		fmt.Fprintf(&b, "\nAlready covered, do not repeat or rephrase:\n- %s\n", strings.Join(existingTitles, "\n- "))
	}

	b.WriteString(`
Respond with a JSON array:
[{"title": "article title", "topic": "primary keyword phrase", "priority": "high|medium|low", "category": "content category", "score": 0.0, "search_volume": 0}]

Score each topic 0-1 for expected traffic value. Estimate monthly search volume.`)
	return b.String()
}

func normalizePriority(s string) core.Priority {
	switch core.Priority(strings.ToLower(s)) {
	case core.PriorityHigh:
		return core.PriorityHigh
	case core.PriorityLow:
		return core.PriorityLow
	default:
		return core.PriorityMedium
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
