package pipeline

import (
	"context"

	"autopress/internal/core"
	"autopress/internal/llm"
)

// TextCompleter is the one LLM capability the pipeline needs. *llm.Client
// satisfies it; tests substitute a canned implementation.
type TextCompleter interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, opts llm.Options) (string, error)
}

// Stage is one step of article generation. Stages run in a fixed order and
// communicate only through the shared Job, so each one can be replaced or
// stubbed independently.
type Stage interface {
	// Name returns the stage label used in progress events and logs.
	Name() string

	// Run executes the stage, reading and mutating the job in place.
	Run(ctx context.Context, job *Job) error
}

// Job is the mutable working state threaded through the stages for a single
// work item. Early stages fill the research fields; outline and draft consume
// them; enrichment post-processes the finished article.
type Job struct {
	Project core.Project
	Item    core.WorkItem

	Brand    BrandProfile
	Keywords KeywordPlan
	SERP     *SERPInsights // Nil when SERP analysis was unavailable
	Images   []core.Image

	Outline *Outline
	Article *core.ArticleDraft
}

// BrandProfile is the writing persona derived from the project's site and
// hints. Every value has a generic fallback so downstream prompts never see
// an empty profile.
type BrandProfile struct {
	Persona  string `json:"persona"`
	Tone     string `json:"tone"`
	Audience string `json:"audience"`
}

// KeywordPlan targets the draft's SEO terms.
type KeywordPlan struct {
	Primary       string   `json:"primary"`
	Secondary     []string `json:"secondary"`
	Intent        string   `json:"intent"`      // informational, commercial, transactional
	Competition   string   `json:"competition"` // low, medium, high, unknown
	TargetDensity float64  `json:"target_density"`
}

// SERPInsights summarizes what already ranks for the topic.
type SERPInsights struct {
	CommonHeadings []string `json:"common_headings"`
	Angles         []string `json:"angles"` // Differentiation opportunities
	AvgWordCount   int      `json:"avg_word_count"`
}

// Outline is the article skeleton the draft stage expands.
type Outline struct {
	Title           string           `json:"title"`
	MetaDescription string           `json:"meta_description"`
	Sections        []OutlineSection `json:"sections"`
}

// OutlineSection is one H2 block of the outline.
type OutlineSection struct {
	Heading string   `json:"heading"`
	Points  []string `json:"points"`
}
