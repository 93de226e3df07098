package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"autopress/internal/core"
	"autopress/internal/images"
	"autopress/internal/llm"
	"autopress/internal/search"
)

const writerSystemPrompt = "You are a senior content strategist and writer producing publish-ready web articles. Respond with exactly the format requested and nothing else."

// brandContextStage derives the writing persona from the project's hints.
type brandContextStage struct {
	llm TextCompleter
}

func (s *brandContextStage) Name() string { return "brand-context" }

func (s *brandContextStage) Run(ctx context.Context, job *Job) error {
	prompt := fmt.Sprintf(`Derive a writing persona for articles published on %s.

Site name: %s
Brand voice hint: %s
Audience hint: %s
Seed keywords: %s

Respond with JSON:
{"persona": "one sentence describing the author persona", "tone": "2-4 adjectives", "audience": "one sentence describing the target reader"}`,
		orUnknown(job.Project.SiteURL),
		job.Project.Name,
		orUnknown(job.Project.BrandVoice),
		orUnknown(job.Project.Audience),
		strings.Join(job.Project.Keywords, ", "),
	)

	resp, err := s.llm.Complete(ctx, writerSystemPrompt, prompt, llm.Options{MaxTokens: 512, Temperature: 0.3})
	if err != nil {
		return err
	}

	var profile BrandProfile
	if err := llm.ExtractJSON(resp, &profile); err != nil {
		return err
	}
	if profile.Persona == "" {
		return fmt.Errorf("model returned an empty persona")
	}
	job.Brand = profile
	return nil
}

// genericBrand is the brand-context fallback: a neutral persona seeded from
// whatever hints the project carries.
func genericBrand(p core.Project) BrandProfile {
	profile := BrandProfile{
		Persona:  "an experienced writer covering the site's subject matter clearly and practically",
		Tone:     "clear, helpful, confident",
		Audience: "general readers researching the topic",
	}
	if p.BrandVoice != "" {
		profile.Tone = p.BrandVoice
	}
	if p.Audience != "" {
		profile.Audience = p.Audience
	}
	return profile
}

// keywordResearchStage expands the work item into an SEO keyword plan.
type keywordResearchStage struct {
	llm TextCompleter
}

func (s *keywordResearchStage) Name() string { return "keyword-research" }

func (s *keywordResearchStage) Run(ctx context.Context, job *Job) error {
	prompt := fmt.Sprintf(`Build a keyword plan for an article.

Article title: %s
Topic: %s
Site seed keywords: %s

Respond with JSON:
{"primary": "the main keyword to target", "secondary": ["3-6 related keywords"], "intent": "informational|commercial|transactional", "competition": "low|medium|high", "target_density": 0.015}`,
		job.Item.Title,
		orUnknown(job.Item.Topic),
		strings.Join(job.Project.Keywords, ", "),
	)

	resp, err := s.llm.Complete(ctx, writerSystemPrompt, prompt, llm.Options{MaxTokens: 512, Temperature: 0.3})
	if err != nil {
		return err
	}

	var plan KeywordPlan
	if err := llm.ExtractJSON(resp, &plan); err != nil {
		return err
	}
	if plan.Primary == "" {
		return fmt.Errorf("model returned no primary keyword")
	}
	if plan.TargetDensity <= 0 {
		plan.TargetDensity = defaultTargetDensity
	}
	job.Keywords = plan
	return nil
}

const defaultTargetDensity = 0.015

// fallbackKeywords is the keyword-research fallback: the project's raw seed
// keywords with conservative defaults.
func fallbackKeywords(p core.Project, item core.WorkItem) KeywordPlan {
	primary := item.Topic
	if primary == "" {
		primary = strings.ToLower(item.Title)
	}
	return KeywordPlan{
		Primary:       primary,
		Secondary:     p.Keywords,
		Intent:        "informational",
		Competition:   "unknown",
		TargetDensity: defaultTargetDensity,
	}
}

// serpAnalysisStage searches for the item's title and asks the model what the
// current top results cover and where the gaps are.
type serpAnalysisStage struct {
	llm    TextCompleter
	search search.Provider
}

func (s *serpAnalysisStage) Name() string { return "serp-analysis" }

func (s *serpAnalysisStage) Run(ctx context.Context, job *Job) error {
	results, err := s.search.Search(ctx, job.Item.Title, search.Config{MaxResults: 8})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if len(results) == 0 {
		return search.ErrNoResults
	}

	var listing strings.Builder
	for i, r := range results {
		listing.WriteString(fmt.Sprintf("%d. %s (%s)\n   %s\n", i+1, r.Title, r.Domain, r.Snippet))
	}

	prompt := fmt.Sprintf(`These are the current top search results for "%s":

%s
Respond with JSON:
{"common_headings": ["headings or subtopics most results cover"], "angles": ["2-4 angles the results neglect that a new article could own"], "avg_word_count": 1200}`,
		job.Item.Title, listing.String())

	resp, err := s.llm.Complete(ctx, writerSystemPrompt, prompt, llm.Options{MaxTokens: 1024, Temperature: 0.4})
	if err != nil {
		return err
	}

	var insights SERPInsights
	if err := llm.ExtractJSON(resp, &insights); err != nil {
		return err
	}
	job.SERP = &insights
	return nil
}

// imageSourcingStage attaches stock images for the primary keyword.
type imageSourcingStage struct {
	images images.Provider
}

func (s *imageSourcingStage) Name() string { return "image-sourcing" }

func (s *imageSourcingStage) Run(ctx context.Context, job *Job) error {
	query := job.Keywords.Primary
	if query == "" {
		query = job.Item.Title
	}
	imgs, err := s.images.SearchImages(ctx, query, 3)
	if err != nil {
		return err
	}
	job.Images = imgs
	return nil
}

// outlineStage produces the article skeleton. Failure here is fatal: there is
// nothing sensible to draft without an outline.
type outlineStage struct {
	llm TextCompleter
}

func (s *outlineStage) Name() string { return "outline" }

func (s *outlineStage) Run(ctx context.Context, job *Job) error {
	var serpNotes string
	if job.SERP != nil {
		serpNotes = fmt.Sprintf(`Competing articles cover: %s
Angles to differentiate on: %s
Typical length: around %d words`,
			strings.Join(job.SERP.CommonHeadings, "; "),
			strings.Join(job.SERP.Angles, "; "),
			job.SERP.AvgWordCount)
	}

	prompt := fmt.Sprintf(`Outline an article titled "%s".

Persona: %s
Tone: %s
Audience: %s
Primary keyword: %s
Secondary keywords: %s
%s

Respond with JSON:
{"title": "final article title", "meta_description": "under 160 characters", "sections": [{"heading": "H2 heading", "points": ["2-4 points to cover"]}]}

Use 4-7 sections.`,
		job.Item.Title,
		job.Brand.Persona,
		job.Brand.Tone,
		job.Brand.Audience,
		job.Keywords.Primary,
		strings.Join(job.Keywords.Secondary, ", "),
		serpNotes,
	)

	resp, err := s.llm.Complete(ctx, writerSystemPrompt, prompt, llm.Options{MaxTokens: 2048, Temperature: 0.5})
	if err != nil {
		return err
	}

	var outline Outline
	if err := llm.ExtractJSON(resp, &outline); err != nil {
		return err
	}
	if outline.Title == "" || len(outline.Sections) == 0 {
		return fmt.Errorf("model returned an unusable outline")
	}
	job.Outline = &outline
	return nil
}

// draftStage expands the outline into the full HTML article. Fatal on failure.
type draftStage struct {
	llm TextCompleter
}

func (s *draftStage) Name() string { return "draft" }

func (s *draftStage) Run(ctx context.Context, job *Job) error {
	var skeleton strings.Builder
	for _, section := range job.Outline.Sections {
		skeleton.WriteString("## " + section.Heading + "\n")
		for _, point := range section.Points {
			skeleton.WriteString("- " + point + "\n")
		}
	}

	prompt := fmt.Sprintf(`Write the full article "%s" following this outline:

%s
Persona: %s
Tone: %s
Audience: %s
Work the primary keyword "%s" in naturally; aim for a density around %.1f%%. Also use: %s.

Respond with HTML only (no <html>, <head> or <body> wrapper): an <h1> title, then <h2> sections with <p> paragraphs, using <ul>/<ol> where the outline calls for lists.`,
		job.Outline.Title,
		skeleton.String(),
		job.Brand.Persona,
		job.Brand.Tone,
		job.Brand.Audience,
		job.Keywords.Primary,
		job.Keywords.TargetDensity*100,
		strings.Join(job.Keywords.Secondary, ", "),
	)

	resp, err := s.llm.Complete(ctx, writerSystemPrompt, prompt, llm.Options{MaxTokens: 8192, Temperature: 0.7})
	if err != nil {
		return err
	}

	html := trimCodeFence(resp)
	if html == "" {
		return fmt.Errorf("model returned an empty draft")
	}

	job.Article = &core.ArticleDraft{
		ID:              uuid.NewString(),
		WorkItemID:      job.Item.ID,
		Title:           job.Outline.Title,
		HTMLBody:        html,
		MetaDescription: job.Outline.MetaDescription,
		Keywords:        append([]string{job.Keywords.Primary}, job.Keywords.Secondary...),
		Images:          job.Images,
		WordCount:       countWords(html),
		GeneratedAt:     time.Now().UTC(),
	}
	return nil
}

// trimCodeFence strips a markdown code fence the model sometimes wraps HTML in.
func trimCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func orUnknown(s string) string {
	if s == "" {
		return "(not provided)"
	}
	return s
}
