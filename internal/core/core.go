package core

import "time"

// Frequency controls how often a project's autopilot run recurs.
type Frequency string

const (
	FreqTwiceDaily  Frequency = "twice_daily"
	FreqDaily       Frequency = "daily"
	FreqThreeWeekly Frequency = "three_weekly"
	FreqWeekdays    Frequency = "weekdays"
	FreqWeekly      Frequency = "weekly"
	FreqMonthly     Frequency = "monthly"
)

// Priority ranks a work item for selection. Lower rank runs first.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank returns the sort rank for a priority (high=0, medium=1, low=2).
// Unknown values sort last.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	}
	return 3
}

// PriorityFilter restricts which priorities a project's run considers.
type PriorityFilter string

const (
	FilterHigh       PriorityFilter = "high"
	FilterHighMedium PriorityFilter = "high+medium"
	FilterAll        PriorityFilter = "all"
)

// Allows reports whether the filter admits the given priority.
func (f PriorityFilter) Allows(p Priority) bool {
	switch f {
	case FilterHigh:
		return p == PriorityHigh
	case FilterHighMedium:
		return p == PriorityHigh || p == PriorityMedium
	default:
		return true
	}
}

// ProjectMode selects where a run's work items come from.
type ProjectMode string

const (
	// ModeSimple draws from the pre-populated idea backlog only.
	ModeSimple ProjectMode = "simple"
	// ModeResearch refills the backlog with fresh topic proposals before selecting.
	ModeResearch ProjectMode = "research"
)

// Project is one tenant's content configuration. The autopilot runner mutates
// only the run timestamps; everything else is edited externally.
type Project struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	SiteURL          string         `json:"site_url"`          // Published-content base, used for internal links
	AutopilotEnabled bool           `json:"autopilot_enabled"` // Master switch for recurring runs
	Frequency        Frequency      `json:"frequency"`
	PriorityFilter   PriorityFilter `json:"priority_filter"`
	CategoryFilter   string         `json:"category_filter"` // Category name, or "all"
	Quota            int            `json:"quota"`           // Max items per run, >= 1
	Mode             ProjectMode    `json:"mode"`
	AutoPublish      bool           `json:"auto_publish"` // Forward finished drafts to the content sink
	Keywords         []string       `json:"keywords"`     // Seed keywords for research and fallbacks
	BrandVoice       string         `json:"brand_voice"`  // Optional tone hint fed to context analysis
	Audience         string         `json:"audience"`     // Optional audience hint
	LastRunAt        *time.Time     `json:"last_run_at"`
	NextRunAt        *time.Time     `json:"next_run_at"` // Nil means never run, eligible immediately
	CreatedAt        time.Time      `json:"created_at"`
}

// WorkItemStatus is the lifecycle state of a candidate topic.
type WorkItemStatus string

const (
	// ItemIdea is eligible for selection.
	ItemIdea WorkItemStatus = "idea"
	// ItemClaimed is held by an in-flight pipeline attempt.
	ItemClaimed WorkItemStatus = "claimed"
	// ItemHasContent has produced an artifact and is never reselected.
	ItemHasContent WorkItemStatus = "has-content"
)

// WorkItem is a candidate unit of output: one article idea awaiting generation.
type WorkItem struct {
	ID           string         `json:"id"`
	ProjectID    string         `json:"project_id"`
	Title        string         `json:"title"`
	Topic        string         `json:"topic"`
	Priority     Priority       `json:"priority"`
	Category     string         `json:"category"`
	Score        float64        `json:"score"`         // Desirability score, higher is better
	SearchVolume int            `json:"search_volume"` // Secondary ordering metric
	Status       WorkItemStatus `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
}

// JobStatus is the finite-state machine for one pipeline attempt.
// pending -> generating -> (publishing) -> completed, any -> failed.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobGenerating JobStatus = "generating"
	JobPublishing JobStatus = "publishing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// JobRecord is the durable audit trail of one pipeline attempt against one
// work item. Records are never deleted; at most one non-terminal record may
// exist per work item at a time.
type JobRecord struct {
	ID           string     `json:"id"`
	ProjectID    string     `json:"project_id"`
	WorkItemID   string     `json:"work_item_id"`
	Status       JobStatus  `json:"status"`
	Progress     int        `json:"progress"`     // 0-100, monotonically increasing
	CurrentStep  string     `json:"current_step"` // Human-readable stage label
	ArtifactID   string     `json:"artifact_id"`  // Empty until generation succeeds
	PublishedURL string     `json:"published_url"`
	Error        string     `json:"error"`         // Item-fatal failure detail, verbatim
	PublishError string     `json:"publish_error"` // Sink failure note; does not fail the record
	StartedAt    time.Time  `json:"started_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	FinishedAt   *time.Time `json:"finished_at"`
}

// Image is a sourced stock image attached to a draft.
type Image struct {
	URL          string `json:"url"`
	Alt          string `json:"alt"`
	Photographer string `json:"photographer,omitempty"`
}

// ArticleDraft is the artifact produced by a successful pipeline run.
type ArticleDraft struct {
	ID              string    `json:"id"`
	WorkItemID      string    `json:"work_item_id"`
	Title           string    `json:"title"`
	HTMLBody        string    `json:"html_body"`
	MetaDescription string    `json:"meta_description"`
	Keywords        []string  `json:"keywords"`
	Images          []Image   `json:"images"`
	WordCount       int       `json:"word_count"`
	EnrichmentNote  string    `json:"enrichment_note,omitempty"` // Set when enrichment was skipped
	GeneratedAt     time.Time `json:"generated_at"`
}

// RunResult is the ephemeral per-project summary returned to the trigger
// caller. It is not persisted.
type RunResult struct {
	ProjectID   string `json:"project_id"`
	ProjectName string `json:"project_name"`
	Processed   int    `json:"processed"`
	Successful  int    `json:"successful"`
	Failed      int    `json:"failed"`
	Published   int    `json:"published"`
	Skipped     string `json:"skipped,omitempty"` // e.g. "no eligible items"
	Error       string `json:"error,omitempty"`   // Project-fatal failure detail
}
