// Package pipeline turns one claimed work item into a finished article draft
// through a fixed sequence of stages. Research stages degrade to documented
// fallbacks when their collaborators fail; the outline and draft stages are
// load-bearing and abort the item when they cannot deliver.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"autopress/internal/core"
	"autopress/internal/images"
	"autopress/internal/logger"
	"autopress/internal/search"
)

// Generator runs the generation pipeline. Search and image providers are
// optional; their stages are skipped when absent.
type Generator struct {
	llm             TextCompleter
	search          search.Provider
	images          images.Provider
	stageTimeout    time.Duration
	researchTimeout time.Duration
}

// NewGenerator creates a pipeline generator. stageTimeout bounds every stage
// individually; researchTimeout overrides it for the keyword-research and
// SERP stages, which issue external searches on top of model calls. Zero
// disables the respective deadline.
func NewGenerator(llmClient TextCompleter, searchProvider search.Provider, imageProvider images.Provider, stageTimeout, researchTimeout time.Duration) *Generator {
	return &Generator{
		llm:             llmClient,
		search:          searchProvider,
		images:          imageProvider,
		stageTimeout:    stageTimeout,
		researchTimeout: researchTimeout,
	}
}

// step pairs a stage with its pipeline-level policy: the overall progress
// reached when it completes, whether its failure aborts the item, and the
// fallback applied when it fails but the pipeline continues.
type step struct {
	stage    Stage
	progress int
	fatal    bool
	skip     string        // Non-empty reason skips the stage entirely
	timeout  time.Duration // Overrides the generator's stage deadline when set
	fallback func(job *Job)
}

// Generate produces a draft for one work item, emitting progress along the
// way. On a fatal stage failure the returned error wraps ErrStageFatal with
// the stage's own failure text preserved.
func (g *Generator) Generate(ctx context.Context, project core.Project, item core.WorkItem, emitter *Emitter) (*core.ArticleDraft, error) {
	job := &Job{Project: project, Item: item}

	steps := []step{
		{
			stage:    &brandContextStage{llm: g.llm},
			progress: 15,
			fallback: func(job *Job) { job.Brand = genericBrand(job.Project) },
		},
		{
			stage:    &keywordResearchStage{llm: g.llm},
			progress: 30,
			timeout:  g.researchTimeout,
			fallback: func(job *Job) { job.Keywords = fallbackKeywords(job.Project, job.Item) },
		},
		{
			stage:    &serpAnalysisStage{llm: g.llm, search: g.search},
			progress: 45,
			skip:     skipReason(g.search == nil, "no search provider configured"),
			timeout:  g.researchTimeout,
			fallback: func(job *Job) { job.SERP = nil },
		},
		{
			stage:    &imageSourcingStage{images: g.images},
			progress: 55,
			skip:     skipReason(g.images == nil, "no image provider configured"),
			fallback: func(job *Job) { job.Images = nil },
		},
		{
			stage:    &outlineStage{llm: g.llm},
			progress: 70,
			fatal:    true,
		},
		{
			stage:    &draftStage{llm: g.llm},
			progress: 90,
			fatal:    true,
		},
		{
			stage:    &enrichStage{},
			progress: 100,
			fallback: func(job *Job) {
				job.Article.EnrichmentNote = "enrichment skipped: post-processing failed, draft published as generated"
			},
		},
	}

	emitter.Emit(Event{Step: "pipeline", Status: StatusInProgress, Progress: 5, Message: item.Title})

	for _, st := range steps {
		name := st.stage.Name()

		if st.skip != "" {
			emitter.Emit(Event{Step: name, Status: StatusSkipped, Progress: st.progress, Message: st.skip})
			continue
		}

		timeout := g.stageTimeout
		if st.timeout > 0 {
			timeout = st.timeout
		}

		emitter.Emit(Event{Step: name, Status: StatusInProgress, Progress: st.progress})
		err := runStage(ctx, job, st.stage, timeout)
		if err == nil {
			emitter.Emit(Event{Step: name, Status: StatusCompleted, Progress: st.progress})
			continue
		}

		if st.fatal {
			emitter.Emit(Event{Step: name, Status: StatusError, Progress: st.progress, Message: err.Error()})
			return nil, fmt.Errorf("%w: %s: %v", ErrStageFatal, name, err)
		}

		absorb(st.stage, err, func() {
			if st.fallback != nil {
				st.fallback(job)
			}
		})
		emitter.Emit(Event{Step: name, Status: StatusError, Progress: st.progress, Message: err.Error()})
	}

	logger.Info("draft generated",
		"work_item", item.ID, "title", job.Article.Title,
		"words", job.Article.WordCount, "images", len(job.Article.Images))
	return job.Article, nil
}

func skipReason(skip bool, reason string) string {
	if skip {
		return reason
	}
	return ""
}
