// Package autopilot is the run orchestrator: it walks every due project,
// selects its batch of work items, drives each one through the generation
// pipeline, and advances the project's schedule. A run is triggered, never
// timer-driven; the caller owns the cadence.
package autopilot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"autopress/internal/core"
	"autopress/internal/logger"
	"autopress/internal/pipeline"
	"autopress/internal/publish"
	"autopress/internal/schedule"
	"autopress/internal/selector"
	"autopress/internal/store"
)

// ErrRunInProgress is returned when RunOnce is invoked while another run is
// still executing. Runs never queue; the caller retries later.
var ErrRunInProgress = errors.New("an autopilot run is already in progress")

// Generator produces a draft for one work item. *pipeline.Generator is the
// production implementation.
type Generator interface {
	Generate(ctx context.Context, project core.Project, item core.WorkItem, emitter *pipeline.Emitter) (*core.ArticleDraft, error)
}

// TopicProposer refills a research-mode project's backlog.
type TopicProposer interface {
	Propose(ctx context.Context, project core.Project, existingTitles []string, n int) ([]core.WorkItem, error)
}

// Config tunes one runner.
type Config struct {
	ItemPause           time.Duration // Pause between items within a project
	RefillCap           int           // Max new ideas per research refill
	MaxParallelProjects int           // Bound on concurrent project processing
	StaleJobCutoff      time.Duration // Age past which abandoned jobs are reaped; zero disables
}

// Runner executes autopilot runs against the store.
type Runner struct {
	store     *store.Store
	generator Generator
	refiller  TopicProposer // Nil disables research refill
	sink      publish.Sink  // Nil disables publishing
	cfg       Config

	mu  sync.Mutex
	now func() time.Time
}

// NewRunner wires a runner. refiller and sink may be nil.
func NewRunner(st *store.Store, gen Generator, refiller TopicProposer, sink publish.Sink, cfg Config) *Runner {
	if cfg.MaxParallelProjects < 1 {
		cfg.MaxParallelProjects = 1
	}
	return &Runner{
		store:     st,
		generator: gen,
		refiller:  refiller,
		sink:      sink,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RunOnce executes a single autopilot run over every due project and returns
// the per-project summaries. At most one run executes at a time.
func (r *Runner) RunOnce(ctx context.Context) ([]core.RunResult, error) {
	if !r.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer r.mu.Unlock()

	now := r.now()

	if r.cfg.StaleJobCutoff > 0 {
		if n, err := r.store.RequeueStaleJobs(r.cfg.StaleJobCutoff); err != nil {
			logger.Error("stale job sweep failed", err)
		} else if n > 0 {
			logger.Warn("reaped abandoned jobs", "count", n)
		}
	}

	projects, err := r.store.ListAutopilotProjects()
	if err != nil {
		return nil, fmt.Errorf("failed to list autopilot projects: %w", err)
	}

	var due []core.Project
	for _, p := range projects {
		if schedule.Eligible(p, now) {
			due = append(due, p)
		}
	}
	logger.Info("autopilot run starting", "projects", len(projects), "due", len(due))

	results := make([]core.RunResult, len(due))
	var g errgroup.Group
	g.SetLimit(r.cfg.MaxParallelProjects)
	for i, project := range due {
		g.Go(func() error {
			results[i] = r.runProject(ctx, project, now)
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}

// runProject processes one project's batch. A panic or error here is
// contained in the project's result; the run as a whole continues.
func (r *Runner) runProject(ctx context.Context, project core.Project, now time.Time) (result core.RunResult) {
	result = core.RunResult{ProjectID: project.ID, ProjectName: project.Name}

	defer func() {
		if rec := recover(); rec != nil {
			result.Error = fmt.Sprintf("project processing panicked: %v", rec)
		}
		// The schedule advances no matter how the batch went, so a
		// persistently failing project cannot hot-loop on every trigger.
		next := schedule.NextRun(now, project.Frequency)
		if err := r.store.UpdateProjectRunTimes(project.ID, now, next); err != nil {
			logger.Error("failed to advance project schedule", err, "project", project.ID)
		}
	}()

	batch, err := r.selectBatch(ctx, project)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if len(batch) == 0 {
		result.Skipped = "no eligible items"
		return result
	}

	for i, item := range batch {
		if i > 0 && r.cfg.ItemPause > 0 {
			select {
			case <-ctx.Done():
				result.Error = ctx.Err().Error()
				return result
			case <-time.After(r.cfg.ItemPause):
			}
		}

		result.Processed++
		published, err := r.processItem(ctx, project, item)
		if err != nil {
			logger.Error("work item failed", err, "project", project.ID, "item", item.ID, "title", item.Title)
			result.Failed++
			continue
		}
		result.Successful++
		if published {
			result.Published++
		}
	}
	return result
}

// selectBatch loads the idea backlog, refills it for research-mode projects
// running short, and applies the project's selection policy.
func (r *Runner) selectBatch(ctx context.Context, project core.Project) ([]core.WorkItem, error) {
	ideas, err := r.store.ListIdeas(project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load backlog: %w", err)
	}
	batch := selector.Select(project, ideas)

	if project.Mode != core.ModeResearch || r.refiller == nil || len(batch) >= project.Quota {
		return batch, nil
	}

	want := project.Quota - len(batch)
	if r.cfg.RefillCap > 0 && want > r.cfg.RefillCap {
		want = r.cfg.RefillCap
	}

	existing := make([]string, 0, len(ideas))
	for _, item := range ideas {
		existing = append(existing, item.Title)
	}
	completed, err := r.store.CompletedTitles(project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load completed titles: %w", err)
	}
	existing = append(existing, completed...)

	proposed, err := r.refiller.Propose(ctx, project, existing, want)
	if err != nil {
		// A failed refill degrades to whatever the backlog already holds.
		logger.Warn("research refill failed", "project", project.ID, "error", err.Error())
		return batch, nil
	}
	if len(proposed) == 0 {
		return batch, nil
	}
	if err := r.store.InsertWorkItems(proposed); err != nil {
		return nil, fmt.Errorf("failed to insert refill items: %w", err)
	}

	ideas, err = r.store.ListIdeas(project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload backlog: %w", err)
	}
	return selector.Select(project, ideas), nil
}

// processItem drives one work item through claim, generation, optional
// publishing, and ledger bookkeeping. The returned bool reports whether the
// draft was published.
func (r *Runner) processItem(ctx context.Context, project core.Project, item core.WorkItem) (bool, error) {
	if err := r.store.ClaimWorkItem(item.ID); err != nil {
		return false, fmt.Errorf("failed to claim item: %w", err)
	}

	record, err := r.store.CreateJobRecord(project.ID, item.ID)
	if err != nil {
		_ = r.store.ReleaseWorkItem(item.ID)
		return false, fmt.Errorf("failed to open job record: %w", err)
	}

	if err := r.store.SetJobStatus(record.ID, core.JobGenerating); err != nil {
		logger.Error("failed to mark job generating", err, "job", record.ID)
	}

	// lastStep is written only by the progress goroutine and read only after
	// progressDone.Wait(), so the failed record keeps the step it died in.
	emitter := pipeline.NewEmitter(64)
	var lastStep string
	var progressDone sync.WaitGroup
	progressDone.Add(1)
	go func() {
		defer progressDone.Done()
		for {
			ev, ok := emitter.Next()
			if !ok {
				return
			}
			lastStep = ev.Step
			if err := r.store.UpdateJobProgress(record.ID, ev.Progress, ev.Step); err != nil {
				logger.Error("failed to record job progress", err, "job", record.ID)
			}
		}
	}()

	draft, genErr := r.generator.Generate(ctx, project, item, emitter)
	emitter.Close()
	progressDone.Wait()

	if genErr != nil {
		if err := r.store.FailJob(record.ID, lastStep, genErr.Error()); err != nil {
			logger.Error("failed to record job failure", err, "job", record.ID)
		}
		if err := r.store.ReleaseWorkItem(item.ID); err != nil {
			logger.Error("failed to release work item", err, "item", item.ID)
		}
		return false, genErr
	}

	if err := r.store.SaveArtifact(draft); err != nil {
		_ = r.store.FailJob(record.ID, "persist", err.Error())
		_ = r.store.ReleaseWorkItem(item.ID)
		return false, fmt.Errorf("failed to save artifact: %w", err)
	}

	published := false
	if project.AutoPublish && r.sink != nil {
		published = r.publishDraft(ctx, project, record.ID, draft)
	}

	if err := r.store.CompleteJob(record.ID, draft.ID); err != nil {
		return published, fmt.Errorf("failed to complete job record: %w", err)
	}
	if err := r.store.CompleteWorkItem(item.ID); err != nil {
		return published, fmt.Errorf("failed to complete work item: %w", err)
	}
	return published, nil
}

// publishDraft forwards the draft to the sink. A sink failure is recorded on
// the job record but never fails the item; the artifact is already saved.
func (r *Runner) publishDraft(ctx context.Context, project core.Project, jobID string, draft *core.ArticleDraft) bool {
	if err := r.store.SetJobStatus(jobID, core.JobPublishing); err != nil {
		logger.Error("failed to mark job publishing", err, "job", jobID)
	}

	receipt, err := r.sink.Publish(ctx, draft, publish.Metadata{
		ProjectID:       project.ID,
		Category:        project.CategoryFilter,
		Keywords:        draft.Keywords,
		MetaDescription: draft.MetaDescription,
	})
	if err != nil {
		logger.Warn("publish failed, keeping artifact for manual publish",
			"job", jobID, "title", draft.Title, "error", err.Error())
		if err := r.store.SetJobPublishError(jobID, err.Error()); err != nil {
			logger.Error("failed to record publish error", err, "job", jobID)
		}
		return false
	}

	if err := r.store.SetJobPublished(jobID, receipt.PublicURL); err != nil {
		logger.Error("failed to record published URL", err, "job", jobID)
	}
	return true
}
