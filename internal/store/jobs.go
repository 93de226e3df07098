package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"autopress/internal/core"
)

// CreateJobRecord opens a new ledger entry for a pipeline attempt. It
// enforces the single-flight invariant inside a transaction: if the work item
// already has a non-terminal record, ErrJobInFlight is returned and nothing
// is written.
func (s *Store) CreateJobRecord(projectID, workItemID string) (*core.JobRecord, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var inFlight int
	err = tx.QueryRow(
		"SELECT COUNT(*) FROM job_records WHERE work_item_id = ? AND status NOT IN (?, ?)",
		workItemID, string(core.JobCompleted), string(core.JobFailed),
	).Scan(&inFlight)
	if err != nil {
		return nil, fmt.Errorf("failed to check in-flight jobs: %w", err)
	}
	if inFlight > 0 {
		return nil, ErrJobInFlight
	}

	now := time.Now().UTC()
	record := &core.JobRecord{
		ID:         uuid.NewString(),
		ProjectID:  projectID,
		WorkItemID: workItemID,
		Status:     core.JobPending,
		Progress:   0,
		StartedAt:  now,
		UpdatedAt:  now,
	}

	_, err = tx.Exec(`
		INSERT INTO job_records
		(id, project_id, work_item_id, status, progress, current_step, artifact_id,
		 published_url, error, publish_error, started_at, updated_at)
		VALUES (?, ?, ?, ?, ?, '', '', '', '', '', ?, ?)`,
		record.ID, record.ProjectID, record.WorkItemID, string(record.Status),
		record.Progress, record.StartedAt, record.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert job record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit job record: %w", err)
	}
	return record, nil
}

// SetJobStatus transitions a job to a new (non-terminal) status.
func (s *Store) SetJobStatus(id string, status core.JobStatus) error {
	_, err := s.db.Exec(
		"UPDATE job_records SET status = ?, updated_at = ? WHERE id = ?",
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to set job status: %w", err)
	}
	return nil
}

// UpdateJobProgress records stage progress. Progress never moves backwards;
// the max() guard keeps late writers from regressing the bar.
func (s *Store) UpdateJobProgress(id string, progress int, step string) error {
	_, err := s.db.Exec(
		"UPDATE job_records SET progress = max(progress, ?), current_step = ?, updated_at = ? WHERE id = ?",
		progress, step, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update job progress: %w", err)
	}
	return nil
}

// CompleteJob finishes a job successfully, recording the produced artifact.
func (s *Store) CompleteJob(id, artifactID string) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(`
		UPDATE job_records
		SET status = ?, progress = 100, artifact_id = ?, updated_at = ?, finished_at = ?
		WHERE id = ?`,
		string(core.JobCompleted), artifactID, now, now, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}
	return nil
}

// FailJob finishes a job with the underlying error captured verbatim.
func (s *Store) FailJob(id, step, errMsg string) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(`
		UPDATE job_records
		SET status = ?, current_step = ?, error = ?, updated_at = ?, finished_at = ?
		WHERE id = ?`,
		string(core.JobFailed), step, errMsg, now, now, id,
	)
	if err != nil {
		return fmt.Errorf("failed to fail job: %w", err)
	}
	return nil
}

// SetJobPublished records the public URL returned by the content sink.
func (s *Store) SetJobPublished(id, publicURL string) error {
	_, err := s.db.Exec(
		"UPDATE job_records SET published_url = ?, updated_at = ? WHERE id = ?",
		publicURL, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to record published URL: %w", err)
	}
	return nil
}

// SetJobPublishError notes a sink failure without failing the record: the
// generated artifact stays available for a manual publish.
func (s *Store) SetJobPublishError(id, note string) error {
	_, err := s.db.Exec(
		"UPDATE job_records SET publish_error = ?, updated_at = ? WHERE id = ?",
		note, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to record publish error: %w", err)
	}
	return nil
}

// GetJobRecord returns one job record by id, or ErrNotFound.
func (s *Store) GetJobRecord(id string) (*core.JobRecord, error) {
	row := s.db.QueryRow(jobSelect+" WHERE id = ?", id)
	record, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan job record: %w", err)
	}
	return record, nil
}

// ListJobsByProject returns a project's ledger, newest first.
func (s *Store) ListJobsByProject(projectID string) ([]core.JobRecord, error) {
	return s.listJobs(jobSelect+" WHERE project_id = ? ORDER BY started_at DESC", projectID)
}

// ListJobsByWorkItem returns every attempt against one work item, newest first.
func (s *Store) ListJobsByWorkItem(workItemID string) ([]core.JobRecord, error) {
	return s.listJobs(jobSelect+" WHERE work_item_id = ? ORDER BY started_at DESC", workItemID)
}

// RequeueStaleJobs fails non-terminal job records untouched since the cutoff
// and releases their work items. This is the reconciliation sweep that keeps
// a crash from pinning an item in claimed status forever.
func (s *Store) RequeueStaleJobs(olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)

	stale, err := s.listJobs(
		jobSelect+" WHERE status NOT IN (?, ?) AND updated_at < ?",
		string(core.JobCompleted), string(core.JobFailed), cutoff,
	)
	if err != nil {
		return 0, err
	}

	for _, record := range stale {
		if err := s.FailJob(record.ID, record.CurrentStep, "abandoned: no progress since "+record.UpdatedAt.Format(time.RFC3339)); err != nil {
			return 0, err
		}
		if err := s.ReleaseWorkItem(record.WorkItemID); err != nil {
			return 0, err
		}
	}
	return len(stale), nil
}

const jobSelect = `
	SELECT id, project_id, work_item_id, status, progress, current_step, artifact_id,
	       published_url, error, publish_error, started_at, updated_at, finished_at
	FROM job_records`

func (s *Store) listJobs(query string, args ...any) ([]core.JobRecord, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query job records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []core.JobRecord
	for rows.Next() {
		record, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job record: %w", err)
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

func scanJob(row scanner) (*core.JobRecord, error) {
	var (
		record     core.JobRecord
		status     string
		finishedAt sql.NullTime
	)
	err := row.Scan(
		&record.ID,
		&record.ProjectID,
		&record.WorkItemID,
		&status,
		&record.Progress,
		&record.CurrentStep,
		&record.ArtifactID,
		&record.PublishedURL,
		&record.Error,
		&record.PublishError,
		&record.StartedAt,
		&record.UpdatedAt,
		&finishedAt,
	)
	if err != nil {
		return nil, err
	}
	record.Status = core.JobStatus(status)
	if finishedAt.Valid {
		t := finishedAt.Time
		record.FinishedAt = &t
	}
	return &record, nil
}
