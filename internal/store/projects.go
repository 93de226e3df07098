package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"autopress/internal/core"
)

// SaveProject inserts or replaces a project row.
func (s *Store) SaveProject(p core.Project) error {
	keywords, _ := json.Marshal(p.Keywords)

	query := `
	INSERT OR REPLACE INTO projects
	(id, name, site_url, autopilot_enabled, frequency, priority_filter, category_filter,
	 quota, mode, auto_publish, keywords, brand_voice, audience, last_run_at, next_run_at, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query,
		p.ID,
		p.Name,
		p.SiteURL,
		p.AutopilotEnabled,
		string(p.Frequency),
		string(p.PriorityFilter),
		p.CategoryFilter,
		p.Quota,
		string(p.Mode),
		p.AutoPublish,
		string(keywords),
		p.BrandVoice,
		p.Audience,
		nullableTime(p.LastRunAt),
		nullableTime(p.NextRunAt),
		p.CreatedAt,
	)
	return err
}

// GetProject returns one project by id, or ErrNotFound.
func (s *Store) GetProject(id string) (*core.Project, error) {
	row := s.db.QueryRow(projectSelect+" WHERE id = ?", id)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan project: %w", err)
	}
	return p, nil
}

// ListAutopilotProjects returns every project with autopilot enabled.
func (s *Store) ListAutopilotProjects() ([]core.Project, error) {
	rows, err := s.db.Query(projectSelect + " WHERE autopilot_enabled = 1 ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var projects []core.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

// ListProjects returns all projects.
func (s *Store) ListProjects() ([]core.Project, error) {
	rows, err := s.db.Query(projectSelect + " ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var projects []core.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

// UpdateProjectRunTimes records a completed run: lastRun and the computed
// nextRun. Only the autopilot runner calls this.
func (s *Store) UpdateProjectRunTimes(id string, lastRun, nextRun time.Time) error {
	res, err := s.db.Exec(
		"UPDATE projects SET last_run_at = ?, next_run_at = ? WHERE id = ?",
		lastRun, nextRun, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update project run times: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

const projectSelect = `
	SELECT id, name, site_url, autopilot_enabled, frequency, priority_filter, category_filter,
	       quota, mode, auto_publish, keywords, brand_voice, audience, last_run_at, next_run_at, created_at
	FROM projects`

// scanner abstracts sql.Row and sql.Rows for shared scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (*core.Project, error) {
	var (
		p            core.Project
		frequency    string
		prioFilter   string
		mode         string
		keywordsJSON string
		lastRun      sql.NullTime
		nextRun      sql.NullTime
	)

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.SiteURL,
		&p.AutopilotEnabled,
		&frequency,
		&prioFilter,
		&p.CategoryFilter,
		&p.Quota,
		&mode,
		&p.AutoPublish,
		&keywordsJSON,
		&p.BrandVoice,
		&p.Audience,
		&lastRun,
		&nextRun,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Frequency = core.Frequency(frequency)
	p.PriorityFilter = core.PriorityFilter(prioFilter)
	p.Mode = core.ProjectMode(mode)
	_ = json.Unmarshal([]byte(keywordsJSON), &p.Keywords)
	if lastRun.Valid {
		t := lastRun.Time
		p.LastRunAt = &t
	}
	if nextRun.Valid {
		t := nextRun.Time
		p.NextRunAt = &t
	}
	return &p, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
