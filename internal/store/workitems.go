package store

import (
	"database/sql"
	"fmt"

	"autopress/internal/core"
)

// InsertWorkItems persists a batch of new work items (research refill or
// external seeding).
func (s *Store) InsertWorkItems(items []core.WorkItem) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO work_items
		(id, project_id, title, topic, priority, category, score, search_volume, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, item := range items {
		_, err := stmt.Exec(
			item.ID,
			item.ProjectID,
			item.Title,
			item.Topic,
			string(item.Priority),
			item.Category,
			item.Score,
			item.SearchVolume,
			string(item.Status),
			item.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert work item %s: %w", item.ID, err)
		}
	}
	return tx.Commit()
}

// ListIdeas returns a project's full idea backlog.
func (s *Store) ListIdeas(projectID string) ([]core.WorkItem, error) {
	return s.listItems(
		workItemSelect+" WHERE project_id = ? AND status = ? ORDER BY created_at",
		projectID, string(core.ItemIdea),
	)
}

// GetWorkItem returns one work item by id, or ErrNotFound.
func (s *Store) GetWorkItem(id string) (*core.WorkItem, error) {
	row := s.db.QueryRow(workItemSelect+" WHERE id = ?", id)
	item, err := scanWorkItem(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan work item: %w", err)
	}
	return item, nil
}

// ClaimWorkItem atomically flips an item from idea to claimed. The guarded
// update makes the single-flight invariant hold even under concurrent
// triggers: exactly one caller sees the row transition.
func (s *Store) ClaimWorkItem(id string) error {
	res, err := s.db.Exec(
		"UPDATE work_items SET status = ? WHERE id = ? AND status = ?",
		string(core.ItemClaimed), id, string(core.ItemIdea),
	)
	if err != nil {
		return fmt.Errorf("failed to claim work item: %w", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return ErrItemUnavailable
	}
	return nil
}

// ReleaseWorkItem returns a claimed item to the idea pool after a failed
// attempt so a future run may retry it.
func (s *Store) ReleaseWorkItem(id string) error {
	_, err := s.db.Exec(
		"UPDATE work_items SET status = ? WHERE id = ? AND status = ?",
		string(core.ItemIdea), id, string(core.ItemClaimed),
	)
	if err != nil {
		return fmt.Errorf("failed to release work item: %w", err)
	}
	return nil
}

// CompleteWorkItem marks a claimed item as having produced content. The item
// is never reselected afterwards.
func (s *Store) CompleteWorkItem(id string) error {
	res, err := s.db.Exec(
		"UPDATE work_items SET status = ? WHERE id = ? AND status = ?",
		string(core.ItemHasContent), id, string(core.ItemClaimed),
	)
	if err != nil {
		return fmt.Errorf("failed to complete work item: %w", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return ErrItemUnavailable
	}
	return nil
}

// CompletedTitles returns the titles of a project's items that already have
// content, for duplicate filtering during research refill.
func (s *Store) CompletedTitles(projectID string) ([]string, error) {
	rows, err := s.db.Query(
		"SELECT title FROM work_items WHERE project_id = ? AND status = ?",
		projectID, string(core.ItemHasContent),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query completed titles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		titles = append(titles, t)
	}
	return titles, rows.Err()
}

const workItemSelect = `
	SELECT id, project_id, title, topic, priority, category, score, search_volume, status, created_at
	FROM work_items`

func (s *Store) listItems(query string, args ...any) ([]core.WorkItem, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query work items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []core.WorkItem
	for rows.Next() {
		item, err := scanWorkItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan work item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func scanWorkItem(row scanner) (*core.WorkItem, error) {
	var (
		item     core.WorkItem
		priority string
		status   string
	)
	err := row.Scan(
		&item.ID,
		&item.ProjectID,
		&item.Title,
		&item.Topic,
		&priority,
		&item.Category,
		&item.Score,
		&item.SearchVolume,
		&status,
		&item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	item.Priority = core.Priority(priority)
	item.Status = core.WorkItemStatus(status)
	return &item, nil
}
