package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"autopress/internal/core"
)

// SaveArtifact persists a finished draft. INSERT OR REPLACE keeps a retried
// manual publish from duplicating rows when the caller reuses the id.
func (s *Store) SaveArtifact(draft *core.ArticleDraft) error {
	keywords, _ := json.Marshal(draft.Keywords)
	images, _ := json.Marshal(draft.Images)

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO artifacts
		(id, work_item_id, title, html_body, meta_description, keywords, images,
		 word_count, enrichment_note, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		draft.ID,
		draft.WorkItemID,
		draft.Title,
		draft.HTMLBody,
		draft.MetaDescription,
		string(keywords),
		string(images),
		draft.WordCount,
		draft.EnrichmentNote,
		draft.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save artifact: %w", err)
	}
	return nil
}

// GetArtifact returns one draft by id, or ErrNotFound.
func (s *Store) GetArtifact(id string) (*core.ArticleDraft, error) {
	row := s.db.QueryRow(`
		SELECT id, work_item_id, title, html_body, meta_description, keywords, images,
		       word_count, enrichment_note, generated_at
		FROM artifacts WHERE id = ?`, id)

	var (
		draft        core.ArticleDraft
		keywordsJSON string
		imagesJSON   string
	)
	err := row.Scan(
		&draft.ID,
		&draft.WorkItemID,
		&draft.Title,
		&draft.HTMLBody,
		&draft.MetaDescription,
		&keywordsJSON,
		&imagesJSON,
		&draft.WordCount,
		&draft.EnrichmentNote,
		&draft.GeneratedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan artifact: %w", err)
	}

	_ = json.Unmarshal([]byte(keywordsJSON), &draft.Keywords)
	_ = json.Unmarshal([]byte(imagesJSON), &draft.Images)
	return &draft, nil
}
