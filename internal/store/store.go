// Package store is the durable state layer: project configuration, the work
// item backlog, the job-record execution ledger, and produced artifacts, all
// in a single SQLite database.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when a requested row does not exist
	ErrNotFound = errors.New("not found")

	// ErrJobInFlight is returned when a work item already has a non-terminal
	// job record
	ErrJobInFlight = errors.New("work item already has a job in flight")

	// ErrItemUnavailable is returned when a work item cannot be claimed
	// because it is not in idea status
	ErrItemUnavailable = errors.New("work item is not available for claiming")
)

// Store is the SQLite-backed state store
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if necessary) the database under dataDir.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "autopress.db")
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{
		db:   db,
		path: dbPath,
	}

	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

// initialize creates the necessary tables
func (s *Store) initialize() error {
	projectsTable := `
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		site_url TEXT,
		autopilot_enabled INTEGER NOT NULL DEFAULT 0,
		frequency TEXT,
		priority_filter TEXT,
		category_filter TEXT,
		quota INTEGER NOT NULL DEFAULT 1,
		mode TEXT,
		auto_publish INTEGER NOT NULL DEFAULT 0,
		keywords TEXT,
		brand_voice TEXT,
		audience TEXT,
		last_run_at DATETIME,
		next_run_at DATETIME,
		created_at DATETIME
	);`

	workItemsTable := `
	CREATE TABLE IF NOT EXISTS work_items (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		title TEXT NOT NULL,
		topic TEXT,
		priority TEXT,
		category TEXT,
		score REAL NOT NULL DEFAULT 0,
		search_volume INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'idea',
		created_at DATETIME,
		FOREIGN KEY (project_id) REFERENCES projects (id)
	);`

	jobRecordsTable := `
	CREATE TABLE IF NOT EXISTS job_records (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		work_item_id TEXT NOT NULL,
		status TEXT NOT NULL,
		progress INTEGER NOT NULL DEFAULT 0,
		current_step TEXT,
		artifact_id TEXT,
		published_url TEXT,
		error TEXT,
		publish_error TEXT,
		started_at DATETIME,
		updated_at DATETIME,
		finished_at DATETIME,
		FOREIGN KEY (work_item_id) REFERENCES work_items (id)
	);`

	artifactsTable := `
	CREATE TABLE IF NOT EXISTS artifacts (
		id TEXT PRIMARY KEY,
		work_item_id TEXT NOT NULL,
		title TEXT,
		html_body TEXT,
		meta_description TEXT,
		keywords TEXT,
		images TEXT,
		word_count INTEGER NOT NULL DEFAULT 0,
		enrichment_note TEXT,
		generated_at DATETIME
	);`

	indexes := `
	CREATE INDEX IF NOT EXISTS idx_work_items_project_status ON work_items (project_id, status);
	CREATE INDEX IF NOT EXISTS idx_job_records_item ON job_records (work_item_id, status);`

	for _, stmt := range []string{projectsTable, workItemsTable, jobRecordsTable, artifactsTable, indexes} {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}
