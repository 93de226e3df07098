package handlers

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"autopress/internal/config"
	"autopress/internal/core"
	"autopress/internal/store"
)

// seedFile is the on-disk layout the seed command accepts. Projects and
// items can be seeded together or in separate files.
type seedFile struct {
	Projects []core.Project  `json:"projects"`
	Items    []core.WorkItem `json:"items"`
}

// NewSeedCmd creates the seed command for loading projects and work items
func NewSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed <file.json>",
		Short: "Load projects and work items from a JSON file",
		Long: `Insert projects and backlog items from a JSON file into the store.

The file holds two optional arrays:

  {
    "projects": [{"id": "...", "name": "...", "autopilot_enabled": true, ...}],
    "items":    [{"project_id": "...", "title": "...", "priority": "high", ...}]
  }

Existing projects with the same id are overwritten. Items are always
inserted; missing ids and statuses are filled in.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return seedFromFile(args[0])
		},
	}
	return cmd
}

func seedFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}
	if len(seed.Projects) == 0 && len(seed.Items) == 0 {
		return fmt.Errorf("seed file contains no projects or items")
	}

	st, err := store.NewStore(config.GetDataDir())
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	now := time.Now().UTC()
	for i := range seed.Projects {
		p := &seed.Projects[i]
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.Quota < 1 {
			p.Quota = 1
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		if err := st.SaveProject(*p); err != nil {
			return fmt.Errorf("failed to save project %q: %w", p.Name, err)
		}
	}

	for i := range seed.Items {
		item := &seed.Items[i]
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		if item.Status == "" {
			item.Status = core.ItemIdea
		}
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		if item.ProjectID == "" {
			return fmt.Errorf("item %q is missing project_id", item.Title)
		}
	}
	if len(seed.Items) > 0 {
		if err := st.InsertWorkItems(seed.Items); err != nil {
			return fmt.Errorf("failed to insert work items: %w", err)
		}
	}

	fmt.Fprintf(os.Stdout, "Seeded %d project(s) and %d work item(s).\n", len(seed.Projects), len(seed.Items))
	return nil
}
