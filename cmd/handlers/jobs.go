package handlers

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"autopress/internal/config"
	"autopress/internal/core"
	"autopress/internal/store"
)

// NewJobsCmd creates the jobs command for inspecting the job ledger
func NewJobsCmd() *cobra.Command {
	var (
		projectID string
		itemID    string
	)

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect the job ledger",
		Long: `Display job records for a project or a single work item, newest first.

Every pipeline attempt leaves a record: where it got to, what it produced,
and what went wrong. Records are never deleted.

Examples:
  autopress jobs --project proj-42
  autopress jobs --item item-1337`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listJobs(projectID, itemID)
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "List jobs for a project")
	cmd.Flags().StringVar(&itemID, "item", "", "List jobs for a work item")

	return cmd
}

func listJobs(projectID, itemID string) error {
	if projectID == "" && itemID == "" {
		return fmt.Errorf("provide --project or --item")
	}

	st, err := store.NewStore(config.GetDataDir())
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	var records []core.JobRecord
	if projectID != "" {
		records, err = st.ListJobsByProject(projectID)
	} else {
		records, err = st.ListJobsByWorkItem(itemID)
	}
	if err != nil {
		return fmt.Errorf("failed to list jobs: %w", err)
	}
	if len(records) == 0 {
		fmt.Fprintln(os.Stdout, "No job records found.")
		return nil
	}

	for _, rec := range records {
		fmt.Fprintf(os.Stdout, "%s  %-10s %3d%%  item %s  %s\n",
			rec.StartedAt.Format("2006-01-02 15:04"), rec.Status, rec.Progress, rec.WorkItemID, rec.CurrentStep)
		if rec.Error != "" {
			fmt.Fprintf(os.Stdout, "    error: %s\n", rec.Error)
		}
		if rec.PublishError != "" {
			fmt.Fprintf(os.Stdout, "    publish error: %s\n", rec.PublishError)
		}
		if rec.PublishedURL != "" {
			fmt.Fprintf(os.Stdout, "    published: %s\n", rec.PublishedURL)
		}
	}
	return nil
}
