package handlers

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"autopress/internal/config"
	"autopress/internal/store"
)

// NewProjectsCmd creates the projects command for inspecting project state
func NewProjectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List projects with their schedule state",
		Long: `Display every project with its autopilot configuration and when it
last ran and will next run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listProjects()
		},
	}
	return cmd
}

func listProjects() error {
	st, err := store.NewStore(config.GetDataDir())
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	projects, err := st.ListProjects()
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}
	if len(projects) == 0 {
		fmt.Fprintln(os.Stdout, "No projects found.")
		return nil
	}

	for _, p := range projects {
		state := "autopilot off"
		if p.AutopilotEnabled {
			state = fmt.Sprintf("%s, quota %d, %s mode", p.Frequency, p.Quota, p.Mode)
		}
		fmt.Fprintf(os.Stdout, "%s  %s (%s)\n", p.ID, p.Name, state)
		if p.LastRunAt != nil {
			fmt.Fprintf(os.Stdout, "    last run: %s\n", p.LastRunAt.Format("2006-01-02 15:04"))
		}
		if p.NextRunAt != nil {
			fmt.Fprintf(os.Stdout, "    next run: %s\n", p.NextRunAt.Format("2006-01-02 15:04"))
		} else if p.AutopilotEnabled {
			fmt.Fprintf(os.Stdout, "    next run: on next trigger (never run)\n")
		}
	}
	return nil
}
