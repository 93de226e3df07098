package handlers

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"autopress/internal/config"
	"autopress/internal/logger"
)

// NewRunCmd creates the run command for a one-shot autopilot run
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one autopilot run over every due project",
		Long: `Run the autopilot once and print a per-project summary.

Only projects with autopilot enabled and a due schedule are processed.
This is the command to call from cron:

  0 6 * * * autopress run >> /var/log/autopress.log 2>&1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd)
		},
	}
	return cmd
}

func runOnce(cmd *cobra.Command) error {
	runner, st, err := buildRunner(config.Get())
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	results, err := runner.RunOnce(cmd.Context())
	if err != nil {
		logger.Error("autopilot run failed", err)
		return err
	}

	if len(results) == 0 {
		fmt.Fprintln(os.Stdout, "No projects due.")
		return nil
	}

	fmt.Fprintln(os.Stdout, "Run complete:")
	for _, res := range results {
		switch {
		case res.Error != "":
			fmt.Fprintf(os.Stdout, "  %s: error: %s\n", res.ProjectName, res.Error)
		case res.Skipped != "":
			fmt.Fprintf(os.Stdout, "  %s: skipped (%s)\n", res.ProjectName, res.Skipped)
		default:
			fmt.Fprintf(os.Stdout, "  %s: %d processed, %d successful, %d failed, %d published\n",
				res.ProjectName, res.Processed, res.Successful, res.Failed, res.Published)
		}
	}
	return nil
}
