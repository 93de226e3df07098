package handlers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"autopress/internal/config"
	"autopress/internal/logger"
	"autopress/internal/server"
)

// NewServeCmd creates the serve command for starting the HTTP trigger surface
func NewServeCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP trigger surface",
		Long: `Start the autopress HTTP server.

The server provides:
  • POST /api/autopilot/run  - trigger a run (bearer token required)
  • GET  /api/projects       - list projects with schedule state
  • GET  /api/jobs           - inspect the job ledger
  • GET  /healthz            - health check

The run endpoint is synchronous: the response carries per-project summaries
once the run finishes. Point an external scheduler (cron, systemd timers, a
workflow engine) at it; the server never triggers runs by itself.

Examples:
  # Start server on default port 8080
  autopress serve

  # Start on custom port
  autopress serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port, host)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port (default from config: 8080)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP server host (default from config: 0.0.0.0)")

	return cmd
}

func runServe(ctx context.Context, port int, host string) error {
	log := logger.Get()
	cfg := config.Get()

	serverCfg := cfg.Server
	if port != 0 {
		serverCfg.Port = port
	}
	if host != "" {
		serverCfg.Host = host
	}

	runner, st, err := buildRunner(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	srv := server.New(runner, st, serverCfg)

	serverErrors := make(chan error, 1)
	go func() {
		log.Info(fmt.Sprintf("Server listening on http://%s:%d", serverCfg.Host, serverCfg.Port))
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Info("Server shutdown initiated", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		log.Info("Server stopped")
	}

	return nil
}
