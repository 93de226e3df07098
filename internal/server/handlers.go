package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"autopress/internal/autopilot"
	"autopress/internal/core"
	"autopress/internal/store"
)

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already out; nothing useful left to do.
		return
	}
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// handleHealth responds to health checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// runResponse is the trigger endpoint's payload.
type runResponse struct {
	Processed int              `json:"processed"`
	Results   []core.RunResult `json:"results"`
	Timestamp string           `json:"timestamp"`
}

// handleRun executes a synchronous autopilot run. The response carries the
// per-project summaries; a concurrent trigger gets 409.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	results, err := s.runner.RunOnce(r.Context())
	if err != nil {
		if errors.Is(err, autopilot.ErrRunInProgress) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.log.Error("autopilot run failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	processed := 0
	for _, res := range results {
		processed += res.Processed
	}
	if results == nil {
		results = []core.RunResult{}
	}
	writeJSON(w, http.StatusOK, runResponse{
		Processed: processed,
		Results:   results,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// handleListProjects returns every project with its schedule state.
func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.store.ListProjects()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if projects == nil {
		projects = []core.Project{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

// handleListJobs returns the job ledger filtered by project or work item.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("project")
	itemID := r.URL.Query().Get("item")

	var (
		records []core.JobRecord
		err     error
	)
	switch {
	case projectID != "":
		records, err = s.store.ListJobsByProject(projectID)
	case itemID != "":
		records, err = s.store.ListJobsByWorkItem(itemID)
	default:
		writeError(w, http.StatusBadRequest, "provide a project or item query parameter")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []core.JobRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": records})
}

// handleGetJob returns a single job record.
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	record, err := s.store.GetJobRecord(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job record not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// handleGetArtifact returns a generated draft, including its HTML body.
func (s *Server) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	draft, err := s.store.GetArtifact(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "artifact not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, draft)
}
