package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"autopress/internal/autopilot"
	"autopress/internal/config"
	"autopress/internal/core"
	"autopress/internal/pipeline"
	"autopress/internal/store"
)

type stubGenerator struct {
	block   chan struct{} // Non-nil blocks each call until closed
	started chan struct{} // Non-nil receives one signal when a blocking call begins
}

func (g *stubGenerator) Generate(ctx context.Context, project core.Project, item core.WorkItem, emitter *pipeline.Emitter) (*core.ArticleDraft, error) {
	if g.block != nil {
		if g.started != nil {
			g.started <- struct{}{}
		}
		select {
		case <-g.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &core.ArticleDraft{
		ID:          "draft-" + item.ID,
		WorkItemID:  item.ID,
		Title:       item.Title,
		HTMLBody:    "<p>body</p>",
		GeneratedAt: time.Now().UTC(),
	}, nil
}

func newTestServer(t *testing.T, gen autopilot.Generator, cfg config.Server) (*Server, *store.Store) {
	t.Helper()
	st, err := store.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	runner := autopilot.NewRunner(st, gen, nil, nil, autopilot.Config{})
	return New(runner, st, cfg), st
}

func seedProject(t *testing.T, st *store.Store) {
	t.Helper()
	err := st.SaveProject(core.Project{
		ID:               "proj-1",
		Name:             "Garden Site",
		AutopilotEnabled: true,
		Frequency:        core.FreqDaily,
		PriorityFilter:   core.FilterAll,
		CategoryFilter:   "all",
		Quota:            1,
		Mode:             core.ModeSimple,
		CreatedAt:        time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("SaveProject failed: %v", err)
	}
	err = st.InsertWorkItems([]core.WorkItem{{
		ID:        "item-1",
		ProjectID: "proj-1",
		Title:     "Composting for Beginners",
		Priority:  core.PriorityHigh,
		Status:    core.ItemIdea,
		CreatedAt: time.Now().UTC(),
	}})
	if err != nil {
		t.Fatalf("InsertWorkItems failed: %v", err)
	}
}

func triggerRequest(token string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/autopilot/run", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestRunEndpointRequiresToken(t *testing.T) {
	srv, _ := newTestServer(t, &stubGenerator{}, config.Server{TriggerToken: "secret"})

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"wrong token", "nope", http.StatusUnauthorized},
		{"valid token", "secret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Router().ServeHTTP(rec, triggerRequest(tt.token))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRunEndpointDisabledWithoutConfiguredToken(t *testing.T) {
	srv, _ := newTestServer(t, &stubGenerator{}, config.Server{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, triggerRequest("anything"))
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403 when no token is configured", rec.Code)
	}
}

func TestRunEndpointReturnsResults(t *testing.T) {
	srv, st := newTestServer(t, &stubGenerator{}, config.Server{TriggerToken: "secret"})
	seedProject(t, st)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, triggerRequest("secret"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp runResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Processed != 1 {
		t.Errorf("processed = %d, want 1", resp.Processed)
	}
	if len(resp.Results) != 1 || resp.Results[0].Successful != 1 {
		t.Errorf("results = %+v", resp.Results)
	}
	if resp.Timestamp == "" {
		t.Errorf("timestamp missing")
	}
}

func TestRunEndpointConflictsWhileRunning(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	srv, st := newTestServer(t, &stubGenerator{block: release, started: started}, config.Server{TriggerToken: "secret"})
	seedProject(t, st)

	firstDone := make(chan int)
	go func() {
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, triggerRequest("secret"))
		firstDone <- rec.Code
	}()

	// Wait for the first trigger to enter generation so a poll request
	// cannot win the runner lock and block on release itself.
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("first trigger never started generating")
	}

	// Poll until the concurrent trigger observes the running state.
	deadline := time.After(5 * time.Second)
	for {
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, triggerRequest("secret"))
		if rec.Code == http.StatusConflict {
			break
		}
		select {
		case <-deadline:
			t.Fatal("never observed 409 from a concurrent trigger")
		case <-time.After(5 * time.Millisecond):
		}
	}

	close(release)
	if code := <-firstDone; code != http.StatusOK {
		t.Errorf("first trigger status = %d, want 200", code)
	}
}

func TestJobsEndpoint(t *testing.T) {
	srv, st := newTestServer(t, &stubGenerator{}, config.Server{TriggerToken: "secret"})
	seedProject(t, st)

	// Run once so the ledger has a record.
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, triggerRequest("secret"))
	if rec.Code != http.StatusOK {
		t.Fatalf("trigger status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs?project=proj-1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("jobs status = %d", rec.Code)
	}
	var resp struct {
		Jobs []core.JobRecord `json:"jobs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode jobs: %v", err)
	}
	if len(resp.Jobs) != 1 || resp.Jobs[0].Status != core.JobCompleted {
		t.Errorf("jobs = %+v", resp.Jobs)
	}

	// A single record fetch round-trips.
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/"+resp.Jobs[0].ID, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("job fetch status = %d", rec.Code)
	}

	// The artifact is retrievable through the API as well.
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/artifacts/"+resp.Jobs[0].ArtifactID, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("artifact fetch status = %d", rec.Code)
	}
}

func TestJobsEndpointRequiresFilter(t *testing.T) {
	srv, _ := newTestServer(t, &stubGenerator{}, config.Server{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 without a filter", rec.Code)
	}
}

func TestJobNotFound(t *testing.T) {
	srv, _ := newTestServer(t, &stubGenerator{}, config.Server{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &stubGenerator{}, config.Server{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
