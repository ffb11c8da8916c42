package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"codestory/internal/api"
	"codestory/internal/logging"
	"codestory/internal/notifications"
	"codestory/internal/pipeline"
	"codestory/internal/progress"
	"codestory/internal/runs"
	"codestory/internal/stage"
	"codestory/internal/story"
	"codestory/internal/testsupport"
)

type stubExecutor struct {
	name    runs.Stage
	execute func(ctx context.Context, req *stage.Request) (*stage.Result, error)
}

func (s *stubExecutor) Stage() runs.Stage { return s.name }

func (s *stubExecutor) Execute(ctx context.Context, req *stage.Request) (*stage.Result, error) {
	return s.execute(ctx, req)
}

func storyExecutors() []stage.Executor {
	script := strings.Repeat("The request handler inspects every header before touching the store. ", 3)
	return []stage.Executor{
		&stubExecutor{name: runs.StageIntent, execute: func(context.Context, *stage.Request) (*stage.Result, error) {
			return &stage.Result{Intent: &story.IntentArtifact{
				RepoReference:         "github.com/example/app",
				IntentCategory:        story.CategoryOnboarding,
				ExpertiseLevel:        story.ExpertiseIntermediate,
				RecommendedStyle:      story.StyleDocumentary,
				TargetDurationMinutes: 10,
			}}, nil
		}},
		&stubExecutor{name: runs.StageAnalysis, execute: func(context.Context, *stage.Request) (*stage.Result, error) {
			return &stage.Result{Analysis: &story.AnalysisArtifact{
				RepoReference:   "github.com/example/app",
				PrimaryLanguage: "Go",
				TotalFiles:      12,
				KeyComponents: []story.ComponentInfo{
					{Name: "Server", Type: story.ComponentClass, FilePath: "internal/server/server.go", Importance: story.ImportanceCore},
				},
				StoryComponents: story.StoryComponents{
					Chapters: []story.ChapterSuggestion{{Title: "The Front Door"}},
				},
			}}, nil
		}},
		&stubExecutor{name: runs.StageNarrative, execute: func(context.Context, *stage.Request) (*stage.Result, error) {
			return &stage.Result{Narrative: &story.NarrativeArtifact{
				Title: "The App Story",
				Style: story.StyleDocumentary,
				Chapters: []story.ChapterScript{
					{Number: 1, Title: "The Front Door", Script: script, EstimatedSeconds: 70, TransitionOut: story.TransitionFade},
				},
				EstimatedDurationSeconds: 70,
			}}, nil
		}},
		&stubExecutor{name: runs.StageSynthesis, execute: func(context.Context, *stage.Request) (*stage.Result, error) {
			return &stage.Result{Audio: &story.AudioArtifact{
				Success:  true,
				AudioURL: "/audio/story.mp3",
				Chapters: []story.ChapterAudio{
					{Number: 1, Title: "The Front Door", AudioURL: "/audio/ch1.mp3", DurationSeconds: 70},
				},
				TotalDurationSeconds: 70,
			}}, nil
		}},
	}
}

func newTestDaemon(t *testing.T, executors ...stage.Executor) *Daemon {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	// Empty keys keep startup preflight from probing live APIs.
	cfg.LLM.APIKey = ""
	cfg.TTS.APIKey = ""
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	store := testsupport.MustOpenStore(t, cfg)
	hub := progress.NewHub(cfg.Pipeline.EventBufferSize)
	svc := pipeline.NewService(cfg, store, hub, notifications.NewService(cfg), logging.NewNop(), executors...)
	t.Cleanup(svc.Stop)

	d, err := New(cfg, store, svc, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d
}

func serveAPI(t *testing.T, d *Daemon, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	d.api.server.Handler.ServeHTTP(w, req)
	return w
}

func waitForRunTerminal(t *testing.T, d *Daemon, id string) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		result, err := d.Pipeline().GetResult(context.Background(), id)
		if err != nil {
			t.Fatalf("GetResult: %v", err)
		}
		if !result.Pending {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("run did not reach a terminal state in time")
}

func TestStartRunEndToEndOverAPI(t *testing.T) {
	d := newTestDaemon(t, storyExecutors()...)

	w := serveAPI(t, d, http.MethodPost, "/api/runs", `{"repository":"github.com/example/app","style":"documentary"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202 Accepted, got %d: %s", w.Code, w.Body.String())
	}
	var started api.Run
	if err := json.Unmarshal(w.Body.Bytes(), &started); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if started.ID == "" {
		t.Fatal("expected a run id")
	}

	waitForRunTerminal(t, d, started.ID)

	w = serveAPI(t, d, http.MethodGet, "/api/runs/"+started.ID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}
	var result api.ResultResponse
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if result.Pending {
		t.Fatal("expected a settled result")
	}
	if result.Run.Stage != "complete" {
		t.Fatalf("expected complete stage, got %s (error: %s)", result.Run.Stage, result.Run.ErrorMessage)
	}
	if result.Audio == nil || len(result.Audio.Chapters) != 1 {
		t.Fatalf("unexpected audio payload: %+v", result.Audio)
	}
}

func TestStartRunRejectsEmptyRepository(t *testing.T) {
	d := newTestDaemon(t, storyExecutors()...)

	w := serveAPI(t, d, http.MethodPost, "/api/runs", `{"repository":"  "}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 Bad Request, got %d", w.Code)
	}
}

func TestStartRunRejectsMalformedBody(t *testing.T) {
	d := newTestDaemon(t, storyExecutors()...)

	w := serveAPI(t, d, http.MethodPost, "/api/runs", `{"repository":`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 Bad Request, got %d", w.Code)
	}
}

func TestListRunsFiltersByStage(t *testing.T) {
	d := newTestDaemon(t, storyExecutors()...)

	run, err := d.Pipeline().StartRun(context.Background(), "github.com/example/app", "", "")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	waitForRunTerminal(t, d, run.ID)

	w := serveAPI(t, d, http.MethodGet, "/api/runs?stage=complete", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var resp api.RunListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Runs) != 1 {
		t.Fatalf("expected 1 completed run, got %d", len(resp.Runs))
	}

	w = serveAPI(t, d, http.MethodGet, "/api/runs?stage=failed", "")
	resp = api.RunListResponse{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Runs) != 0 {
		t.Fatalf("expected no failed runs, got %d", len(resp.Runs))
	}

	w = serveAPI(t, d, http.MethodGet, "/api/runs?stage=rendering", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown stage filter should be rejected, got %d", w.Code)
	}
}

func TestRunEventsDeliverTerminalCursor(t *testing.T) {
	d := newTestDaemon(t, storyExecutors()...)

	run, err := d.Pipeline().StartRun(context.Background(), "github.com/example/app", "", "")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	waitForRunTerminal(t, d, run.ID)

	w := serveAPI(t, d, http.MethodGet, "/api/runs/"+run.ID+"/events", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}
	var resp api.EventStreamResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Events) == 0 {
		t.Fatal("expected buffered events")
	}
	last := resp.Events[len(resp.Events)-1]
	if !last.Terminal {
		t.Fatalf("expected terminal last event, got %+v", last)
	}
	if resp.Next != last.Sequence {
		t.Fatalf("expected cursor %d, got %d", last.Sequence, resp.Next)
	}
}

func TestUnknownRunReturns404(t *testing.T) {
	d := newTestDaemon(t, storyExecutors()...)

	for _, target := range []string{"/api/runs/no-such-run", "/api/runs/no-such-run/events"} {
		w := serveAPI(t, d, http.MethodGet, target, "")
		if w.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", target, w.Code)
		}
	}

	w := serveAPI(t, d, http.MethodDelete, "/api/runs/no-such-run", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown cancel, got %d", w.Code)
	}
}

func TestPurgeRemovesRun(t *testing.T) {
	d := newTestDaemon(t, storyExecutors()...)

	run, err := d.Pipeline().StartRun(context.Background(), "github.com/example/app", "", "")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	waitForRunTerminal(t, d, run.ID)

	w := serveAPI(t, d, http.MethodDelete, "/api/runs/"+run.ID+"?purge=1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}

	w = serveAPI(t, d, http.MethodGet, "/api/runs/"+run.ID, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after purge, got %d", w.Code)
	}
}

func TestStatusEndpointReportsCounts(t *testing.T) {
	d := newTestDaemon(t, storyExecutors()...)

	run, err := d.Pipeline().StartRun(context.Background(), "github.com/example/app", "", "")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	waitForRunTerminal(t, d, run.ID)

	w := serveAPI(t, d, http.MethodGet, "/api/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var status api.DaemonStatus
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to decode status: %v", err)
	}
	if status.RunCounts["total"] != 1 || status.RunCounts["completed"] != 1 {
		t.Fatalf("unexpected run counts: %+v", status.RunCounts)
	}
	if status.RunsDBPath == "" || status.LockFilePath == "" {
		t.Fatalf("expected populated paths: %+v", status)
	}
}

func TestBearerTokenGuardsEndpoints(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.LLM.APIKey = ""
	cfg.TTS.APIKey = ""
	cfg.Paths.APIToken = "secret-token"
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	hub := progress.NewHub(cfg.Pipeline.EventBufferSize)
	svc := pipeline.NewService(cfg, store, hub, notifications.NewService(cfg), logging.NewNop(), storyExecutors()...)
	t.Cleanup(svc.Stop)
	d, err := New(cfg, store, svc, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	w := httptest.NewRecorder()
	d.api.server.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	w = httptest.NewRecorder()
	d.api.server.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", w.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	d := newTestDaemon(t, storyExecutors()...)

	w := serveAPI(t, d, http.MethodPut, "/api/runs", "")
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
	w = serveAPI(t, d, http.MethodPost, "/api/status", "")
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}
