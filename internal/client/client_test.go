package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"codestory/internal/api"
)

func TestStartRunSendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.Method != http.MethodPost || r.URL.Path != "/api/runs" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req api.StartRunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(api.Run{ID: "run-1", Repository: req.Repository, Stage: "intent"})
	}))
	defer srv.Close()

	c := New(srv.URL, "secret")
	run, err := c.StartRun(context.Background(), api.StartRunRequest{Repository: "github.com/example/app"})
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if run.ID != "run-1" {
		t.Fatalf("unexpected run: %+v", run)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
}

func TestErrorPayloadSurfacesAsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"run not found"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	_, err := c.GetResult(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsNotFound(err) {
		t.Fatalf("expected not-found classification, got %v", err)
	}
}

func TestEventsEncodesCursorQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("since") != "7" || q.Get("wait") != "1" || q.Get("limit") != "50" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(api.EventStreamResponse{Next: 9})
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	resp, err := c.Events(context.Background(), "run-1", 7, 50, true)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if resp.Next != 9 {
		t.Fatalf("unexpected cursor: %d", resp.Next)
	}
}

func TestNewAddsSchemeForBareAddress(t *testing.T) {
	c := New("127.0.0.1:7487", "")
	if c.baseURL != "http://127.0.0.1:7487" {
		t.Fatalf("unexpected base URL: %s", c.baseURL)
	}
}

func TestConnectionRefusedHint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	c := New(addr, "")
	_, err := c.Status(context.Background())
	if err == nil {
		t.Fatal("expected connection error")
	}
}
