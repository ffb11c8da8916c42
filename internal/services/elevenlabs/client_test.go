package elevenlabs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSynthesizeSegment(t *testing.T) {
	audio := make([]byte, mp3BytesPerSecond*3) // three seconds worth
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/v1/text-to-speech/") {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("xi-api-key") != "test-key" {
			t.Fatalf("missing api key header")
		}
		if r.URL.Query().Get("output_format") != "mp3_44100_128" {
			t.Fatalf("unexpected output format %q", r.URL.Query().Get("output_format"))
		}
		var req synthesisRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Text == "" || req.ModelID == "" {
			t.Fatalf("incomplete request: %#v", req)
		}
		if req.VoiceSettings.Stability != 0.5 {
			t.Fatalf("unexpected stability %v", req.VoiceSettings.Stability)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write(audio)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key", BaseURL: server.URL})
	segment, err := client.SynthesizeSegment(context.Background(), SegmentRequest{
		VoiceID:  "voice-1",
		Text:     "Once upon a repository.",
		Settings: VoiceSettings{Stability: 0.5, SimilarityBoost: 0.75},
	})
	if err != nil {
		t.Fatalf("SynthesizeSegment returned error: %v", err)
	}
	if len(segment.Audio) != len(audio) {
		t.Fatalf("expected %d audio bytes, got %d", len(audio), len(segment.Audio))
	}
	if segment.DurationSeconds != 3 {
		t.Fatalf("expected 3s duration, got %v", segment.DurationSeconds)
	}
}

func TestSynthesizeSegmentQuotaNotRetried(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":{"status":"quota_exceeded","message":"out of characters"}}`))
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test-key", BaseURL: server.URL},
		WithRetryBackoff(0, 0),
		WithSleeper(func(time.Duration) {}),
	)
	_, err := client.SynthesizeSegment(context.Background(), SegmentRequest{VoiceID: "voice-1", Text: "hello"})
	if err == nil {
		t.Fatal("expected quota error")
	}
	if !IsQuota(err) {
		t.Fatalf("expected IsQuota to report true, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("quota errors must not be retried, got %d calls", calls)
	}
}

func TestSynthesizeSegmentRetriesOn500(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(make([]byte, 128))
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test-key", BaseURL: server.URL},
		WithRetryBackoff(0, 0),
		WithSleeper(func(time.Duration) {}),
	)
	segment, err := client.SynthesizeSegment(context.Background(), SegmentRequest{VoiceID: "voice-1", Text: "hello"})
	if err != nil {
		t.Fatalf("SynthesizeSegment returned error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected retry, got %d calls", calls)
	}
	if len(segment.Audio) != 128 {
		t.Fatalf("unexpected audio size %d", len(segment.Audio))
	}
}

func TestSynthesizeSegmentValidatesInput(t *testing.T) {
	client := NewClient(Config{APIKey: "test-key"})
	if _, err := client.SynthesizeSegment(context.Background(), SegmentRequest{Text: "hello"}); err == nil {
		t.Fatal("expected error for missing voice id")
	}
	if _, err := client.SynthesizeSegment(context.Background(), SegmentRequest{VoiceID: "voice-1"}); err == nil {
		t.Fatal("expected error for missing text")
	}
	empty := NewClient(Config{})
	if _, err := empty.SynthesizeSegment(context.Background(), SegmentRequest{VoiceID: "voice-1", Text: "hello"}); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/user" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"subscription":{"character_count":0}}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key", BaseURL: server.URL})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestHealthCheckBadKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL})
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check to fail")
	}
}
