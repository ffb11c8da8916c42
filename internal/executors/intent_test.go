package executors

import (
	"context"
	"errors"
	"testing"

	"codestory/internal/logging"
	"codestory/internal/services"
	"codestory/internal/stage"
	"codestory/internal/story"
	"codestory/internal/testsupport"
)

type stubCompleter struct {
	jsonPayload     string
	creativePayload string
	jsonErr         error
	creativeErr     error
	lastSystem      string
	lastUser        string
	jsonCalls       int
	creativeCalls   int
}

func (s *stubCompleter) CompleteJSON(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	s.jsonCalls++
	s.lastSystem = systemPrompt
	s.lastUser = userPrompt
	return s.jsonPayload, s.jsonErr
}

func (s *stubCompleter) CompleteCreative(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	s.creativeCalls++
	s.lastSystem = systemPrompt
	s.lastUser = userPrompt
	return s.creativePayload, s.creativeErr
}

const intentPayload = `{
  "intent_category": "architecture",
  "expertise_level": "intermediate",
  "focus_areas": ["pipeline", "storage"],
  "recommended_style": "documentary",
  "target_duration_minutes": 12,
  "chapter_outline": [
    {"title": "The Front Door", "focus": "entry points", "estimated_minutes": 4},
    {"title": "The Engine Room", "focus": "core pipeline", "estimated_minutes": 8}
  ]
}`

func TestIntentExecute(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	completer := &stubCompleter{jsonPayload: intentPayload}
	executor := NewIntent(cfg, completer, logging.NewNop())

	result, err := executor.Execute(context.Background(), &stage.Request{
		RunID:         "run-1",
		RepoReference: "github.com/example/widgets",
		IntentText:    "how is this structured?",
	})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	artifact := result.Intent
	if artifact == nil {
		t.Fatal("expected intent artifact")
	}
	if artifact.RepoReference != "github.com/example/widgets" {
		t.Fatalf("repo reference must come from the request, got %q", artifact.RepoReference)
	}
	if artifact.IntentCategory != story.CategoryArchitecture {
		t.Fatalf("unexpected category %q", artifact.IntentCategory)
	}
	if artifact.TargetDurationMinutes != 12 {
		t.Fatalf("unexpected duration %d", artifact.TargetDurationMinutes)
	}
	if story.ValidateIntent(artifact) != nil {
		t.Fatal("artifact should pass the intent gate")
	}
}

func TestIntentPreferredStyleOverridesModel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	completer := &stubCompleter{jsonPayload: intentPayload}
	executor := NewIntent(cfg, completer, logging.NewNop())

	result, err := executor.Execute(context.Background(), &stage.Request{
		RunID:          "run-1",
		RepoReference:  "github.com/example/widgets",
		IntentText:     "tell me a story",
		PreferredStyle: "fiction",
	})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if result.Intent.RecommendedStyle != story.StyleFiction {
		t.Fatalf("preferred style should win, got %q", result.Intent.RecommendedStyle)
	}
}

func TestIntentNormalizesOutOfRangeValues(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	completer := &stubCompleter{jsonPayload: `{
		"intent_category": "sightseeing",
		"expertise_level": "wizard",
		"recommended_style": "opera",
		"target_duration_minutes": 90,
		"chapter_outline": [{"title": "All", "focus": "everything", "estimated_minutes": 90}]
	}`}
	executor := NewIntent(cfg, completer, logging.NewNop())

	result, err := executor.Execute(context.Background(), &stage.Request{
		RunID:         "run-1",
		RepoReference: "github.com/example/widgets",
		IntentText:    "everything",
	})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	artifact := result.Intent
	if artifact.RecommendedStyle != story.DefaultStyle {
		t.Fatalf("unknown style should fall back to default, got %q", artifact.RecommendedStyle)
	}
	if artifact.IntentCategory != story.CategoryOnboarding {
		t.Fatalf("unknown category should fall back, got %q", artifact.IntentCategory)
	}
	if artifact.ExpertiseLevel != story.ExpertiseIntermediate {
		t.Fatalf("unknown expertise should fall back, got %q", artifact.ExpertiseLevel)
	}
	if artifact.TargetDurationMinutes != story.MaxTargetDurationMinutes {
		t.Fatalf("duration should clamp to %d, got %d", story.MaxTargetDurationMinutes, artifact.TargetDurationMinutes)
	}
}

func TestIntentUnparseablePayloadFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	completer := &stubCompleter{jsonPayload: "this is not json at all"}
	executor := NewIntent(cfg, completer, logging.NewNop())

	_, err := executor.Execute(context.Background(), &stage.Request{
		RunID:         "run-1",
		RepoReference: "github.com/example/widgets",
		IntentText:    "explain",
	})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestIntentCancelledContextClassified(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	completer := &stubCompleter{jsonErr: context.Canceled}
	executor := NewIntent(cfg, completer, logging.NewNop())

	_, err := executor.Execute(context.Background(), &stage.Request{
		RunID:         "run-1",
		RepoReference: "github.com/example/widgets",
		IntentText:    "explain",
	})
	if !errors.Is(err, services.ErrCancelled) {
		t.Fatalf("expected cancelled classification, got %v", err)
	}
}
