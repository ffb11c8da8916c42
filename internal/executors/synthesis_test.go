package executors

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"codestory/internal/logging"
	"codestory/internal/services"
	"codestory/internal/services/elevenlabs"
	"codestory/internal/stage"
	"codestory/internal/story"
	"codestory/internal/testsupport"
)

type stubSynthesizer struct {
	failOn   string
	failWith error
	calls    int
	voiceIDs []string
}

func (s *stubSynthesizer) SynthesizeSegment(_ context.Context, req elevenlabs.SegmentRequest) (*elevenlabs.Segment, error) {
	s.calls++
	s.voiceIDs = append(s.voiceIDs, req.VoiceID)
	if s.failOn != "" && strings.Contains(req.Text, s.failOn) {
		return nil, s.failWith
	}
	return &elevenlabs.Segment{
		Audio:           []byte("MP3[" + req.Text[:min(8, len(req.Text))] + "]"),
		DurationSeconds: 2.5,
	}, nil
}

func synthesisRequest() *stage.Request {
	return &stage.Request{
		RunID: "run-1",
		Narrative: &story.NarrativeArtifact{
			Title: "The Widget Chronicles",
			Style: story.StyleDocumentary,
			Chapters: []story.ChapterScript{
				{Number: 1, Title: "Arrival", Script: "The request arrives at the front door."},
				{Number: 2, Title: "The Ledger", Script: "The store records what happened."},
			},
		},
	}
}

func TestSynthesisExecute(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	tts := &stubSynthesizer{}
	executor := NewSynthesis(cfg, tts, logging.NewNop())

	result, err := executor.Execute(context.Background(), synthesisRequest())
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	artifact := result.Audio
	if artifact == nil || !artifact.Success {
		t.Fatalf("expected successful audio artifact, got %+v", artifact)
	}
	if len(artifact.Chapters) != 2 {
		t.Fatalf("expected 2 chapter audios, got %d", len(artifact.Chapters))
	}
	if artifact.VoiceProfile == nil || artifact.VoiceProfile.Name != "Arnold" {
		t.Fatalf("documentary style should use Arnold, got %+v", artifact.VoiceProfile)
	}
	for _, id := range tts.voiceIDs {
		if id != artifact.VoiceProfile.ID {
			t.Fatalf("segment used voice %q, want %q", id, artifact.VoiceProfile.ID)
		}
	}

	for i, chapter := range artifact.Chapters {
		if chapter.Number != i+1 {
			t.Fatalf("chapters should be ordered, position %d has number %d", i, chapter.Number)
		}
		if _, statErr := os.Stat(chapter.AudioURL); statErr != nil {
			t.Fatalf("chapter %d audio file missing: %v", chapter.Number, statErr)
		}
	}
	if artifact.Chapters[0].StartOffsetSeconds != 0 {
		t.Fatalf("first chapter should start at 0, got %v", artifact.Chapters[0].StartOffsetSeconds)
	}
	if got, want := artifact.Chapters[1].StartOffsetSeconds, artifact.Chapters[0].DurationSeconds; got != want {
		t.Fatalf("second chapter offset should follow the first: got %v, want %v", got, want)
	}
	if artifact.TotalDurationSeconds != 5.0 {
		t.Fatalf("expected 5.0s total, got %v", artifact.TotalDurationSeconds)
	}
}

func TestSynthesisAssemblesStoryFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	executor := NewSynthesis(cfg, &stubSynthesizer{}, logging.NewNop())

	result, err := executor.Execute(context.Background(), synthesisRequest())
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	artifact := result.Audio
	if filepath.Base(artifact.AudioURL) != "story.mp3" {
		t.Fatalf("unexpected story file %q", artifact.AudioURL)
	}

	assembled, err := os.ReadFile(artifact.AudioURL)
	if err != nil {
		t.Fatalf("read story file: %v", err)
	}
	var chapterBytes []byte
	for _, chapter := range artifact.Chapters {
		body, readErr := os.ReadFile(chapter.AudioURL)
		if readErr != nil {
			t.Fatalf("read chapter file: %v", readErr)
		}
		chapterBytes = append(chapterBytes, body...)
	}
	if string(assembled) != string(chapterBytes) {
		t.Fatal("story file should be the chapter files concatenated in order")
	}
}

func TestSynthesisQuotaKeepsCompletedChapters(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Pipeline.SynthesisConcurrency = 1
	tts := &stubSynthesizer{
		failOn:   "The store records",
		failWith: fmt.Errorf("segment: %w", services.ErrQuota),
	}
	executor := NewSynthesis(cfg, tts, logging.NewNop())

	result, err := executor.Execute(context.Background(), synthesisRequest())
	if err != nil {
		t.Fatalf("quota exhaustion must not fail the stage, got %v", err)
	}
	artifact := result.Audio
	if artifact.Success {
		t.Fatal("quota exhaustion should mark the artifact unsuccessful")
	}
	if artifact.Error == "" {
		t.Fatal("degraded artifact should carry an error description")
	}
	if len(artifact.PartialChapters) != 1 || artifact.PartialChapters[0].Number != 1 {
		t.Fatalf("expected chapter 1 to survive, got %+v", artifact.PartialChapters)
	}
	if artifact.AudioURL != "" {
		t.Fatalf("degraded artifact should not claim a story file, got %q", artifact.AudioURL)
	}
}

func TestSynthesisNonQuotaFailureFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Pipeline.SynthesisConcurrency = 1
	tts := &stubSynthesizer{
		failOn:   "The store records",
		failWith: errors.New("connection reset"),
	}
	executor := NewSynthesis(cfg, tts, logging.NewNop())

	_, err := executor.Execute(context.Background(), synthesisRequest())
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestSynthesisRequiresNarrative(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	executor := NewSynthesis(cfg, &stubSynthesizer{}, logging.NewNop())

	_, err := executor.Execute(context.Background(), &stage.Request{RunID: "run-1"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error without a narrative, got %v", err)
	}
}

func TestSplitSegmentsShortTextSingleSegment(t *testing.T) {
	segments := splitSegments("A short narration.", 5000)
	if len(segments) != 1 || segments[0] != "A short narration." {
		t.Fatalf("unexpected segments %v", segments)
	}
}

func TestSplitSegmentsPrefersParagraphBoundaries(t *testing.T) {
	first := strings.Repeat("alpha ", 10)
	second := strings.Repeat("beta ", 10)
	text := strings.TrimSpace(first) + "\n\n" + strings.TrimSpace(second)

	segments := splitSegments(text, 70)
	if len(segments) != 2 {
		t.Fatalf("expected a split at the paragraph boundary, got %d segments: %v", len(segments), segments)
	}
	if strings.Contains(segments[0], "beta") || strings.Contains(segments[1], "alpha") {
		t.Fatalf("paragraphs should not mix across segments: %v", segments)
	}
}

func TestSplitSegmentsBreaksLongParagraphAtSentences(t *testing.T) {
	text := "First sentence here. Second sentence follows. Third sentence ends."
	segments := splitSegments(text, 30)
	if len(segments) < 2 {
		t.Fatalf("expected sentence-level splits, got %v", segments)
	}
	for _, segment := range segments {
		if len(segment) > 30 {
			t.Fatalf("segment exceeds limit: %q", segment)
		}
	}
	if joined := strings.Join(segments, " "); joined != text {
		t.Fatalf("splitting must not lose text:\n got  %q\n want %q", joined, text)
	}
}

func TestSplitSegmentsHardSplitsOversizedSentence(t *testing.T) {
	text := strings.Repeat("x", 95)
	segments := splitSegments(text, 40)
	if len(segments) != 3 {
		t.Fatalf("expected 3 hard-split segments, got %d", len(segments))
	}
	if total := len(strings.Join(segments, "")); total != 95 {
		t.Fatalf("hard split must preserve every byte, got %d", total)
	}
}
