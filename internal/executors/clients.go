package executors

import (
	"context"

	"codestory/internal/services/elevenlabs"
)

// Completer is the LLM surface the intent, analysis, and narrative stages use.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	CompleteCreative(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Synthesizer is the TTS surface the synthesis stage uses.
type Synthesizer interface {
	SynthesizeSegment(ctx context.Context, req elevenlabs.SegmentRequest) (*elevenlabs.Segment, error)
}
