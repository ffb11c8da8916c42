// Package stage defines the contract the pipeline orchestrator needs from
// each stage executor.
package stage

import (
	"context"

	"codestory/internal/runs"
	"codestory/internal/story"
)

// Retry hints passed to a stage executor on re-execution after a retryable
// validation failure.
const (
	HintAggressiveFilter = "aggressive-filter"
	HintRelaxedFilter    = "relaxed-filter"
)

// Request carries a run's inputs and the artifacts produced by earlier stages.
// Artifact pointers are nil for stages that have not run.
type Request struct {
	RunID          string
	RepoReference  string
	IntentText     string
	PreferredStyle string
	Intent         *story.IntentArtifact
	Analysis       *story.AnalysisArtifact
	Narrative      *story.NarrativeArtifact
	Attempt        int
	RetryHint      string
}

// Result holds whichever artifact the executing stage produced.
type Result struct {
	Intent    *story.IntentArtifact
	Analysis  *story.AnalysisArtifact
	Narrative *story.NarrativeArtifact
	Audio     *story.AudioArtifact
}

// Executor runs one pipeline stage to completion.
type Executor interface {
	Stage() runs.Stage
	Execute(context.Context, *Request) (*Result, error)
}
