package runs

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Stage represents the lifecycle position of a pipeline run.
type Stage string

const (
	StageIntent    Stage = "intent"
	StageAnalysis  Stage = "analysis"
	StageNarrative Stage = "narrative"
	StageSynthesis Stage = "synthesis"
	StageComplete  Stage = "complete"
	StageFailed    Stage = "failed"
)

// CancelledReason is the error message recorded when a caller stops a run.
const CancelledReason = "Run cancelled by caller"

var allStages = []Stage{
	StageIntent,
	StageAnalysis,
	StageNarrative,
	StageSynthesis,
	StageComplete,
	StageFailed,
}

// executionOrder is the fixed forward path of a run. There are no
// back-transitions and no skipping.
var executionOrder = []Stage{StageIntent, StageAnalysis, StageNarrative, StageSynthesis}

// checkpoints are the fixed progress percentages emitted at stage entry so a
// caller can render a monotonically increasing bar without knowing stage
// internals.
var checkpoints = map[Stage]int{
	StageIntent:    10,
	StageAnalysis:  30,
	StageNarrative: 60,
	StageSynthesis: 80,
	StageComplete:  100,
}

var titleCaser = cases.Title(language.English)

// PipelineStages returns the four execution stages in order.
func PipelineStages() []Stage {
	cp := make([]Stage, len(executionOrder))
	copy(cp, executionOrder)
	return cp
}

// AllStages returns every known stage including terminal states.
func AllStages() []Stage {
	cp := make([]Stage, len(allStages))
	copy(cp, allStages)
	return cp
}

// ParseStage converts a string into a known Stage.
func ParseStage(value string) (Stage, bool) {
	normalized := Stage(strings.ToLower(strings.TrimSpace(value)))
	for _, stage := range allStages {
		if stage == normalized {
			return stage, true
		}
	}
	return "", false
}

// IsTerminal reports whether the stage ends a run.
func (s Stage) IsTerminal() bool {
	return s == StageComplete || s == StageFailed
}

// Checkpoint returns the fixed progress percent for entering a stage.
func Checkpoint(stage Stage) (int, bool) {
	percent, ok := checkpoints[stage]
	return percent, ok
}

// NextStage returns the stage that follows s on the forward path. Synthesis
// advances to Complete; terminal stages return themselves.
func NextStage(s Stage) Stage {
	for i, stage := range executionOrder {
		if stage != s {
			continue
		}
		if i+1 < len(executionOrder) {
			return executionOrder[i+1]
		}
		return StageComplete
	}
	return s
}

// Label returns the user-facing form of a stage name.
func (s Stage) Label() string {
	if s == "" {
		return ""
	}
	return titleCaser.String(string(s))
}

// Run represents one pipeline execution persisted in SQLite.
type Run struct {
	ID              string
	RepoReference   string
	IntentText      string
	PreferredStyle  string
	CurrentStage    Stage
	ProgressPercent int
	ProgressMessage string
	ErrorMessage    string
	ErrorKind       string
	Partial         bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
}

// IsTerminal reports whether the run has finished.
func (r *Run) IsTerminal() bool {
	return r.CurrentStage.IsTerminal()
}

// SetProgress updates the progress fields together.
func (r *Run) SetProgress(message string, percent int) {
	r.ProgressMessage = message
	if percent > r.ProgressPercent {
		r.ProgressPercent = percent
	}
}

// SetFailed marks the run failed with the given message and classification.
func (r *Run) SetFailed(kind, message string) {
	now := time.Now().UTC()
	r.CurrentStage = StageFailed
	r.ErrorMessage = message
	r.ErrorKind = kind
	r.ProgressMessage = message
	r.CompletedAt = &now
}

// SetComplete marks the run complete. Partial records whether the audio
// artifact was flagged as a degraded result.
func (r *Run) SetComplete(partial bool) {
	now := time.Now().UTC()
	r.CurrentStage = StageComplete
	r.ProgressPercent = 100
	r.ProgressMessage = "Story complete"
	r.Partial = partial
	r.CompletedAt = &now
}

// HealthSummary describes aggregated run counts per key lifecycle states.
type HealthSummary struct {
	Total     int
	InFlight  int
	Completed int
	Failed    int
}
