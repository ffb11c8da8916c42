package pipeline

import (
	"errors"

	"codestory/internal/runs"
	"codestory/internal/services"
	"codestory/internal/stage"
	"codestory/internal/story"
)

// maxStageAttempts caps a stage at one retry.
const maxStageAttempts = 2

// recovery is the action the orchestrator takes after a stage failure.
type recovery struct {
	retry  bool
	hint   string
	reason string
}

// recoverFrom maps a stage failure onto the fixed recovery table. Only two
// analysis failures earn a retry: an artifact too large for its storage
// ceiling (retried with aggressive packaging) and a repository that surveyed
// to zero files (retried with relaxed filters). Everything else is fatal;
// quota exhaustion never reaches here because the synthesis executor
// degrades it into a partial artifact instead of an error.
func recoverFrom(current runs.Stage, attempt int, err error) recovery {
	if attempt >= maxStageAttempts {
		return recovery{}
	}
	if current != runs.StageAnalysis {
		return recovery{}
	}
	if errors.Is(err, services.ErrCancelled) || errors.Is(err, services.ErrTimeout) {
		return recovery{}
	}
	if errors.Is(err, services.ErrStorage) {
		return recovery{retry: true, hint: stage.HintAggressiveFilter, reason: "analysis artifact over size ceiling"}
	}
	if story.IsZeroFiles(err) {
		return recovery{retry: true, hint: stage.HintRelaxedFilter, reason: "no files survived filtering"}
	}
	return recovery{}
}
