package preflight

import (
	"context"

	"codestory/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all preflight checks for the given config. Directory
// checks always run; the LLM and TTS checks probe the live APIs and are
// skipped only when the corresponding key is absent (they report the
// missing key as a failure instead).
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("Workspace directory", cfg.Paths.WorkspaceDir),
	}

	results = append(results, CheckLLM(ctx, cfg.LLM))
	results = append(results, CheckTTS(ctx, cfg.TTS))

	return results
}

// AllPassed reports whether every result in the slice passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
