package story

import (
	"errors"
	"fmt"

	"codestory/internal/services"
)

// Script and duration floors enforced before synthesis.
const (
	MinScriptChars           = 100
	MinStorySeconds          = 60
	minOutlineChapterMinutes = 1
)

// GateError reports the first invariant a stage artifact violated. It
// unwraps to services.ErrValidation so failure classification stays uniform.
type GateError struct {
	Stage     string
	Invariant string
	Detail    string
}

func (e *GateError) Error() string {
	return fmt.Sprintf("%s gate: %s: %s", e.Stage, e.Invariant, e.Detail)
}

func (e *GateError) Unwrap() error {
	return services.ErrValidation
}

// ValidateIntent checks schema conformance of an intent artifact. The intent
// stage has no external dependency to validate beyond this.
func ValidateIntent(artifact *IntentArtifact) error {
	if artifact == nil {
		return &GateError{Stage: "intent", Invariant: "artifact", Detail: "missing artifact"}
	}
	if artifact.RepoReference == "" {
		return &GateError{Stage: "intent", Invariant: "repo_reference", Detail: "repository reference is required"}
	}
	if _, ok := ParseIntentCategory(string(artifact.IntentCategory)); !ok {
		return &GateError{Stage: "intent", Invariant: "intent_category", Detail: fmt.Sprintf("unknown category %q", artifact.IntentCategory)}
	}
	if _, ok := ParseExpertiseLevel(string(artifact.ExpertiseLevel)); !ok {
		return &GateError{Stage: "intent", Invariant: "expertise_level", Detail: fmt.Sprintf("unknown level %q", artifact.ExpertiseLevel)}
	}
	if _, ok := ParseStyle(string(artifact.RecommendedStyle)); !ok {
		return &GateError{Stage: "intent", Invariant: "recommended_style", Detail: fmt.Sprintf("unknown style %q", artifact.RecommendedStyle)}
	}
	if artifact.TargetDurationMinutes < MinTargetDurationMinutes || artifact.TargetDurationMinutes > MaxTargetDurationMinutes {
		return &GateError{
			Stage:     "intent",
			Invariant: "target_duration",
			Detail:    fmt.Sprintf("duration %d outside %d-%d minutes", artifact.TargetDurationMinutes, MinTargetDurationMinutes, MaxTargetDurationMinutes),
		}
	}
	for i, outline := range artifact.ChapterOutline {
		if outline.EstimatedMinutes < minOutlineChapterMinutes {
			return &GateError{
				Stage:     "intent",
				Invariant: "chapter_outline",
				Detail:    fmt.Sprintf("outline entry %d has non-positive estimated minutes", i+1),
			}
		}
	}
	return nil
}

// ValidateAnalysis checks an analysis artifact is sufficient for narrative
// generation.
func ValidateAnalysis(artifact *AnalysisArtifact) error {
	if artifact == nil {
		return &GateError{Stage: "analysis", Invariant: "artifact", Detail: "missing artifact"}
	}
	if artifact.TotalFiles <= 0 {
		return &GateError{Stage: "analysis", Invariant: "total_files", Detail: "no files detected in repository"}
	}
	if len(artifact.KeyComponents) == 0 {
		return &GateError{Stage: "analysis", Invariant: "key_components", Detail: "no key components identified"}
	}
	if len(artifact.StoryComponents.Chapters) == 0 {
		return &GateError{Stage: "analysis", Invariant: "story_chapters", Detail: "no chapter suggestions produced"}
	}
	return nil
}

// ValidateNarrative checks a narrative artifact is sufficient for audio
// synthesis. Violations name the offending chapter.
func ValidateNarrative(artifact *NarrativeArtifact) error {
	if artifact == nil {
		return &GateError{Stage: "narrative", Invariant: "artifact", Detail: "missing artifact"}
	}
	if len(artifact.Chapters) == 0 {
		return &GateError{Stage: "narrative", Invariant: "chapters", Detail: "no chapters generated"}
	}
	for i, chapter := range artifact.Chapters {
		if chapter.Number != i+1 {
			return &GateError{
				Stage:     "narrative",
				Invariant: "chapter_order",
				Detail:    fmt.Sprintf("chapter at position %d has number %d", i+1, chapter.Number),
			}
		}
		if len(chapter.Script) <= MinScriptChars {
			return &GateError{
				Stage:     "narrative",
				Invariant: "chapter_script",
				Detail:    fmt.Sprintf("chapter %d script is too short (%d chars)", chapter.Number, len(chapter.Script)),
			}
		}
	}
	if artifact.EstimatedDurationSeconds <= MinStorySeconds {
		return &GateError{
			Stage:     "narrative",
			Invariant: "estimated_duration",
			Detail:    fmt.Sprintf("estimated duration %ds is below the %ds floor", artifact.EstimatedDurationSeconds, MinStorySeconds),
		}
	}
	return nil
}

// IsZeroFiles reports whether err is the analysis gate's empty-repository
// violation, which is retried once with relaxed filters before failing.
func IsZeroFiles(err error) bool {
	var gateErr *GateError
	return errors.As(err, &gateErr) && gateErr.Invariant == "total_files"
}
