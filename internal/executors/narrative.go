package executors

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"codestory/internal/config"
	"codestory/internal/logging"
	"codestory/internal/runs"
	"codestory/internal/services"
	"codestory/internal/services/llm"
	"codestory/internal/stage"
	"codestory/internal/story"
)

// wordsPerMinute is the assumed narration pace when the model omits a
// chapter duration estimate.
const wordsPerMinute = 150

// Narrative writes the chaptered narration script.
type Narrative struct {
	cfg    *config.Config
	llm    Completer
	logger *slog.Logger
}

// NewNarrative constructs the narrative stage executor.
func NewNarrative(cfg *config.Config, completer Completer, logger *slog.Logger) *Narrative {
	return &Narrative{
		cfg:    cfg,
		llm:    completer,
		logger: logging.NewComponentLogger(logger, "narrative"),
	}
}

func (e *Narrative) Stage() runs.Stage {
	return runs.StageNarrative
}

func (e *Narrative) Execute(ctx context.Context, req *stage.Request) (*stage.Result, error) {
	logger := logging.WithContext(ctx, e.logger)
	if req.Intent == nil || req.Analysis == nil {
		return nil, services.Wrap(services.ErrValidation, "narrative", "validate inputs",
			"intent and analysis artifacts are required before script writing", nil)
	}

	style := req.Intent.RecommendedStyle
	if _, ok := story.ParseStyle(string(style)); !ok {
		style = story.DefaultStyle
	}
	logger.Info("writing script",
		logging.String("style", string(style)),
		logging.Int("target_minutes", req.Intent.TargetDurationMinutes),
	)

	userPrompt := buildNarrativeUserPrompt(req, style)
	content, err := e.llm.CompleteCreative(ctx, narrativeSystemPrompt, userPrompt)
	if err != nil {
		return nil, wrapLLMError("narrative", "write script", err)
	}

	var artifact story.NarrativeArtifact
	if err := llm.DecodeLLMJSON(content, &artifact); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "narrative", "decode script", "model returned unparseable script payload", err)
	}

	normalizeNarrative(&artifact, style)
	logger.Info("script written",
		logging.String("title", artifact.Title),
		logging.Int("chapters", len(artifact.Chapters)),
		logging.Int("estimated_seconds", artifact.EstimatedDurationSeconds),
	)
	return &stage.Result{Narrative: &artifact}, nil
}

func buildNarrativeUserPrompt(req *stage.Request, style story.NarrativeStyle) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Repository: %s\n", req.RepoReference)
	fmt.Fprintf(&b, "Narrative style: %s\n", style)
	fmt.Fprintf(&b, "Expertise level: %s\n", req.Intent.ExpertiseLevel)
	fmt.Fprintf(&b, "Target duration: %d minutes\n", req.Intent.TargetDurationMinutes)
	if len(req.Intent.FocusAreas) > 0 {
		fmt.Fprintf(&b, "Focus areas: %s\n", strings.Join(req.Intent.FocusAreas, ", "))
	}

	if len(req.Intent.ChapterOutline) > 0 {
		b.WriteString("\nPreliminary chapter outline:\n")
		for i, chapter := range req.Intent.ChapterOutline {
			fmt.Fprintf(&b, "  %d. %s (%s, ~%d min)\n", i+1, chapter.Title, chapter.Focus, chapter.EstimatedMinutes)
		}
	}

	analysis := req.Analysis
	fmt.Fprintf(&b, "\nArchitecture: %s\n", analysis.ArchitecturePattern)
	if analysis.PrimaryLanguage != "" {
		fmt.Fprintf(&b, "Primary language: %s\n", analysis.PrimaryLanguage)
	}
	if len(analysis.KeyComponents) > 0 {
		b.WriteString("Key components:\n")
		for _, component := range analysis.KeyComponents {
			fmt.Fprintf(&b, "  - %s (%s, %s): %s [%s]\n",
				component.Name, component.Type, component.Importance, component.Purpose, component.FilePath)
		}
	}
	sc := analysis.StoryComponents
	if sc.NarrativeArc != "" {
		fmt.Fprintf(&b, "Narrative arc: %s\n", sc.NarrativeArc)
	}
	if len(sc.Themes) > 0 {
		fmt.Fprintf(&b, "Themes: %s\n", strings.Join(sc.Themes, ", "))
	}
	if len(sc.Characters) > 0 {
		b.WriteString("Characters:\n")
		for _, character := range sc.Characters {
			fmt.Fprintf(&b, "  - %s (%s): %s\n", character.Name, character.Role, character.Description)
		}
	}
	if len(sc.Chapters) > 0 {
		b.WriteString("Chapter suggestions from analysis:\n")
		for _, chapter := range sc.Chapters {
			fmt.Fprintf(&b, "  - %s: %s (files: %s)\n",
				chapter.Title, chapter.Description, strings.Join(chapter.KeyFiles, ", "))
		}
	}
	return b.String()
}

// normalizeNarrative fills in fields the model tends to omit: parsed voice
// markers, duration estimates from word count, transitions, and the voice
// recommendation for the applied style.
func normalizeNarrative(artifact *story.NarrativeArtifact, style story.NarrativeStyle) {
	artifact.Style = style
	total := 0
	for i := range artifact.Chapters {
		chapter := &artifact.Chapters[i]
		chapter.Markers = story.ParseMarkers(chapter.Script)
		if chapter.EstimatedSeconds <= 0 {
			words := len(strings.Fields(story.StripMarkers(chapter.Script)))
			chapter.EstimatedSeconds = words * 60 / wordsPerMinute
		}
		if chapter.TransitionOut == "" {
			chapter.TransitionOut = story.TransitionFade
		}
		total += chapter.EstimatedSeconds
	}
	if artifact.EstimatedDurationSeconds <= 0 {
		artifact.EstimatedDurationSeconds = total
	}
	if artifact.VoiceProfileRecommendation == "" {
		artifact.VoiceProfileRecommendation = VoiceProfileFor(style).Name
	}
}
