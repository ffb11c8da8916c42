package executors

import (
	"context"
	"errors"
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

// Intent elicits what the listener wants from the story.
type Intent struct {
	cfg    *config.Config
	llm    Completer
	logger *slog.Logger
}

// NewIntent constructs the intent stage executor.
func NewIntent(cfg *config.Config, completer Completer, logger *slog.Logger) *Intent {
	return &Intent{
		cfg:    cfg,
		llm:    completer,
		logger: logging.NewComponentLogger(logger, "intent"),
	}
}

func (e *Intent) Stage() runs.Stage {
	return runs.StageIntent
}

func (e *Intent) Execute(ctx context.Context, req *stage.Request) (*stage.Result, error) {
	logger := logging.WithContext(ctx, e.logger)
	logger.Info("eliciting intent",
		logging.String("repo", req.RepoReference),
		logging.String("preferred_style", req.PreferredStyle),
	)

	userPrompt := buildIntentUserPrompt(req)
	content, err := e.llm.CompleteJSON(ctx, intentSystemPrompt, userPrompt)
	if err != nil {
		return nil, wrapLLMError("intent", "complete intent", err)
	}

	var artifact story.IntentArtifact
	if err := llm.DecodeLLMJSON(content, &artifact); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "intent", "decode intent", "model returned unparseable intent payload", err)
	}

	artifact.RepoReference = req.RepoReference
	normalizeIntent(&artifact, req.PreferredStyle)

	logger.Info("intent elicited",
		logging.String("category", string(artifact.IntentCategory)),
		logging.String("style", string(artifact.RecommendedStyle)),
		logging.Int("target_minutes", artifact.TargetDurationMinutes),
		logging.Int("chapters", len(artifact.ChapterOutline)),
	)
	return &stage.Result{Intent: &artifact}, nil
}

func buildIntentUserPrompt(req *stage.Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Repository: %s\n", req.RepoReference)
	fmt.Fprintf(&b, "Listener goal: %s\n", strings.TrimSpace(req.IntentText))
	if style := strings.TrimSpace(req.PreferredStyle); style != "" {
		fmt.Fprintf(&b, "Requested narrative style: %s\n", style)
	}
	return b.String()
}

// normalizeIntent forces the artifact into the supported value ranges. An
// explicit listener style preference overrides the model's recommendation
// when it names a known style.
func normalizeIntent(artifact *story.IntentArtifact, preferredStyle string) {
	if preferred, ok := story.ParseStyle(preferredStyle); ok {
		artifact.RecommendedStyle = preferred
	} else if _, ok := story.ParseStyle(string(artifact.RecommendedStyle)); !ok {
		artifact.RecommendedStyle = story.DefaultStyle
	}
	if _, ok := story.ParseIntentCategory(string(artifact.IntentCategory)); !ok {
		artifact.IntentCategory = story.CategoryOnboarding
	}
	if _, ok := story.ParseExpertiseLevel(string(artifact.ExpertiseLevel)); !ok {
		artifact.ExpertiseLevel = story.ExpertiseIntermediate
	}
	artifact.TargetDurationMinutes = story.ClampTargetDuration(artifact.TargetDurationMinutes)
}

// wrapLLMError classifies an LLM client failure for the degradation policy.
func wrapLLMError(stageName, operation string, err error) error {
	switch {
	case llm.IsQuota(err):
		return services.Wrap(services.ErrQuota, stageName, operation, "model credits exhausted", err)
	case errors.Is(err, context.Canceled):
		return services.Wrap(services.ErrCancelled, stageName, operation, "model request cancelled", err)
	case errors.Is(err, context.DeadlineExceeded):
		return services.Wrap(services.ErrTimeout, stageName, operation, "model request timed out", err)
	default:
		return services.Wrap(services.ErrExternalTool, stageName, operation, "model request failed", err)
	}
}
