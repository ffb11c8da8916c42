package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"codestory/internal/config"
	"codestory/internal/logging"
	"codestory/internal/notifications"
	"codestory/internal/progress"
	"codestory/internal/runs"
	"codestory/internal/services"
	"codestory/internal/stage"
	"codestory/internal/story"
)

// Orchestrator drives a single run from intent elicitation to its terminal
// stage, strictly in order, persisting every artifact along the way.
type Orchestrator struct {
	cfg       *config.Config
	store     *runs.Store
	hub       *progress.Hub
	notifier  notifications.Service
	executors map[runs.Stage]stage.Executor
	logger    *slog.Logger
}

// NewOrchestrator constructs an orchestrator with the given stage executors.
func NewOrchestrator(
	cfg *config.Config,
	store *runs.Store,
	hub *progress.Hub,
	notifier notifications.Service,
	logger *slog.Logger,
	executors ...stage.Executor,
) *Orchestrator {
	registry := make(map[runs.Stage]stage.Executor, len(executors))
	for _, executor := range executors {
		registry[executor.Stage()] = executor
	}
	componentLogger := logging.NewComponentLogger(logger, "orchestrator")
	for _, name := range runs.PipelineStages() {
		if _, ok := registry[name]; !ok {
			componentLogger.Warn("no executor registered for stage; runs will fail there",
				logging.String("stage", string(name)))
		}
	}
	return &Orchestrator{
		cfg:       cfg,
		store:     store,
		hub:       hub,
		notifier:  notifier,
		executors: registry,
		logger:    componentLogger,
	}
}

// Run executes every remaining stage of the run. It returns the terminal
// error for a failed run and nil for a completed one; the run record and
// progress hub always reflect the terminal state either way.
func (o *Orchestrator) Run(ctx context.Context, run *runs.Run) error {
	ctx = services.WithRunID(ctx, run.ID)
	logger := o.logger.With(logging.String("run_id", run.ID))
	started := time.Now()
	logger.Info("run started",
		logging.String("repo", run.RepoReference),
		logging.String("stage", string(run.CurrentStage)),
	)
	if err := o.notifier.NotifyRunStarted(ctx, run.RepoReference); err != nil {
		logger.Warn("run started notification failed", logging.Error(err))
	}

	req := &stage.Request{
		RunID:          run.ID,
		RepoReference:  run.RepoReference,
		IntentText:     run.IntentText,
		PreferredStyle: run.PreferredStyle,
		Attempt:        1,
	}
	var audio *story.AudioArtifact

	for !run.CurrentStage.IsTerminal() {
		if err := ctx.Err(); err != nil {
			return o.failRun(ctx, logger, run, services.Wrap(services.ErrCancelled,
				string(run.CurrentStage), "await stage", runs.CancelledReason, err))
		}

		current := run.CurrentStage
		if err := o.announceStage(ctx, run); err != nil {
			return o.failRun(ctx, logger, run, err)
		}

		result, err := o.executeStage(ctx, current, req)
		if err == nil {
			audio, err = o.persistAndGate(ctx, run, current, result, req)
		}
		if err != nil {
			if action := recoverFrom(current, req.Attempt, err); action.retry {
				logger.Warn("stage retrying",
					logging.String("stage", string(current)),
					logging.String("retry_hint", action.hint),
					logging.String("reason", action.reason),
					logging.Error(err),
				)
				req.Attempt++
				req.RetryHint = action.hint
				continue
			}
			return o.failRun(ctx, logger, run, err)
		}

		req.Attempt = 1
		req.RetryHint = ""
		run.CurrentStage = runs.NextStage(current)
		if err := o.store.Update(ctx, run); err != nil {
			return o.failRun(ctx, logger, run, err)
		}
	}

	o.completeRun(ctx, logger, run, audio, time.Since(started))
	return nil
}

// announceStage records the stage entry checkpoint and publishes it. The
// checkpoint percents are fixed per stage so a caller can render a
// monotonically increasing progress bar without knowing stage internals.
func (o *Orchestrator) announceStage(ctx context.Context, run *runs.Run) error {
	percent, _ := runs.Checkpoint(run.CurrentStage)
	run.SetProgress(run.CurrentStage.Label()+" started", percent)
	if err := o.store.Update(ctx, run); err != nil {
		return err
	}
	o.publish(run, false)
	return nil
}

func (o *Orchestrator) executeStage(ctx context.Context, current runs.Stage, req *stage.Request) (*stage.Result, error) {
	executor, ok := o.executors[current]
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, string(current), "resolve executor",
			"no executor registered for stage", nil)
	}

	if timeout := o.stageTimeout(current); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	ctx = services.WithStage(ctx, string(current))
	ctx = services.WithRequestID(ctx, uuid.NewString())

	result, err := executor.Execute(ctx, req)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, services.Wrap(services.ErrExternalTool, string(current), "execute",
			"executor returned no result", nil)
	}
	return result, nil
}

// persistAndGate stores the stage's artifact, applies its validation gate,
// and threads the artifact into the request for downstream stages. The
// synthesis artifact is returned so completion can record partial results.
func (o *Orchestrator) persistAndGate(
	ctx context.Context,
	run *runs.Run,
	current runs.Stage,
	result *stage.Result,
	req *stage.Request,
) (*story.AudioArtifact, error) {
	switch current {
	case runs.StageIntent:
		if result.Intent == nil {
			return nil, missingArtifact(current)
		}
		if err := o.store.PutArtifact(ctx, run.ID, current, result.Intent); err != nil {
			return nil, err
		}
		if err := story.ValidateIntent(result.Intent); err != nil {
			return nil, gateFailure(current, err)
		}
		req.Intent = result.Intent
	case runs.StageAnalysis:
		if result.Analysis == nil {
			return nil, missingArtifact(current)
		}
		if err := o.store.PutArtifact(ctx, run.ID, current, result.Analysis); err != nil {
			return nil, err
		}
		if err := story.ValidateAnalysis(result.Analysis); err != nil {
			return nil, gateFailure(current, err)
		}
		req.Analysis = result.Analysis
	case runs.StageNarrative:
		if result.Narrative == nil {
			return nil, missingArtifact(current)
		}
		if err := o.store.PutArtifact(ctx, run.ID, current, result.Narrative); err != nil {
			return nil, err
		}
		if err := story.ValidateNarrative(result.Narrative); err != nil {
			return nil, gateFailure(current, err)
		}
		req.Narrative = result.Narrative
	case runs.StageSynthesis:
		if result.Audio == nil {
			return nil, missingArtifact(current)
		}
		if err := o.store.PutArtifact(ctx, run.ID, current, result.Audio); err != nil {
			return nil, err
		}
		return result.Audio, nil
	}
	return nil, nil
}

func (o *Orchestrator) completeRun(ctx context.Context, logger *slog.Logger, run *runs.Run, audio *story.AudioArtifact, elapsed time.Duration) {
	partial := audio != nil && !audio.Success
	run.SetComplete(partial)
	if err := o.store.Update(ctx, run); err != nil {
		logger.Error("failed to persist run completion", logging.Error(err))
	}
	o.publish(run, true)

	logger.Info("run completed",
		logging.Bool("partial", partial),
		logging.Duration("run_duration", elapsed),
	)
	if partial {
		requested := len(audio.PartialChapters)
		if req, err := o.chapterCount(ctx, run.ID); err == nil {
			requested = req
		}
		if err := o.notifier.NotifyRunPartial(ctx, run.RepoReference, len(audio.PartialChapters), requested); err != nil {
			logger.Warn("partial run notification failed", logging.Error(err))
		}
		return
	}
	title := ""
	var narrative story.NarrativeArtifact
	if err := o.store.GetArtifact(ctx, run.ID, runs.StageNarrative, &narrative); err == nil {
		title = narrative.Title
	}
	if err := o.notifier.NotifyRunCompleted(ctx, run.RepoReference, title, elapsed); err != nil {
		logger.Warn("run completed notification failed", logging.Error(err))
	}
}

// failRun records the terminal failure, publishes the terminal event, and
// returns the error that caused it. Persistence runs detached from the run
// context so a cancelled run still reaches a durable terminal state.
func (o *Orchestrator) failRun(ctx context.Context, logger *slog.Logger, run *runs.Run, err error) error {
	details := services.Details(err)
	message := details.Message
	if errors.Is(err, services.ErrCancelled) {
		message = runs.CancelledReason
	}
	run.SetFailed(details.Kind, message)

	persistCtx := context.WithoutCancel(ctx)
	if updateErr := o.store.Update(persistCtx, run); updateErr != nil {
		logger.Error("failed to persist run failure", logging.Error(updateErr))
	}
	o.publish(run, true)

	logger.Error("run failed",
		logging.String("error_kind", details.Kind),
		logging.Error(err),
	)
	if details.Kind != "cancelled" {
		if notifyErr := o.notifier.NotifyRunFailed(persistCtx, run.RepoReference, message); notifyErr != nil {
			logger.Warn("run failed notification failed", logging.Error(notifyErr))
		}
	}
	return err
}

func (o *Orchestrator) publish(run *runs.Run, terminal bool) {
	o.hub.Publish(progress.Event{
		RunID:     run.ID,
		Stage:     string(run.CurrentStage),
		Percent:   run.ProgressPercent,
		Message:   run.ProgressMessage,
		Terminal:  terminal,
		Partial:   run.Partial,
		ErrorKind: run.ErrorKind,
		Timestamp: time.Now().UTC(),
	})
}

func (o *Orchestrator) stageTimeout(current runs.Stage) time.Duration {
	var seconds int
	switch current {
	case runs.StageIntent:
		seconds = o.cfg.Pipeline.IntentTimeoutSeconds
	case runs.StageAnalysis:
		seconds = o.cfg.Pipeline.AnalysisTimeoutSeconds
	case runs.StageNarrative:
		seconds = o.cfg.Pipeline.NarrativeTimeoutSeconds
	case runs.StageSynthesis:
		seconds = o.cfg.Pipeline.SynthesisTimeoutSeconds
	}
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func (o *Orchestrator) chapterCount(ctx context.Context, runID string) (int, error) {
	var narrative story.NarrativeArtifact
	if err := o.store.GetArtifact(ctx, runID, runs.StageNarrative, &narrative); err != nil {
		return 0, err
	}
	return len(narrative.Chapters), nil
}

func missingArtifact(current runs.Stage) error {
	return services.Wrap(services.ErrExternalTool, string(current), "collect artifact",
		"executor returned no artifact for its stage", nil)
}

func gateFailure(current runs.Stage, err error) error {
	return services.Wrap(services.ErrValidation, string(current), "gate", err.Error(), err)
}
