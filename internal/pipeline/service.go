package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"codestory/internal/config"
	"codestory/internal/logging"
	"codestory/internal/notifications"
	"codestory/internal/progress"
	"codestory/internal/runs"
	"codestory/internal/services"
	"codestory/internal/stage"
	"codestory/internal/story"
)

// Service exposes the pipeline to callers: it starts runs asynchronously on
// a bounded worker pool, streams their progress, and reports results.
type Service struct {
	cfg      *config.Config
	store    *runs.Store
	hub      *progress.Hub
	orch     *Orchestrator
	logger   *slog.Logger
	workers  chan struct{}
	baseCtx  context.Context
	shutdown context.CancelFunc
	wg       sync.WaitGroup

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewService constructs a pipeline service with the given stage executors.
func NewService(
	cfg *config.Config,
	store *runs.Store,
	hub *progress.Hub,
	notifier notifications.Service,
	logger *slog.Logger,
	executors ...stage.Executor,
) *Service {
	workers := cfg.Pipeline.Workers
	if workers < 1 {
		workers = 1
	}
	baseCtx, shutdown := context.WithCancel(context.Background())
	return &Service{
		cfg:      cfg,
		store:    store,
		hub:      hub,
		orch:     NewOrchestrator(cfg, store, hub, notifier, logger, executors...),
		logger:   logging.NewComponentLogger(logger, "pipeline"),
		workers:  make(chan struct{}, workers),
		baseCtx:  baseCtx,
		shutdown: shutdown,
		cancels:  make(map[string]context.CancelFunc),
	}
}

// StartRun creates a run record and begins orchestration asynchronously. An
// unknown preferred style is not an error: it is ignored in favor of the
// intent stage's recommendation.
func (s *Service) StartRun(ctx context.Context, repoReference, intentText, preferredStyle string) (*runs.Run, error) {
	repoReference = strings.TrimSpace(repoReference)
	if repoReference == "" {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "start run",
			"repository reference must not be empty", nil)
	}
	if normalized, ok := story.ParseStyle(preferredStyle); ok {
		preferredStyle = string(normalized)
	} else {
		preferredStyle = ""
	}

	run, err := s.store.NewRun(ctx, repoReference, intentText, preferredStyle)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(s.baseCtx)
	s.mu.Lock()
	s.cancels[run.ID] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			cancel()
			s.mu.Lock()
			delete(s.cancels, run.ID)
			s.mu.Unlock()
		}()

		select {
		case s.workers <- struct{}{}:
			defer func() { <-s.workers }()
		case <-runCtx.Done():
			s.abandonRun(run)
			return
		}
		_ = s.orch.Run(runCtx, run)
	}()
	return run, nil
}

// abandonRun records a terminal cancelled state for a run that was stopped
// before a worker ever picked it up.
func (s *Service) abandonRun(run *runs.Run) {
	run.SetFailed("cancelled", runs.CancelledReason)
	if err := s.store.Update(context.Background(), run); err != nil {
		s.logger.Error("failed to persist abandoned run",
			logging.String("run_id", run.ID),
			logging.Error(err),
		)
	}
	s.hub.Publish(progress.Event{
		RunID:     run.ID,
		Stage:     string(run.CurrentStage),
		Percent:   run.ProgressPercent,
		Message:   run.ProgressMessage,
		Terminal:  true,
		ErrorKind: run.ErrorKind,
	})
}

// SubscribeProgress returns buffered progress events for a run after the
// given cursor, blocking for new ones when wait is set and none are
// buffered. The returned cursor resumes the subscription. Events for a run
// that reached its terminal state before this process started are
// reconstructed from the run record.
func (s *Service) SubscribeProgress(ctx context.Context, runID string, since uint64, limit int, wait bool) ([]progress.Event, uint64, error) {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, 0, err
	}
	if run.CurrentStage.IsTerminal() && !s.hub.Terminal(runID) {
		s.hub.Publish(progress.Event{
			RunID:     run.ID,
			Stage:     string(run.CurrentStage),
			Percent:   run.ProgressPercent,
			Message:   run.ProgressMessage,
			Terminal:  true,
			Partial:   run.Partial,
			ErrorKind: run.ErrorKind,
			Timestamp: run.UpdatedAt,
		})
	}
	return s.hub.Fetch(ctx, runID, since, limit, wait)
}

// Result is the poll-style view of a run's outcome.
type Result struct {
	Run     *runs.Run
	Pending bool
	Audio   *story.AudioArtifact
}

// GetResult reports the run's terminal outcome, or a pending indicator while
// stages are still executing. A failed run carries its classification and
// message on the run record.
func (s *Service) GetResult(ctx context.Context, runID string) (*Result, error) {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	result := &Result{Run: run}
	switch run.CurrentStage {
	case runs.StageComplete:
		var audio story.AudioArtifact
		if err := s.store.GetArtifact(ctx, runID, runs.StageSynthesis, &audio); err != nil {
			return nil, err
		}
		result.Audio = &audio
	case runs.StageFailed:
	default:
		result.Pending = true
	}
	return result, nil
}

// Cancel stops an in-flight run between stages. Cancelling a terminal run is
// a no-op; cancelling an unknown run returns not found.
func (s *Service) Cancel(ctx context.Context, runID string) error {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if run.CurrentStage.IsTerminal() {
		return nil
	}

	s.mu.Lock()
	cancel, active := s.cancels[runID]
	s.mu.Unlock()
	if active {
		cancel()
		return nil
	}

	// No live worker owns this run (for example after a restart); record the
	// terminal state directly.
	s.abandonRun(run)
	return nil
}

// Active reports how many runs currently hold a worker or are waiting for
// one.
func (s *Service) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cancels)
}

// Stop cancels every in-flight run and waits for their workers to finish.
func (s *Service) Stop() {
	s.shutdown()
	s.wg.Wait()
}
