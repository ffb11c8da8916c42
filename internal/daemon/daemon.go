package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"codestory/internal/config"
	"codestory/internal/logging"
	"codestory/internal/notifications"
	"codestory/internal/pipeline"
	"codestory/internal/preflight"
	"codestory/internal/runs"
)

// Daemon coordinates the background pipeline service and enforces
// single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *runs.Store
	pipeline *pipeline.Service

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	startupPF []preflight.Result

	api *apiServer
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	RunsDBPath   string
	LockFilePath string
	ActiveRuns   int
	Health       runs.HealthSummary
	Preflight    []preflight.Result
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *runs.Store, svc *pipeline.Service, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || svc == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, pipeline service, and logger")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "codestoryd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		pipeline: svc,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the daemon lock, records startup preflight results, and
// begins serving the API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another codestory daemon instance is already running")
	}

	d.startupPF = preflight.RunAll(ctx, d.cfg)
	for _, result := range d.startupPF {
		if result.Passed {
			continue
		}
		d.logger.Warn("preflight check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
		)
	}

	if err := d.api.start(ctx); err != nil {
		_ = d.lock.Unlock()
		return err
	}

	d.running.Store(true)
	d.logger.Info("codestory daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops the API server, drains the pipeline, and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.api.stop()
	d.pipeline.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("codestory daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Pipeline exposes the run service for API handlers.
func (d *Daemon) Pipeline() *pipeline.Service {
	return d.pipeline
}

// ListRuns returns run records filtered by optional stages.
func (d *Daemon) ListRuns(ctx context.Context, stages []runs.Stage) ([]*runs.Run, error) {
	if d.store == nil {
		return nil, errors.New("run store unavailable")
	}
	return d.store.List(ctx, stages...)
}

// RemoveRun deletes a run record and its artifacts. In-flight runs are
// cancelled first so no worker keeps writing to a deleted row.
func (d *Daemon) RemoveRun(ctx context.Context, id string) (bool, error) {
	if d.store == nil {
		return false, errors.New("run store unavailable")
	}
	if err := d.pipeline.Cancel(ctx, id); err != nil {
		return false, err
	}
	return d.store.Remove(ctx, id)
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg == nil {
		return false, "configuration unavailable", errors.New("configuration unavailable")
	}
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(d.cfg)
	if err := notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// APIAddr reports the bound API address, empty when the API is disabled.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}

// Status returns the current daemon status. Preflight results are the ones
// captured at startup; health counts are live.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		RunsDBPath:   d.store.Path(),
		LockFilePath: d.lockPath,
		ActiveRuns:   d.pipeline.Active(),
		Preflight:    d.startupPF,
	}
	if health, err := d.store.Health(ctx); err == nil {
		status.Health = health
	}
	return status
}
