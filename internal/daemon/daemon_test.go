package daemon_test

import (
	"context"
	"testing"

	"codestory/internal/daemon"
	"codestory/internal/logging"
	"codestory/internal/notifications"
	"codestory/internal/pipeline"
	"codestory/internal/progress"
	"codestory/internal/testsupport"
)

func newDaemon(t *testing.T) *daemon.Daemon {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	// Empty keys keep startup preflight from probing live APIs.
	cfg.LLM.APIKey = ""
	cfg.TTS.APIKey = ""
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	store := testsupport.MustOpenStore(t, cfg)
	hub := progress.NewHub(cfg.Pipeline.EventBufferSize)
	svc := pipeline.NewService(cfg, store, hub, notifications.NewService(cfg), logging.NewNop())

	d, err := daemon.New(cfg, store, svc, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Stop()
	})
	return d
}

func TestDaemonStartStop(t *testing.T) {
	d := newDaemon(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected running status")
	}
	if d.APIAddr() == "" {
		t.Fatal("expected a bound api address")
	}
	if len(status.Preflight) == 0 {
		t.Fatal("expected startup preflight results")
	}

	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("expected stopped status")
	}
}

func TestDaemonDoubleStartFails(t *testing.T) {
	d := newDaemon(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second Start to fail")
	}
}

func TestDaemonStatusReportsPaths(t *testing.T) {
	d := newDaemon(t)

	status := d.Status(context.Background())
	if status.RunsDBPath == "" {
		t.Fatal("expected runs db path")
	}
	if status.LockFilePath == "" {
		t.Fatal("expected lock file path")
	}
	if status.Running {
		t.Fatal("daemon should not report running before Start")
	}
}

func TestTestNotificationWithoutTopic(t *testing.T) {
	d := newDaemon(t)

	sent, detail, err := d.TestNotification(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent {
		t.Fatal("expected notification to be skipped without a topic")
	}
	if detail == "" {
		t.Fatal("expected a detail message")
	}
}
