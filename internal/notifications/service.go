package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"codestory/internal/config"
)

const userAgent = "CodeStory/0.1.0"

// Service defines the notification surface exposed to the pipeline.
type Service interface {
	NotifyRunStarted(ctx context.Context, repoReference string) error
	NotifyRunCompleted(ctx context.Context, repoReference, title string, duration time.Duration) error
	NotifyRunPartial(ctx context.Context, repoReference string, completed, requested int) error
	NotifyRunFailed(ctx context.Context, repoReference, message string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:     topic,
		client:       &http.Client{Timeout: timeout},
		sendStarted:  cfg.Notifications.RunStarted,
		sendComplete: cfg.Notifications.RunCompleted,
		sendErrors:   cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint     string
	client       *http.Client
	sendStarted  bool
	sendComplete bool
	sendErrors   bool
}

func (n *ntfyService) NotifyRunStarted(ctx context.Context, repoReference string) error {
	if !n.sendStarted {
		return nil
	}
	data := payload{
		title:   "CodeStory - Run Started",
		message: fmt.Sprintf("Telling the story of %s", strings.TrimSpace(repoReference)),
		tags:    []string{"codestory", "run", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, repoReference, title string, duration time.Duration) error {
	if !n.sendComplete {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	storyTitle := strings.TrimSpace(title)
	if storyTitle == "" {
		storyTitle = strings.TrimSpace(repoReference)
	}
	data := payload{
		title:    "CodeStory - Story Ready",
		message:  fmt.Sprintf("Ready to listen: %s (%s)", storyTitle, duration),
		tags:     []string{"codestory", "run", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunPartial(ctx context.Context, repoReference string, completed, requested int) error {
	if !n.sendComplete {
		return nil
	}
	data := payload{
		title: "CodeStory - Partial Story",
		message: fmt.Sprintf("Voice quota ran out for %s: %d of %d chapters synthesized",
			strings.TrimSpace(repoReference), completed, requested),
		tags: []string{"codestory", "run", "partial"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunFailed(ctx context.Context, repoReference, message string) error {
	if !n.sendErrors {
		return nil
	}
	message = strings.TrimSpace(message)
	if message == "" {
		message = "unknown failure"
	}
	data := payload{
		title:    "CodeStory - Run Failed",
		message:  fmt.Sprintf("%s: %s", strings.TrimSpace(repoReference), message),
		tags:     []string{"codestory", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "CodeStory - Test",
		message:  "Notification system test",
		tags:     []string{"codestory", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyRunStarted(context.Context, string) error { return nil }

func (noopService) NotifyRunCompleted(context.Context, string, string, time.Duration) error {
	return nil
}

func (noopService) NotifyRunPartial(context.Context, string, int, int) error { return nil }

func (noopService) NotifyRunFailed(context.Context, string, string) error { return nil }

func (noopService) TestNotification(context.Context) error { return nil }
