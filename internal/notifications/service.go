package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"subgen/internal/config"
)

const (
	userAgent       = "subgen/0.1.0"
	maxListedErrors = 5
)

// BatchSummary is the data reported when a batch completes.
type BatchSummary struct {
	Total     int
	Succeeded int
	Failed    int
	Cancelled int
	Duration  time.Duration
	// Failures holds one line per failed job, in submission order.
	Failures []string
}

// Service defines the notification surface used by the CLI.
type Service interface {
	NotifyBatchStarted(ctx context.Context, count int) error
	NotifyBatchCompleted(ctx context.Context, summary BatchSummary) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint:     topic,
		client:       &http.Client{Timeout: timeout},
		listFailures: cfg.Notifications.NotifyFailures,
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
	listFailures bool
}

func (n *ntfyService) NotifyBatchStarted(ctx context.Context, count int) error {
	noun := "videos"
	if count == 1 {
		noun = "video"
	}
	return n.send(ctx, payload{
		title:   "subgen - Batch Started",
		message: fmt.Sprintf("Transcribing %d %s", count, noun),
		tags:    []string{"subgen", "batch", "started"},
	})
}

func (n *ntfyService) NotifyBatchCompleted(ctx context.Context, summary BatchSummary) error {
	duration := summary.Duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Succeeded %d/%d in %s", summary.Succeeded, summary.Total, duration)
	if summary.Failed > 0 {
		fmt.Fprintf(&b, ", %d failed", summary.Failed)
	}
	if summary.Cancelled > 0 {
		fmt.Fprintf(&b, ", %d cancelled", summary.Cancelled)
	}
	if n.listFailures && len(summary.Failures) > 0 {
		for i, line := range summary.Failures {
			if i == maxListedErrors {
				fmt.Fprintf(&b, "\n... and %d more", len(summary.Failures)-maxListedErrors)
				break
			}
			b.WriteString("\n- ")
			b.WriteString(strings.TrimSpace(line))
		}
	}

	data := payload{
		title:   "subgen - Batch Complete",
		message: b.String(),
		tags:    []string{"subgen", "batch", "completed"},
	}
	switch {
	case summary.Succeeded == 0 && summary.Total > 0:
		data.title = "subgen - Batch Failed"
		data.tags = []string{"subgen", "batch", "error"}
		data.priority = "high"
	case summary.Failed > 0:
		data.title = "subgen - Batch Complete (with errors)"
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "subgen - Test",
		message:  "Notification system test",
		tags:     []string{"subgen", "test"},
		priority: "low",
	})
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

func (noopService) NotifyBatchStarted(context.Context, int) error            { return nil }
func (noopService) NotifyBatchCompleted(context.Context, BatchSummary) error { return nil }
func (noopService) TestNotification(context.Context) error                   { return nil }

// Enabled reports whether svc actually delivers messages.
func Enabled(svc Service) bool {
	_, noop := svc.(noopService)
	return svc != nil && !noop
}
