package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"subgen/internal/config"
	"subgen/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if notifications.Enabled(svc) {
		t.Fatal("expected noop service")
	}
	if err := svc.NotifyBatchStarted(context.Background(), 3); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

func newCaptureServer(t *testing.T, status int) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		got.title = r.Header.Get("Title")
		got.tags = r.Header.Get("Tags")
		got.priority = r.Header.Get("Priority")
		body, _ := io.ReadAll(r.Body)
		got.body = string(body)
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, got
}

func newService(url string, listFailures bool) notifications.Service {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = url
	cfg.Notifications.RequestTimeoutSeconds = 5
	cfg.Notifications.NotifyFailures = listFailures
	return notifications.NewService(&cfg)
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		send           func(notifications.Service) error
		listFailures   bool
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "batch started",
			send: func(s notifications.Service) error {
				return s.NotifyBatchStarted(context.Background(), 1)
			},
			expectTitle:   "subgen - Batch Started",
			expectMessage: "Transcribing 1 video",
			expectTags:    "subgen,batch,started",
		},
		{
			name: "batch complete",
			send: func(s notifications.Service) error {
				return s.NotifyBatchCompleted(context.Background(), notifications.BatchSummary{
					Total: 3, Succeeded: 3, Duration: 90 * time.Second,
				})
			},
			expectTitle:   "subgen - Batch Complete",
			expectMessage: "Succeeded 3/3 in 1m30s",
			expectTags:    "subgen,batch,completed",
		},
		{
			name:         "batch with failures",
			listFailures: true,
			send: func(s notifications.Service) error {
				return s.NotifyBatchCompleted(context.Background(), notifications.BatchSummary{
					Total: 3, Succeeded: 1, Failed: 1, Cancelled: 1, Duration: 5 * time.Second,
					Failures: []string{"2/3 not_found: Video unavailable"},
				})
			},
			expectTitle:   "subgen - Batch Complete (with errors)",
			expectMessage: "Succeeded 1/3 in 5s, 1 failed, 1 cancelled\n- 2/3 not_found: Video unavailable",
			expectTags:    "subgen,batch,completed",
		},
		{
			name: "batch all failed",
			send: func(s notifications.Service) error {
				return s.NotifyBatchCompleted(context.Background(), notifications.BatchSummary{
					Total: 2, Failed: 2, Failures: []string{"a", "b"},
				})
			},
			expectTitle:    "subgen - Batch Failed",
			expectMessage:  "Succeeded 0/2 in 0s, 2 failed",
			expectTags:     "subgen,batch,error",
			expectPriority: "high",
		},
		{
			name: "test",
			send: func(s notifications.Service) error {
				return s.TestNotification(context.Background())
			},
			expectTitle:    "subgen - Test",
			expectMessage:  "Notification system test",
			expectTags:     "subgen,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server, got := newCaptureServer(t, http.StatusOK)
			svc := newService(server.URL, tc.listFailures)
			if err := tc.send(svc); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}
			if got.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, got.title)
			}
			if got.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, got.body)
			}
			if got.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, got.tags)
			}
			if got.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, got.priority)
			}
		})
	}
}

func TestNtfyServiceCapsListedFailures(t *testing.T) {
	server, got := newCaptureServer(t, http.StatusOK)
	svc := newService(server.URL, true)
	failures := []string{"f1", "f2", "f3", "f4", "f5", "f6", "f7"}
	if err := svc.NotifyBatchCompleted(context.Background(), notifications.BatchSummary{
		Total: 8, Succeeded: 1, Failed: 7, Failures: failures,
	}); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got.body, "f6") || !strings.Contains(got.body, "and 2 more") {
		t.Fatalf("unexpected body: %q", got.body)
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server, _ := newCaptureServer(t, http.StatusForbidden)
	svc := newService(server.URL, false)
	err := svc.TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
