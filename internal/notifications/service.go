package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reconciler/internal/config"
)

const userAgent = "reconciler-notify/1"

// Event names a run milestone.
type Event string

const (
	EventRunStarted   Event = "run_started"
	EventRunCompleted Event = "run_completed"
	EventFailureLimit Event = "failure_limit"
	EventError        Event = "error"
	EventTest         Event = "test"
)

// Payload carries event values keyed by name.
type Payload map[string]any

// Service publishes run events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
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
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventRunStarted:   cfg.Notifications.RunStarted,
			EventRunCompleted: cfg.Notifications.RunCompleted,
			EventFailureLimit: cfg.Notifications.FailureLimit,
			EventError:        true,
			EventTest:         true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventRunStarted:
		return message{
			title: "Reconciler - Run Started",
			body:  fmt.Sprintf("Run %s started with %d unresolved records", shortID(payload.str("runID")), payload.number("pending")),
			tags:  []string{"reconciler", "run", "started"},
		}, true
	case EventRunCompleted:
		failed := payload.number("failed")
		title := "Reconciler - Run Complete"
		if failed > 0 {
			title = "Reconciler - Run Complete (with errors)"
		}
		return message{
			title: title,
			body: fmt.Sprintf("Run %s %s: %d records, %d failed in %s",
				shortID(payload.str("runID")), payload.str("stopReason"), payload.number("processed"), failed,
				durationText(payload["duration"])),
			tags: []string{"reconciler", "run", "completed"},
		}, true
	case EventFailureLimit:
		body := fmt.Sprintf("Run %s stopped after %d consecutive failures", shortID(payload.str("runID")), payload.number("failures"))
		if last := payload.str("lastError"); last != "" {
			body += "\nLast error: " + last
		}
		return message{
			title:    "Reconciler - Run Aborted",
			body:     body,
			tags:     []string{"reconciler", "run", "aborted"},
			priority: "high",
		}, true
	case EventError:
		var b strings.Builder
		b.WriteString("Error")
		if label := payload.str("context"); label != "" {
			b.WriteString(" with ")
			b.WriteString(label)
		}
		b.WriteString(": ")
		if text := payload.str("error"); text != "" {
			b.WriteString(text)
		} else {
			b.WriteString("unknown")
		}
		return message{
			title:    "Reconciler - Error",
			body:     b.String(),
			tags:     []string{"reconciler", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Reconciler - Test",
			body:     "Notification system test",
			tags:     []string{"reconciler", "test"},
			priority: "low",
		}, true
	}
	return message{}, false
}

func (p Payload) str(key string) string {
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (p Payload) number(key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func durationText(value any) string {
	d, _ := value.(time.Duration)
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	return d.String()
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
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

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
