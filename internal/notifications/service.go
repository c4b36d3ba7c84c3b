package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vecna/internal/config"
)

const userAgent = "Vecna/0.1.0"

// Event names a notification kind.
type Event string

const (
	EventRulebookMissing Event = "rulebook_missing"
	EventReviewPending   Event = "review_pending"
	EventStageFailed     Event = "stage_failed"
	EventPublished       Event = "published"
	EventTest            Event = "test"
)

// Payload carries the event fields. Known keys: entityId, name, stage, error.
type Payload map[string]any

// Service defines the notification surface exposed to workflow components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
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
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	label := entityLabel(payload)
	switch event {
	case EventRulebookMissing:
		return message{
			title: "Vecna - Rulebook Missing",
			body:  fmt.Sprintf("📕 No rulebook for %s\nAttach one with: vecna attach-rulebook", label),
			tags:  []string{"vecna", "rulebook", "review"},
		}, true
	case EventReviewPending:
		return message{
			title: "Vecna - Review Pending",
			body:  fmt.Sprintf("📝 Content ready for review: %s", label),
			tags:  []string{"vecna", "review"},
		}, true
	case EventStageFailed:
		stage := strings.TrimSpace(payloadString(payload, "stage"))
		if stage == "" {
			stage = "unknown stage"
		}
		var builder strings.Builder
		fmt.Fprintf(&builder, "❌ %s failed for %s", stage, label)
		if detail := strings.TrimSpace(payloadString(payload, "error")); detail != "" {
			builder.WriteString(": ")
			builder.WriteString(detail)
		}
		return message{
			title:    "Vecna - Error",
			body:     builder.String(),
			tags:     []string{"vecna", "error", "alert"},
			priority: "high",
		}, true
	case EventPublished:
		return message{
			title: "Vecna - Published",
			body:  fmt.Sprintf("✅ Published: %s", label),
			tags:  []string{"vecna", "published"},
		}, true
	case EventTest:
		return message{
			title:    "Vecna - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"vecna", "test"},
			priority: "low",
		}, true
	}
	return message{}, false
}

func entityLabel(payload Payload) string {
	name := strings.TrimSpace(payloadString(payload, "name"))
	id := payloadString(payload, "entityId")
	switch {
	case name != "" && id != "":
		return fmt.Sprintf("%s (#%s)", name, id)
	case name != "":
		return name
	case id != "":
		return "#" + id
	}
	return "unknown entity"
}

func payloadString(payload Payload, key string) string {
	value, ok := payload[key]
	if !ok || value == nil {
		return ""
	}
	return fmt.Sprint(value)
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
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
