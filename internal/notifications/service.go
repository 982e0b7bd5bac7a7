package notifications

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"autoposter/internal/config"
	"autoposter/internal/logging"
	"autoposter/internal/queue"
)

const userAgent = "Autoposter-Go/0.1.0"

// Channel is the notification_logs channel written by this package.
const Channel = "ntfy"

// Event identifies a notification template.
type Event string

const (
	EventPublishReady      Event = "publish_ready"
	EventEngagementPrompt  Event = "engagement_prompt"
	EventPipelineUnhealthy Event = "pipeline_unhealthy"
	EventError             Event = "error"
	EventTest              Event = "test"
)

// Payload carries template values for an event.
type Payload map[string]any

// Service defines the notification surface exposed to agents and the monitor.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// Deliveries are recorded through sink when it is non-nil. Without a topic,
// reminders are recorded as undelivered and nothing is sent.
func NewService(cfg *config.Config, sink queue.NotificationSink, logger *slog.Logger) Service {
	logger = logging.NewComponentLogger(logger, "notifications")
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return &noopService{sink: sink, logger: logger}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		sink:     sink,
		logger:   logger,
	}
}

// Delivers reports whether svc sends to a real channel rather than only
// recording undelivered reminders.
func Delivers(svc Service) bool {
	_, ok := svc.(*ntfyService)
	return ok
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
	logType  string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	sink     queue.NotificationSink
	logger   *slog.Logger
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := render(event, payload)
	if !ok {
		return nil
	}
	err := n.send(ctx, msg)
	record(ctx, n.sink, n.logger, msg, err)
	if err != nil {
		return err
	}
	n.logger.Debug("notification sent", logging.String(logging.FieldEventType, string(event)))
	return nil
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
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

type noopService struct {
	sink   queue.NotificationSink
	logger *slog.Logger
}

func (n *noopService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := render(event, payload)
	if !ok || n.sink == nil {
		return nil
	}
	if event != EventPublishReady && event != EventEngagementPrompt {
		return nil
	}
	record(ctx, n.sink, n.logger, msg, errNotConfigured)
	return nil
}

var errNotConfigured = fmt.Errorf("notifications.ntfy_topic not configured")

func record(ctx context.Context, sink queue.NotificationSink, logger *slog.Logger, msg message, sendErr error) {
	if sink == nil {
		return
	}
	rec := queue.NotificationRecord{
		Channel:   Channel,
		EventType: msg.logType,
		Payload:   map[string]any{"title": msg.title, "text": msg.body},
		Success:   sendErr == nil,
	}
	if sendErr != nil {
		rec.ErrorMessage = sendErr.Error()
	}
	if err := sink.RecordNotification(ctx, rec); err != nil {
		logger.Warn("notification log write failed",
			logging.String(logging.FieldEventType, msg.logType),
			logging.Error(err),
		)
	}
}
