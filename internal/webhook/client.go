package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
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

const (
	// Channel is the notification_logs channel for webhook deliveries.
	Channel = "webhook"
	// SignatureHeader carries the hex HMAC-SHA-256 of the request body.
	SignatureHeader = "X-Webhook-Signature"
	// EventPublishReady asks the downstream automation to publish a post.
	EventPublishReady = "post.publish_ready"
	// EventTest verifies connectivity.
	EventTest = "webhook.test"

	maxAttempts    = 3
	defaultTimeout = 15 * time.Second
	errorBodyRunes = 200
)

var defaultBackoff = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

// Options configures a Client.
type Options struct {
	URL        string
	Secret     string
	Timeout    time.Duration
	Backoff    []time.Duration
	Sink       queue.NotificationSink
	Logger     *slog.Logger
	HTTPClient *http.Client
	Now        func() time.Time
}

// Client posts signed event envelopes with bounded retries.
type Client struct {
	url     string
	secret  string
	backoff []time.Duration
	sink    queue.NotificationSink
	logger  *slog.Logger
	http    *http.Client
	now     func() time.Time
}

// New builds a Client from options.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	backoff := opts.Backoff
	if len(backoff) == 0 {
		backoff = defaultBackoff
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Client{
		url:     strings.TrimSpace(opts.URL),
		secret:  opts.Secret,
		backoff: backoff,
		sink:    opts.Sink,
		logger:  logging.NewComponentLogger(opts.Logger, "webhook"),
		http:    httpClient,
		now:     now,
	}
}

// NewFromConfig builds a Client from the [webhook] section.
func NewFromConfig(cfg *config.Config, sink queue.NotificationSink, logger *slog.Logger) *Client {
	return New(Options{
		URL:     cfg.Webhook.URL,
		Secret:  cfg.Webhook.Secret,
		Timeout: time.Duration(cfg.Webhook.TimeoutSeconds) * time.Second,
		Sink:    sink,
		Logger:  logger,
	})
}

// Configured reports whether a destination URL is set.
func (c *Client) Configured() bool {
	return c != nil && c.url != ""
}

type attemptResult struct {
	statusCode int
	elapsed    time.Duration
	err        error
}

// Send delivers event with data to the configured URL. It never returns an
// error: the outcome is logged, recorded, and reported as a boolean.
func (c *Client) Send(ctx context.Context, event string, data map[string]any) bool {
	if !c.Configured() {
		if c != nil {
			c.logger.Debug("webhook not configured, skipping", logging.String(logging.FieldEventType, event))
		}
		return false
	}

	envelope, body, err := c.encode(event, data)
	if err != nil {
		c.logger.Error("webhook payload encoding failed",
			logging.String(logging.FieldEventType, event),
			logging.Error(err),
		)
		c.record(ctx, event, envelope, attemptResult{err: err})
		return false
	}

	var last attemptResult
	for attempt := 0; attempt < maxAttempts; attempt++ {
		last = c.post(ctx, c.url, body)
		if last.err == nil {
			c.logger.Info("webhook delivered",
				logging.String(logging.FieldChannel, Channel),
				logging.String(logging.FieldEventType, event),
				logging.Int("status", last.statusCode),
				logging.Int64("latency_ms", last.elapsed.Milliseconds()),
				logging.Int("attempt", attempt+1),
			)
			c.record(ctx, event, envelope, last)
			return true
		}
		c.logger.Warn("webhook attempt failed",
			logging.String(logging.FieldChannel, Channel),
			logging.String(logging.FieldEventType, event),
			logging.Int("attempt", attempt+1),
			logging.Int("max_attempts", maxAttempts),
			logging.Int("status", last.statusCode),
			logging.Error(last.err),
		)
		if attempt == maxAttempts-1 {
			break
		}
		if err := sleep(ctx, c.backoffFor(attempt)); err != nil {
			last.err = fmt.Errorf("delivery cancelled: %w", err)
			break
		}
	}

	c.logger.Error("webhook delivery failed",
		logging.String(logging.FieldChannel, Channel),
		logging.String(logging.FieldEventType, event),
		logging.Int("status", last.statusCode),
		logging.Int64("latency_ms", last.elapsed.Milliseconds()),
		logging.Error(last.err),
		logging.String(logging.FieldErrorHint, "check webhook.url and the receiving automation"),
	)
	c.record(ctx, event, envelope, last)
	return false
}

// TestResult reports a single connectivity check.
type TestResult struct {
	Success        bool    `json:"success"`
	StatusCode     int     `json:"status_code,omitempty"`
	ResponseTimeMS float64 `json:"response_time_ms,omitempty"`
	Error          string  `json:"error,omitempty"`
}

// SendTest posts a single webhook.test envelope to url, or the configured URL
// when url is empty. It does not retry and does not write notification logs.
func (c *Client) SendTest(ctx context.Context, url string) TestResult {
	target := strings.TrimSpace(url)
	if target == "" {
		target = c.url
	}
	if target == "" {
		return TestResult{Error: "no webhook URL configured"}
	}
	_, body, err := c.encode(EventTest, map[string]any{
		"message": "Test webhook from autoposter",
		"test":    true,
	})
	if err != nil {
		return TestResult{Error: err.Error()}
	}
	res := c.post(ctx, target, body)
	out := TestResult{
		Success:        res.err == nil,
		StatusCode:     res.statusCode,
		ResponseTimeMS: roundMillis(res.elapsed),
	}
	if res.err != nil {
		out.Error = res.err.Error()
	}
	return out
}

func (c *Client) encode(event string, data map[string]any) (map[string]any, []byte, error) {
	if data == nil {
		data = map[string]any{}
	}
	envelope := map[string]any{
		"event":     event,
		"timestamp": c.now().UTC().Format(time.RFC3339),
		"data":      data,
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return envelope, nil, fmt.Errorf("encode webhook envelope: %w", err)
	}
	return envelope, body, nil
}

func (c *Client) post(ctx context.Context, url string, body []byte) attemptResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return attemptResult{err: fmt.Errorf("build webhook request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.secret != "" {
		req.Header.Set(SignatureHeader, Sign(body, c.secret))
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return attemptResult{elapsed: elapsed, err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return attemptResult{
			statusCode: resp.StatusCode,
			elapsed:    elapsed,
			err:        fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncateRunes(string(snippet), errorBodyRunes)),
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return attemptResult{statusCode: resp.StatusCode, elapsed: elapsed}
}

func (c *Client) record(ctx context.Context, event string, envelope map[string]any, res attemptResult) {
	if c.sink == nil {
		return
	}
	payload := make(map[string]any, len(envelope)+2)
	for k, v := range envelope {
		payload[k] = v
	}
	if res.statusCode != 0 {
		payload["_status_code"] = res.statusCode
	}
	if res.elapsed > 0 {
		payload["_response_time_ms"] = roundMillis(res.elapsed)
	}
	rec := queue.NotificationRecord{
		Channel:   Channel,
		EventType: event,
		Payload:   payload,
		Success:   res.err == nil,
	}
	if res.err != nil {
		rec.ErrorMessage = res.err.Error()
	}
	// The delivery outcome must be recorded even when the caller's context ended.
	if err := c.sink.RecordNotification(context.WithoutCancel(ctx), rec); err != nil {
		c.logger.Warn("webhook log write failed",
			logging.String(logging.FieldEventType, event),
			logging.Error(err),
		)
	}
}

func (c *Client) backoffFor(attempt int) time.Duration {
	if attempt < len(c.backoff) {
		return c.backoff[attempt]
	}
	return c.backoff[len(c.backoff)-1]
}

// Sign returns the hex HMAC-SHA-256 of body keyed by secret.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func roundMillis(d time.Duration) float64 {
	ms := float64(d.Microseconds()) / 1000
	return float64(int64(ms*10+0.5)) / 10
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
