package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"autoposter/internal/config"
	"autoposter/internal/services"
)

// Config holds the [generation] settings the client needs.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

func ConfigFrom(cfg *config.Config) Config {
	g := cfg.Generation
	return Config{APIKey: g.APIKey, BaseURL: g.BaseURL, Model: g.Model, TimeoutSeconds: g.TimeoutSeconds}
}

// Client calls an OpenAI-compatible chat completions URL in JSON mode.
type Client struct {
	endpoint string
	apiKey   string
	model    string
	http     *http.Client
	backoff  backoff
}

type Option func(*Client)

// WithHTTPClient replaces the default client (which uses the configured timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRetryBackoff sets the attempt budget and the delay bounds between attempts.
func WithRetryBackoff(attempts int, base, ceiling time.Duration) Option {
	return func(c *Client) { c.backoff = backoff{attempts: attempts, base: base, max: ceiling} }
}

func NewClient(cfg Config, opts ...Option) *Client {
	timeout := 60 * time.Second
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &Client{
		endpoint: strings.TrimSpace(cfg.BaseURL),
		apiKey:   strings.TrimSpace(cfg.APIKey),
		model:    strings.TrimSpace(cfg.Model),
		http:     &http.Client{Timeout: timeout},
		backoff:  defaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an endpoint is set.
func (c *Client) Configured() bool {
	return c != nil && c.endpoint != ""
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model          string            `json:"model,omitempty"`
	Messages       []message         `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// CompleteJSON asks for a JSON object and returns the first non-empty
// choice. Timeouts, 429s and 5xx responses are retried with backoff.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if !c.Configured() {
		return "", services.Wrap(services.ErrConfiguration, "generation", "complete",
			"generation.base_url is not configured", nil)
	}
	body, err := json.Marshal(completionRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: strings.TrimSpace(systemPrompt)},
			{Role: "user", Content: strings.TrimSpace(userPrompt)},
		},
		Temperature:    0.7,
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("encode completion request: %w", err)
	}

	attempts := max(c.backoff.attempts, 1)
	for attempt := 1; ; attempt++ {
		content, err := c.post(ctx, body)
		if err == nil {
			return content, nil
		}
		hint, again := shouldRetry(err)
		if !again || attempt >= attempts || ctx.Err() != nil {
			return "", services.Wrap(services.ErrExternalService, "generation", "complete",
				fmt.Sprintf("gave up after %d attempt(s)", attempt), err)
		}
		if err := wait(ctx, c.backoff.delay(attempt, hint)); err != nil {
			return "", err
		}
	}
}

func (c *Client) post(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read completion response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return "", newStatusError(resp, raw)
	}

	var parsed completionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("completion api error: %s", strings.TrimSpace(parsed.Error.Message))
	}
	for _, choice := range parsed.Choices {
		if content := strings.TrimSpace(choice.Message.Content); content != "" {
			return content, nil
		}
		if refusal := strings.TrimSpace(choice.Message.Refusal); refusal != "" {
			return "", fmt.Errorf("completion refused: %s", refusal)
		}
	}
	return "", errors.New("completion returned no content")
}
