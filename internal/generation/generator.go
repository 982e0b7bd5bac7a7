package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"autoposter/internal/queue"
	"autoposter/internal/services"
)

// Request describes the post the Writer needs.
type Request struct {
	TopicKeyword    string
	PillarTheme     string
	SubTheme        string
	ResearchContext string
	// Feedback carries the previous review failure when the item is a revision.
	Feedback string
}

// Draft is generated post content.
type Draft struct {
	Content string
	Format  queue.DraftFormat
	Tone    queue.DraftTone
}

// Generator produces draft content for a work item.
type Generator interface {
	Generate(ctx context.Context, req Request) (Draft, error)
}

// Completer is the transport a PostGenerator drives.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// PostGenerator turns a Request into a prompt and parses the JSON reply.
type PostGenerator struct {
	completer Completer
}

// NewPostGenerator wraps a Completer.
func NewPostGenerator(completer Completer) *PostGenerator {
	return &PostGenerator{completer: completer}
}

type draftPayload struct {
	Content string `json:"content"`
	Format  string `json:"format"`
	Tone    string `json:"tone"`
}

// Generate requests a post and validates the reply.
func (g *PostGenerator) Generate(ctx context.Context, req Request) (Draft, error) {
	if strings.TrimSpace(req.TopicKeyword) == "" && strings.TrimSpace(req.PillarTheme) == "" {
		return Draft{}, services.Wrap(services.ErrValidation, "generation", "generate", "topic or pillar required", nil)
	}
	raw, err := g.completer.CompleteJSON(ctx, systemPrompt, UserPrompt(req))
	if err != nil {
		return Draft{}, err
	}
	var payload draftPayload
	if err := DecodeJSON(raw, &payload); err != nil {
		return Draft{}, services.Wrap(services.ErrExternalService, "generation", "parse reply", "", err)
	}
	content := strings.TrimSpace(payload.Content)
	if content == "" {
		return Draft{}, services.Wrap(services.ErrExternalService, "generation", "parse reply", "empty content", nil)
	}
	return Draft{
		Content: content,
		Format:  parseFormat(payload.Format),
		Tone:    parseTone(payload.Tone),
	}, nil
}

func parseFormat(value string) queue.DraftFormat {
	switch queue.DraftFormat(strings.ToLower(strings.TrimSpace(value))) {
	case queue.FormatCarousel:
		return queue.FormatCarousel
	case queue.FormatPoll:
		return queue.FormatPoll
	default:
		return queue.FormatText
	}
}

func parseTone(value string) queue.DraftTone {
	switch queue.DraftTone(strings.ToLower(strings.TrimSpace(value))) {
	case queue.ToneOpinion:
		return queue.ToneOpinion
	case queue.ToneStory:
		return queue.ToneStory
	default:
		return queue.ToneEducational
	}
}

// DecodeJSON decodes a model reply, tolerating code fences and surrounding prose.
func DecodeJSON(content string, target any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.New("empty payload")
	}
	directErr := json.Unmarshal([]byte(trimmed), target)
	if directErr == nil {
		return nil
	}
	sanitized := extractObject(stripCodeFence(trimmed))
	if sanitized == "" || sanitized == trimmed {
		return fmt.Errorf("%w (payload snippet: %s)", directErr, truncate(trimmed, 160))
	}
	if err := json.Unmarshal([]byte(sanitized), target); err != nil {
		return fmt.Errorf("%w (sanitized payload snippet: %s)", err, truncate(sanitized, 160))
	}
	return nil
}

func stripCodeFence(content string) string {
	if !strings.HasPrefix(content, "```") {
		return content
	}
	body := strings.TrimLeft(content[3:], " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = strings.TrimLeft(body[4:], " \t\r\n")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

func extractObject(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return strings.TrimSpace(content)
	}
	return strings.TrimSpace(content[start : end+1])
}

func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if runes := []rune(s); len(runes) > limit {
		return string(runes[:limit])
	}
	return s
}
