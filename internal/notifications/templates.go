package notifications

import (
	"fmt"
	"strings"
)

const (
	publishPreviewRunes    = 500
	engagementPreviewRunes = 200
)

func render(event Event, payload Payload) (message, bool) {
	switch event {
	case EventPublishReady:
		return message{
			title: "Autoposter - Ready to Publish",
			body: fmt.Sprintf(
				"Pipeline item: %s\nTheme: %s\nSub-theme: %s\n\n%s\n\nWebhook has been fired. Confirm publication when live.",
				payload.text("item_id", "N/A"),
				payload.text("pillar_theme", "N/A"),
				payload.text("sub_theme", "N/A"),
				Truncate(payload.text("content", ""), publishPreviewRunes, ""),
			),
			tags:     []string{"autoposter", "publish", "ready"},
			priority: "high",
			logType:  "V6_PUBLISH_READY",
		}, true
	case EventEngagementPrompt:
		return message{
			title: "Autoposter - Engagement Reminder",
			body: fmt.Sprintf(
				"Pipeline item: %s\nTheme: %s\n\nGolden hour actions (next 60-90 minutes):\n"+
					"- Reply quickly to substantive comments\n"+
					"- Ask one follow-up question to deepen discussion\n"+
					"- Avoid generic one-word replies\n"+
					"- Keep conversation relevant to your niche topic\n\nContent: %s",
				payload.text("item_id", "N/A"),
				payload.text("pillar_theme", "N/A"),
				Truncate(payload.text("content", ""), engagementPreviewRunes, "..."),
			),
			tags:    []string{"autoposter", "engagement", "reminder"},
			logType: "V6_ENGAGEMENT_PROMPT",
		}, true
	case EventPipelineUnhealthy:
		return message{
			title: "Autoposter - Pipeline Unhealthy",
			body: fmt.Sprintf(
				"Health: %s\nStale claims: %s\nErrored items: %s\nStuck items: %s",
				payload.text("health_status", "unknown"),
				payload.text("stale_claims", "0"),
				payload.text("errored_items", "0"),
				payload.text("stuck_items", "0"),
			),
			tags:     []string{"autoposter", "monitor", "alert"},
			priority: "high",
			logType:  string(EventPipelineUnhealthy),
		}, true
	case EventError:
		var builder strings.Builder
		builder.WriteString("Error")
		if label := payload.text("context", ""); label != "" {
			builder.WriteString(" with ")
			builder.WriteString(label)
		}
		builder.WriteString(": ")
		builder.WriteString(payload.text("error", "unknown"))
		return message{
			title:    "Autoposter - Error",
			body:     builder.String(),
			tags:     []string{"autoposter", "error", "alert"},
			priority: "high",
			logType:  string(EventError),
		}, true
	case EventTest:
		return message{
			title:    "Autoposter - Test",
			body:     "Notification system test",
			tags:     []string{"autoposter", "test"},
			priority: "low",
			logType:  string(EventTest),
		}, true
	default:
		return message{}, false
	}
}

func (p Payload) text(key, fallback string) string {
	if p == nil {
		return fallback
	}
	value, ok := p[key]
	if !ok || value == nil {
		return fallback
	}
	s := strings.TrimSpace(fmt.Sprint(value))
	if s == "" {
		return fallback
	}
	return s
}

// Truncate shortens s to at most limit runes, appending suffix when cut.
func Truncate(s string, limit int, suffix string) string {
	runes := []rune(s)
	if limit <= 0 || len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + suffix
}
