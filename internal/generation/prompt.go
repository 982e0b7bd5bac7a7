package generation

import (
	"fmt"
	"strings"
)

const systemPrompt = `You write LinkedIn posts for a senior adtech sales leader.
Write in first person, in British English, between 120 and 250 words.
Include one concrete observation from experience. Never include links,
hashtags beyond three, statistics without a source, or engagement bait.
Respond with JSON only: {"content": "...", "format": "text|carousel|poll", "tone": "educational|opinion|story"}.`

// UserPrompt renders the per-item instructions.
func UserPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pillar: %s\n", fallback(req.PillarTheme, "Adtech fundamentals and market dynamics"))
	if req.SubTheme != "" {
		fmt.Fprintf(&b, "Sub-theme: %s\n", req.SubTheme)
	}
	if req.TopicKeyword != "" {
		fmt.Fprintf(&b, "Topic: %s\n", req.TopicKeyword)
	}
	if ctx := strings.TrimSpace(req.ResearchContext); ctx != "" {
		b.WriteString("\nResearch notes:\n")
		b.WriteString(ctx)
		b.WriteString("\n")
	}
	if fb := strings.TrimSpace(req.Feedback); fb != "" {
		b.WriteString("\nThe previous draft was rejected by review. Fix these problems:\n")
		b.WriteString(fb)
		b.WriteString("\n")
	}
	return b.String()
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}
