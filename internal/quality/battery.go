package quality

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"autoposter/internal/pillars"
	"autoposter/internal/queue"
)

// Gate names, in evaluation order.
const (
	GateFactualAccuracy     = "factual_accuracy"
	GateReadability         = "readability"
	GateGuardrails          = "guardrails"
	GateNoExternalURLs      = "no_external_urls"
	GateNoUnsupportedClaims = "no_unsupported_claims"
	GateTopicalRelevance    = "topical_relevance"
	GateExperienceSignal    = "experience_signal"
)

// Readability bounds as Flesch-Kincaid grade levels.
const (
	MinGrade = 6.0
	MaxGrade = 14.0
)

// GateResult is the outcome of one check.
type GateResult struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message,omitempty"`
}

// Verdict aggregates all gate results for one draft.
type Verdict struct {
	Passed           bool         `json:"passed"`
	Gates            []GateResult `json:"gates"`
	QualityScore     float64      `json:"quality_score"`
	ReadabilityScore float64      `json:"readability_score"`
}

// Failed returns the gates that did not pass.
func (v Verdict) Failed() []GateResult {
	var out []GateResult
	for _, g := range v.Gates {
		if !g.Passed {
			out = append(out, g)
		}
	}
	return out
}

// FailureSummary renders failed gates as "name: message; ...".
func (v Verdict) FailureSummary() string {
	failed := v.Failed()
	if len(failed) == 0 {
		return "All gates passed"
	}
	parts := make([]string, 0, len(failed))
	for _, g := range failed {
		parts = append(parts, g.Name+": "+g.Message)
	}
	return strings.Join(parts, "; ")
}

// Battery reviews draft content for the Editor.
type Battery interface {
	Review(ctx context.Context, content string, item *queue.Item) (Verdict, error)
}

// Gates is the default seven-check battery.
type Gates struct {
	profile pillars.Profile
}

// NewGates builds the default battery around an author profile.
func NewGates(profile pillars.Profile) *Gates {
	return &Gates{profile: profile}
}

// Review runs every gate. QualityScore is the passed fraction.
func (g *Gates) Review(ctx context.Context, content string, _ *queue.Item) (Verdict, error) {
	if err := ctx.Err(); err != nil {
		return Verdict{}, err
	}
	grade := FleschKincaidGrade(content)
	results := []GateResult{
		g.checkFactualAccuracy(content),
		checkReadability(grade),
		checkGuardrails(content),
		checkNoURLs(content),
		checkUnsupportedClaims(content),
		checkTopicalRelevance(content),
		g.checkExperienceSignal(content),
	}
	passed := 0
	for _, r := range results {
		if r.Passed {
			passed++
		}
	}
	return Verdict{
		Passed:           passed == len(results),
		Gates:            results,
		QualityScore:     float64(passed) / float64(len(results)),
		ReadabilityScore: grade,
	}, nil
}

var titleClaims = []string{"ceo", "founder", "vp of", "vice president", "chief", "director"}

func (g *Gates) checkFactualAccuracy(content string) GateResult {
	lowered := strings.ToLower(content)
	var issues []string

	title := strings.ToLower(strings.TrimSpace(g.profile.Title))
	if title != "" && !strings.Contains(lowered, title) {
		for _, claim := range titleClaims {
			if strings.Contains(lowered, claim) {
				issues = append(issues, fmt.Sprintf("Claims title '%s', should be '%s'", claim, g.profile.Title))
			}
		}
	}

	for _, claim := range g.profile.BannedClaims {
		lc := strings.ToLower(claim)
		if len(lc) <= 10 {
			continue
		}
		words := strings.Fields(lc)
		if len(words) > 4 {
			words = words[:4]
		}
		if strings.Contains(lowered, strings.Join(words, " ")) {
			issues = append(issues, "Potentially banned claim: "+truncate(claim, 60))
		}
	}

	for _, topic := range g.profile.OutOfScope {
		var keys []string
		for _, w := range strings.Fields(strings.ToLower(topic)) {
			if len(w) > 4 {
				keys = append(keys, w)
			}
		}
		if len(keys) == 0 {
			continue
		}
		if len(keys) > 2 {
			keys = keys[:2]
		}
		all := true
		for _, k := range keys {
			if !strings.Contains(lowered, k) {
				all = false
				break
			}
		}
		if all {
			issues = append(issues, "Out-of-scope topic: "+truncate(topic, 60))
		}
	}

	if len(issues) > 0 {
		if len(issues) > 3 {
			issues = issues[:3]
		}
		return GateResult{Name: GateFactualAccuracy, Message: strings.Join(issues, "; ")}
	}
	return GateResult{Name: GateFactualAccuracy, Passed: true}
}

func checkReadability(grade float64) GateResult {
	switch {
	case grade < MinGrade:
		return GateResult{Name: GateReadability, Message: fmt.Sprintf("Grade level %.1f is too simple (min %.0f)", grade, MinGrade)}
	case grade > MaxGrade:
		return GateResult{Name: GateReadability, Message: fmt.Sprintf("Grade level %.1f is too complex (max %.0f)", grade, MaxGrade)}
	default:
		return GateResult{Name: GateReadability, Passed: true, Message: fmt.Sprintf("Grade level %.1f", grade)}
	}
}

var (
	bannedPhrases = []string{
		"game changer", "disrupt", "synergy", "leverage", "pivot",
		"deep dive", "unpack", "double down", "move the needle", "low hanging fruit",
	}
	unverifiedMarkers = []string{"according to research", "studies show", "everyone knows", "proven that"}
	engagementBait    = []string{"like if you agree", "comment yes", "drop yes", "tag a friend", "follow for more"}

	percentPattern = regexp.MustCompile(`(^|[^\d])\d{1,3}%`)
	urlPattern     = regexp.MustCompile(`(?i)https?://`)
	hashtagPattern = regexp.MustCompile(`#[A-Za-z0-9_]+`)
	mentionPattern = regexp.MustCompile(`@\w+`)
)

const (
	maxHashtags = 3
	maxMentions = 3
	maxWords    = 300
)

// Guardrails lists the policy violations in content.
func Guardrails(content string) []string {
	lowered := strings.ToLower(content)
	var violations []string

	for _, phrase := range bannedPhrases {
		if strings.Contains(lowered, phrase) {
			violations = append(violations, "BANNED_PHRASE:"+phrase)
		}
	}
	if len(hashtagPattern.FindAllString(content, -1)) > maxHashtags {
		violations = append(violations, "HASHTAG_LIMIT_EXCEEDED")
	}
	if len(mentionPattern.FindAllString(content, -1)) > maxMentions {
		violations = append(violations, "MENTION_OVERUSE")
	}
	if len(strings.Fields(content)) > maxWords {
		violations = append(violations, "WORD_LIMIT_EXCEEDED")
	}
	if containsAny(lowered, unverifiedMarkers) {
		violations = append(violations, "UNVERIFIED_CLAIM_LANGUAGE")
	}
	hasURL := urlPattern.MatchString(content)
	if percentPattern.MatchString(content) && !hasURL {
		violations = append(violations, "STAT_WITHOUT_SOURCE")
	}
	if strings.Count(content, `"`)+strings.Count(content, "'") >= 4 && !hasURL {
		violations = append(violations, "QUOTE_WITHOUT_SOURCE")
	}
	if hasURL {
		violations = append(violations, "EXTERNAL_LINK_IN_BODY")
	}
	if containsAny(lowered, engagementBait) {
		violations = append(violations, "ENGAGEMENT_BAIT_LANGUAGE")
	}
	return violations
}

func checkGuardrails(content string) GateResult {
	violations := Guardrails(content)
	if len(violations) == 0 {
		return GateResult{Name: GateGuardrails, Passed: true}
	}
	if len(violations) > 5 {
		violations = violations[:5]
	}
	return GateResult{Name: GateGuardrails, Message: strings.Join(violations, "; ")}
}

func checkNoURLs(content string) GateResult {
	if urlPattern.MatchString(content) {
		return GateResult{Name: GateNoExternalURLs, Message: "Post body contains an external URL"}
	}
	return GateResult{Name: GateNoExternalURLs, Passed: true}
}

var unsupportedClaims = []string{
	"the best", "the only", "the most advanced", "guaranteed",
	"proven results", "roi of", "return of", "increases revenue by",
}

func checkUnsupportedClaims(content string) GateResult {
	lowered := strings.ToLower(content)
	var found []string
	for _, p := range unsupportedClaims {
		if strings.Contains(lowered, p) {
			found = append(found, p)
		}
	}
	if len(found) == 0 {
		return GateResult{Name: GateNoUnsupportedClaims, Passed: true}
	}
	if len(found) > 3 {
		found = found[:3]
	}
	return GateResult{Name: GateNoUnsupportedClaims, Message: "Unsupported claim patterns: " + strings.Join(found, ", ")}
}

var domainSignals = [][]string{
	{"adtech", "advertising", "programmatic", "media", "campaign", "publisher"},
	{"ai", "artificial intelligence", "machine learning", "automation", "agent"},
	{"retail media", "e-commerce", "shopper", "commerce"},
	{"measurement", "attribution", "analytics", "tracking"},
	{"creative", "generative", "format", "content"},
}

func checkTopicalRelevance(content string) GateResult {
	lowered := strings.ToLower(content)
	for _, group := range domainSignals {
		if containsAny(lowered, group) {
			return GateResult{Name: GateTopicalRelevance, Passed: true}
		}
	}
	return GateResult{Name: GateTopicalRelevance, Message: "Content lacks domain-relevant keywords for Adtech/AI/advertising"}
}

var firstPersonPatterns = []string{
	"i have seen", "i have observed", "i have learned", "in my experience",
	"over the past", "one lesson", "when i first", "a pattern i", "what worked",
	"the mistake i", "i have spent", "i've seen", "i've observed", "i've learned",
}

func (g *Gates) checkExperienceSignal(content string) GateResult {
	lowered := strings.ToLower(content)
	for _, marker := range g.profile.ExperienceMarkers {
		key := strings.TrimRight(strings.ToLower(marker), ".")
		key = strings.TrimSpace(strings.ReplaceAll(key, "...", ""))
		if key != "" && strings.Contains(lowered, key) {
			return GateResult{Name: GateExperienceSignal, Passed: true, Message: "Found marker: " + truncate(key, 40)}
		}
	}
	for _, p := range firstPersonPatterns {
		if strings.Contains(lowered, p) {
			return GateResult{Name: GateExperienceSignal, Passed: true, Message: "Found pattern: " + p}
		}
	}
	return GateResult{Name: GateExperienceSignal, Message: "No personal experience marker found, add first-person narrative"}
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
