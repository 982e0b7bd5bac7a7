// Package quality reviews drafts for the Editor. The default Gates battery runs
// seven checks: factual accuracy against the author profile, Flesch-Kincaid
// readability between grades 6 and 14, guardrail policy, no external URLs, no
// unsupported claims, topical relevance and a first-person experience signal.
// The quality score is the fraction of gates passed.
package quality
