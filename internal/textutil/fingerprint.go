package textutil

import (
	"math"
	"regexp"
	"strings"
)

var tokenSplitPattern = regexp.MustCompile(`[^a-z0-9]+`)

// minTokenLength drops short words ("a", "of", "ad") that add noise.
const minTokenLength = 3

// Fingerprint is a term-frequency vector for one text.
type Fingerprint struct {
	tokens map[string]float64
	norm   float64
}

// NewFingerprint builds a fingerprint for text. It returns nil when text has
// no usable tokens.
func NewFingerprint(text string) *Fingerprint {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	counts := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}
	var sum float64
	for _, count := range counts {
		sum += count * count
	}
	return &Fingerprint{tokens: counts, norm: math.Sqrt(sum)}
}

// Tokenize lowercases text and splits it on anything that is not a-z or 0-9.
func Tokenize(text string) []string {
	raw := tokenSplitPattern.Split(strings.ToLower(text), -1)
	out := make([]string, 0, len(raw))
	for _, token := range raw {
		if len(token) < minTokenLength {
			continue
		}
		out = append(out, token)
	}
	return out
}

// TokenCount returns the number of distinct tokens.
func (f *Fingerprint) TokenCount() int {
	if f == nil {
		return 0
	}
	return len(f.tokens)
}

// CosineSimilarity returns a value in [0, 1]. Nil fingerprints score 0.
func CosineSimilarity(a, b *Fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	// Iterate the smaller map.
	if len(a.tokens) > len(b.tokens) {
		a, b = b, a
	}
	var dot float64
	for token, count := range a.tokens {
		dot += count * b.tokens[token]
	}
	return dot / (a.norm * b.norm)
}

// NearDuplicate reports whether fp is at least threshold-similar to any of
// seen, returning the best score found.
func NearDuplicate(fp *Fingerprint, seen []*Fingerprint, threshold float64) (bool, float64) {
	var best float64
	for _, other := range seen {
		if score := CosineSimilarity(fp, other); score > best {
			best = score
		}
	}
	return fp != nil && best >= threshold, best
}
