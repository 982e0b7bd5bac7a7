package quality

import (
	"math"
	"strings"
	"unicode"
)

// FleschKincaidGrade estimates the US school grade needed to read text.
// Text without words scores 0.
func FleschKincaidGrade(text string) float64 {
	words, syllables := 0, 0
	for _, token := range strings.Fields(text) {
		word := normalizeWord(token)
		if word == "" {
			continue
		}
		words++
		syllables += countSyllables(word)
	}
	if words == 0 {
		return 0
	}
	sentences := countSentences(text)
	grade := 0.39*(float64(words)/float64(sentences)) + 11.8*(float64(syllables)/float64(words)) - 15.59
	return math.Round(grade*10) / 10
}

func normalizeWord(token string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(token) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func countSentences(text string) int {
	count := 0
	inTerminator := false
	sawText := false
	for _, r := range text {
		switch r {
		case '.', '!', '?':
			if sawText && !inTerminator {
				count++
			}
			inTerminator = true
		default:
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				sawText = true
				inTerminator = false
			}
		}
	}
	if !inTerminator && sawText {
		count++
	}
	if count == 0 {
		return 1
	}
	return count
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u', 'y':
		return true
	}
	return false
}

func countSyllables(word string) int {
	count := 0
	prevVowel := false
	letters := 0
	for _, r := range word {
		if !unicode.IsLetter(r) {
			prevVowel = false
			continue
		}
		letters++
		v := isVowel(r)
		if v && !prevVowel {
			count++
		}
		prevVowel = v
	}
	if letters == 0 {
		return 1
	}
	if count > 1 && strings.HasSuffix(word, "e") && !strings.HasSuffix(word, "le") {
		count--
	}
	if count == 0 {
		count = 1
	}
	return count
}
