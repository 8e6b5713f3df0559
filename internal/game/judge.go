package game

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

type Judgment string

const (
	JudgmentCorrect   Judgment = "correct"
	JudgmentClose     Judgment = "close"
	JudgmentIncorrect Judgment = "incorrect"
	JudgmentPenalty   Judgment = "penalty"
	JudgmentPassed    Judgment = "passed"
)

const (
	correctThreshold = 0.90
	closeThreshold   = 0.80
)

// Judge scores a spoken or guessed answer against the target word.
// Exact or synonym matches win immediately; otherwise the verdict falls
// out of normalized Levenshtein similarity.
func Judge(candidate string, target Word) Judgment {
	answer := Normalize(candidate)
	want := Normalize(target.Text)

	if answer != "" && answer == want {
		return JudgmentCorrect
	}

	for _, syn := range target.Synonyms {
		if answer != "" && answer == Normalize(syn) {
			return JudgmentCorrect
		}
	}

	sim := Similarity(answer, want)
	switch {
	case sim >= correctThreshold:
		return JudgmentCorrect
	case sim >= closeThreshold:
		return JudgmentClose
	default:
		return JudgmentIncorrect
	}
}

// Normalize lowercases, strips punctuation and collapses whitespace.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Similarity maps Levenshtein distance to [0,1]. Either side empty
// yields 0 so callers never divide by zero.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}

	distance := matchr.Levenshtein(a, b)
	longer := len([]rune(a))
	if n := len([]rune(b)); n > longer {
		longer = n
	}

	sim := 1.0 - float64(distance)/float64(longer)
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}

// ContainsWholeToken reports whether target occurs in text as a whole
// token sequence after normalization. Used for self-said-the-answer
// detection.
func ContainsWholeToken(text, target string) bool {
	want := Normalize(target)
	if want == "" {
		return false
	}

	tokens := strings.Fields(Normalize(text))
	wantTokens := strings.Fields(want)
	if len(wantTokens) == 0 || len(tokens) < len(wantTokens) {
		return false
	}

	for i := 0; i+len(wantTokens) <= len(tokens); i++ {
		match := true
		for j, w := range wantTokens {
			if tokens[i+j] != w {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
