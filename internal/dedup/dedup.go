// Package dedup flags near-duplicate topic titles so the research refill never
// re-proposes content the project already has. The check is lexical word
// overlap; it deliberately favors false positives (skipping a fresh topic is
// cheap, publishing a duplicate is not).
package dedup

import (
	"strings"
	"unicode"
)

// Threshold is the word-overlap ratio above which two titles are considered
// the same topic.
const Threshold = 0.70

// minTokenLen filters short connective words ("of", "the", "to") out of the
// similarity computation.
const minTokenLen = 4

// IsDuplicate reports whether the candidate title is a near-duplicate of any
// existing title.
func IsDuplicate(candidate string, existing []string) bool {
	for _, title := range existing {
		if Similarity(candidate, title) > Threshold {
			return true
		}
	}
	return false
}

// Similarity returns the word-overlap ratio between two titles:
// |a ∩ b| / max(|a|, |b|) over their significant word sets. Titles that
// normalize to nothing score zero.
func Similarity(a, b string) float64 {
	wordsA := tokenize(a)
	wordsB := tokenize(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	overlap := 0
	for w := range wordsA {
		if _, ok := wordsB[w]; ok {
			overlap++
		}
	}

	denom := len(wordsA)
	if len(wordsB) > denom {
		denom = len(wordsB)
	}
	return float64(overlap) / float64(denom)
}

// tokenize lowercases, strips non-alphanumeric runes, and returns the set of
// words longer than the stopword cutoff.
func tokenize(s string) map[string]struct{} {
	var sb strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			sb.WriteRune(r)
		} else {
			sb.WriteRune(' ')
		}
	}

	words := make(map[string]struct{})
	for _, w := range strings.Fields(sb.String()) {
		if len(w) >= minTokenLen {
			words[w] = struct{}{}
		}
	}
	return words
}
