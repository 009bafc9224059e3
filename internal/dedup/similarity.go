// Package dedup detects duplicate and near-duplicate articles, both inside a
// fetched batch and against articles already stored by earlier runs.
package dedup

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	// BatchThreshold is the title Jaccard similarity above which two
	// articles of the same batch are duplicates.
	BatchThreshold = 0.7
	// CrossRunThreshold is the looser title threshold used against stored articles.
	CrossRunThreshold = 0.6
)

// Headline markers outlets prepend to otherwise identical stories.
var headlineMarkers = []string{"breaking news", "breaking", "just in", "urgent", "exclusive", "live", "update", "watch"}

// NormalizeTitle lowercases, NFC-normalizes and collapses whitespace, then
// drops a leading marker such as "Breaking:" or "Just in -".
func NormalizeTitle(title string) string {
	s := strings.ToLower(norm.NFC.String(title))
	s = strings.Join(strings.Fields(s), " ")

	for _, marker := range headlineMarkers {
		if !strings.HasPrefix(s, marker) {
			continue
		}
		rest := strings.TrimLeft(s[len(marker):], " ")
		if rest == "" || !strings.ContainsRune(":-|–", []rune(rest)[0]) {
			continue
		}
		if stripped := strings.TrimLeft(rest, ":-|– "); stripped != "" {
			return stripped
		}
	}
	return s
}

// Tokenize splits a normalized title on whitespace and trims punctuation
// from token edges. Empty tokens are dropped.
func Tokenize(title string) []string {
	fields := strings.Fields(NormalizeTitle(title))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		t := strings.TrimFunc(f, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// Jaccard returns |A∩B| / |A∪B| over the title token sets.
func Jaccard(a, b string) float64 {
	setA := toSet(Tokenize(a))
	setB := toSet(Tokenize(b))

	union := len(setA)
	intersection := 0
	for tok := range setB {
		if setA[tok] {
			intersection++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// TitlesOverlap reports whether one title contains the other or their
// Jaccard similarity exceeds threshold.
func TitlesOverlap(a, b string, threshold float64) bool {
	na, nb := NormalizeTitle(a), NormalizeTitle(b)
	if na == "" || nb == "" {
		return false
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return true
	}
	return Jaccard(a, b) > threshold
}

func toSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}
