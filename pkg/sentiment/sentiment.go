// Package sentiment implements the sentiment analyzer (C6, spec §4.6):
// a VADER-style lexicon compound score plus the frustration-keyword
// detector, run over a corpus of commit subjects and issue/release
// titles. No example repo in the retrieval pack ships a sentiment or
// VADER library (see DESIGN.md), so this is a deliberate, justified
// stdlib-only package; its pattern-table idiom is grounded on the
// teacher's pkg/scanners/code-security/git_history.go secret-pattern
// table (a slice of structs consulted in a loop).
package sentiment

import (
	"math"
	"strings"
)

// FrustrationKeywords is the canonical literal list from spec §6,
// matched as case-insensitive substrings against the assembled corpus.
var FrustrationKeywords = []string{
	"not getting paid", "unpaid work", "free labor", "free work", "corporate exploitation",
	"burned out", "burnout", "stepping down", "abandoning this project",
	"fortune 500", "pay developers", "companies make millions",
	"protest", "on strike", "boycott", "resentment", "exploitation",
}

// lexicon is a small hand-built VADER-style polarity table. Values
// follow VADER's convention of roughly [-4, 4] intensity before
// normalization; this is not the full ~7500-entry VADER lexicon, but
// preserves the same well-ordering contract spec §4.6 requires
// ("English polarity is well ordered").
var lexicon = map[string]float64{
	"great": 3.1, "good": 1.9, "love": 3.2, "excellent": 3.4, "awesome": 3.1,
	"thanks": 1.6, "thank": 1.6, "amazing": 3.2, "fantastic": 3.2, "nice": 1.8,
	"happy": 2.7, "perfect": 2.9, "well done": 2.5, "appreciate": 2.1,
	"bad": -2.1, "hate": -3.0, "terrible": -3.1, "awful": -2.9, "broken": -1.7,
	"sucks": -2.5, "angry": -2.4, "frustrated": -2.3, "frustrating": -2.3,
	"disappointed": -2.2, "disappointing": -2.0, "annoying": -1.8, "worst": -3.0,
	"abandoned": -1.9, "dead": -1.4, "stale": -1.0,
	"sad": -2.0, "unacceptable": -2.6, "shame": -1.8, "burnout": -2.2,
	"exploitation": -2.8, "unpaid": -2.0, "boycott": -2.2, "strike": -1.6,
}

// normalizationAlpha approximates VADER's normalization constant alpha.
const normalizationAlpha = 15.0

// Compound computes a VADER-style compound score in [-1, 1] over text:
// sum token polarities, then squash with x / sqrt(x^2 + alpha).
func Compound(text string) float64 {
	words := tokenize(text)
	if len(words) == 0 {
		return 0
	}
	var sum float64
	for _, w := range words {
		if v, ok := lexicon[w]; ok {
			sum += v
		}
	}
	if sum == 0 {
		return 0
	}
	return sum / math.Sqrt(sum*sum+normalizationAlpha)
}

func tokenize(text string) []string {
	lower := strings.ToLower(text)
	return strings.FieldsFunc(lower, func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z':
			return false
		case r >= '0' && r <= '9':
			return false
		default:
			return true
		}
	})
}

// FrustrationFlags returns the set of frustration keywords found in
// corpus (case-insensitive substring match), each as its own evidence
// string, per spec §4.6.
func FrustrationFlags(corpus string) []string {
	lower := strings.ToLower(corpus)
	var flags []string
	for _, kw := range FrustrationKeywords {
		if strings.Contains(lower, kw) {
			flags = append(flags, kw)
		}
	}
	return flags
}

// BuildCorpus concatenates the inputs spec §4.6 names: the last 200
// recent commit subjects plus the 50 most recent issue/release titles.
// Callers are responsible for pre-truncating each slice to those caps.
func BuildCorpus(commitSubjects, issueTitles []string) string {
	var b strings.Builder
	for _, s := range commitSubjects {
		b.WriteString(s)
		b.WriteByte('\n')
	}
	for _, t := range issueTitles {
		b.WriteString(t)
		b.WriteByte('\n')
	}
	return b.String()
}
