package verify

import (
	"strings"

	"golang.org/x/text/cases"
)

// shortPageChars is the normalized length below which a page is considered
// too short to score reliably; such pages get a neutral ratio instead of
// dragging the document down.
const shortPageChars = 50

// prefixSampleChars bounds the containment probe to the start of the
// reference text.
const prefixSampleChars = 200

var foldCaser = cases.Fold()

// normalize case-folds and collapses all whitespace runs to single spaces so
// that formatting differences alone never affect similarity.
func normalize(text string) string {
	return strings.Join(strings.Fields(foldCaser.String(text)), " ")
}

// similarity returns a ratio in [0, 1] for how well candidate preserves the
// reference text. A reference shorter than shortPageChars scores a neutral
// 0.5. When the reference's leading sample appears verbatim in the candidate
// the score is 1.0; otherwise it is the fraction of reference words present
// in the candidate.
func similarity(reference, candidate string) float64 {
	ref := normalize(reference)
	cand := normalize(candidate)

	if len(ref) < shortPageChars {
		return 0.5
	}

	sample := ref
	if len(sample) > prefixSampleChars {
		sample = sample[:prefixSampleChars]
	}
	if strings.Contains(cand, sample) {
		return 1.0
	}

	refWords := wordSet(ref)
	if len(refWords) == 0 {
		return 0.0
	}
	candWords := wordSet(cand)
	hits := 0
	for word := range refWords {
		if _, ok := candWords[word]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(refWords))
}

func wordSet(text string) map[string]struct{} {
	words := strings.Fields(text)
	set := make(map[string]struct{}, len(words))
	for _, word := range words {
		set[word] = struct{}{}
	}
	return set
}
