// Package intelligence holds the memory algorithms: word-overlap similarity,
// deduplication and reinforcement, decay, relevance ranking, profile
// derivation and LLM-backed extraction and selection.
package intelligence

import "strings"

// Words returns the set of lowercase whitespace-separated tokens of s.
// Punctuation stays part of its token: "python." and "python" differ.
func Words(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// Similarity returns |W(a) ∩ W(b)| / max(|W(a)|, |W(b)|) over the word sets
// of a and b. It is 0 when either side has no words.
//
// Example:
//
//	Similarity("Proficient in Python", "proficient in PYTHON") // 1.0
//	Similarity("Proficient in Python.", "proficient in python") // 0.667
//	Similarity("Proficient in Python", "Enjoys coding in Python") // 0.5
func Similarity(a, b string) float64 {
	wa, wb := Words(a), Words(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}
	small, large := wa, wb
	if len(small) > len(large) {
		small, large = large, small
	}
	shared := 0
	for w := range small {
		if _, ok := large[w]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(large))
}
