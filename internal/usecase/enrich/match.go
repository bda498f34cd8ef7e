package enrich

import (
	"sort"
	"strings"
	"unicode"
)

// normalizeTitle prepares a string for tolerant comparison: lower-case,
// punctuation stripped, words sorted alphabetically. Search engines are
// tolerant of word order and punctuation, so the scoring should be too.
func normalizeTitle(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}

	words := strings.Fields(b.String())
	sort.Strings(words)
	return strings.Join(words, " ")
}

// bestMatch selects the candidate whose normalized form is most similar to
// the normalized query. Ties resolve to the first-seen candidate. The second
// return is false when candidates is empty.
func bestMatch(query string, candidates []string) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}

	normQuery := normalizeTitle(query)
	best := ""
	bestRatio := -1.0

	for _, candidate := range candidates {
		ratio := similarityRatio(normQuery, normalizeTitle(candidate))
		if ratio > bestRatio {
			bestRatio = ratio
			best = candidate
		}
	}

	return best, true
}

// similarityRatio computes a sequence-similarity ratio in [0, 1]:
// 2*M / (len(a)+len(b)), where M is the total length of the longest
// non-overlapping matching blocks between the two rune sequences.
func similarityRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1.0
	}
	return 2.0 * float64(matchingRunes(ra, rb)) / float64(total)
}

// matchingRunes counts matched runes by recursively splitting around the
// longest common substring.
func matchingRunes(a, b []rune) int {
	ai, bi, size := longestCommonBlock(a, b)
	if size == 0 {
		return 0
	}
	return size +
		matchingRunes(a[:ai], b[:bi]) +
		matchingRunes(a[ai+size:], b[bi+size:])
}

// longestCommonBlock finds the longest common contiguous block; earlier
// positions win ties to keep the selection deterministic.
func longestCommonBlock(a, b []rune) (ai, bi, size int) {
	// lengths[j] is the match length ending at a[i-1], b[j-1].
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > size {
					size = curr[j]
					ai = i - size
					bi = j - size
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}

	return ai, bi, size
}
