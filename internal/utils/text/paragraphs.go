package text

import "strings"

// paragraphSeparator delimits paragraphs: two consecutive line breaks.
const paragraphSeparator = "\n\n"

// ShortenByParagraphs truncates text to at most maxChars characters without
// splitting paragraphs.
//
// The text is split into paragraphs on blank lines, and whole paragraphs are
// accumulated in original order while the running total (including a
// 2-character separator per accepted paragraph) stays within the budget.
// The first paragraph that would exceed the budget is dropped along with
// everything after it; no partial paragraph is ever emitted.
//
// Guarantees:
//   - the result is a paragraph-aligned prefix of the input
//   - CountRunes(result) <= maxChars
//   - if the first paragraph alone exceeds maxChars, the result is ""
//   - the function is idempotent for a fixed budget
func ShortenByParagraphs(text string, maxChars int) string {
	paragraphs := strings.Split(text, paragraphSeparator)
	var kept []string
	length := 0

	for _, p := range paragraphs {
		n := CountRunes(p)
		if length+n > maxChars {
			break
		}
		kept = append(kept, p)
		length += n + len(paragraphSeparator)
	}

	return strings.Join(kept, paragraphSeparator)
}
