// Package text provides utilities for text processing used across the
// posting pipeline: rune-aware length counting and paragraph-aligned
// shortening of generated posts.
package text

// CountRunes counts the number of Unicode characters (runes) in the given text.
// It correctly handles multi-byte characters (Cyrillic, emoji, etc.) by counting
// runes instead of bytes, which matters because post length budgets are
// expressed in characters, not bytes.
//
// Examples:
//
//	CountRunes("hello")   // returns 5
//	CountRunes("привет")  // returns 6
//	CountRunes("")        // returns 0
func CountRunes(text string) int {
	return len([]rune(text))
}
