// Package utils provides shared utilities for text, math, and logging.
package utils

import "strings"

// Truncate returns s truncated to maxLen characters, with "..." appended if truncated.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// FirstSentence returns the text up to the first period, or the first maxLen
// characters when the text contains no period.
func FirstSentence(s string, maxLen int) string {
	if idx := strings.Index(s, "."); idx >= 0 {
		return s[:idx]
	}
	if maxLen > 0 && len(s) > maxLen {
		return s[:maxLen]
	}
	return s
}

// EstimateTokens gives a rough token count for text (1 token ≈ 4 characters).
func EstimateTokens(text string) int {
	return len(text) / 4
}
