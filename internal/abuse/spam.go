package abuse

import (
	"regexp"
	"unicode/utf8"
)

var urlPattern = regexp.MustCompile(`(?i)https?://[^\s)]+`)

// CountURLs returns the number of http/https URLs in the input.
func CountURLs(input string) int {
	return len(urlPattern.FindAllString(input, -1))
}

// CountURLsInFields sums URL occurrences across all given fields.
func CountURLsInFields(fields []string) int {
	total := 0
	for _, field := range fields {
		total += CountURLs(field)
	}
	return total
}

// IsLengthBetween reports whether the value's length in runes is within
// [min, max] inclusive.
func IsLengthBetween(value string, min, max int) bool {
	n := utf8.RuneCountInString(value)
	return n >= min && n <= max
}
