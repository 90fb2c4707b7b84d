// Package normalize turns classifier labels and recognized text into the
// canonical form used as the identity of an ingredient: NFC composed,
// surrounding whitespace removed, Unicode lower case.
package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Name returns the canonical form of s. Callers compare names only after
// passing them through Name.
func Name(s string) string {
	s = strings.TrimSpace(norm.NFC.String(s))
	if s == "" {
		return ""
	}
	// Casers keep state; one per call keeps Name safe for concurrent use.
	return cases.Lower(language.Und).String(s)
}

// Lines splits recognized text into trimmed, non-blank lines.
func Lines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
