// Package receipt filters recognized receipt text against the ingredient
// dictionary.
package receipt

import (
	"strings"
	"unicode"

	"pantryscan/internal/dictionary"
	"pantryscan/internal/normalize"
)

// Match returns the normalized strings present in dict, deduplicated in
// first-seen order. The result is never nil.
func Match(strs []string, dict *dictionary.Dictionary) []string {
	matches := []string{}
	if dict.Len() == 0 {
		return matches
	}

	seen := make(map[string]struct{}, len(strs))
	for _, s := range strs {
		name := normalize.Name(s)
		if name == "" || !dict.Contains(name) {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		matches = append(matches, name)
	}
	return matches
}

// Expand turns OCR lines into match candidates. Each line yields itself, its
// words with prices and punctuation removed, and then each of those words, so
// "Cooking Oil 3.49" offers "Cooking Oil" as well as "Oil".
func Expand(lines []string) []string {
	var out []string
	for _, line := range lines {
		out = append(out, line)

		words := strings.FieldsFunc(line, func(r rune) bool {
			return !unicode.IsLetter(r) && r != '-' && r != '\''
		})
		if len(words) == 0 {
			continue
		}
		if len(words) > 1 {
			out = append(out, strings.Join(words, " "))
		}
		out = append(out, words...)
	}
	return out
}
