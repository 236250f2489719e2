package corpus

import (
	"regexp"
	"strings"
)

// disallowed matches anything other than letters, digits, underscore,
// whitespace and commas.
var disallowed = regexp.MustCompile(`[^\p{L}\p{N}_\s,]`)

// Clean lowercases text, strips punctuation except commas and collapses
// whitespace runs to single spaces.
func Clean(text string) string {
	text = strings.ToLower(text)
	text = disallowed.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

// IngredientCount is the number of comma separated entries.
func IngredientCount(text string) int {
	return strings.Count(text, ",") + 1
}

func WordCount(text string) int {
	return len(strings.Fields(text))
}
