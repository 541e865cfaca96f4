package utils

import "github.com/microcosm-cc/bluemonday"

var strict = bluemonday.StrictPolicy()

// SanitizeText strips every HTML element from input.
func SanitizeText(input string) string {
	return strict.Sanitize(input)
}
