package utils

import "github.com/microcosm-cc/bluemonday"

var sanitizer = bluemonday.UGCPolicy()

// Sanitize cleans rich-text board content: formatting and links survive,
// scripts and event handlers do not.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}
