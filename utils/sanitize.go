package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var sanitizer = bluemonday.StrictPolicy()

// CleanText strips any markup from user supplied text. Templates escape on
// output, so entities produced by the policy are decoded back to plain text.
func CleanText(input string) string {
	return strings.TrimSpace(html.UnescapeString(sanitizer.Sanitize(input)))
}
