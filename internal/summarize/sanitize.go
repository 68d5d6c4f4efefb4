package summarize

import (
	"regexp"
	"strings"
)

var (
	noteLine      = regexp.MustCompile(`(?im)^\s*note:.*$`)
	noteBracketed = regexp.MustCompile(`(?i)[\[(]\s*note:[^\])]*[\])]`)
)

// Sanitize strips provider disclaimers, wrapping quotes and extra
// whitespace from generated text.
func Sanitize(text string) string {
	text = noteBracketed.ReplaceAllString(text, "")
	text = noteLine.ReplaceAllString(text, "")
	text = strings.Join(strings.Fields(text), " ")

	if len(text) >= 2 {
		first, last := text[0], text[len(text)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			text = strings.TrimSpace(text[1 : len(text)-1])
		}
	}
	return text
}
