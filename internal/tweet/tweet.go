// Package tweet assembles the final post text within the platform's
// character budget.
package tweet

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// MaxLength is the post budget in characters (Unicode code points).
const MaxLength = 280

// Ellipsis marks text cut to fit the budget.
const Ellipsis = "..."

// ErrOverBudget is returned when the hashtag and emoji suffix leaves no
// room for any text.
var ErrOverBudget = errors.New("tweet: suffix leaves no room for text")

// ErrEmptyText is returned when there is no text to post.
var ErrEmptyText = errors.New("tweet: empty text")

// Compose joins text, the space-joined hashtags and the optional emoji,
// in that order, separated by single spaces. When the result is longer
// than MaxLength only the text is cut, so that text[:n] + "..." plus the
// untouched suffix is exactly MaxLength.
func Compose(text string, hashtags []string, emoji string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}
	suffix := Suffix(hashtags, emoji)

	full := text + suffix
	if utf8.RuneCountInString(full) <= MaxLength {
		return strings.TrimSpace(full), nil
	}

	budget := MaxLength - utf8.RuneCountInString(suffix) - utf8.RuneCountInString(Ellipsis)
	if budget <= 0 {
		return "", ErrOverBudget
	}

	runes := []rune(text)
	return string(runes[:budget]) + Ellipsis + suffix, nil
}

// Suffix renders the hashtags and emoji exactly as Compose appends them,
// each part with its leading space. Empty parts render as nothing.
func Suffix(hashtags []string, emoji string) string {
	var b strings.Builder

	tags := make([]string, 0, len(hashtags))
	for _, h := range hashtags {
		if h = strings.TrimSpace(h); h != "" {
			tags = append(tags, h)
		}
	}
	if len(tags) > 0 {
		b.WriteString(" ")
		b.WriteString(strings.Join(tags, " "))
	}

	if emoji = strings.TrimSpace(emoji); emoji != "" {
		b.WriteString(" ")
		b.WriteString(emoji)
	}
	return b.String()
}

// Length reports the length of s as the budget counts it.
func Length(s string) int {
	return utf8.RuneCountInString(s)
}
