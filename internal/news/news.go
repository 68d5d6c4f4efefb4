// Package news holds the candidate type produced by every source together
// with the keyword filter and the history deduplicator applied to it.
package news

import "strings"

// Candidate is one piece of text harvested from a source. Its identity is
// Text: two candidates with the same Text are the same post.
type Candidate struct {
	Text   string
	Link   string
	Source string
}

// FromEntry builds the candidate text for a headline with an optional
// link, joining them with a single space.
func FromEntry(title, link, source string) Candidate {
	title = strings.Join(strings.Fields(title), " ")
	link = strings.TrimSpace(link)

	text := title
	if link != "" {
		text = title + " " + link
	}
	return Candidate{Text: text, Link: link, Source: source}
}

// Texts returns the text of every candidate, in order.
func Texts(cands []Candidate) []string {
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.Text)
	}
	return out
}
