// Package hashtag turns free text into a short ranked list of hashtags by
// counting keyword frequency against a curated keyword table.
package hashtag

import (
	"strings"
	"unicode"
)

// MaxTags is the most hashtags For ever returns.
const MaxTags = 5

// Table maps a lowercase keyword to its canonical hashtag.
type Table map[string]string

// Generator ranks tokens of a text and maps them through a Table.
type Generator struct {
	table Table
}

// NewGenerator copies table with lowercased, trimmed keys. When two keys
// collide after normalization the later one in iteration order wins, so
// tables should not rely on case to distinguish keywords.
func NewGenerator(table Table) *Generator {
	normalized := make(Table, len(table))
	for k, v := range table {
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		normalized[k] = v
	}
	return &Generator{table: normalized}
}

// For returns up to MaxTags hashtags for text. The five most frequent
// tokens are picked first (ties broken by first occurrence) and only then
// mapped, so an unmapped frequent token uses up a slot. Output order is
// the frequency rank of the surviving tokens.
func (g *Generator) For(text string) []string {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}

	type rank struct {
		token string
		count int
		first int
	}

	index := make(map[string]int, len(tokens))
	var ranks []rank
	for i, tok := range tokens {
		if j, ok := index[tok]; ok {
			ranks[j].count++
			continue
		}
		index[tok] = len(ranks)
		ranks = append(ranks, rank{token: tok, count: 1, first: i})
	}

	// Insertion sort keeps equal counts in first-occurrence order.
	for i := 1; i < len(ranks); i++ {
		for j := i; j > 0 && ranks[j].count > ranks[j-1].count; j-- {
			ranks[j], ranks[j-1] = ranks[j-1], ranks[j]
		}
	}

	if len(ranks) > MaxTags {
		ranks = ranks[:MaxTags]
	}

	var tags []string
	for _, r := range ranks {
		if tag, ok := g.table[r.token]; ok {
			tags = append(tags, tag)
		}
	}
	return tags
}

// Tokenize lowercases text, removes every rune that is neither a letter,
// a digit nor whitespace, and splits on whitespace.
func Tokenize(text string) []string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Fields(b.String())
}
