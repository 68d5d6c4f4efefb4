package news

import "strings"

// Rules is a pair of keyword sets matched as case-insensitive substrings.
// Include needs at least one hit (an empty set accepts everything);
// Exclude vetoes on any hit.
type Rules struct {
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// Filter applies Rules to candidate text.
type Filter struct {
	include []string
	exclude []string
}

// NewFilter lowercases and trims the rule keywords once. Blank keywords
// are dropped so they cannot match everything.
func NewFilter(rules Rules) *Filter {
	return &Filter{
		include: normalizeKeywords(rules.Include),
		exclude: normalizeKeywords(rules.Exclude),
	}
}

// Accepts reports whether text passes the rules. Exclusion always wins.
func (f *Filter) Accepts(text string) bool {
	lower := strings.ToLower(text)

	for _, k := range f.exclude {
		if strings.Contains(lower, k) {
			return false
		}
	}

	if len(f.include) == 0 {
		return true
	}
	for _, k := range f.include {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// Apply keeps the accepted candidates in their original order.
func (f *Filter) Apply(cands []Candidate) []Candidate {
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if f.Accepts(c.Text) {
			out = append(out, c)
		}
	}
	return out
}

func normalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		out = append(out, k)
	}
	return out
}
