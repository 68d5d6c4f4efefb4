package news

// Lookup is the read side of the post history.
type Lookup interface {
	Contains(text string) bool
}

// Unseen returns the candidates whose exact text is not in history,
// preserving order. A text repeated within the batch is kept once, at its
// first position. Matching is byte-exact: near-duplicate headlines from
// different sources count as distinct.
func Unseen(cands []Candidate, history Lookup) []Candidate {
	seen := make(map[string]struct{}, len(cands))
	out := make([]Candidate, 0, len(cands))

	for _, c := range cands {
		if _, dup := seen[c.Text]; dup {
			continue
		}
		seen[c.Text] = struct{}{}

		if history != nil && history.Contains(c.Text) {
			continue
		}
		out = append(out, c)
	}
	return out
}
