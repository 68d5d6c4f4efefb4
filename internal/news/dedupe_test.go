package news

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type historySet map[string]bool

func (h historySet) Contains(text string) bool { return h[text] }

func TestUnseen_DropsHistoryMatches(t *testing.T) {
	history := historySet{"AI breakthrough in robotics http://x": true}

	got := Unseen([]Candidate{{Text: "AI breakthrough in robotics http://x"}}, history)
	assert.Empty(t, got)
}

func TestUnseen_IsOrderedSubsequence(t *testing.T) {
	history := historySet{"b": true, "d": true}
	in := []Candidate{{Text: "a"}, {Text: "b"}, {Text: "c"}, {Text: "d"}, {Text: "e"}}

	got := Unseen(in, history)
	assert.Equal(t, []string{"a", "c", "e"}, Texts(got))

	// Subsequence: every output element appears in the input in the same
	// relative order, and none is in history.
	i := 0
	for _, c := range got {
		for i < len(in) && in[i].Text != c.Text {
			i++
		}
		assert.Less(t, i, len(in), "%q not found in order", c.Text)
		assert.False(t, history.Contains(c.Text))
	}
}

func TestUnseen_ExactMatchOnly(t *testing.T) {
	history := historySet{"AI breakthrough in robotics": true}

	got := Unseen([]Candidate{
		{Text: "AI breakthrough in robotics."},
		{Text: "ai breakthrough in robotics"},
	}, history)

	assert.Len(t, got, 2)
}

func TestUnseen_CollapsesRepeatsWithinBatch(t *testing.T) {
	got := Unseen([]Candidate{
		{Text: "same", Source: "rss"},
		{Text: "other"},
		{Text: "same", Source: "scrape"},
	}, nil)

	assert.Equal(t, []string{"same", "other"}, Texts(got))
	assert.Equal(t, "rss", got[0].Source)
}
