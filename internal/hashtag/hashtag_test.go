package hashtag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var testTable = Table{
	"ai":         "#AI",
	"robotics":   "#RoboticFuture",
	"technology": "#FutureTech",
	"coding":     "#CodeLife",
	"future":     "#TechFuture",
	"innovation": "#InnovateToday",
	"Developer":  "#TechCreators",
}

func TestTokenize(t *testing.T) {
	got := Tokenize("AI's new Robotics-lab: 2024 edition!")
	assert.Equal(t, []string{"ais", "new", "roboticslab", "2024", "edition"}, got)
}

func TestFor_RanksByFrequency(t *testing.T) {
	g := NewGenerator(testTable)

	got := g.For("robotics ai ai robotics ai technology")
	assert.Equal(t, []string{"#AI", "#RoboticFuture", "#FutureTech"}, got)
}

func TestFor_TiesBrokenByFirstOccurrence(t *testing.T) {
	g := NewGenerator(testTable)

	got := g.For("coding future ai")
	assert.Equal(t, []string{"#CodeLife", "#TechFuture", "#AI"}, got)
}

func TestFor_TopFiveBeforeMapping(t *testing.T) {
	g := NewGenerator(testTable)

	// Five unmapped tokens outrank "ai", which therefore never gets a slot.
	got := g.For("one one two two three three four four five five ai")
	assert.Empty(t, got)
}

func TestFor_AtMostFiveAndAllFromTable(t *testing.T) {
	g := NewGenerator(testTable)

	got := g.For("ai robotics technology coding future innovation developer ai")
	assert.LessOrEqual(t, len(got), MaxTags)

	values := map[string]bool{}
	for _, v := range testTable {
		values[v] = true
	}
	for _, tag := range got {
		assert.True(t, values[tag], "%s is not a table value", tag)
	}
}

func TestFor_Deterministic(t *testing.T) {
	g := NewGenerator(testTable)
	text := "Future of AI coding: developer tools, AI innovation and the future"

	first := g.For(text)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, g.For(text))
	}
}

func TestFor_CaseInsensitiveKeys(t *testing.T) {
	g := NewGenerator(testTable)

	assert.Equal(t, []string{"#TechCreators"}, g.For("DEVELOPER"))
}

func TestFor_EmptyText(t *testing.T) {
	g := NewGenerator(testTable)

	assert.Nil(t, g.For("  ...!!! "))
}
