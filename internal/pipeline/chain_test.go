package pipeline

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/deusflow/techposter/internal/logger"
	"github.com/deusflow/techposter/internal/metrics"
	"github.com/deusflow/techposter/internal/news"
)

type fakeSource struct {
	name  string
	texts []string
	calls int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(ctx context.Context) []news.Candidate {
	f.calls++
	out := make([]news.Candidate, 0, len(f.texts))
	for _, t := range f.texts {
		out = append(out, news.Candidate{Text: t, Source: f.name})
	}
	return out
}

type memHistory map[string]string

func (h memHistory) Contains(text string) bool {
	_, ok := h[text]
	return ok
}

func (h memHistory) Record(ctx context.Context, text, post string) error {
	h[text] = post
	return nil
}

var testRules = news.Rules{
	Include: []string{"technology", "AI"},
	Exclude: []string{"war", "military"},
}

func TestChain_FirstSourceWithFreshCandidatesWins(t *testing.T) {
	search := &fakeSource{name: "search", texts: []string{"AI is everywhere"}}
	rss := &fakeSource{name: "rss", texts: []string{"technology weekly"}}

	c := NewChain([]SourceFeed{search, rss}, news.NewFilter(testRules), "evergreen", nil, logger.Discard())
	sel := c.Next(context.Background(), memHistory{})

	assert.Equal(t, Found, sel.Outcome)
	assert.Equal(t, "search", sel.Source)
	assert.Equal(t, []string{"AI is everywhere"}, news.Texts(sel.Candidates))
	assert.Equal(t, 0, rss.calls)
}

func TestChain_AdvancesWhenFilteredOrSeen(t *testing.T) {
	search := &fakeSource{name: "search", texts: []string{"military AI drones", "cooking tips"}}
	scrape := &fakeSource{name: "scrape", texts: []string{"AI headline"}}
	rss := &fakeSource{name: "rss", texts: []string{"AI headline", "New technology X", "New technology X"}}

	m := metrics.New()
	c := NewChain([]SourceFeed{search, scrape, rss}, news.NewFilter(testRules), "evergreen", m, logger.Discard())
	sel := c.Next(context.Background(), memHistory{"AI headline": ""})

	assert.Equal(t, Found, sel.Outcome)
	assert.Equal(t, "rss", sel.Source)
	assert.Equal(t, []string{"New technology X"}, news.Texts(sel.Candidates))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CandidatesRejected.WithLabelValues("search")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DuplicatesFiltered.WithLabelValues("scrape")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DuplicatesFiltered.WithLabelValues("rss")))
}

func TestChain_ExhaustedYieldsEvergreen(t *testing.T) {
	empty := &fakeSource{name: "search"}
	rejected := &fakeSource{name: "rss", texts: []string{"war news"}}

	m := metrics.New()
	c := NewChain([]SourceFeed{empty, rejected}, news.NewFilter(testRules), "Stay curious", m, logger.Discard())
	sel := c.Next(context.Background(), memHistory{})

	assert.Equal(t, Exhausted, sel.Outcome)
	assert.Equal(t, EvergreenSource, sel.Source)
	assert.Equal(t, []string{"Stay curious"}, news.Texts(sel.Candidates))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EvergreenFallbacks))
}

func TestChain_NoSources(t *testing.T) {
	c := NewChain(nil, nil, "Stay curious", nil, logger.Discard())
	sel := c.Next(context.Background(), nil)
	assert.Equal(t, Exhausted, sel.Outcome)
	assert.Len(t, sel.Candidates, 1)
}

func TestChain_CancelledContextStopsWalking(t *testing.T) {
	src := &fakeSource{name: "search", texts: []string{"AI"}}
	c := NewChain([]SourceFeed{src}, nil, "Stay curious", nil, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sel := c.Next(ctx, nil)

	assert.Equal(t, Exhausted, sel.Outcome)
	assert.Equal(t, 0, src.calls)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "found", Found.String())
	assert.Equal(t, "exhausted", Exhausted.String())
}
