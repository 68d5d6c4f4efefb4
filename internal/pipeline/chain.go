// Package pipeline runs one acquisition → filter → dedupe → enrich →
// publish cycle.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/deusflow/techposter/internal/news"
)

// SourceFeed is one acquisition channel. Fetch never fails: errors are
// logged by the source and yield an empty slice.
type SourceFeed interface {
	Name() string
	Fetch(ctx context.Context) []news.Candidate
}

// EvergreenSource marks the placeholder candidate used when every
// source is exhausted.
const EvergreenSource = "evergreen"

// Outcome is the terminal state of Chain.Next.
type Outcome int

const (
	// Found means a source produced at least one usable candidate.
	Found Outcome = iota
	// Exhausted means no source did; the selection holds the evergreen
	// candidate.
	Exhausted
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Selection is the result of walking the chain. Candidates is never empty.
type Selection struct {
	Outcome    Outcome
	Source     string
	Candidates []news.Candidate
}

// SourceObserver receives per-source counts.
type SourceObserver interface {
	SourceResult(source string, fetched, accepted, fresh int)
	EvergreenUsed()
}

// Chain tries sources in priority order and moves on only when a source
// has nothing usable left after filtering and deduplication.
type Chain struct {
	sources   []SourceFeed
	filter    *news.Filter
	evergreen string
	observer  SourceObserver
	logger    *slog.Logger
}

func NewChain(sources []SourceFeed, filter *news.Filter, evergreen string, observer SourceObserver, logger *slog.Logger) *Chain {
	if filter == nil {
		filter = news.NewFilter(news.Rules{})
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{
		sources:   sources,
		filter:    filter,
		evergreen: evergreen,
		observer:  observer,
		logger:    logger.With("component", "chain"),
	}
}

// Next walks the sources. The evergreen candidate is not checked
// against history.
func (c *Chain) Next(ctx context.Context, history news.Lookup) Selection {
	for _, src := range c.sources {
		if ctx.Err() != nil {
			break
		}

		fetched := src.Fetch(ctx)
		accepted := c.filter.Apply(fetched)
		fresh := news.Unseen(accepted, history)

		c.logger.Info("source tried",
			"source", src.Name(),
			"fetched", len(fetched),
			"accepted", len(accepted),
			"fresh", len(fresh))
		if c.observer != nil {
			c.observer.SourceResult(src.Name(), len(fetched), len(accepted), len(fresh))
		}

		if len(fresh) > 0 {
			return Selection{Outcome: Found, Source: src.Name(), Candidates: fresh}
		}
	}

	c.logger.Warn("all sources exhausted, using evergreen text")
	if c.observer != nil && ctx.Err() == nil {
		c.observer.EvergreenUsed()
	}
	return Selection{
		Outcome: Exhausted,
		Source:  EvergreenSource,
		Candidates: []news.Candidate{
			{Text: c.evergreen, Source: EvergreenSource},
		},
	}
}
