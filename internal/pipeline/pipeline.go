package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/deusflow/techposter/internal/hashtag"
	"github.com/deusflow/techposter/internal/news"
	"github.com/deusflow/techposter/internal/publisher"
	"github.com/deusflow/techposter/internal/summarize"
	"github.com/deusflow/techposter/internal/tweet"
	"github.com/deusflow/techposter/internal/twitter"
)

// EnrichMode selects how the picked candidate is turned into a post.
type EnrichMode string

const (
	EnrichHashtags EnrichMode = "hashtags"
	EnrichSummary  EnrichMode = "summary"
	EnrichNone     EnrichMode = "none"
)

// RunOutcome is how a run ended.
type RunOutcome string

const (
	OutcomePublished RunOutcome = "published"
	OutcomeDryRun    RunOutcome = "dry_run"
	OutcomeSkipped   RunOutcome = "skipped"
	OutcomeFailed    RunOutcome = "failed"
	OutcomeCancelled RunOutcome = "cancelled"
	OutcomeBusy      RunOutcome = "busy"
)

// Publisher sends a composed post.
type Publisher interface {
	Publish(ctx context.Context, text string) (publisher.Result, error)
}

// History is the posted list consulted before and updated after a post.
type History interface {
	news.Lookup
	Record(ctx context.Context, text, post string) error
}

// Recorder receives run metrics. metrics.Metrics implements it.
type Recorder interface {
	SourceObserver
	Published()
	PublishFailed(reason string)
	RunFinished(outcome string, duration time.Duration, err error)
}

// Deps are the collaborators of a Pipeline. Summarizer is only used in
// summary mode and Recorder may be nil.
type Deps struct {
	Chain      *Chain
	Hashtags   *hashtag.Generator
	Summarizer summarize.Summarizer
	Publisher  Publisher
	History    History
	Recorder   Recorder
}

type Options struct {
	Enrich EnrichMode
	DryRun bool
	Emojis []string
	// Pick returns an index in [0, n). Defaults to a uniform random pick.
	Pick func(n int) int
}

// Report describes one run. Err is set for failed, skipped and
// cancelled runs.
type Report struct {
	Outcome   RunOutcome    `json:"outcome"`
	Source    string        `json:"source,omitempty"`
	Candidate string        `json:"candidate,omitempty"`
	Text      string        `json:"text,omitempty"`
	PostID    string        `json:"post_id,omitempty"`
	Attempts  int           `json:"attempts,omitempty"`
	Evergreen bool          `json:"evergreen,omitempty"`
	Duration  time.Duration `json:"duration"`
	Err       error         `json:"-"`
}

type Pipeline struct {
	deps    Deps
	opts    Options
	logger  *slog.Logger
	running atomic.Bool
}

func New(deps Deps, opts Options, logger *slog.Logger) *Pipeline {
	if opts.Enrich == "" {
		opts.Enrich = EnrichHashtags
	}
	if opts.Pick == nil {
		opts.Pick = rand.IntN
	}
	if deps.Hashtags == nil {
		deps.Hashtags = hashtag.NewGenerator(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		deps:   deps,
		opts:   opts,
		logger: logger.With("component", "pipeline"),
	}
}

// Running reports whether a run is in progress.
func (p *Pipeline) Running() bool {
	return p.running.Load()
}

// RunOnce performs one full cycle. It never returns an error; overlapping
// calls return OutcomeBusy immediately.
func (p *Pipeline) RunOnce(ctx context.Context) Report {
	if !p.running.CompareAndSwap(false, true) {
		p.logger.Warn("run already in progress, skipping")
		return Report{Outcome: OutcomeBusy}
	}
	defer p.running.Store(false)

	start := time.Now()
	report := p.run(ctx)
	report.Duration = time.Since(start)

	if p.deps.Recorder != nil {
		p.deps.Recorder.RunFinished(string(report.Outcome), report.Duration, report.Err)
	}

	attrs := []any{"outcome", report.Outcome, "source", report.Source, "duration", report.Duration}
	if report.Err != nil {
		p.logger.Warn("run finished", append(attrs, "error", report.Err)...)
	} else {
		p.logger.Info("run finished", attrs...)
	}
	return report
}

func (p *Pipeline) run(ctx context.Context) Report {
	sel := p.deps.Chain.Next(ctx, p.deps.History)
	if err := ctx.Err(); err != nil {
		return Report{Outcome: OutcomeCancelled, Err: err}
	}

	picked := sel.Candidates[p.pick(len(sel.Candidates))]
	report := Report{
		Source:    sel.Source,
		Candidate: picked.Text,
		Evergreen: sel.Outcome == Exhausted,
	}
	p.logger.Info("candidate picked", "source", sel.Source, "pool", len(sel.Candidates), "text", picked.Text)

	text, err := p.compose(ctx, picked, report.Evergreen)
	if err != nil {
		p.logger.Warn("can't compose post", "error", err)
		report.Outcome = OutcomeSkipped
		report.Err = err
		return report
	}
	report.Text = text

	if p.opts.DryRun {
		p.logger.Info("[DRY RUN] post content", "text", text, "chars", tweet.Length(text))
		report.Outcome = OutcomeDryRun
		return report
	}

	res, err := p.deps.Publisher.Publish(ctx, text)
	report.Attempts = res.Attempts
	if err != nil {
		if p.deps.Recorder != nil {
			p.deps.Recorder.PublishFailed(failureReason(err))
		}
		if errors.Is(err, twitter.ErrDuplicate) && !report.Evergreen {
			// Already on the timeline; remember it so it is not picked again.
			p.record(ctx, picked.Text, text)
		}
		report.Outcome = OutcomeFailed
		report.Err = err
		return report
	}

	if p.deps.Recorder != nil {
		p.deps.Recorder.Published()
	}
	report.Outcome = OutcomePublished
	report.PostID = res.ID

	if !report.Evergreen {
		p.record(ctx, picked.Text, text)
	}
	return report
}

// record persists a posted candidate. The post is already out, so a
// shutdown in progress must not stop the write and a failed write does
// not fail the run.
func (p *Pipeline) record(ctx context.Context, candidate, post string) {
	if err := p.deps.History.Record(context.WithoutCancel(ctx), candidate, post); err != nil {
		p.logger.Error("failed to save history", "error", err)
	}
}

func (p *Pipeline) compose(ctx context.Context, c news.Candidate, evergreen bool) (string, error) {
	switch p.opts.Enrich {
	case EnrichNone:
		return tweet.Compose(c.Text, nil, "")
	case EnrichSummary:
		if evergreen || p.deps.Summarizer == nil {
			return tweet.Compose(c.Text, nil, "")
		}
		text, err := p.deps.Summarizer.Summarize(ctx, c.Text)
		if err != nil || text == "" {
			p.logger.Warn("summary failed, using fallback text", "error", err)
			text = summarize.FallbackText
		}
		return tweet.Compose(text, nil, "")
	default:
		return tweet.Compose(c.Text, p.deps.Hashtags.For(c.Text), p.emoji())
	}
}

func (p *Pipeline) emoji() string {
	if len(p.opts.Emojis) == 0 {
		return ""
	}
	return p.opts.Emojis[p.pick(len(p.opts.Emojis))]
}

func (p *Pipeline) pick(n int) int {
	if n <= 1 {
		return 0
	}
	i := p.opts.Pick(n)
	if i < 0 || i >= n {
		return 0
	}
	return i
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, twitter.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, twitter.ErrDuplicate):
		return "duplicate"
	case errors.Is(err, twitter.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
