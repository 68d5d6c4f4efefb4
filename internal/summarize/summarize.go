// Package summarize turns a topic into a short post using an AI provider.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/deusflow/techposter/internal/cache"
	"github.com/deusflow/techposter/internal/ratelimit"
)

const promptTemplate = "Summarize this tech topic into a fun, engaging tweet with emojis and hashtags under 250 characters: %s"

// FallbackText is used whenever no summary can be generated.
const FallbackText = "Exploring the latest in tech today! 🚀 #Tech #Innovation"

// DefaultTimeout bounds one provider call.
const DefaultTimeout = 30 * time.Second

// ErrEmptyResponse is returned when the provider answers without text.
var ErrEmptyResponse = errors.New("empty response from AI provider")

// Summarizer produces post text for a topic.
type Summarizer interface {
	Summarize(ctx context.Context, topic string) (string, error)
}

// Prompt builds the provider prompt for topic.
func Prompt(topic string) string {
	return fmt.Sprintf(promptTemplate, topic)
}

// Observer is notified when the fallback text is used.
type Observer interface {
	SummaryFallback()
}

// Options configure Guarded.
type Options struct {
	Cache    *cache.Cache
	Budget   *ratelimit.Budget
	Timeout  time.Duration
	Fallback string
	Observer Observer
}

// Guarded wraps a provider with a summary cache, a request budget, a
// per-call timeout and a fallback text. It never returns an error.
type Guarded struct {
	next   Summarizer
	opts   Options
	logger *slog.Logger
}

// WithFallback wraps next. Zero options disable the cache and the budget
// and use DefaultTimeout and FallbackText.
func WithFallback(next Summarizer, opts Options, logger *slog.Logger) *Guarded {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Fallback == "" {
		opts.Fallback = FallbackText
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Guarded{
		next:   next,
		opts:   opts,
		logger: logger.With("component", "summarizer"),
	}
}

func (g *Guarded) Summarize(ctx context.Context, topic string) (string, error) {
	key := cache.Key(topic)
	if g.opts.Cache != nil {
		if text, ok := g.opts.Cache.Get(key); ok {
			g.logger.Debug("summary cache hit")
			if g.opts.Budget != nil {
				g.opts.Budget.RecordCacheHit()
			}
			return text, nil
		}
	}

	if g.opts.Budget != nil {
		if err := g.opts.Budget.Use(); err != nil {
			return g.fallback(err), nil
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	text, err := g.next.Summarize(callCtx, topic)
	if err == nil {
		text = Sanitize(text)
		if text == "" {
			err = ErrEmptyResponse
		}
	}
	if err != nil {
		return g.fallback(err), nil
	}

	if g.opts.Cache != nil {
		g.opts.Cache.Set(key, text)
	}
	return text, nil
}

func (g *Guarded) fallback(err error) string {
	g.logger.Warn("summary failed, using fallback text", "error", err)
	if g.opts.Observer != nil {
		g.opts.Observer.SummaryFallback()
	}
	return g.opts.Fallback
}
