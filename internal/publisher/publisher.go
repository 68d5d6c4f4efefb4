// Package publisher sends the composed post to the social network,
// retrying only when the remote side is throttling.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/deusflow/techposter/internal/retry"
	"github.com/deusflow/techposter/internal/twitter"
)

// Poster performs one posting call.
type Poster interface {
	Post(ctx context.Context, text string) (string, error)
}

// Observer receives retry notifications. metrics.Metrics implements it.
type Observer interface {
	RateLimitRetry()
}

// Config bounds the retry loop.
type Config struct {
	MaxAttempts    int
	Backoff        retry.Backoff
	Sleep          retry.Sleeper
	AttemptTimeout time.Duration
}

// Result describes a successful publish.
type Result struct {
	Text     string
	ID       string
	Attempts int
}

// Publisher wraps a Poster with the rate-limit retry policy.
type Publisher struct {
	poster   Poster
	cfg      Config
	observer Observer
	logger   *slog.Logger
}

// New builds a Publisher. A zero MaxAttempts means a single attempt.
func New(poster Poster, cfg Config, observer Observer, logger *slog.Logger) *Publisher {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Backoff == nil {
		cfg.Backoff = retry.Exponential(30 * time.Second)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		poster:   poster,
		cfg:      cfg,
		observer: observer,
		logger:   logger.With("component", "publisher"),
	}
}

// Publish posts text. Rate-limit errors are retried with backoff up to
// MaxAttempts; any other error aborts at once. On success the returned
// Result holds the text actually posted.
func (p *Publisher) Publish(ctx context.Context, text string) (Result, error) {
	var id string

	attempts, err := retry.WithRetry(ctx, retry.RetryConfig{
		MaxAttempts: p.cfg.MaxAttempts,
		Backoff:     p.cfg.Backoff,
		Sleep:       p.cfg.Sleep,
		Retryable:   twitter.IsRateLimited,
		OnRetry: func(attempt int, wait time.Duration, err error) {
			p.logger.Warn("rate limited, backing off",
				"attempt", attempt, "max_attempts", p.cfg.MaxAttempts, "wait", wait, "error", err)
			if p.observer != nil {
				p.observer.RateLimitRetry()
			}
		},
	}, func(ctx context.Context) error {
		if p.cfg.AttemptTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, p.cfg.AttemptTimeout)
			defer cancel()
		}
		var err error
		id, err = p.poster.Post(ctx, text)
		return err
	})

	if err != nil {
		if twitter.IsRateLimited(err) {
			p.logger.Error("giving up after rate limiting", "attempts", attempts, "error", err)
		} else {
			p.logger.Error("publish failed, not retrying", "attempts", attempts, "error", err)
		}
		return Result{Attempts: attempts}, fmt.Errorf("publish: %w", err)
	}

	p.logger.Info("post published", "id", id, "attempts", attempts, "chars", len([]rune(text)))
	return Result{Text: text, ID: id, Attempts: attempts}, nil
}
