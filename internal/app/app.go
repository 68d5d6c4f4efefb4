// Package app wires configuration into a running bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/deusflow/techposter/internal/api"
	"github.com/deusflow/techposter/internal/cache"
	"github.com/deusflow/techposter/internal/config"
	"github.com/deusflow/techposter/internal/gemini"
	"github.com/deusflow/techposter/internal/hashtag"
	"github.com/deusflow/techposter/internal/metrics"
	"github.com/deusflow/techposter/internal/news"
	"github.com/deusflow/techposter/internal/pipeline"
	"github.com/deusflow/techposter/internal/publisher"
	"github.com/deusflow/techposter/internal/ratelimit"
	"github.com/deusflow/techposter/internal/retry"
	"github.com/deusflow/techposter/internal/rss"
	"github.com/deusflow/techposter/internal/scheduler"
	"github.com/deusflow/techposter/internal/scraper"
	"github.com/deusflow/techposter/internal/search"
	"github.com/deusflow/techposter/internal/summarize"
	"github.com/deusflow/techposter/internal/twitter"
)

const cacheCleanupInterval = time.Hour

// ErrRunFailed is returned by Run in once mode when the cycle failed.
var ErrRunFailed = errors.New("run failed")

type App struct {
	cfg    *config.Config
	logger *slog.Logger

	metrics   *metrics.Metrics
	budget    *ratelimit.Budget
	summaries *cache.Cache
	history   historyBackend
	pipeline  *pipeline.Pipeline
	scheduler *scheduler.Scheduler

	closers []func() error
}

// New builds every component. Close releases what New opened.
func New(ctx context.Context, cfg *config.Config, pcfg config.Pipeline, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{
		cfg:     cfg,
		logger:  logger.With("component", "app"),
		metrics: metrics.New(),
	}

	history, err := openHistory(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	a.history = history
	a.closers = append(a.closers, history.Close)

	sources, err := buildSources(cfg, pcfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	summarizer, err := a.buildSummarizer(ctx, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	poster := twitter.NewClient(twitter.Credentials{
		APIKey:            cfg.APIKey,
		APISecretKey:      cfg.APISecretKey,
		AccessToken:       cfg.AccessToken,
		AccessTokenSecret: cfg.AccessTokenSecret,
	}, cfg.XAPIBaseURL, cfg.PublishTimeout, logger)

	pub := publisher.New(poster, publisher.Config{
		MaxAttempts:    cfg.RetryAttempts,
		Backoff:        backoff(cfg),
		AttemptTimeout: cfg.PublishTimeout,
	}, a.metrics, logger)

	chain := pipeline.NewChain(sources, news.NewFilter(pcfg.Rules), pcfg.Evergreen, a.metrics, logger)

	a.pipeline = pipeline.New(pipeline.Deps{
		Chain:      chain,
		Hashtags:   hashtag.NewGenerator(pcfg.Hashtags),
		Summarizer: summarizer,
		Publisher:  pub,
		History:    history,
		Recorder:   a.metrics,
	}, pipeline.Options{
		Enrich: pipeline.EnrichMode(cfg.Enrich),
		DryRun: cfg.DryRun,
		Emojis: pcfg.Emojis,
	}, logger)

	a.scheduler = scheduler.New(a.pipeline, cfg.Interval, logger)

	a.logger.Info("app initialized",
		"sources", len(sources),
		"enrich", cfg.Enrich,
		"dry_run", cfg.DryRun,
		"history_entries", history.Len(),
	)
	return a, nil
}

// Run executes a single cycle in once mode, otherwise schedules runs
// and serves the monitoring API until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a.summaries != nil {
		a.summaries.StartCleanup(ctx, cacheCleanupInterval)
	}

	if a.cfg.Once {
		report := a.pipeline.RunOnce(ctx)
		if report.Outcome == pipeline.OutcomeFailed {
			return fmt.Errorf("%w: %w", ErrRunFailed, report.Err)
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.scheduler.Start(gctx)
		return nil
	})

	if a.cfg.MonitoringAddr != "" {
		handler := api.NewHandler(a.pipeline, a.metrics, a.budget, a.history, a.scheduler, a.logger)
		engine := api.NewServer(handler, a.cfg.APIAccessKey, a.logger)
		g.Go(func() error {
			return api.ListenAndServe(gctx, a.cfg.MonitoringAddr, engine, a.logger)
		})
	}

	return g.Wait()
}

// Close releases resources in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// buildSummarizer returns nil unless summaries are enabled.
func (a *App) buildSummarizer(ctx context.Context, logger *slog.Logger) (summarize.Summarizer, error) {
	if a.cfg.Enrich != config.EnrichSummary {
		return nil, nil
	}

	var provider summarize.Summarizer
	switch a.cfg.Summarizer {
	case config.SummarizerGemini:
		client, err := gemini.NewClient(ctx, a.cfg.GeminiAPIKey, a.cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		provider = client
	default:
		provider = summarize.NewOpenAI(a.cfg.OpenAIAPIKey, a.cfg.OpenAIBaseURL, a.cfg.OpenAIModel)
	}

	a.summaries = cache.New(a.cfg.SummaryTTL)
	a.budget = ratelimit.NewBudget(a.cfg.MaxAIRequests, logger)

	return summarize.WithFallback(provider, summarize.Options{
		Cache:    a.summaries,
		Budget:   a.budget,
		Observer: a.metrics,
	}, logger), nil
}

// buildSources creates the feeds in the configured order.
func buildSources(cfg *config.Config, pcfg config.Pipeline, logger *slog.Logger) ([]pipeline.SourceFeed, error) {
	sources := make([]pipeline.SourceFeed, 0, len(pcfg.Sources.Order))
	for _, name := range pcfg.Sources.Order {
		switch name {
		case config.SourceSearch:
			s := pcfg.Sources.Search
			sources = append(sources, search.NewSource(cfg.XAPIBaseURL, cfg.BearerToken, s.Keyword, s.MaxResults, cfg.FetchTimeout, logger))
		case config.SourceScrape:
			s := pcfg.Sources.Scrape
			sources = append(sources, scraper.NewSource(s.Pages, s.Limit, cfg.FetchTimeout, cfg.UserAgent, logger))
		case config.SourceRSS:
			s := pcfg.Sources.RSS
			sources = append(sources, rss.NewSource(s.Feeds, s.MaxItems, cfg.FetchTimeout, logger))
		default:
			return nil, fmt.Errorf("unknown source %q", name)
		}
	}
	return sources, nil
}

func backoff(cfg *config.Config) retry.Backoff {
	if cfg.RetryBackoff == config.BackoffFixed {
		return retry.Fixed(cfg.RetryDelay)
	}
	return retry.Exponential(cfg.RetryDelay)
}
