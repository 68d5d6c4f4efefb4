package rss

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/deusflow/techposter/internal/news"
)

// SourceName identifies RSS candidates.
const SourceName = "rss"

// Source reads a list of RSS/Atom feeds as one candidate source.
type Source struct {
	feeds    []string
	maxItems int
	timeout  time.Duration
	parser   *gofeed.Parser
	logger   *slog.Logger
}

// NewSource builds a Source over feeds. maxItems caps entries taken per
// feed (0 keeps all); timeout bounds each feed download.
func NewSource(feeds []string, maxItems int, timeout time.Duration, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}

	return &Source{
		feeds:    feeds,
		maxItems: maxItems,
		timeout:  timeout,
		parser:   parser,
		logger:   logger.With("component", "source", "source", SourceName),
	}
}

func (s *Source) Name() string { return SourceName }

// Fetch downloads and parses all feeds in order. A feed that fails is
// logged and skipped; Fetch itself never fails.
func (s *Source) Fetch(ctx context.Context) []news.Candidate {
	var out []news.Candidate
	successCount := 0

	for _, url := range s.feeds {
		items, err := s.fetchFeed(ctx, url)
		if err != nil {
			s.logger.Warn("error parsing RSS feed", "url", url, "error", err)
			continue
		}
		out = append(out, items...)
		successCount++
		s.logger.Debug("loaded feed", "url", url, "items", len(items))
	}

	s.logger.Info("processed RSS feeds", "ok", successCount, "total", len(s.feeds), "candidates", len(out))
	return out
}

func (s *Source) fetchFeed(ctx context.Context, url string) ([]news.Candidate, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	feed, err := s.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, err
	}

	var items []news.Candidate
	for _, entry := range feed.Items {
		if entry == nil || entry.Title == "" {
			continue
		}
		items = append(items, news.FromEntry(entry.Title, entry.Link, SourceName))
		if s.maxItems > 0 && len(items) >= s.maxItems {
			break
		}
	}
	return items, nil
}
