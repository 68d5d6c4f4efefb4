package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/deusflow/techposter/internal/news"
)

// SourceName identifies scraped candidates.
const SourceName = "scrape"

// DefaultLimit bounds headlines taken per page.
const DefaultLimit = 10

// Page is one news page to scrape. An empty Selector falls back to the
// generic headline selectors.
type Page struct {
	URL      string `yaml:"url"`
	Selector string `yaml:"selector"`
}

// genericSelectors are tried in order until one yields headlines.
var genericSelectors = []string{
	"article h2",
	".headline",
	".entry-title",
	"h2",
	"h3",
	"h1",
}

// Source scrapes headline-like elements from news pages.
type Source struct {
	pages     []Page
	limit     int
	userAgent string
	client    *http.Client
	logger    *slog.Logger
}

// NewSource builds a scrape Source. limit <= 0 uses DefaultLimit.
func NewSource(pages []Page, limit int, timeout time.Duration, userAgent string, logger *slog.Logger) *Source {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		pages:     pages,
		limit:     limit,
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
		logger:    logger.With("component", "source", "source", SourceName),
	}
}

func (s *Source) Name() string { return SourceName }

// Fetch scrapes every page in order; a page that cannot be loaded or
// parsed is logged and skipped.
func (s *Source) Fetch(ctx context.Context) []news.Candidate {
	var out []news.Candidate

	for _, page := range s.pages {
		headlines, err := s.scrapePage(ctx, page)
		if err != nil {
			s.logger.Warn("can't scrape page", "url", page.URL, "error", err)
			continue
		}
		for _, h := range headlines {
			out = append(out, news.Candidate{Text: h, Link: page.URL, Source: SourceName})
		}
		s.logger.Debug("scraped page", "url", page.URL, "headlines", len(headlines))
	}

	s.logger.Info("processed pages", "pages", len(s.pages), "candidates", len(out))
	return out
}

func (s *Source) scrapePage(ctx context.Context, page Page) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, page.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error loading page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error parsing HTML: %w", err)
	}

	return ExtractHeadlines(doc, page.Selector, s.limit), nil
}

// ExtractHeadlines returns the first limit distinct, non-empty texts of
// the elements matched by selector, in document order. With an empty
// selector the generic selectors are tried until one matches.
func ExtractHeadlines(doc *goquery.Document, selector string, limit int) []string {
	if selector != "" {
		return collect(doc, selector, limit)
	}
	for _, sel := range genericSelectors {
		if headlines := collect(doc, sel, limit); len(headlines) > 0 {
			return headlines
		}
	}
	return nil
}

func collect(doc *goquery.Document, selector string, limit int) []string {
	seen := map[string]struct{}{}
	var headlines []string

	doc.Find(selector).EachWithBreak(func(i int, sel *goquery.Selection) bool {
		text := strings.Join(strings.Fields(sel.Text()), " ")
		if text == "" {
			return true
		}
		if _, dup := seen[text]; dup {
			return true
		}
		seen[text] = struct{}{}
		headlines = append(headlines, text)
		return limit <= 0 || len(headlines) < limit
	})

	return headlines
}
