// Package search reads recent posts matching a keyword from the X API v2
// recent-search endpoint.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/deusflow/techposter/internal/news"
)

// SourceName identifies search candidates.
const SourceName = "search"

// The endpoint accepts max_results in [10, 100].
const (
	minResults = 10
	maxResults = 100
)

// Source queries recent posts for a keyword.
type Source struct {
	baseURL     string
	bearerToken string
	query       string
	maxResults  int
	client      *http.Client
	logger      *slog.Logger
}

// NewSource builds a search Source. The query is sent as
// "<keyword> -is:retweet lang:en".
func NewSource(baseURL, bearerToken, keyword string, max int, timeout time.Duration, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		baseURL:     strings.TrimRight(baseURL, "/"),
		bearerToken: bearerToken,
		query:       BuildQuery(keyword),
		maxResults:  clampResults(max),
		client:      &http.Client{Timeout: timeout},
		logger:      logger.With("component", "source", "source", SourceName),
	}
}

func (s *Source) Name() string { return SourceName }

type searchResponse struct {
	Data []struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
	Meta struct {
		ResultCount int `json:"result_count"`
	} `json:"meta"`
}

// Fetch runs one bounded search page. Failures are logged and yield no
// candidates.
func (s *Source) Fetch(ctx context.Context) []news.Candidate {
	if s.query == "" {
		return nil
	}

	resp, err := s.search(ctx)
	if err != nil {
		s.logger.Warn("search failed", "query", s.query, "error", err)
		return nil
	}

	out := make([]news.Candidate, 0, len(resp.Data))
	for _, d := range resp.Data {
		text := strings.TrimSpace(d.Text)
		if text == "" {
			continue
		}
		out = append(out, news.Candidate{
			Text:   text,
			Link:   "https://x.com/i/web/status/" + d.ID,
			Source: SourceName,
		})
	}

	s.logger.Info("search done", "query", s.query, "candidates", len(out))
	return out
}

func (s *Source) search(ctx context.Context) (*searchResponse, error) {
	params := url.Values{}
	params.Set("query", s.query)
	params.Set("max_results", strconv.Itoa(s.maxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.baseURL+"/2/tweets/search/recent?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.bearerToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("search API error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// BuildQuery turns a keyword into the recent-search query.
func BuildQuery(keyword string) string {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return ""
	}
	return keyword + " -is:retweet lang:en"
}

func clampResults(n int) int {
	if n < minResults {
		return minResults
	}
	if n > maxResults {
		return maxResults
	}
	return n
}
