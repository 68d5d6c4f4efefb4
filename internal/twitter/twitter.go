// Package twitter talks to the X API v2 posting endpoint.
package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dghubble/oauth1"
)

// DefaultBaseURL is the X API host.
const DefaultBaseURL = "https://api.twitter.com"

var (
	// ErrRateLimited marks a 429 response: the only retryable outcome.
	ErrRateLimited = errors.New("twitter: rate limited")
	// ErrUnauthorized marks rejected credentials.
	ErrUnauthorized = errors.New("twitter: unauthorized")
	// ErrDuplicate marks a post rejected as duplicate content.
	ErrDuplicate = errors.New("twitter: duplicate content")
)

// APIError carries the status and body of a failed call. It matches the
// sentinel errors above through errors.Is.
type APIError struct {
	StatusCode int
	Body       string
	kind       error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("twitter API error: status %d: %s", e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error { return e.kind }

// Credentials is the OAuth1 user-context credential set.
type Credentials struct {
	APIKey            string
	APISecretKey      string
	AccessToken       string
	AccessTokenSecret string
}

// Client posts tweets. The zero value is not usable; use NewClient.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient builds a Client whose requests are OAuth1-signed and bounded
// by timeout.
func NewClient(creds Credentials, baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}

	config := oauth1.NewConfig(creds.APIKey, creds.APISecretKey)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessTokenSecret)

	httpClient := config.Client(context.Background(), token)
	httpClient.Timeout = timeout

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger.With("component", "twitter"),
	}
}

type createTweetRequest struct {
	Text string `json:"text"`
}

type createTweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

// Post creates a tweet and returns its id.
func (c *Client) Post(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(createTweetRequest{Text: text})
	if err != nil {
		return "", fmt.Errorf("encode tweet: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/2/tweets", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build tweet request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("post tweet: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Warn("failed to close response body", "error", err)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", classify(resp.StatusCode, raw)
	}

	var out createTweetResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		// The post went through; an unreadable body is not a failure.
		c.logger.Warn("could not decode tweet response", "error", err)
		return "", nil
	}
	return out.Data.ID, nil
}

func classify(status int, body []byte) error {
	e := &APIError{StatusCode: status, Body: strings.TrimSpace(string(body))}

	switch {
	case status == http.StatusTooManyRequests:
		e.kind = ErrRateLimited
	case status == http.StatusForbidden && strings.Contains(strings.ToLower(e.Body), "duplicate"):
		e.kind = ErrDuplicate
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.kind = ErrUnauthorized
	}
	return e
}

// IsRateLimited reports whether err is a rate-limit rejection.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
