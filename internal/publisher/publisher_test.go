package publisher

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/techposter/internal/logger"
	"github.com/deusflow/techposter/internal/retry"
	"github.com/deusflow/techposter/internal/twitter"
)

// scriptedPoster returns the queued errors in order, then succeeds.
type scriptedPoster struct {
	errs  []error
	calls int
	texts []string
}

func (s *scriptedPoster) Post(_ context.Context, text string) (string, error) {
	s.calls++
	s.texts = append(s.texts, text)
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return "", err
	}
	return "42", nil
}

type countingObserver struct{ retries int }

func (c *countingObserver) RateLimitRetry() { c.retries++ }

func rateLimited() error {
	return &twitter.APIError{StatusCode: http.StatusTooManyRequests}
}

func newTestPublisher(p Poster, obs Observer) *Publisher {
	return New(p, Config{
		MaxAttempts: 3,
		Backoff:     retry.Exponential(30 * time.Second),
		Sleep:       retry.NoSleep,
	}, obs, logger.Discard())
}

func TestPublish_RetriesRateLimitThenSucceeds(t *testing.T) {
	poster := &scriptedPoster{errs: []error{
		twitter.ErrRateLimited,
		twitter.ErrRateLimited,
	}}
	obs := &countingObserver{}

	res, err := newTestPublisher(poster, obs).Publish(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Text)
	assert.Equal(t, "42", res.ID)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 3, poster.calls)
	assert.Equal(t, 2, obs.retries)
}

func TestPublish_GivesUpAfterBound(t *testing.T) {
	poster := &scriptedPoster{errs: []error{rateLimited(), rateLimited(), rateLimited(), rateLimited()}}

	res, err := newTestPublisher(poster, nil).Publish(context.Background(), "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, twitter.ErrRateLimited)
	assert.Equal(t, 3, poster.calls)
	assert.Equal(t, 3, res.Attempts)
}

func TestPublish_NoRetryOnOtherErrors(t *testing.T) {
	for _, e := range []error{
		twitter.ErrUnauthorized,
		twitter.ErrDuplicate,
		errors.New("connection reset"),
	} {
		poster := &scriptedPoster{errs: []error{e}}

		_, err := newTestPublisher(poster, nil).Publish(context.Background(), "hello")
		require.Error(t, err)
		assert.ErrorIs(t, err, e)
		assert.Equal(t, 1, poster.calls, "error %v must not be retried", e)
	}
}

func TestPublish_BackoffScheduleIsExponential(t *testing.T) {
	var waits []time.Duration
	poster := &scriptedPoster{errs: []error{rateLimited(), rateLimited()}}

	p := New(poster, Config{
		MaxAttempts: 3,
		Backoff:     retry.Exponential(30 * time.Second),
		Sleep: func(_ context.Context, d time.Duration) error {
			waits = append(waits, d)
			return nil
		},
	}, nil, logger.Discard())

	_, err := p.Publish(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{30 * time.Second, 60 * time.Second}, waits)
}

func TestPublish_AttemptTimeoutApplied(t *testing.T) {
	var deadlineSet bool
	poster := posterFunc(func(ctx context.Context, _ string) (string, error) {
		_, deadlineSet = ctx.Deadline()
		return "1", nil
	})

	p := New(poster, Config{MaxAttempts: 1, AttemptTimeout: time.Second}, nil, logger.Discard())
	_, err := p.Publish(context.Background(), "x")
	require.NoError(t, err)
	assert.True(t, deadlineSet)
}

type posterFunc func(ctx context.Context, text string) (string, error)

func (f posterFunc) Post(ctx context.Context, text string) (string, error) { return f(ctx, text) }
