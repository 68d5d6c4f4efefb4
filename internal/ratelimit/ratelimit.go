// Package ratelimit caps how many AI requests are made per day.
package ratelimit

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrBudgetExhausted is returned by Use once the window's budget is spent.
var ErrBudgetExhausted = errors.New("AI request budget exhausted")

// Window is the budget period.
const Window = 24 * time.Hour

// Budget counts AI requests in a rolling daily window.
type Budget struct {
	mu        sync.Mutex
	max       int
	used      int
	cacheHits int
	resetTime time.Time
	now       func() time.Time
	logger    *slog.Logger
}

// Stats is a point-in-time view of the budget.
type Stats struct {
	Used      int       `json:"used"`
	Limit     int       `json:"limit"`
	CacheHits int       `json:"cache_hits"`
	ResetAt   time.Time `json:"reset_at"`
}

// NewBudget creates a budget of max requests per Window. max <= 0 means
// unlimited.
func NewBudget(max int, logger *slog.Logger) *Budget {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Budget{
		max:    max,
		now:    time.Now,
		logger: logger.With("component", "ratelimit"),
	}
	b.resetTime = b.now().Add(Window)
	return b
}

// Use takes one request from the budget.
func (b *Budget) Use() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.checkReset()

	if b.max > 0 && b.used >= b.max {
		b.logger.Warn("AI rate limit reached", "used", b.used, "limit", b.max)
		return ErrBudgetExhausted
	}

	b.used++
	b.logger.Debug("AI usage", "used", b.used, "limit", b.max)
	return nil
}

// RecordCacheHit counts a request that was served from the summary cache.
func (b *Budget) RecordCacheHit() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cacheHits++
}

func (b *Budget) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.checkReset()
	return Stats{
		Used:      b.used,
		Limit:     b.max,
		CacheHits: b.cacheHits,
		ResetAt:   b.resetTime,
	}
}

// checkReset starts a new window once the current one has passed.
func (b *Budget) checkReset() {
	now := b.now()
	if now.Before(b.resetTime) {
		return
	}

	b.logger.Info("resetting AI rate limiter counters", "used", b.used, "cache_hits", b.cacheHits)
	b.used = 0
	b.cacheHits = 0
	b.resetTime = now.Add(Window)
}
