// Package storage keeps the list of texts that were already posted.
//
// Both backends hold the full history in memory for lookups and write
// every new record through to durable storage before Record returns.
package storage

import (
	"sort"
	"sync"
	"time"
)

// Record is one posted item. Text is the candidate text used for
// deduplication, Post is the composed text that was published.
type Record struct {
	Text     string    `json:"text"`
	Post     string    `json:"post,omitempty"`
	PostedAt time.Time `json:"posted_at,omitempty"`
}

// ledger is the in-memory view shared by the backends.
type ledger struct {
	mu      sync.RWMutex
	records []Record
	index   map[string]struct{}
}

func newLedger() *ledger {
	return &ledger{index: make(map[string]struct{})}
}

func (l *ledger) contains(text string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.index[text]
	return ok
}

// add appends r unless its text is already known.
func (l *ledger) add(r Record) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.index[r.Text]; ok {
		return false
	}
	l.index[r.Text] = struct{}{}
	l.records = append(l.records, r)
	return true
}

func (l *ledger) reset(records []Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = l.records[:0]
	l.index = make(map[string]struct{}, len(records))
	for _, r := range records {
		if _, ok := l.index[r.Text]; ok {
			continue
		}
		l.index[r.Text] = struct{}{}
		l.records = append(l.records, r)
	}
}

// snapshot returns a copy in insertion order.
func (l *ledger) snapshot() []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

func (l *ledger) len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// newestFirst orders records by PostedAt descending, ties broken by
// later insertion first. Records without a timestamp sort last.
func newestFirst(records []Record) []Record {
	out := make([]Record, len(records))
	for i := range records {
		out[len(records)-1-i] = records[i]
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PostedAt.After(out[j].PostedAt)
	})
	return out
}

// expired reports whether r falls outside the retention window. Records
// without a timestamp (legacy entries) never expire.
func expired(r Record, retention time.Duration, now time.Time) bool {
	if retention <= 0 || r.PostedAt.IsZero() {
		return false
	}
	return r.PostedAt.Before(now.Add(-retention))
}
