// Package metrics tracks pipeline counters for Prometheus and the
// monitoring API.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "techposter"

type Metrics struct {
	Registry *prometheus.Registry

	CandidatesFetched  *prometheus.CounterVec
	CandidatesRejected *prometheus.CounterVec
	DuplicatesFiltered *prometheus.CounterVec
	EvergreenFallbacks prometheus.Counter
	PostsPublished     prometheus.Counter
	PublishFailures    *prometheus.CounterVec
	RateLimitRetries   prometheus.Counter
	SummaryFallbacks   prometheus.Counter
	Runs               *prometheus.CounterVec
	RunDuration        prometheus.Histogram

	mu sync.RWMutex

	totalCandidates  int64
	totalDuplicates  int64
	postsPublished   int64
	publishFailures  int64
	rateLimitRetries int64
	evergreenUsed    int64

	lastProcessingTime time.Duration
	lastRunTime        time.Time
	lastOutcome        string
	lastErrorTime      time.Time
	lastError          string
	isHealthy          bool
}

// Stats is the snapshot served by the monitoring API.
type Stats struct {
	TotalCandidates    int64  `json:"total_candidates"`
	DuplicatesFiltered int64  `json:"duplicates_filtered"`
	PostsPublished     int64  `json:"posts_published"`
	PublishFailures    int64  `json:"publish_failures"`
	RateLimitRetries   int64  `json:"rate_limit_retries"`
	EvergreenUsed      int64  `json:"evergreen_used"`
	LastProcessingMs   int64  `json:"last_processing_time_ms"`
	LastRunTime        string `json:"last_run_time,omitempty"`
	LastOutcome        string `json:"last_outcome,omitempty"`
	LastErrorTime      string `json:"last_error_time,omitempty"`
	LastError          string `json:"last_error,omitempty"`
	IsHealthy          bool   `json:"is_healthy"`
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		CandidatesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_fetched_total",
			Help:      "Candidates returned by each source.",
		}, []string{"source"}),
		CandidatesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_rejected_total",
			Help:      "Candidates dropped by the content filter.",
		}, []string{"source"}),
		DuplicatesFiltered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_filtered_total",
			Help:      "Candidates dropped because they were already posted.",
		}, []string{"source"}),
		EvergreenFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evergreen_fallbacks_total",
			Help:      "Runs where every source was exhausted.",
		}),
		PostsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_published_total",
			Help:      "Posts accepted by the X API.",
		}),
		PublishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_failures_total",
			Help:      "Publish attempts that ended the run without a post.",
		}, []string{"reason"}),
		RateLimitRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_retries_total",
			Help:      "Publish retries caused by rate limiting.",
		}),
		SummaryFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summary_fallbacks_total",
			Help:      "Summaries replaced by the fallback text.",
		}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of pipeline runs.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		isHealthy: true,
	}

	m.Registry.MustRegister(
		m.CandidatesFetched,
		m.CandidatesRejected,
		m.DuplicatesFiltered,
		m.EvergreenFallbacks,
		m.PostsPublished,
		m.PublishFailures,
		m.RateLimitRetries,
		m.SummaryFallbacks,
		m.Runs,
		m.RunDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// SourceResult records one source's fetch: raw candidates, those that
// passed the filter, and those not yet posted.
func (m *Metrics) SourceResult(source string, fetched, accepted, fresh int) {
	m.CandidatesFetched.WithLabelValues(source).Add(float64(fetched))
	m.CandidatesRejected.WithLabelValues(source).Add(float64(fetched - accepted))
	m.DuplicatesFiltered.WithLabelValues(source).Add(float64(accepted - fresh))

	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalCandidates += int64(fetched)
	m.totalDuplicates += int64(accepted - fresh)
}

func (m *Metrics) EvergreenUsed() {
	m.EvergreenFallbacks.Inc()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.evergreenUsed++
}

func (m *Metrics) Published() {
	m.PostsPublished.Inc()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.postsPublished++
}

func (m *Metrics) PublishFailed(reason string) {
	m.PublishFailures.WithLabelValues(reason).Inc()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishFailures++
}

func (m *Metrics) RateLimitRetry() {
	m.RateLimitRetries.Inc()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.rateLimitRetries++
}

func (m *Metrics) SummaryFallback() {
	m.SummaryFallbacks.Inc()
}

// RunFinished records a completed run. A non-nil err marks the service
// unhealthy until the next clean run.
func (m *Metrics) RunFinished(outcome string, duration time.Duration, err error) {
	m.Runs.WithLabelValues(outcome).Inc()
	m.RunDuration.Observe(duration.Seconds())

	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastProcessingTime = duration
	m.lastRunTime = time.Now()
	m.lastOutcome = outcome
	if err != nil {
		m.lastError = err.Error()
		m.lastErrorTime = m.lastRunTime
		m.isHealthy = false
		return
	}
	m.isHealthy = true
}

func (m *Metrics) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isHealthy
}

func (m *Metrics) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Stats{
		TotalCandidates:    m.totalCandidates,
		DuplicatesFiltered: m.totalDuplicates,
		PostsPublished:     m.postsPublished,
		PublishFailures:    m.publishFailures,
		RateLimitRetries:   m.rateLimitRetries,
		EvergreenUsed:      m.evergreenUsed,
		LastProcessingMs:   m.lastProcessingTime.Milliseconds(),
		LastRunTime:        formatTime(m.lastRunTime),
		LastOutcome:        m.lastOutcome,
		LastErrorTime:      formatTime(m.lastErrorTime),
		LastError:          m.lastError,
		IsHealthy:          m.isHealthy,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
