package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/deusflow/techposter/internal/metrics"
	"github.com/deusflow/techposter/internal/pipeline"
	"github.com/deusflow/techposter/internal/ratelimit"
	"github.com/deusflow/techposter/internal/storage"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

// Runner triggers a pipeline run. pipeline.Pipeline implements it.
type Runner interface {
	RunOnce(ctx context.Context) pipeline.Report
	Running() bool
}

// HistoryView is the read side of a history backend.
type HistoryView interface {
	Records() []storage.Record
	Len() int
}

// Schedule exposes when the next scheduled run happens.
type Schedule interface {
	NextRun() time.Time
}

type Handler struct {
	runner   Runner
	metrics  *metrics.Metrics
	budget   *ratelimit.Budget
	history  HistoryView
	schedule Schedule
	logger   *slog.Logger
}

// NewHandler wires the handlers. budget and schedule may be nil.
func NewHandler(runner Runner, m *metrics.Metrics, budget *ratelimit.Budget,
	history HistoryView, schedule Schedule, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		runner:   runner,
		metrics:  m,
		budget:   budget,
		history:  history,
		schedule: schedule,
		logger:   logger.With("component", "api"),
	}
}

// Health returns 503 after a failed run until the next clean one.
func (h *Handler) Health(c *gin.Context) {
	stats := h.metrics.Stats()
	status := http.StatusOK
	state := "healthy"
	if !stats.IsHealthy {
		status = http.StatusServiceUnavailable
		state = "unhealthy"
	}

	body := gin.H{
		"status":    state,
		"timestamp": time.Now().Format(time.RFC3339),
		"running":   h.runner.Running(),
	}
	if stats.LastRunTime != "" {
		body["last_run_time"] = stats.LastRunTime
		body["last_outcome"] = stats.LastOutcome
	}
	if stats.LastError != "" {
		body["last_error"] = stats.LastError
	}
	c.JSON(status, body)
}

func (h *Handler) Stats(c *gin.Context) {
	body := gin.H{
		"pipeline":        h.metrics.Stats(),
		"history_entries": h.history.Len(),
	}
	if h.budget != nil {
		body["ai_budget"] = h.budget.Stats()
	}
	if h.schedule != nil {
		if next := h.schedule.NextRun(); !next.IsZero() {
			body["next_run"] = next.Format(time.RFC3339)
		}
	}
	c.JSON(http.StatusOK, body)
}

// History lists posted records, newest first.
func (h *Handler) History(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	records := h.history.Records()
	total := len(records)
	if len(records) > limit {
		records = records[:limit]
	}

	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"total":   total,
	})
}

// TriggerRun runs one cycle synchronously and returns its report.
func (h *Handler) TriggerRun(c *gin.Context) {
	if h.runner.Running() {
		c.JSON(http.StatusConflict, gin.H{"error": "run already in progress"})
		return
	}

	h.logger.Info("manual run requested", "client_ip", c.ClientIP())
	report := h.runner.RunOnce(c.Request.Context())
	if report.Outcome == pipeline.OutcomeBusy {
		c.JSON(http.StatusConflict, gin.H{"error": "run already in progress"})
		return
	}

	body := gin.H{"report": report}
	if report.Err != nil {
		body["error"] = report.Err.Error()
	}
	c.JSON(http.StatusOK, body)
}
