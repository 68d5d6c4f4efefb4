// Package config loads process settings from flags, the environment and
// an optional .env file, and pipeline content settings from YAML.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

const (
	EnrichHashtags = "hashtags"
	EnrichSummary  = "summary"
	EnrichNone     = "none"

	SummarizerOpenAI = "openai"
	SummarizerGemini = "gemini"

	BackendFile     = "file"
	BackendPostgres = "postgres"

	BackoffExponential = "exponential"
	BackoffFixed       = "fixed"
)

type Config struct {
	// Scheduling
	Interval time.Duration `long:"interval" env:"RUN_INTERVAL" default:"1h" description:"Time between pipeline runs"`
	Once     bool          `long:"once" env:"RUN_ONCE" description:"Run a single cycle and exit"`
	DryRun   bool          `long:"dry-run" env:"DRY_RUN" description:"Compose and log posts without publishing"`

	// X credentials
	APIKey            string `long:"api-key" env:"API_KEY" description:"X consumer key"`
	APISecretKey      string `long:"api-secret-key" env:"API_SECRET_KEY" description:"X consumer secret"`
	AccessToken       string `long:"access-token" env:"ACCESS_TOKEN" description:"X access token"`
	AccessTokenSecret string `long:"access-token-secret" env:"ACCESS_TOKEN_SECRET" description:"X access token secret"`
	BearerToken       string `long:"bearer-token" env:"BEARER_TOKEN" description:"X bearer token for recent search"`
	XAPIBaseURL       string `long:"x-api-base-url" env:"X_API_BASE_URL" default:"https://api.twitter.com" description:"X API base URL"`

	// Enrichment
	Enrich        string        `long:"enrich" env:"ENRICH_MODE" default:"hashtags" choice:"hashtags" choice:"summary" choice:"none" description:"How candidate text is enriched"`
	Summarizer    string        `long:"summarizer" env:"SUMMARIZER" default:"openai" choice:"openai" choice:"gemini" description:"AI provider used in summary mode"`
	OpenAIAPIKey  string        `long:"openai-api-key" env:"OPENAI_API_KEY" description:"OpenAI API key"`
	OpenAIModel   string        `long:"openai-model" env:"OPENAI_MODEL" default:"gpt-4o-mini" description:"OpenAI chat model"`
	OpenAIBaseURL string        `long:"openai-base-url" env:"OPENAI_BASE_URL" description:"OpenAI-compatible API base URL"`
	GeminiAPIKey  string        `long:"gemini-api-key" env:"GEMINI_API_KEY" description:"Gemini API key"`
	GeminiModel   string        `long:"gemini-model" env:"GEMINI_MODEL" default:"gemini-1.5-flash" description:"Gemini model"`
	MaxAIRequests int           `long:"max-ai-requests" env:"MAX_AI_REQUESTS" default:"24" description:"AI requests per day (0 = unlimited)"`
	SummaryTTL    time.Duration `long:"summary-cache-ttl" env:"SUMMARY_CACHE_TTL" default:"24h" description:"How long generated summaries are reused"`

	// History
	HistoryBackend   string        `long:"history-backend" env:"HISTORY_BACKEND" default:"file" choice:"file" choice:"postgres" description:"Where posted history is stored"`
	HistoryFile      string        `long:"history-file" env:"HISTORY_FILE" default:"posted_articles.json" description:"History file path"`
	DatabaseURL      string        `long:"database-url" env:"DATABASE_URL" description:"PostgreSQL connection string"`
	HistoryRetention time.Duration `long:"history-retention" env:"HISTORY_RETENTION" default:"0s" description:"Drop history older than this at startup (0 = keep all)"`

	// Network
	FetchTimeout   time.Duration `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"20s" description:"Timeout per source fetch"`
	PublishTimeout time.Duration `long:"publish-timeout" env:"PUBLISH_TIMEOUT" default:"30s" description:"Timeout per publish attempt"`
	RetryAttempts  int           `long:"retry-attempts" env:"RETRY_ATTEMPTS" default:"3" description:"Publish attempts on rate limit"`
	RetryBackoff   string        `long:"retry-backoff" env:"RETRY_BACKOFF" default:"exponential" choice:"exponential" choice:"fixed" description:"Backoff between publish attempts"`
	RetryDelay     time.Duration `long:"retry-delay" env:"RETRY_DELAY" default:"30s" description:"Base backoff delay"`
	UserAgent      string        `long:"user-agent" env:"USER_AGENT" default:"techposter/1.0" description:"User agent for scraping"`

	// Content
	PipelineFile string `long:"pipeline" env:"PIPELINE_CONFIG" default:"configs/pipeline.yaml" description:"Pipeline YAML (sources, rules, hashtags)"`

	// Monitoring
	MonitoringAddr string `long:"monitoring-addr" env:"MONITORING_ADDR" description:"Address of the monitoring API (empty disables it)"`
	APIAccessKey   string `long:"api-access-key" env:"API_ACCESS_KEY" description:"Key required by POST /run"`

	// Logging
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
	LogFormat string `long:"log-format" env:"LOG_FORMAT" default:"text" choice:"text" choice:"json" description:"Log output format"`
}

// Load reads .env (if present), then flags and environment. It returns
// flags.ErrHelp wrapped in *flags.Error when help was requested.
func Load(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsHelp reports whether err is the help request returned by Load.
func IsHelp(err error) bool {
	var flagsErr *flags.Error
	return errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp
}

func (c *Config) Validate() error {
	var missing []string
	required := []credential{
		{"API_KEY", c.APIKey},
		{"API_SECRET_KEY", c.APISecretKey},
		{"ACCESS_TOKEN", c.AccessToken},
		{"ACCESS_TOKEN_SECRET", c.AccessTokenSecret},
		{"BEARER_TOKEN", c.BearerToken},
	}
	switch c.Summarizer {
	case SummarizerGemini:
		required = append(required, credential{"GEMINI_API_KEY", c.GeminiAPIKey})
	default:
		required = append(required, credential{"OPENAI_API_KEY", c.OpenAIAPIKey})
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required credentials: %s", strings.Join(missing, ", "))
	}

	if !oneOf(c.Enrich, EnrichHashtags, EnrichSummary, EnrichNone) {
		return fmt.Errorf("ENRICH_MODE must be one of hashtags, summary, none")
	}
	if !oneOf(c.Summarizer, SummarizerOpenAI, SummarizerGemini) {
		return fmt.Errorf("SUMMARIZER must be 'openai' or 'gemini'")
	}
	if !oneOf(c.HistoryBackend, BackendFile, BackendPostgres) {
		return fmt.Errorf("HISTORY_BACKEND must be 'file' or 'postgres'")
	}
	if c.HistoryBackend == BackendPostgres && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for the postgres history backend")
	}
	if !oneOf(c.RetryBackoff, BackoffExponential, BackoffFixed) {
		return fmt.Errorf("RETRY_BACKOFF must be 'exponential' or 'fixed'")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("RUN_INTERVAL must be positive")
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("RETRY_ATTEMPTS must be at least 1")
	}
	if c.FetchTimeout <= 0 || c.PublishTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT and PUBLISH_TIMEOUT must be positive")
	}
	if c.MonitoringAddr != "" && c.APIAccessKey == "" {
		return fmt.Errorf("API_ACCESS_KEY is required when MONITORING_ADDR is set")
	}
	return nil
}

type credential struct {
	name  string
	value string
}

func oneOf(v string, options ...string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}
