package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setCredentials(t *testing.T) {
	t.Helper()
	t.Setenv("API_KEY", "key")
	t.Setenv("API_SECRET_KEY", "secret")
	t.Setenv("ACCESS_TOKEN", "token")
	t.Setenv("ACCESS_TOKEN_SECRET", "token-secret")
	t.Setenv("BEARER_TOKEN", "bearer")
	t.Setenv("OPENAI_API_KEY", "sk-test")
}

func TestLoad_Defaults(t *testing.T) {
	setCredentials(t)

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, time.Hour, cfg.Interval)
	assert.False(t, cfg.Once)
	assert.False(t, cfg.DryRun)
	assert.Equal(t, EnrichHashtags, cfg.Enrich)
	assert.Equal(t, SummarizerOpenAI, cfg.Summarizer)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, 24, cfg.MaxAIRequests)
	assert.Equal(t, BackendFile, cfg.HistoryBackend)
	assert.Equal(t, "posted_articles.json", cfg.HistoryFile)
	assert.Equal(t, time.Duration(0), cfg.HistoryRetention)
	assert.Equal(t, 20*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 30*time.Second, cfg.PublishTimeout)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, BackoffExponential, cfg.RetryBackoff)
	assert.Equal(t, 30*time.Second, cfg.RetryDelay)
	assert.Equal(t, "https://api.twitter.com", cfg.XAPIBaseURL)
	assert.Equal(t, "configs/pipeline.yaml", cfg.PipelineFile)
}

func TestLoad_FlagsAndEnv(t *testing.T) {
	setCredentials(t)
	t.Setenv("RUN_INTERVAL", "15m")
	t.Setenv("RETRY_BACKOFF", "fixed")

	cfg, err := Load([]string{"--once", "--dry-run", "--enrich", "summary", "--retry-attempts", "5"})
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, cfg.Interval)
	assert.True(t, cfg.Once)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, EnrichSummary, cfg.Enrich)
	assert.Equal(t, 5, cfg.RetryAttempts)
	assert.Equal(t, BackoffFixed, cfg.RetryBackoff)
}

func TestLoad_MissingCredentials(t *testing.T) {
	setCredentials(t)
	t.Setenv("ACCESS_TOKEN", "")
	t.Setenv("BEARER_TOKEN", "")

	_, err := Load(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ACCESS_TOKEN")
	assert.Contains(t, err.Error(), "BEARER_TOKEN")
}

func TestLoad_GeminiNeedsItsOwnKey(t *testing.T) {
	setCredentials(t)
	t.Setenv("SUMMARIZER", "gemini")

	_, err := Load(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")

	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("OPENAI_API_KEY", "")
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, SummarizerGemini, cfg.Summarizer)
}

func TestLoad_InvalidChoice(t *testing.T) {
	setCredentials(t)
	_, err := Load([]string{"--enrich", "poetry"})
	require.Error(t, err)
	assert.False(t, IsHelp(err))
}

func TestLoad_Help(t *testing.T) {
	_, err := Load([]string{"--help"})
	require.Error(t, err)
	assert.True(t, IsHelp(err))
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			APIKey: "k", APISecretKey: "s", AccessToken: "t", AccessTokenSecret: "ts",
			BearerToken: "b", OpenAIAPIKey: "o",
			Interval: time.Hour, Enrich: EnrichNone, Summarizer: SummarizerOpenAI,
			HistoryBackend: BackendFile, RetryBackoff: BackoffFixed, RetryAttempts: 1,
			FetchTimeout: time.Second, PublishTimeout: time.Second,
		}
	}

	ok := base()
	require.NoError(t, ok.Validate())

	cases := map[string]func(c *Config){
		"postgres without url": func(c *Config) { c.HistoryBackend = BackendPostgres },
		"zero interval":        func(c *Config) { c.Interval = 0 },
		"zero attempts":        func(c *Config) { c.RetryAttempts = 0 },
		"monitoring no key":    func(c *Config) { c.MonitoringAddr = ":8080" },
		"bad backoff":          func(c *Config) { c.RetryBackoff = "linear" },
	}
	for name, mutate := range cases {
		c := base()
		mutate(&c)
		assert.Error(t, c.Validate(), name)
	}
}

func TestLoadPipeline_MissingFileUsesDefaults(t *testing.T) {
	p, found, err := LoadPipeline(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, []string{SourceSearch, SourceScrape, SourceRSS}, p.Sources.Order)
	assert.Len(t, p.Sources.RSS.Feeds, 5)
	assert.Equal(t, "#AI", p.Hashtags["ai"])
	assert.Contains(t, p.Rules.Exclude, "military")
	assert.Len(t, p.Emojis, 5)
	assert.Equal(t, DefaultEvergreen, p.Evergreen)
}

func TestLoadPipeline_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	content := `
sources:
  order: [rss]
  rss:
    feeds:
      - https://example.com/feed.xml
    max_items: 3
rules:
  include: [robots]
hashtags:
  robots: "#Robots"
evergreen: "Hello tech world"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p, found, err := LoadPipeline(path)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{SourceRSS}, p.Sources.Order)
	assert.Equal(t, []string{"https://example.com/feed.xml"}, p.Sources.RSS.Feeds)
	assert.Equal(t, 3, p.Sources.RSS.MaxItems)
	assert.Equal(t, []string{"robots"}, p.Rules.Include)
	assert.Equal(t, []string{"war", "child", "children", "teens", "military"}, p.Rules.Exclude)
	assert.Equal(t, map[string]string{"robots": "#Robots"}, map[string]string(p.Hashtags))
	assert.Equal(t, "technology", p.Sources.Search.Keyword)
	assert.Equal(t, "Hello tech world", p.Evergreen)
}

func TestLoadPipeline_Malformed(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"syntax":          "sources: [unclosed",
		"unknown field":   "sourcez: {}",
		"bad source":      "sources:\n  order: [telegram]",
		"duplicate":       "sources:\n  order: [rss, rss]",
		"empty order":     "sources:\n  order: []",
		"blank evergreen": "evergreen: \"   \"",
	}
	for name, content := range cases {
		path := filepath.Join(dir, name+".yaml")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		_, _, err := LoadPipeline(path)
		assert.Error(t, err, name)
	}
}
