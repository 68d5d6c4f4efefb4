package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/deusflow/techposter/internal/hashtag"
	"github.com/deusflow/techposter/internal/news"
	"github.com/deusflow/techposter/internal/scraper"
)

// Source names accepted in sources.order.
const (
	SourceSearch = "search"
	SourceScrape = "scrape"
	SourceRSS    = "rss"
)

// Pipeline is the content configuration:
//
//	sources:
//	  order: [search, scrape, rss]
//	  rss:
//	    feeds: [https://...]
//	rules:
//	  include: [technology]
//	  exclude: [war]
//	hashtags:
//	  ai: "#AI"
type Pipeline struct {
	Sources   Sources       `yaml:"sources"`
	Rules     news.Rules    `yaml:"rules"`
	Hashtags  hashtag.Table `yaml:"hashtags"`
	Emojis    []string      `yaml:"emojis"`
	Evergreen string        `yaml:"evergreen"`
}

type Sources struct {
	Order  []string     `yaml:"order"`
	RSS    RSSConfig    `yaml:"rss"`
	Scrape ScrapeConfig `yaml:"scrape"`
	Search SearchConfig `yaml:"search"`
}

type RSSConfig struct {
	Feeds    []string `yaml:"feeds"`
	MaxItems int      `yaml:"max_items"`
}

type ScrapeConfig struct {
	Pages []scraper.Page `yaml:"pages"`
	Limit int            `yaml:"limit"`
}

type SearchConfig struct {
	Keyword    string `yaml:"keyword"`
	MaxResults int    `yaml:"max_results"`
}

// DefaultEvergreen is posted when every source is exhausted.
const DefaultEvergreen = "Stay curious: technology moves fast, and there is always something new to learn today."

// DefaultPipeline returns the built-in content settings.
func DefaultPipeline() Pipeline {
	return Pipeline{
		Sources: Sources{
			Order: []string{SourceSearch, SourceScrape, SourceRSS},
			RSS: RSSConfig{
				Feeds: []string{
					"https://techcrunch.com/feed/",
					"https://www.theverge.com/rss/index.xml",
					"https://www.wired.com/feed/rss",
					"https://www.engadget.com/rss.xml",
					"https://www.cnet.com/rss/news/",
				},
			},
			Scrape: ScrapeConfig{
				Pages: []scraper.Page{
					{URL: "https://techcrunch.com/latest/"},
					{URL: "https://www.theverge.com/tech"},
				},
				Limit: scraper.DefaultLimit,
			},
			Search: SearchConfig{
				Keyword:    "technology",
				MaxResults: 10,
			},
		},
		Rules: news.Rules{
			Include: []string{"technology", "tech news", "AI", "artificial intelligence", "latest gadgets"},
			Exclude: []string{"war", "child", "children", "teens", "military"},
		},
		Hashtags: hashtag.Table{
			"artificialintelligence": "#ArtificialIntelligence",
			"ai":                     "#AI",
			"machinelearning":        "#DataDrivenAI",
			"deeplearning":           "#NeuralInnovations",
			"datascience":            "#InsightfulData",
			"nlp":                    "#LanguageTech",
			"technology":             "#FutureTech",
			"innovation":             "#InnovateToday",
			"digitaltransformation":  "#DigitalShift",
			"cybersecurity":          "#SecureTech",
			"robotics":               "#RoboticFuture",
			"automation":             "#AutomateEverything",
			"metaverse":              "#VirtualWorlds",
			"technews":               "#TechUpdate2024",
			"generativeai":           "#CreativeAI",
			"aiethics":               "#EthicalAI",
			"aiforgood":              "#AIForChange",
			"future":                 "#TechFuture",
			"coding":                 "#CodeLife",
			"programming":            "#DevCommunity",
			"developer":              "#TechCreators",
			"latest gadgets":         "#Gadgets",
		},
		Emojis:    []string{"🚀", "💻", "📱", "🗞️", "🔍"},
		Evergreen: DefaultEvergreen,
	}
}

// LoadPipeline reads the pipeline YAML at path over the defaults. A
// missing file yields the defaults; a malformed one is an error.
func LoadPipeline(path string) (Pipeline, bool, error) {
	p := DefaultPipeline()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return p, false, nil
	}
	if err != nil {
		return Pipeline{}, false, fmt.Errorf("failed to read pipeline config: %w", err)
	}

	// A hashtags section replaces the built-in table instead of merging.
	defaultTags := p.Hashtags
	p.Hashtags = nil

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return Pipeline{}, false, fmt.Errorf("failed to parse pipeline config %s: %w", path, err)
	}
	if p.Hashtags == nil {
		p.Hashtags = defaultTags
	}
	p.Evergreen = strings.TrimSpace(p.Evergreen)

	if err := p.Validate(); err != nil {
		return Pipeline{}, false, fmt.Errorf("invalid pipeline config %s: %w", path, err)
	}
	return p, true, nil
}

func (p Pipeline) Validate() error {
	if len(p.Sources.Order) == 0 {
		return fmt.Errorf("sources.order must name at least one source")
	}
	seen := map[string]bool{}
	for _, name := range p.Sources.Order {
		if !oneOf(name, SourceSearch, SourceScrape, SourceRSS) {
			return fmt.Errorf("unknown source %q in sources.order", name)
		}
		if seen[name] {
			return fmt.Errorf("source %q listed twice in sources.order", name)
		}
		seen[name] = true
	}
	if strings.TrimSpace(p.Evergreen) == "" {
		return fmt.Errorf("evergreen text must not be empty")
	}
	return nil
}
