// Package config loads and validates service configuration via Viper.
// Configuration errors are the one fatal class: they surface before any
// crawling starts, never mid-run.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/crawllie/crawllie/internal/crawler"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig         `mapstructure:"server"`
	Crawler CrawlerConfig        `mapstructure:"crawler"`
	Storage StorageConfig        `mapstructure:"storage"`
	News    NewsConfig           `mapstructure:"news"`
	Ledger  LedgerConfig         `mapstructure:"ledger"`
	PubSub  PubSubConfig         `mapstructure:"pubsub"`
	Logging LoggingConfig        `mapstructure:"logging"`
	Sites   []crawler.SiteConfig `mapstructure:"sites"`
}

// ServerConfig controls the operational HTTP server.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// CrawlerConfig governs the fetch and crawl pipeline.
type CrawlerConfig struct {
	UserAgents    []string      `mapstructure:"user_agents"`
	MaxRetries    int           `mapstructure:"max_retries"`
	BaseDelay     time.Duration `mapstructure:"base_delay"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RenderQPS     float64       `mapstructure:"render_qps"`
	PageLimit     int           `mapstructure:"page_limit"`
	DedupCapacity int           `mapstructure:"dedup_capacity"`
	KeywordLimit  int           `mapstructure:"keyword_limit"`
	ResultsDir    string        `mapstructure:"results_dir"`
}

// StorageConfig selects and configures the object store backend.
type StorageConfig struct {
	Backend       string `mapstructure:"backend"`
	Bucket        string `mapstructure:"bucket"`
	PartThreshold int    `mapstructure:"part_threshold"`
}

// NewsConfig controls the supplementary news collection.
type NewsConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	APIKey   string   `mapstructure:"api_key"`
	Query    string   `mapstructure:"query"`
	PageSize int      `mapstructure:"page_size"`
	Feeds    []string `mapstructure:"feeds"`
}

// LedgerConfig controls the optional Postgres run ledger.
type LedgerConfig struct {
	DSN             string        `mapstructure:"dsn"`
	Table           string        `mapstructure:"table"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// PubSubConfig holds metadata for run-completion notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CRAWLLIE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applySiteDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("crawler.user_agents", []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
	})
	v.SetDefault("crawler.max_retries", 3)
	v.SetDefault("crawler.base_delay", "1s")
	v.SetDefault("crawler.timeout", "30s")
	v.SetDefault("crawler.render_qps", 0.5)
	v.SetDefault("crawler.page_limit", 50)
	v.SetDefault("crawler.dedup_capacity", crawler.DefaultDedupCapacity)
	v.SetDefault("crawler.keyword_limit", 10)
	v.SetDefault("crawler.results_dir", "results")
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.part_threshold", 5*1024*1024)
	v.SetDefault("news.enabled", false)
	v.SetDefault("news.query", "economy")
	v.SetDefault("news.page_size", 50)
	v.SetDefault("ledger.table", "crawl_runs")
	v.SetDefault("logging.development", true)
}

func (c *Config) applySiteDefaults() {
	for i := range c.Sites {
		if c.Sites[i].PageLimit <= 0 {
			c.Sites[i].PageLimit = c.Crawler.PageLimit
		}
	}
}

// Validate rejects configurations the crawl could not run under. It is the
// only place a bad value is fatal; once a run starts, per-site failures are
// recorded and skipped.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "memory":
	case "gcs":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for the gcs backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if c.Crawler.MaxRetries <= 0 {
		return fmt.Errorf("crawler.max_retries must be positive")
	}
	if c.Crawler.PageLimit <= 0 {
		return fmt.Errorf("crawler.page_limit must be positive")
	}

	names := make(map[string]struct{}, len(c.Sites))
	for _, site := range c.Sites {
		if site.Name == "" {
			return fmt.Errorf("site with url %q is missing a name", site.URL)
		}
		if _, dup := names[site.Name]; dup {
			return fmt.Errorf("duplicate site name %q", site.Name)
		}
		names[site.Name] = struct{}{}
		u, err := url.Parse(site.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("site %q has invalid url %q", site.Name, site.URL)
		}
		if site.PageLimit <= 0 {
			return fmt.Errorf("site %q has non-positive page limit", site.Name)
		}
	}

	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id is required when pubsub.topic_name is set")
	}
	return nil
}

// SiteByName finds a configured site.
func (c *Config) SiteByName(name string) (crawler.SiteConfig, bool) {
	for _, site := range c.Sites {
		if site.Name == name {
			return site, true
		}
	}
	return crawler.SiteConfig{}, false
}
