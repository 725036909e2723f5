// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Proxy   ProxyConfig   `mapstructure:"proxy"`
	Scrape  ScrapeConfig  `mapstructure:"scrape"`
	Input   InputConfig   `mapstructure:"input"`
	Sink    SinkConfig    `mapstructure:"sink"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ProxyConfig identifies the outbound proxy endpoint. Credentials are
// embedded in the URL.
type ProxyConfig struct {
	URL string `mapstructure:"url"`
}

// ScrapeConfig governs the fetch/retry/parse pipeline.
type ScrapeConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	Pages            int           `mapstructure:"pages"`
	Retries          int           `mapstructure:"retries"`
	Backoff          time.Duration `mapstructure:"backoff"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	PageConcurrency  int           `mapstructure:"page_concurrency"`
	QueryConcurrency int           `mapstructure:"query_concurrency"`
}

// InputConfig locates the query batch.
type InputConfig struct {
	Path string `mapstructure:"path"`
}

// SinkConfig selects and configures the document sink backend.
type SinkConfig struct {
	Kind     string             `mapstructure:"kind"`
	Local    LocalSinkConfig    `mapstructure:"local"`
	GCS      GCSSinkConfig      `mapstructure:"gcs"`
	Postgres PostgresSinkConfig `mapstructure:"postgres"`
}

// LocalSinkConfig configures the filesystem sink.
type LocalSinkConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

// GCSSinkConfig configures the Cloud Storage sink.
type GCSSinkConfig struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

// PostgresSinkConfig configures the Postgres sink.
type PostgresSinkConfig struct {
	DSN string `mapstructure:"dsn"`
}

// PubSubConfig holds metadata for completion-event notifications. Publishing
// is disabled when the topic is empty.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// MetricsConfig controls the optional Prometheus endpoint. Empty Addr
// disables the listener.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SERP")
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

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Registered empty so environment-only values are seen by Unmarshal.
	v.SetDefault("proxy.url", "")
	v.SetDefault("scrape.base_url", "https://www.ecosia.org/search")
	v.SetDefault("scrape.pages", 5)
	v.SetDefault("scrape.retries", 3)
	v.SetDefault("scrape.backoff", "2s")
	v.SetDefault("scrape.request_timeout", "15s")
	v.SetDefault("scrape.page_concurrency", 10)
	v.SetDefault("scrape.query_concurrency", 3)
	v.SetDefault("input.path", "./data.csv")
	v.SetDefault("sink.kind", "local")
	v.SetDefault("sink.local.base_dir", "./results")
	v.SetDefault("sink.gcs.bucket", "")
	v.SetDefault("sink.gcs.prefix", "")
	v.SetDefault("sink.postgres.dsn", "")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits. Configuration
// errors are fatal at startup, before any scraping begins.
func (c Config) Validate() error {
	if c.Proxy.URL == "" {
		return fmt.Errorf("proxy.url must be set")
	}
	u, err := url.Parse(c.Proxy.URL)
	if err != nil {
		return fmt.Errorf("proxy.url is malformed: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("proxy.url must include scheme and host")
	}
	if c.Scrape.BaseURL == "" {
		return fmt.Errorf("scrape.base_url must be set")
	}
	if c.Scrape.Pages <= 0 {
		return fmt.Errorf("scrape.pages must be > 0")
	}
	if c.Scrape.Retries <= 0 {
		return fmt.Errorf("scrape.retries must be > 0")
	}
	if c.Scrape.Backoff < 0 {
		return fmt.Errorf("scrape.backoff must be >= 0")
	}
	if c.Scrape.RequestTimeout <= 0 {
		return fmt.Errorf("scrape.request_timeout must be > 0")
	}
	if c.Scrape.PageConcurrency <= 0 {
		return fmt.Errorf("scrape.page_concurrency must be > 0")
	}
	if c.Scrape.QueryConcurrency <= 0 {
		return fmt.Errorf("scrape.query_concurrency must be > 0")
	}
	if c.Input.Path == "" {
		return fmt.Errorf("input.path must be set")
	}
	switch c.Sink.Kind {
	case "local":
		if c.Sink.Local.BaseDir == "" {
			return fmt.Errorf("sink.local.base_dir must be set for the local sink")
		}
	case "gcs":
		if c.Sink.GCS.Bucket == "" {
			return fmt.Errorf("sink.gcs.bucket must be set for the gcs sink")
		}
	case "postgres":
		if c.Sink.Postgres.DSN == "" {
			return fmt.Errorf("sink.postgres.dsn must be set for the postgres sink")
		}
	default:
		return fmt.Errorf("sink.kind must be one of local, gcs, postgres")
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic_name is set")
	}
	return nil
}
