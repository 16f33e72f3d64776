package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/law-makers/dircrawl/internal/engine"
	"github.com/law-makers/dircrawl/internal/parser"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config holds application configuration values
type Config struct {
	Site       SiteConfig       `mapstructure:"site"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Retry      RetryConfig      `mapstructure:"retry"`
	Crawl      CrawlConfig      `mapstructure:"crawl"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Output     OutputConfig     `mapstructure:"output"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Log        LogConfig        `mapstructure:"log"`
}

// SiteConfig describes the target directory
type SiteConfig struct {
	BaseURL    string           `mapstructure:"base_url"`
	PageSize   int              `mapstructure:"page_size"`
	CountNouns []string         `mapstructure:"count_nouns"`
	Selectors  parser.Selectors `mapstructure:"selectors"`
}

type HTTPConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	UserAgent     string        `mapstructure:"user_agent"`
	Headers       []string      `mapstructure:"headers"` // "Key: Value"
	Proxies       []string      `mapstructure:"proxies"`
	ProxyCooldown time.Duration `mapstructure:"proxy_cooldown"`
	RateRPS       float64       `mapstructure:"rate_rps"`
	RateBurst     int           `mapstructure:"rate_burst"`
	MaxBodyBytes  int64         `mapstructure:"max_body_bytes"`
}

type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Backoff     time.Duration `mapstructure:"backoff"`
	MaxBackoff  time.Duration `mapstructure:"max_backoff"`
	Multiplier  float64       `mapstructure:"multiplier"`
}

type CrawlConfig struct {
	MaxConcurrent   int           `mapstructure:"max_concurrent"`
	PauseEvery      int           `mapstructure:"pause_every"`
	InterBatchDelay time.Duration `mapstructure:"inter_batch_delay"`
	PartitionDelay  time.Duration `mapstructure:"partition_delay"`
	ProbeUnknown    bool          `mapstructure:"probe_unknown"`
	ProbeLimit      int           `mapstructure:"probe_limit"`
	MaxPages        int           `mapstructure:"max_pages"`
}

type CheckpointConfig struct {
	Backend string `mapstructure:"backend"`
	Dir     string `mapstructure:"dir"`
	Every   int    `mapstructure:"every"`
	Resume  bool   `mapstructure:"resume"`
}

type OutputConfig struct {
	Dir             string   `mapstructure:"dir"`
	Formats         []string `mapstructure:"formats"`
	MarkdownTop     int      `mapstructure:"markdown_top"`
	MongoURI        string   `mapstructure:"mongo_uri"`
	MongoDatabase   string   `mapstructure:"mongo_database"`
	MongoCollection string   `mapstructure:"mongo_collection"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// Load builds a Config by combining defaults, an optional config file, environment variables, and CLI flags.
// Caller should pass the executing *cobra.Command so flags can be read.
func Load(cmd *cobra.Command) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath := ""
	if cmd != nil {
		if f := cmd.Flags().Lookup("config"); f != nil {
			configPath = f.Value.String()
		}
	}
	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	if cmd != nil {
		if err := bindFlags(v, cmd); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cmd != nil {
		if f := cmd.Flags().Lookup("verbose"); f != nil && f.Value.String() == "true" {
			cfg.Log.Level = "debug"
		}
		if f := cmd.Flags().Lookup("quiet"); f != nil && f.Value.String() == "true" {
			cfg.Log.Level = "error"
		}
		// header values may contain commas, so they bypass viper's slice parsing
		if extra, err := cmd.Flags().GetStringArray("header"); err == nil {
			cfg.HTTP.Headers = append(cfg.HTTP.Headers, extra...)
		}
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// readConfigFile loads an explicit file, or dircrawl.yaml from the usual places when present
func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		return nil
	}

	v.SetConfigName("dircrawl")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	sel := parser.DefaultSelectors()

	v.SetDefault("site.base_url", DefaultBaseURL)
	v.SetDefault("site.page_size", DefaultPageSize)
	v.SetDefault("site.count_nouns", engine.DefaultCountNouns)
	v.SetDefault("site.selectors.card", sel.Card)
	v.SetDefault("site.selectors.id_attr", sel.IDAttr)
	v.SetDefault("site.selectors.name_attr", sel.NameAttr)
	v.SetDefault("site.selectors.link", sel.Link)
	v.SetDefault("site.selectors.rating", sel.Rating)
	v.SetDefault("site.selectors.reviews", sel.Reviews)
	v.SetDefault("site.selectors.category", sel.Category)
	v.SetDefault("site.selectors.pagination", sel.Pagination)

	v.SetDefault("http.timeout", DefaultHTTPTimeout)
	v.SetDefault("http.user_agent", DefaultUserAgent)
	v.SetDefault("http.headers", []string{})
	v.SetDefault("http.proxies", []string{})
	v.SetDefault("http.proxy_cooldown", DefaultProxyCooldown)
	v.SetDefault("http.rate_rps", DefaultRateLimitRPS)
	v.SetDefault("http.rate_burst", DefaultRateLimitBurst)
	v.SetDefault("http.max_body_bytes", DefaultMaxBodyBytes)

	v.SetDefault("retry.max_attempts", DefaultRetryAttempts)
	v.SetDefault("retry.backoff", DefaultRetryBackoff)
	v.SetDefault("retry.max_backoff", DefaultRetryMaxBackoff)
	v.SetDefault("retry.multiplier", DefaultRetryMultiplier)

	v.SetDefault("crawl.max_concurrent", DefaultMaxConcurrent)
	v.SetDefault("crawl.pause_every", 0)
	v.SetDefault("crawl.inter_batch_delay", DefaultInterBatchDelay)
	v.SetDefault("crawl.partition_delay", DefaultPartitionDelay)
	v.SetDefault("crawl.probe_unknown", false)
	v.SetDefault("crawl.probe_limit", DefaultProbeLimit)
	v.SetDefault("crawl.max_pages", DefaultMaxPages)

	v.SetDefault("checkpoint.backend", DefaultCheckpointBackend)
	v.SetDefault("checkpoint.dir", DefaultCheckpointDir)
	v.SetDefault("checkpoint.every", DefaultCheckpointEvery)
	v.SetDefault("checkpoint.resume", true)

	v.SetDefault("output.dir", DefaultOutputDir)
	v.SetDefault("output.formats", DefaultOutputFormats)
	v.SetDefault("output.markdown_top", DefaultMarkdownTop)
	v.SetDefault("output.mongo_uri", "")
	v.SetDefault("output.mongo_database", DefaultMongoDB)
	v.SetDefault("output.mongo_collection", DefaultMongoColl)

	v.SetDefault("metrics.addr", "")

	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.json", DefaultJSONLog)
}
