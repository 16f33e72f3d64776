package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

var knownFormats = map[string]bool{"csv": true, "json": true, "markdown": true, "mongo": true}

func validate(c *Config) error {
	u, err := url.Parse(c.Site.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("site base url must be an absolute http(s) url, got %q", c.Site.BaseURL)
	}
	if c.Site.PageSize <= 0 {
		return fmt.Errorf("page size must be > 0")
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http timeout must be > 0")
	}
	if c.HTTP.RateRPS < 0 {
		return fmt.Errorf("rate limit must be >= 0")
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry attempts must be > 0")
	}
	if c.Retry.Multiplier < 1 {
		return fmt.Errorf("retry multiplier must be >= 1")
	}
	if c.Crawl.MaxConcurrent <= 0 || c.Crawl.MaxConcurrent > DefaultMaxMaxConcurrent {
		return fmt.Errorf("max concurrent must be between 1 and %d", DefaultMaxMaxConcurrent)
	}
	if c.Crawl.PauseEvery < 0 {
		return fmt.Errorf("pause every must be >= 0")
	}
	if c.Crawl.InterBatchDelay < 0 || c.Crawl.PartitionDelay < 0 {
		return fmt.Errorf("delays must be >= 0")
	}
	if c.Crawl.ProbeLimit <= 0 {
		return fmt.Errorf("probe limit must be > 0")
	}
	if c.Crawl.MaxPages <= 0 {
		return fmt.Errorf("max pages must be > 0")
	}
	switch c.Checkpoint.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("unknown checkpoint backend %q", c.Checkpoint.Backend)
	}
	if c.Checkpoint.Every <= 0 {
		return fmt.Errorf("checkpoint interval must be > 0")
	}

	formats := make([]string, 0, len(c.Output.Formats))
	for _, f := range c.Output.Formats {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		if !knownFormats[f] {
			return fmt.Errorf("unknown output format %q", f)
		}
		if f == "mongo" && c.Output.MongoURI == "" {
			return fmt.Errorf("mongo output requires output.mongo_uri")
		}
		formats = append(formats, f)
	}
	c.Output.Formats = formats

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	return nil
}
