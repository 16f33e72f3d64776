package config

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RegisterFlags registers common CLI flags on the provided root command
func RegisterFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress all output except errors")
	cmd.PersistentFlags().Bool("json", false, "Emit logs as JSON")
	cmd.PersistentFlags().String("config", "", "Path to configuration file (optional)")
	cmd.PersistentFlags().String("base-url", "", "Directory base URL")
	cmd.PersistentFlags().StringSlice("proxy", nil, "HTTP/SOCKS5 proxy, repeatable (e.g., http://localhost:8080)")
	cmd.PersistentFlags().Duration("timeout", DefaultHTTPTimeout, "Per-request timeout")
	cmd.PersistentFlags().String("user-agent", "", "Custom user agent string")
	cmd.PersistentFlags().StringArrayP("header", "H", nil, "Extra request header (\"Key: Value\"), repeatable")
	cmd.PersistentFlags().String("checkpoint-dir", "", "Directory holding checkpoints")
	cmd.PersistentFlags().String("checkpoint-backend", "", "Checkpoint backend: file or sqlite")
}

// RegisterCrawlFlags registers the flags specific to the crawl command
func RegisterCrawlFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("concurrency", "c", DefaultMaxConcurrent, "Maximum concurrent page fetches")
	cmd.Flags().Int("pause-every", 0, "Fetches issued between pauses (0 = concurrency)")
	cmd.Flags().Duration("batch-delay", DefaultInterBatchDelay, "Pause between fetch bursts")
	cmd.Flags().Duration("partition-delay", DefaultPartitionDelay, "Pause between partitions")
	cmd.Flags().Float64("rate", DefaultRateLimitRPS, "Requests per second against the directory (0 = unlimited)")
	cmd.Flags().Int("retries", DefaultRetryAttempts, "Attempts per page including the first")
	cmd.Flags().Bool("probe", false, "Probe pages sequentially when the page count is unknown")
	cmd.Flags().Int("probe-limit", DefaultProbeLimit, "Pages probed past an empty one")
	cmd.Flags().Int("max-pages", DefaultMaxPages, "Page ceiling per partition in probe mode")
	cmd.Flags().Int("checkpoint-every", DefaultCheckpointEvery, "Checkpoint after every N partitions")
	cmd.Flags().Bool("resume", true, "Resume from the latest checkpoint")
	cmd.Flags().StringP("output", "o", "", "Output directory")
	cmd.Flags().StringSlice("format", nil, "Output formats: csv, json, markdown, mongo")
	cmd.Flags().String("mongo-uri", "", "MongoDB connection URI for the mongo output")
	cmd.Flags().String("metrics-addr", "", "Serve /metrics and /healthz on this address")
}

// flagKeys maps CLI flag names to configuration keys
var flagKeys = map[string]string{
	"json":               "log.json",
	"base-url":           "site.base_url",
	"proxy":              "http.proxies",
	"timeout":            "http.timeout",
	"user-agent":         "http.user_agent",
	"checkpoint-dir":     "checkpoint.dir",
	"checkpoint-backend": "checkpoint.backend",
	"concurrency":        "crawl.max_concurrent",
	"pause-every":        "crawl.pause_every",
	"batch-delay":        "crawl.inter_batch_delay",
	"partition-delay":    "crawl.partition_delay",
	"rate":               "http.rate_rps",
	"retries":            "retry.max_attempts",
	"probe":              "crawl.probe_unknown",
	"probe-limit":        "crawl.probe_limit",
	"max-pages":          "crawl.max_pages",
	"checkpoint-every":   "checkpoint.every",
	"resume":             "checkpoint.resume",
	"output":             "output.dir",
	"format":             "output.formats",
	"mongo-uri":          "output.mongo_uri",
	"metrics-addr":       "metrics.addr",
}

// bindFlags binds the flags present on cmd. Only flags the user actually set
// override lower layers.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}
