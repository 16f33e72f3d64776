package config

import "time"

// Default constants for application configuration
const (
	EnvPrefix = "DIRCRAWL"

	DefaultLogLevel = "info"
	DefaultJSONLog  = false

	DefaultBaseURL  = "https://prodoctorov.ru"
	DefaultPageSize = 20

	DefaultUserAgent      = "dircrawl/1.0 (+https://github.com/law-makers/dircrawl)"
	DefaultHTTPTimeout    = 30 * time.Second
	DefaultRateLimitRPS   = 10.0
	DefaultRateLimitBurst = 10
	DefaultProxyCooldown  = 5 * time.Minute
	DefaultMaxBodyBytes   = 8 * 1024 * 1024 // 8MB

	DefaultRetryAttempts   = 3
	DefaultRetryBackoff    = 3 * time.Second
	DefaultRetryMaxBackoff = 30 * time.Second
	DefaultRetryMultiplier = 1.0

	DefaultMaxConcurrent    = 10
	DefaultMaxMaxConcurrent = 100
	DefaultInterBatchDelay  = time.Second
	DefaultPartitionDelay   = 500 * time.Millisecond
	DefaultProbeLimit       = 3
	DefaultMaxPages         = 500

	DefaultCheckpointBackend = "file"
	DefaultCheckpointDir     = ".dircrawl"
	DefaultCheckpointEvery   = 20

	DefaultOutputDir   = "output"
	DefaultMarkdownTop = 20
	DefaultMongoDB     = "dircrawl"
	DefaultMongoColl   = "records"
)

// DefaultOutputFormats are the sinks used when none are configured
var DefaultOutputFormats = []string{"csv", "json"}
