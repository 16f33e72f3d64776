// Package app provides the core application initialization and lifecycle management.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/law-makers/dircrawl/internal/checkpoint"
	"github.com/law-makers/dircrawl/internal/config"
	"github.com/law-makers/dircrawl/internal/engine"
	"github.com/law-makers/dircrawl/internal/fetcher"
	"github.com/law-makers/dircrawl/internal/metrics"
	"github.com/law-makers/dircrawl/internal/parser"
	"github.com/law-makers/dircrawl/internal/proxy"
	"github.com/law-makers/dircrawl/internal/ratelimit"
	"github.com/law-makers/dircrawl/internal/retry"
	"github.com/law-makers/dircrawl/internal/sink"
	"github.com/law-makers/dircrawl/internal/store"
	"github.com/law-makers/dircrawl/internal/utils/headers"
	"github.com/law-makers/dircrawl/pkg/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Application holds all application dependencies and manages their lifecycle.
//
// It is created once per command and closed when the command finishes.
type Application struct {
	Config      *config.Config
	Logger      *zerolog.Logger
	RateLimiter ratelimit.RateLimiter
	Proxies     *proxy.Pool
	Fetcher     *fetcher.Fetcher
	Parser      *parser.CardParser
	Resolver    *engine.TotalResolver
	Store       *store.RecordStore
	Checkpoints *checkpoint.Manager
	Sink        *sink.Multi
	Metrics     *metrics.Recorder

	checkpointStorage checkpoint.Storage
	startTime         time.Time
}

// SetupLogging configures the global zerolog logger from cfg
func SetupLogging(cfg *config.Config, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if out == nil {
		out = os.Stderr
	}
	if cfg.Log.JSON {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen})
	}
	return log.Logger
}

// New creates and initializes a new Application with all dependencies.
//
// It performs the following initialization steps:
//   - Creates the rate limiter and proxy pool
//   - Creates the fetcher, card parser and total resolver
//   - Opens the checkpoint storage
//   - Connects every configured output sink
//
// If any step fails, an error is returned and already opened resources are closed.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	logger := log.With().Str("component", "app").Logger()

	rateLimiter := ratelimit.NewDomainLimiter(cfg.HTTP.RateRPS, cfg.HTTP.RateBurst)
	logger.Debug().
		Float64("rps", cfg.HTTP.RateRPS).
		Int("burst", cfg.HTTP.RateBurst).
		Msg("Rate limiter initialized")

	proxies, err := proxy.NewPool(cfg.HTTP.Proxies, cfg.HTTP.ProxyCooldown)
	if err != nil {
		return nil, fmt.Errorf("proxy pool: %w", err)
	}

	f := fetcher.New(fetcher.Config{
		Timeout:   cfg.HTTP.Timeout,
		UserAgent: cfg.HTTP.UserAgent,
		Headers:   headers.ParseHeaders(cfg.HTTP.Headers),
		Retry: retry.Config{
			MaxAttempts:          cfg.Retry.MaxAttempts,
			InitialBackoff:       cfg.Retry.Backoff,
			MaxBackoff:           cfg.Retry.MaxBackoff,
			Multiplier:           cfg.Retry.Multiplier,
			RetryableStatusCodes: retry.DefaultConfig().RetryableStatusCodes,
		},
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
	}, rateLimiter, proxies)
	logger.Debug().
		Dur("timeout", cfg.HTTP.Timeout).
		Int("proxies", proxies.Len()).
		Int("attempts", cfg.Retry.MaxAttempts).
		Msg("Fetcher initialized")

	st := store.New()
	recorder := metrics.NewRecorder(st.Len)

	storage, err := checkpoint.Open(cfg.Checkpoint.Backend, cfg.Checkpoint.Dir)
	if err != nil {
		return nil, fmt.Errorf("checkpoint storage: %w", err)
	}
	manager := checkpoint.NewManager(storage, st, cfg.Checkpoint.Every,
		checkpoint.WithWriteHook(recorder.CheckpointWritten))
	logger.Debug().
		Str("backend", cfg.Checkpoint.Backend).
		Str("dir", cfg.Checkpoint.Dir).
		Int("every", cfg.Checkpoint.Every).
		Msg("Checkpoint storage opened")

	sinks, err := openSinks(ctx, cfg)
	if err != nil {
		_ = storage.Close()
		return nil, err
	}

	app := &Application{
		Config:            cfg,
		Logger:            &logger,
		RateLimiter:       rateLimiter,
		Proxies:           proxies,
		Fetcher:           f,
		Parser:            parser.New(cfg.Site.BaseURL, cfg.Site.Selectors),
		Resolver:          engine.NewTotalResolver(cfg.Site.CountNouns, 0),
		Store:             st,
		Checkpoints:       manager,
		Sink:              sinks,
		Metrics:           recorder,
		checkpointStorage: storage,
		startTime:         time.Now(),
	}

	logger.Debug().Str("sink", sinks.Name()).Msg("Application initialized successfully")
	return app, nil
}

func openSinks(ctx context.Context, cfg *config.Config) (*sink.Multi, error) {
	var sinks []sink.Sink
	for _, format := range cfg.Output.Formats {
		switch format {
		case sink.FormatCSV:
			sinks = append(sinks, sink.NewCSV(cfg.Output.Dir))
		case sink.FormatJSON:
			sinks = append(sinks, sink.NewJSON(cfg.Output.Dir))
		case sink.FormatMarkdown:
			sinks = append(sinks, sink.NewMarkdown(cfg.Output.Dir, cfg.Output.MarkdownTop))
		case sink.FormatMongo:
			m, err := sink.NewMongo(ctx, cfg.Output.MongoURI, cfg.Output.MongoDatabase, cfg.Output.MongoCollection)
			if err != nil {
				_ = sink.NewMulti(sinks...).Close(ctx)
				return nil, fmt.Errorf("mongo sink: %w", err)
			}
			sinks = append(sinks, m)
		default:
			return nil, fmt.Errorf("unknown output format %q", format)
		}
	}
	return sink.NewMulti(sinks...), nil
}

// Options maps the configuration onto engine options
func (a *Application) Options() engine.Options {
	c := a.Config
	return engine.Options{
		BaseURL:         c.Site.BaseURL,
		PageSize:        c.Site.PageSize,
		MaxConcurrent:   c.Crawl.MaxConcurrent,
		PauseEvery:      c.Crawl.PauseEvery,
		InterBatchDelay: c.Crawl.InterBatchDelay,
		PartitionDelay:  c.Crawl.PartitionDelay,
		ProbeUnknown:    c.Crawl.ProbeUnknown,
		ProbeLimit:      c.Crawl.ProbeLimit,
		MaxPages:        c.Crawl.MaxPages,
	}
}

// NewDriver wires the partition crawler, store, checkpoints and sinks into a driver
func (a *Application) NewDriver(onPartition engine.PartitionDoneFunc) *engine.Driver {
	opts := a.Options()
	crawler := engine.NewPartitionCrawler(a.Fetcher, a.Parser, a.Resolver, opts, a.Metrics)
	return engine.NewDriver(crawler, a.Store, a.Checkpoints, a.Sink,
		engine.WithPartitionDelay(opts.PartitionDelay),
		engine.WithObserver(a.Metrics),
		engine.WithPartitionCallback(onPartition),
	)
}

// Crawl runs the driver over partitions. With resume disabled any existing
// checkpoint is discarded first.
func (a *Application) Crawl(ctx context.Context, partitions []models.Partition, onPartition engine.PartitionDoneFunc) (*models.Dataset, error) {
	if !a.Config.Checkpoint.Resume {
		if err := a.Checkpoints.Clear(ctx); err != nil {
			return nil, fmt.Errorf("clear checkpoint: %w", err)
		}
		a.Logger.Info().Msg("Resume disabled, previous checkpoint discarded")
	}
	return a.NewDriver(onPartition).Run(ctx, partitions)
}

// StartMetrics serves metrics until ctx is done when an address is configured
func (a *Application) StartMetrics(ctx context.Context) {
	if a.Config.Metrics.Addr == "" {
		return
	}
	metrics.NewServer(a.Config.Metrics.Addr).Start(ctx)
}

// OutputDir returns the absolute output directory for display
func (a *Application) OutputDir() string {
	if abs, err := filepath.Abs(a.Config.Output.Dir); err == nil {
		return abs
	}
	return a.Config.Output.Dir
}

// Close gracefully shuts down the application and all its resources.
// Any errors during shutdown are logged but do not prevent other shutdown steps.
func (a *Application) Close(ctx context.Context) error {
	if a.Sink != nil {
		if err := a.Sink.Close(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("Error closing sinks")
		}
	}
	if a.checkpointStorage != nil {
		if err := a.checkpointStorage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Error closing checkpoint storage")
		}
	}
	a.Logger.Debug().Dur("uptime", time.Since(a.startTime)).Msg("Application shutdown complete")
	return nil
}
