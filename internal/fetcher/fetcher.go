// Package fetcher performs single bounded page GETs with retry.
package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/law-makers/dircrawl/internal/proxy"
	"github.com/law-makers/dircrawl/internal/ratelimit"
	"github.com/law-makers/dircrawl/internal/retry"
	"github.com/law-makers/dircrawl/internal/utils/headers"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

// DefaultUserAgent identifies the crawler
const DefaultUserAgent = "dircrawl/1.0 (+https://github.com/law-makers/dircrawl)"

// DefaultMaxBodyBytes caps a single page body
const DefaultMaxBodyBytes = 8 << 20

var (
	// ErrEmptyBody is returned for a 2xx response without content
	ErrEmptyBody = errors.New("empty response body")

	// ErrBodyTooLarge is returned when a page exceeds MaxBodyBytes
	ErrBodyTooLarge = errors.New("response body too large")
)

// Config holds the fetch policy
type Config struct {
	Timeout      time.Duration // per attempt
	UserAgent    string
	Headers      map[string]string
	Retry        retry.Config
	MaxBodyBytes int64
}

// Fetcher issues GET requests through an optional rate limiter and proxy pool
type Fetcher struct {
	client  *http.Client
	limiter ratelimit.RateLimiter
	proxies *proxy.Pool
	cfg     Config
}

// New creates a Fetcher. limiter and proxies may be nil.
func New(cfg Config, limiter ratelimit.RateLimiter, proxies *proxy.Pool) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = retry.DefaultConfig()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 32
	if proxies != nil && proxies.Len() > 0 {
		transport.Proxy = proxies.ProxyFunc
	}

	return &Fetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		limiter: limiter,
		proxies: proxies,
		cfg:     cfg,
	}
}

// Fetch returns the UTF-8 body of url. Transport errors, timeouts and
// retryable statuses are retried with the configured backoff.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	start := time.Now()
	var body []byte

	err := retry.Do(ctx, f.cfg.Retry, func(attempt int) error {
		b, err := f.attempt(ctx, url)
		if err != nil {
			log.Debug().Err(err).Str("url", url).Int("attempt", attempt).Msg("Fetch attempt failed")
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}

	log.Debug().
		Str("url", url).
		Int("bytes", len(body)).
		Int64("response_time_ms", time.Since(start).Milliseconds()).
		Msg("Fetch completed")
	return body, nil
}

func (f *Fetcher) attempt(ctx context.Context, url string) ([]byte, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, url); err != nil {
			return nil, retry.Permanent(fmt.Errorf("rate limiter: %w", err))
		}
	}

	via := f.nextProxy()
	reqCtx := ctx
	if via != nil {
		reqCtx = proxy.WithProxy(ctx, via)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9,en-US;q=0.8,en;q=0.7")
	headers.Apply(req, f.cfg.Headers)

	resp, err := f.client.Do(req)
	if err != nil {
		if via != nil {
			f.proxies.MarkFailed(via)
		}
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		if via != nil && (resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests) {
			f.proxies.MarkFailed(via)
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			f.throttle(url)
		}
		return nil, retry.NewHTTPError(resp.StatusCode, resp.Status, url)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if len(raw) == 0 {
		// an empty 2xx is usually a transient upstream hiccup
		return nil, ErrEmptyBody
	}
	if int64(len(raw)) > f.cfg.MaxBodyBytes {
		return nil, retry.Permanent(fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, f.cfg.MaxBodyBytes))
	}

	reader, err := charset.NewReader(bytes.NewReader(raw), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to decode body: %w", err))
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to decode body: %w", err))
	}
	if via != nil {
		f.proxies.MarkHealthy(via)
	}
	return body, nil
}

// throttle slows the limiter down for url's host when it supports it
func (f *Fetcher) throttle(url string) {
	t, ok := f.limiter.(interface {
		Throttle(string) rate.Limit
	})
	if !ok {
		return
	}
	log.Warn().Str("url", url).Float64("rps", float64(t.Throttle(url))).Msg("Rate limited by server, slowing down")
}

func (f *Fetcher) nextProxy() *url.URL {
	if f.proxies == nil || f.proxies.Len() == 0 {
		return nil
	}
	return f.proxies.Next()
}
