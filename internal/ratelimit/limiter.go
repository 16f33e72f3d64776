// internal/ratelimit/limiter.go
package ratelimit

import (
	"context"
	"net/url"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter paces outgoing requests
type RateLimiter interface {
	// Wait blocks until a request for the given URL can proceed or ctx is done
	Wait(ctx context.Context, urlStr string) error
}

// DomainLimiter keeps one token bucket per host so a single directory site
// is never hit faster than the configured rate.
type DomainLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	perHost  rate.Limit
	burst    int
}

// NewDomainLimiter creates a limiter. A non-positive rate disables limiting.
func NewDomainLimiter(requestsPerSecond float64, burst int) *DomainLimiter {
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}

	return &DomainLimiter{
		limiters: make(map[string]*rate.Limiter),
		perHost:  limit,
		burst:    burst,
	}
}

// Wait blocks until the request for the given URL can proceed according to rate limits
func (dl *DomainLimiter) Wait(ctx context.Context, urlStr string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	domain := extractDomain(urlStr)
	if domain == "" {
		// Invalid URL, let it proceed (will fail elsewhere)
		return nil
	}

	return dl.getLimiter(domain).Wait(ctx)
}

// getLimiter returns or creates a rate limiter for the given domain
func (dl *DomainLimiter) getLimiter(domain string) *rate.Limiter {
	dl.mu.RLock()
	limiter, exists := dl.limiters[domain]
	dl.mu.RUnlock()

	if exists {
		return limiter
	}

	dl.mu.Lock()
	defer dl.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := dl.limiters[domain]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(dl.perHost, dl.burst)
	dl.limiters[domain] = limiter

	return limiter
}

// MinThrottledRate is the floor Throttle never goes below
const MinThrottledRate = rate.Limit(0.5)

// Throttle halves the rate for the host of urlStr, down to MinThrottledRate.
// An unlimited host stays unlimited. It returns the new limit.
func (dl *DomainLimiter) Throttle(urlStr string) rate.Limit {
	domain := extractDomain(urlStr)
	if domain == "" {
		return dl.perHost
	}
	limiter := dl.getLimiter(domain)
	current := limiter.Limit()
	if current == rate.Inf {
		return current
	}
	next := current / 2
	if next < MinThrottledRate {
		next = MinThrottledRate
	}
	limiter.SetLimit(next)
	return next
}

// extractDomain extracts the host from a URL string
func extractDomain(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return u.Host
}
