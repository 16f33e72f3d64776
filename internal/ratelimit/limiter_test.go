package ratelimit

import (
	"context"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestDomainLimiter_PacesPerHost(t *testing.T) {
	dl := NewDomainLimiter(20, 1)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := dl.Wait(ctx, "http://a.test/page"); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	// two waits of 50ms after the first token
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("Expected pacing, took %v", elapsed)
	}

	// another host has its own bucket
	start = time.Now()
	if err := dl.Wait(ctx, "http://b.test/page"); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 40*time.Millisecond {
		t.Errorf("Expected immediate token for new host, took %v", elapsed)
	}
}

func TestDomainLimiter_Unlimited(t *testing.T) {
	dl := NewDomainLimiter(0, 0)
	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := dl.Wait(context.Background(), "http://a.test/"); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("Expected no pacing, took %v", elapsed)
	}
}

func TestDomainLimiter_ContextCancelled(t *testing.T) {
	dl := NewDomainLimiter(0.1, 1)
	ctx, cancel := context.WithCancel(context.Background())
	_ = dl.Wait(ctx, "http://a.test/")
	cancel()
	if err := dl.Wait(ctx, "http://a.test/"); err == nil {
		t.Fatal("Expected error after cancellation")
	}
}

func TestDomainLimiter_Throttle(t *testing.T) {
	dl := NewDomainLimiter(4, 1)

	if got := dl.Throttle("http://a.test/x"); got != 2 {
		t.Errorf("Expected 2 rps after first throttle, got %v", got)
	}
	dl.Throttle("http://a.test/x")
	dl.Throttle("http://a.test/x")
	if got := dl.Throttle("http://a.test/x"); got != MinThrottledRate {
		t.Errorf("Expected floor %v, got %v", MinThrottledRate, got)
	}

	// other hosts keep the configured rate
	if got := dl.getLimiter("b.test").Limit(); got != 4 {
		t.Errorf("Expected untouched host at 4 rps, got %v", got)
	}

	unlimited := NewDomainLimiter(0, 0)
	if got := unlimited.Throttle("http://a.test/"); got != rate.Inf {
		t.Errorf("Expected unlimited host to stay unlimited, got %v", got)
	}
}
