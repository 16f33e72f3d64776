package proxy

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func mustPool(t *testing.T, raw ...string) *Pool {
	t.Helper()
	pool, err := NewPool(raw, time.Minute)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	return pool
}

func host(t *testing.T, pool *Pool) string {
	t.Helper()
	u := pool.Next()
	if u == nil {
		return ""
	}
	return u.Host
}

func TestPool(t *testing.T) {
	pool := mustPool(t, "http://p1:8080", "http://p2:8080", "", "http://p3:8080")

	if pool.Len() != 3 {
		t.Fatalf("Expected 3 proxies, got %d", pool.Len())
	}

	// Test rotation
	for _, want := range []string{"p1:8080", "p2:8080", "p3:8080", "p1:8080"} {
		if got := host(t, pool); got != want {
			t.Errorf("Expected %s, got %s", want, got)
		}
	}

	// Should skip p2
	p2 := pool.proxies[1]
	pool.MarkFailed(p2)
	if got := host(t, pool); got != "p3:8080" {
		t.Errorf("Expected p3 (skipping p2), got %s", got)
	}
	if got := host(t, pool); got != "p1:8080" {
		t.Errorf("Expected p1, got %s", got)
	}
	if got := host(t, pool); got != "p3:8080" {
		t.Errorf("Expected p3, got %s", got)
	}

	// Should include p2 again
	pool.MarkHealthy(p2)
	if got := host(t, pool); got != "p1:8080" {
		t.Errorf("Expected p1, got %s", got)
	}
	if got := host(t, pool); got != "p2:8080" {
		t.Errorf("Expected p2, got %s", got)
	}
}

func TestPool_AllFailedStillReturns(t *testing.T) {
	pool := mustPool(t, "http://p1:1", "http://p2:2")
	pool.MarkFailed(pool.proxies[0])
	pool.MarkFailed(pool.proxies[1])
	if pool.Next() == nil {
		t.Fatal("Expected a proxy even when all are cooling down")
	}
}

func TestPool_Empty(t *testing.T) {
	pool := mustPool(t)
	if pool.Next() != nil {
		t.Fatal("Expected nil from an empty pool")
	}
	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	if u, err := pool.ProxyFunc(req); err != nil || u != nil {
		t.Fatalf("Expected direct connection, got %v %v", u, err)
	}
}

func TestPool_ProxyFuncUsesPinnedProxy(t *testing.T) {
	pool := mustPool(t, "http://p1:1", "http://p2:2")
	pinned := pool.proxies[1]

	req, _ := http.NewRequestWithContext(WithProxy(context.Background(), pinned), http.MethodGet, "http://example.com", nil)
	u, err := pool.ProxyFunc(req)
	if err != nil || u != pinned {
		t.Fatalf("Expected pinned proxy, got %v %v", u, err)
	}
}

func TestNewPool_Invalid(t *testing.T) {
	if _, err := NewPool([]string{"not a proxy"}, 0); err == nil {
		t.Fatal("Expected error for invalid proxy")
	}
}
