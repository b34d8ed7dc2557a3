package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestRegistry_PerHostIsolation(t *testing.T) {
	r := NewRegistry(1000).WithHost("slow.example.com", 1)

	fast := r.Limiter("fast.example.com")
	slow := r.Limiter("slow.example.com")

	if fast.Limit() == slow.Limit() {
		t.Error("expected distinct limiters per host")
	}
}

func TestRegistry_WaitRespectsContext(t *testing.T) {
	r := NewRegistry(0.001) // effectively one token available far in the future
	r.Limiter("example.com").SetBurst(1)
	// Drain the initial burst token.
	_ = r.Limiter("example.com").Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := r.Wait(ctx, "example.com"); err == nil {
		t.Error("expected Wait to respect context deadline when no token is available")
	}
}

func TestRegistry_ReusesLimiterPerHost(t *testing.T) {
	r := NewRegistry(5)
	l1 := r.Limiter("api.github.com")
	l2 := r.Limiter("api.github.com")
	if l1 != l2 {
		t.Error("expected the same limiter instance on repeat lookups for the same host")
	}
}
