package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, RateLimitPolicy) (Decision, error) {
	return Decision{}, errors.New("redis down")
}

func hit(h http.Handler, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req.RemoteAddr = remote
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestLocalRateLimiterPerIP(t *testing.T) {
	h := NewRateLimiter(2, time.Minute).Middleware()(http.HandlerFunc(noContent))

	for i := 0; i < 2; i++ {
		if rr := hit(h, "10.0.0.1:1000"); rr.Code != http.StatusNoContent {
			t.Fatalf("request %d: expected 204, got %d", i, rr.Code)
		}
	}
	rr := hit(h, "10.0.0.1:1001")
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") == "" {
		t.Fatalf("expected 429 with Retry-After, got %d", rr.Code)
	}
	if rr := hit(h, "10.0.0.2:1000"); rr.Code != http.StatusNoContent {
		t.Fatalf("other clients must be unaffected, got %d", rr.Code)
	}
}

func TestLocalLimiterWindowSlides(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := NewLocalLimiter().(*localLimiter)
	l.now = func() time.Time { return now }
	policy := newRateLimitPolicy(1, time.Minute)

	if d, _ := l.Allow(context.Background(), "k", policy); !d.Allowed {
		t.Fatal("first request must pass")
	}
	if d, _ := l.Allow(context.Background(), "k", policy); d.Allowed || d.RetryAfter <= 0 {
		t.Fatalf("second request must be denied with a retry hint, got %+v", d)
	}
	now = now.Add(time.Minute + time.Second)
	if d, _ := l.Allow(context.Background(), "k", policy); !d.Allowed {
		t.Fatal("request after the window must pass")
	}
}

func TestRedisLimiterSharedWindow(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter := NewRedisLimiter(client, "test")
	h := NewDistributedRateLimiter(limiter, 2, time.Minute, FailClosed, "auth").Middleware()(http.HandlerFunc(noContent))
	for i := 0; i < 2; i++ {
		if rr := hit(h, "10.0.0.1:1000"); rr.Code != http.StatusNoContent {
			t.Fatalf("request %d: expected 204, got %d", i, rr.Code)
		}
	}
	if rr := hit(h, "10.0.0.1:1000"); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if !server.Exists("test:ratelimit:auth:10.0.0.1") {
		t.Fatalf("expected prefixed counter key, have %v", server.Keys())
	}

	server.FastForward(time.Minute + time.Second)
	if rr := hit(h, "10.0.0.1:1000"); rr.Code != http.StatusNoContent {
		t.Fatalf("expected window reset, got %d", rr.Code)
	}
}

func TestRateLimiterFailureModes(t *testing.T) {
	closed := NewDistributedRateLimiter(failingLimiter{}, 5, time.Minute, FailClosed, "auth").Middleware()(http.HandlerFunc(noContent))
	if rr := hit(closed, "10.0.0.1:1"); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("fail closed: expected 429, got %d", rr.Code)
	}
	open := NewDistributedRateLimiter(failingLimiter{}, 5, time.Minute, FailOpen, "auth").Middleware()(http.HandlerFunc(noContent))
	if rr := hit(open, "10.0.0.1:1"); rr.Code != http.StatusNoContent {
		t.Fatalf("fail open: expected 204, got %d", rr.Code)
	}
}
