package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter()
	for i := 0; i < 3; i++ {
		if !rl.Allow("key", 3, time.Minute) {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("key", 3, time.Minute) {
		t.Error("request over the limit should be denied")
	}
	if !rl.Allow("other", 3, time.Minute) {
		t.Error("separate keys have separate windows")
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	rl := NewRateLimiter()
	if !rl.Allow("key", 1, time.Nanosecond) {
		t.Fatal("first request should be allowed")
	}
	time.Sleep(5 * time.Millisecond)
	if !rl.Allow("key", 1, time.Nanosecond) {
		t.Error("expired window should reset the count")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter()
	h := RateLimit(rl, RealIP, 2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("POST", "/api/auth/login", nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("request %d status = %d, want 204", i+1, rec.Code)
		}
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/api/auth/login", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
}

func TestRealIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := RealIP(r); got != "203.0.113.7" {
		t.Errorf("RealIP = %q, want first forwarded address", got)
	}

	r = httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "198.51.100.2:4431"
	if got := RealIP(r); got != "198.51.100.2" {
		t.Errorf("RealIP = %q, want host portion of RemoteAddr", got)
	}
}
