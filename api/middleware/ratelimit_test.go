package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testLimiter(t *testing.T, cfg *RateLimitConfig) *RateLimiter {
	t.Helper()
	rl := NewRateLimiter(cfg, nil)
	t.Cleanup(rl.Stop)
	return rl
}

func TestAllowIPBurstThenBlock(t *testing.T) {
	rl := testLimiter(t, &RateLimitConfig{
		IPRequestsPerSecond: 1,
		IPBurst:             3,
		IPBlockDuration:     time.Minute,
		WritesPerSecond:     1,
		WriteBurst:          1,
		WritesPerDay:        10,
		CleanupInterval:     time.Minute,
		BucketTTL:           time.Hour,
	})

	for i := 0; i < 3; i++ {
		if ok, _ := rl.AllowIP("10.0.0.1"); !ok {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	ok, info := rl.AllowIP("10.0.0.1")
	if ok {
		t.Fatal("fourth request should be limited")
	}
	if info.RetryAfter <= 0 {
		t.Errorf("expected a retry hint, got %d", info.RetryAfter)
	}

	ok, info = rl.AllowIP("10.0.0.1")
	if ok || info.LimitType != "blocked" {
		t.Errorf("expected the bucket to stay blocked, got allowed=%v type=%s", ok, info.LimitType)
	}

	if ok, _ := rl.AllowIP("10.0.0.2"); !ok {
		t.Error("a different IP must have its own bucket")
	}
}

func TestAllowWriteDailyLimit(t *testing.T) {
	rl := testLimiter(t, &RateLimitConfig{
		IPRequestsPerSecond: 100,
		IPBurst:             100,
		IPBlockDuration:     time.Millisecond,
		WritesPerSecond:     100,
		WriteBurst:          100,
		WritesPerDay:        2,
		CleanupInterval:     time.Minute,
		BucketTTL:           time.Hour,
	})

	for i := 0; i < 2; i++ {
		if ok, _ := rl.AllowWrite("10.0.0.1"); !ok {
			t.Fatalf("write %d should be allowed", i+1)
		}
	}
	ok, info := rl.AllowWrite("10.0.0.1")
	if ok {
		t.Fatal("third write of the day should be refused")
	}
	if info.LimitType != "daily" {
		t.Errorf("expected daily limit, got %s", info.LimitType)
	}
}

func TestCleanupRemovesIdleState(t *testing.T) {
	rl := testLimiter(t, DefaultRateLimitConfig())
	rl.AllowIP("10.0.0.1")
	rl.AllowWrite("10.0.0.1")

	stats := rl.GetStats()
	if stats.TotalBuckets != 2 || stats.DailyCounters != 1 {
		t.Fatalf("unexpected stats before cleanup: %+v", stats)
	}

	rl.cleanup(time.Now().Add(48 * time.Hour))

	stats = rl.GetStats()
	if stats.TotalBuckets != 0 || stats.DailyCounters != 0 {
		t.Errorf("expected idle state to be removed, got %+v", stats)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := testLimiter(t, &RateLimitConfig{
		IPRequestsPerSecond: 1,
		IPBurst:             10,
		IPBlockDuration:     time.Minute,
		WritesPerSecond:     1,
		WriteBurst:          1,
		WritesPerDay:        100,
		CleanupInterval:     time.Minute,
		BucketTTL:           time.Hour,
	})
	handler := RateLimitMiddleware(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(method string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/v1/pools", nil)
		req.RemoteAddr = "192.0.2.7:51000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodGet)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-RateLimit-Limit") != "10" {
		t.Errorf("expected limit header 10, got %q", rec.Header().Get("X-RateLimit-Limit"))
	}

	if rec := do(http.MethodPost); rec.Code != http.StatusOK {
		t.Fatalf("first write should pass, got %d", rec.Code)
	}
	rec = do(http.MethodPost)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second write should be limited, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}

	// Reads are still served
	if rec := do(http.MethodGet); rec.Code != http.StatusOK {
		t.Errorf("reads should not be affected by the write limit, got %d", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	if got := ClientIP(req); got != "192.0.2.1" {
		t.Errorf("expected remote host, got %s", got)
	}

	req.Header.Set("X-Real-IP", "198.51.100.4")
	if got := ClientIP(req); got != "198.51.100.4" {
		t.Errorf("expected X-Real-IP, got %s", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := ClientIP(req); got != "203.0.113.9" {
		t.Errorf("expected first forwarded address, got %s", got)
	}
}
