package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Sentinel-Gate/restprovider/internal/adapter/outbound/memory"
	"github.com/Sentinel-Gate/restprovider/internal/domain/ratelimit"
	"github.com/Sentinel-Gate/restprovider/internal/service"
)

type stubLimiter struct {
	res  ratelimit.Result
	err  error
	keys []string
}

func (s *stubLimiter) Allow(_ context.Context, key string, _ ratelimit.Config) (ratelimit.Result, error) {
	s.keys = append(s.keys, key)
	return s.res, s.err
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func TestRateLimitMiddleware(t *testing.T) {
	cfg := ratelimit.Config{Rate: 1, Period: time.Second}

	tests := []struct {
		name       string
		limiter    *stubLimiter
		path       string
		wantStatus int
		wantRetry  string
	}{
		{"allowed", &stubLimiter{res: ratelimit.Result{Allowed: true}}, "/users", http.StatusNoContent, ""},
		{"throttled", &stubLimiter{res: ratelimit.Result{RetryAfter: 1500 * time.Millisecond}}, "/users", http.StatusTooManyRequests, "2"},
		{"sub-second retry", &stubLimiter{res: ratelimit.Result{RetryAfter: time.Millisecond}}, "/users", http.StatusTooManyRequests, "1"},
		{"limiter error fails open", &stubLimiter{err: errors.New("boom")}, "/users", http.StatusNoContent, ""},
		{"health exempt", &stubLimiter{}, "/health", http.StatusNoContent, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := RateLimitMiddleware(tt.limiter, cfg)(okHandler)
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.RemoteAddr = "10.1.2.3:5555"
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Retry-After"); got != tt.wantRetry {
				t.Errorf("Retry-After = %q, want %q", got, tt.wantRetry)
			}
			if tt.path != "/health" && (len(tt.limiter.keys) != 1 || tt.limiter.keys[0] != "client:10.1.2.3") {
				t.Errorf("limiter keys = %v", tt.limiter.keys)
			}
		})
	}
}

func TestRateLimitMiddleware_DisabledPassesThrough(t *testing.T) {
	limiter := &stubLimiter{}
	h := RateLimitMiddleware(limiter, ratelimit.Config{})(okHandler)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users", nil))
	if rec.Code != http.StatusNoContent || len(limiter.keys) != 0 {
		t.Errorf("status = %d, limiter calls = %d", rec.Code, len(limiter.keys))
	}
}

func TestServer_RateLimit(t *testing.T) {
	store := memory.NewRecordStore()
	srv := NewServer(service.NewRecordService(store, discardLogger()),
		WithLogger(discardLogger()),
		WithRateLimit(memory.NewRateLimiter(), ratelimit.Config{Rate: 2, Period: time.Minute}),
	)
	h := srv.Handler()

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, do(t, h, http.MethodGet, "/users", "").Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("status codes = %v, want [200 200 429]", codes)
	}
}
