package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Sentinel-Gate/restprovider/internal/domain/ratelimit"
)

// MemoryRateLimiter implements ratelimit.Limiter with GCRA over an in-memory
// map of theoretical arrival times. Safe for concurrent use.
type MemoryRateLimiter struct {
	mu    sync.Mutex
	cells map[string]time.Time
	now   func() time.Time

	stop            chan struct{}
	wg              sync.WaitGroup
	once            sync.Once
	cleanupInterval time.Duration
	maxTTL          time.Duration
}

// NewRateLimiter creates a limiter that forgets keys idle for an hour once
// StartCleanup is running.
func NewRateLimiter() *MemoryRateLimiter {
	return NewRateLimiterWithConfig(5*time.Minute, time.Hour)
}

// NewRateLimiterWithConfig creates a limiter with custom cleanup settings.
func NewRateLimiterWithConfig(cleanupInterval, maxTTL time.Duration) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		cells:           make(map[string]time.Time),
		now:             time.Now,
		stop:            make(chan struct{}),
		cleanupInterval: cleanupInterval,
		maxTTL:          maxTTL,
	}
}

// Allow admits the request when key's theoretical arrival time, less the
// burst allowance, is not in the future.
func (r *MemoryRateLimiter) Allow(_ context.Context, key string, cfg ratelimit.Config) (ratelimit.Result, error) {
	if !cfg.Enabled() {
		return ratelimit.Result{Allowed: true}, nil
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.Rate
	}
	emission := cfg.Period / time.Duration(cfg.Rate)
	burstOffset := time.Duration(cfg.Burst) * emission

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	tat, ok := r.cells[key]
	if !ok || tat.Before(now) {
		tat = now
	}

	// Admitting this request would push tat to tat+emission, which must stay
	// within burstOffset of now.
	if allowAt := tat.Add(emission - burstOffset); now.Before(allowAt) {
		return ratelimit.Result{
			RetryAfter: allowAt.Sub(now),
			ResetAfter: tat.Sub(now),
		}, nil
	}

	tat = tat.Add(emission)
	r.cells[key] = tat

	remaining := int((burstOffset - tat.Sub(now)) / emission)
	return ratelimit.Result{
		Allowed:    true,
		Remaining:  max(0, min(remaining, cfg.Burst)),
		ResetAfter: tat.Sub(now),
	}, nil
}

// StartCleanup removes idle keys every cleanup interval until ctx is
// cancelled or Stop is called.
func (r *MemoryRateLimiter) StartCleanup(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-r.stop:
				return
			case <-ticker.C:
				r.cleanup()
			}
		}
	}()
}

func (r *MemoryRateLimiter) cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.maxTTL)
	cleaned := 0
	for key, tat := range r.cells {
		if tat.Before(cutoff) {
			delete(r.cells, key)
			cleaned++
		}
	}
	if cleaned > 0 {
		slog.Debug("rate limiter cleanup completed", "cleaned_keys", cleaned, "remaining_keys", len(r.cells))
	}
}

// Stop ends the cleanup goroutine and waits for it. Safe to call twice.
func (r *MemoryRateLimiter) Stop() {
	r.once.Do(func() { close(r.stop) })
	r.wg.Wait()
}

// Size returns the number of tracked keys.
func (r *MemoryRateLimiter) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cells)
}

var _ ratelimit.Limiter = (*MemoryRateLimiter)(nil)
