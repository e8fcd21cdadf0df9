// Package ratelimit defines the throttling port used by the sandbox server.
package ratelimit

import (
	"context"
	"time"
)

// Limiter decides whether one more request for key fits under cfg.
// Implementations use GCRA so requests are spread evenly over the period.
type Limiter interface {
	Allow(ctx context.Context, key string, cfg Config) (Result, error)
}

// Config is a rate of Rate events per Period with bursts up to Burst.
type Config struct {
	Rate   int
	Burst  int
	Period time.Duration
}

// Enabled reports whether cfg limits anything.
func (c Config) Enabled() bool {
	return c.Rate > 0 && c.Period > 0
}

// Result is the outcome of one Allow call.
type Result struct {
	Allowed   bool
	Remaining int
	// RetryAfter is only set when Allowed is false.
	RetryAfter time.Duration
	ResetAfter time.Duration
}

// ClientKey returns the limiter key for a client address.
func ClientKey(addr string) string {
	return "client:" + addr
}
