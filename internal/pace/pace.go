// Package pace spaces calls to rate-limited services.
package pace

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer blocks until the next call may proceed.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Unpaced never waits.
type Unpaced struct{}

func (Unpaced) Wait(ctx context.Context) error { return ctx.Err() }

// FixedInterval lets the first call through immediately and spaces every
// later call at least one interval after the previous one.
type FixedInterval struct {
	limiter *rate.Limiter
}

// NewFixedInterval returns a fixed-interval pacer, or Unpaced when interval <= 0.
func NewFixedInterval(interval time.Duration) Pacer {
	if interval <= 0 {
		return Unpaced{}
	}
	return &FixedInterval{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

func (p *FixedInterval) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// PerMinute builds a pacer from a requests-per-minute quota.
func PerMinute(rpm int) Pacer {
	if rpm <= 0 {
		return Unpaced{}
	}
	return NewFixedInterval(time.Minute / time.Duration(rpm))
}
