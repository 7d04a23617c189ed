package retry

import (
	"context"
	"math/rand"
	"time"
)

// BackoffStrategy computes the pause before the attempt that follows attempt
type BackoffStrategy interface {
	NextDelay(attempt int) time.Duration
}

// LinearBackoff waits BaseDelay after the first attempt and Increment more
// after each subsequent one.
type LinearBackoff struct {
	BaseDelay time.Duration
	Increment time.Duration
	// MaxDelay caps the delay; zero means no cap
	MaxDelay time.Duration
	// JitterFactor adds randomness (0.0 to 1.0)
	JitterFactor float64
}

// Proportional returns a linear backoff of base*attempt
func Proportional(base time.Duration) *LinearBackoff {
	return &LinearBackoff{BaseDelay: base, Increment: base}
}

// NextDelay calculates the next delay with linear backoff
func (lb *LinearBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := float64(lb.BaseDelay + lb.Increment*time.Duration(attempt-1))
	if lb.MaxDelay > 0 && delay > float64(lb.MaxDelay) {
		delay = float64(lb.MaxDelay)
	}

	if lb.JitterFactor > 0 {
		jitter := delay * lb.JitterFactor
		delay += (rand.Float64() * 2 * jitter) - jitter
	}

	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// Wait waits for the specified duration or until context is cancelled
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
