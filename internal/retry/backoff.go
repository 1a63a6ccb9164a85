package retry

import (
	"context"
	"time"
)

// Clock abstracts time for delay computation and sleeping.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Sleep blocks for d or until ctx is cancelled, returning ctx.Err()
	// in the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock implements Clock using the real time package.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// Sleep implements Clock. It honors context cancellation.
func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Policy describes a capped exponential backoff schedule.
type Policy struct {
	// Base is the delay before the first retry.
	Base time.Duration

	// Cap bounds the per-attempt delay. Zero means no cap.
	Cap time.Duration

	// Attempts is the total number of tries, including the first.
	Attempts int
}

// Delay returns the backoff delay after the given zero-based attempt:
// Base doubled per attempt, bounded by Cap.
func (p Policy) Delay(attempt int) time.Duration {
	d := p.Base
	for i := 0; i < attempt; i++ {
		d *= 2
		if p.Cap > 0 && d >= p.Cap {
			return p.Cap
		}
	}
	if p.Cap > 0 && d > p.Cap {
		return p.Cap
	}
	return d
}

// Do runs fn up to p.Attempts times, sleeping the scheduled delay between
// tries. It stops early when fn succeeds, when retryable reports the error
// as permanent, or when ctx is cancelled. The last error from fn is
// returned.
func Do(ctx context.Context, clock Clock, p Policy, retryable func(error) bool, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if serr := clock.Sleep(ctx, p.Delay(attempt-1)); serr != nil {
				return serr
			}
		}

		if err = fn(); err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
	}
	return err
}
