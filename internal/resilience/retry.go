package resilience

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Policy bounds how often and for how long a transient failure is retried.
// The delay doubles after every failed attempt, capped at MaxDelay, with
// ±25% jitter.
type Policy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// Delay is the pause before the first retry.
	Delay time.Duration
	// MaxDelay caps the pause between retries.
	MaxDelay time.Duration
	// OnRetry, if set, is called before each pause.
	OnRetry func(attempt int, err error)
}

const jitterFraction = 0.25

func (p Policy) withDefaults() Policy {
	if p.Attempts <= 0 {
		p.Attempts = 1
	}
	if p.Delay <= 0 {
		p.Delay = 500 * time.Millisecond
	}
	if p.MaxDelay < p.Delay {
		p.MaxDelay = p.Delay
	}
	return p
}

// backoff returns the pause after failed attempt n (0-based), before jitter.
func (p Policy) backoff(n int) time.Duration {
	d := p.Delay
	for i := 0; i < n && d < p.MaxDelay; i++ {
		d *= 2
	}
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

func jitter(d time.Duration) time.Duration {
	spread := float64(d) * jitterFraction
	return d + time.Duration((rand.Float64()*2-1)*spread)
}

// Retry calls fn until it succeeds, returns an error IsTransient rejects,
// ctx is done, or p.Attempts is used up. The last error is returned.
func Retry[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.withDefaults()

	var zero T
	for attempt := 0; ; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		if ctx.Err() != nil || !IsTransient(err) || attempt+1 >= p.Attempts {
			return zero, err
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt+1, err)
		}

		timer := time.NewTimer(jitter(p.backoff(attempt)))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, err
		case <-timer.C:
		}
	}
}

// RetryLogger returns an OnRetry callback that logs each retry at Warn.
func RetryLogger(operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying operation",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
