package camera

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy bounds how often a busy capture is reattempted. The right
// values are camera-model dependent, so they live in configuration.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// Run invokes attempt up to MaxAttempts times, sleeping Backoff between
// tries. It retries only errors whose Retryable() is true; any other error,
// or exhaustion of the budget, ends the loop with the last error.
func (p RetryPolicy) Run(ctx context.Context, attempt func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var last error
	for i := 0; i < attempts; i++ {
		last = attempt()
		if last == nil {
			return nil
		}
		var ce *Error
		if !errors.As(last, &ce) || !ce.Retryable() {
			return last
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Backoff):
		}
	}
	return last
}
