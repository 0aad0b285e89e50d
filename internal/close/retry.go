package close

import (
	"context"
	"time"
)

// RetryPolicy bounds automatic retries of transient collaborator failures.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, BaseDelay: 200 * time.Millisecond, MaxDelay: 2 * time.Second}
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	d := p.BaseDelay << attempt
	if d <= 0 || (p.MaxDelay > 0 && d > p.MaxDelay) {
		return p.MaxDelay
	}
	return d
}

// Retry runs op until it succeeds, fails with a non-transient error, or the
// attempt budget is spent. An exhausted budget surfaces as KindUnknown.
func Retry(ctx context.Context, policy RetryPolicy, op string, fn func(context.Context) error) error {
	attempts := policy.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	var last error
	for i := 0; i < attempts; i++ {
		last = fn(ctx)
		if last == nil {
			return nil
		}
		if !Classify(last).Retryable() {
			return last
		}
		if i == attempts-1 {
			break
		}
		timer := time.NewTimer(policy.delay(i))
		select {
		case <-ctx.Done():
			timer.Stop()
			return &ClassifiedError{Class: KindUnknown, Op: op, Err: last}
		case <-timer.C:
		}
	}
	return &ClassifiedError{Class: KindUnknown, Op: op + " retries exhausted", Err: last}
}
