package httpx

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// newRetryBackOff returns the pacing schedule for one call to Do. The
// schedule yields backoff.Stop once MaxAttempts attempts have been used.
func newRetryBackOff(policy RetryPolicy) backoff.BackOff {
	var b backoff.BackOff = &backoff.ZeroBackOff{}
	if policy.BackOff != nil {
		b = policy.BackOff()
	}
	b.Reset()
	retries := policy.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithMaxRetries(b, uint64(retries))
}

// ConstantBackOff is a convenience for RetryPolicy.BackOff when a fixed
// pause between attempts is wanted.
func ConstantBackOff(d time.Duration) func() backoff.BackOff {
	return func() backoff.BackOff {
		return backoff.NewConstantBackOff(d)
	}
}
