package services

import (
	"time"

	"github.com/sethvargo/go-retry"
)

const jitterPercent = 10

// newBackoff returns a fresh exponential policy. go-retry backoffs are stateful,
// so every retry.Do call needs its own.
func newBackoff(base, maxDelay time.Duration, maxRetries int) retry.Backoff {
	if base <= 0 {
		base = time.Second
	}
	if maxDelay < base {
		maxDelay = base
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	b := retry.NewExponential(base)
	b = retry.WithJitterPercent(jitterPercent, b)
	b = retry.WithCappedDuration(maxDelay, b)
	return retry.WithMaxRetries(uint64(maxRetries), b)
}

// withFloor raises the next delay to *floor when set, then clears it.
// The fetcher sets the floor after a throttling response.
func withFloor(next retry.Backoff, floor *time.Duration) retry.Backoff {
	return retry.BackoffFunc(func() (time.Duration, bool) {
		d, stop := next.Next()
		if stop {
			return 0, true
		}
		if *floor > d {
			d = *floor
		}
		*floor = 0
		return d, false
	})
}
