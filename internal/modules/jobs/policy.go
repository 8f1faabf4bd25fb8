package jobs

import (
	"time"
)

// RetryPolicy decides whether a failed item is retried and after what delay.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BaseDelay: 10 * time.Second, MaxDelay: 300 * time.Second}
}

// Delay is min(MaxDelay, 2^retryCount * BaseDelay).
func (p RetryPolicy) Delay(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	d := p.BaseDelay
	for i := 0; i < retryCount; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Retry reports whether an item that has already been retried retryCount
// times may be enqueued again.
func (p RetryPolicy) Retry(retryCount int) bool {
	return retryCount < p.MaxRetries
}
