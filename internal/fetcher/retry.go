package fetcher

import (
	"context"
	"time"
)

// RetryPolicy bounds FetchWithRetry.
type RetryPolicy struct {
	// Attempts is the total number of tries. Values below 1 mean one try.
	Attempts int

	// Delay is the fixed pause between tries.
	Delay time.Duration
}

func (p RetryPolicy) attempts() int {
	if p.Attempts < 1 {
		return 1
	}
	return p.Attempts
}

// FetchWithRetry issues GET requests for url until one receives an HTTP
// response or the policy is exhausted. The pause between tries ends early
// when ctx is cancelled, and no further try is made after that.
//
// The returned Outcome is the last one obtained; its Attempts field tells
// how many requests were made.
func (c *Client) FetchWithRetry(ctx context.Context, url string, policy RetryPolicy) *Outcome {
	total := policy.attempts()

	var out *Outcome
	for attempt := 1; attempt <= total; attempt++ {
		out = c.Fetch(ctx, url)
		out.Attempts = attempt
		if !out.Failed() {
			return out
		}
		if attempt == total || ctx.Err() != nil {
			break
		}

		c.logger.Debug("retrying fetch",
			"url", url,
			"attempt", attempt,
			"of", total,
			"delay", policy.Delay,
			"error", out.Err)
		if c.onRetry != nil {
			c.onRetry(url, attempt, out.Err)
		}

		if err := sleep(ctx, policy.Delay); err != nil {
			break
		}
	}
	return out
}

// sleep pauses for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
