package calendar

import (
	"math"
	"math/rand"
	"time"
)

// RetryPolicy configures bounded retry with exponential backoff for backend
// calls. It is injected into the client so retry behavior is testable in
// isolation. Write verbs are retried at most MaxAttempts times total, never
// unboundedly.
type RetryPolicy struct {
	MaxAttempts int           // total attempts, including the first
	BaseDelay   time.Duration // delay before the first retry
	MaxDelay    time.Duration // ceiling for any single backoff sleep
	Multiplier  float64       // exponential backoff factor
	Jitter      bool          // randomize delays to avoid thundering herd
}

// DefaultRetryPolicy returns the standard backend retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   250 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Multiplier:  2.0,
		Jitter:      true,
	}
}

// Delay calculates the backoff before retry attempt n (0-indexed).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	base := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt))
	delay := math.Min(base, float64(p.MaxDelay))
	if p.Jitter {
		// +/- 50% jitter
		delay = delay * (0.5 + rand.Float64())
	}
	return time.Duration(delay)
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}
