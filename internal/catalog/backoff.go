package catalog

import "time"

// BackoffPolicy yields the delay before retry attempt n (0-based).
type BackoffPolicy interface {
	Delay(attempt int) time.Duration
}

// ConstantBackoff waits a fixed interval between attempts. This matches the
// upstream's sliding 1-second budget: by the time the interval elapses, the
// window has fully replenished.
type ConstantBackoff struct {
	Interval time.Duration
}

// Delay implements BackoffPolicy.
func (b ConstantBackoff) Delay(int) time.Duration {
	if b.Interval <= 0 {
		return time.Second
	}
	return b.Interval
}

// ExponentialBackoff doubles the delay per attempt up to Max. Reduces
// thundering-herd pressure when many callers hit the limiter at once.
type ExponentialBackoff struct {
	Base time.Duration
	Max  time.Duration
}

// Delay implements BackoffPolicy.
func (b ExponentialBackoff) Delay(attempt int) time.Duration {
	base := b.Base
	if base <= 0 {
		base = time.Second
	}
	d := base << uint(attempt)
	if b.Max > 0 && d > b.Max {
		d = b.Max
	}
	return d
}
