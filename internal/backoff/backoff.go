package backoff

import "time"

// Policy computes the wait before a reconnection attempt.
//
// The delay doubles from Base on every attempt and is clamped at Cap,
// so for the defaults the schedule is 1s, 2s, 4s, 8s, 16s, 30s.
// NextDelay is pure: no clocks, no randomness, no side effects.
type Policy struct {
	Base        time.Duration // Delay before the first retry
	Cap         time.Duration // Upper bound on any delay
	MaxAttempts int           // Retries before giving up entirely
}

// DefaultPolicy returns sensible defaults.
func DefaultPolicy() Policy {
	return Policy{
		Base:        1 * time.Second,
		Cap:         30 * time.Second,
		MaxAttempts: 5,
	}
}

// NextDelay returns the wait before retry number attempt (0-based).
// Monotonically non-decreasing in attempt. Negative attempts are
// treated as 0.
func (p Policy) NextDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	d := p.Base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= p.Cap {
			return p.Cap
		}
	}
	if d > p.Cap {
		return p.Cap
	}
	return d
}

// Exhausted reports whether attempt has reached the retry limit.
func (p Policy) Exhausted(attempt int) bool {
	return attempt >= p.MaxAttempts
}
