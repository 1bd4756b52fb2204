package gateway

import "time"

// NextDelay doubles the current delay, capped at max.
func NextDelay(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}

// backoff tracks the reconnect delay. It only computes timing; whether to
// reconnect at all is decided by the connection's stopped flag.
type backoff struct {
	base  time.Duration
	max   time.Duration
	delay time.Duration
}

func newBackoff(base, max time.Duration) backoff {
	return backoff{base: base, max: max, delay: base}
}

// next returns the delay to use now and advances to the following one.
func (b *backoff) next() time.Duration {
	d := b.delay
	b.delay = NextDelay(d, b.max)
	return d
}

// reset returns the delay to its base after a successful session.
func (b *backoff) reset() {
	b.delay = b.base
}
