// Package clock provides the time source and deferred-callback scheduler used
// by the matchers, trackers and toast centre. Production code uses Real; tests
// drive a Manual clock so timeouts can be stepped deterministically.
package clock

import "time"

// Cancel stops a scheduled callback. Calling it after the callback fired, or
// more than once, is harmless.
type Cancel func()

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// Scheduler runs fn once after delay.
type Scheduler interface {
	Clock
	Schedule(delay time.Duration, fn func()) Cancel
}

// Real is the wall clock backed by time.AfterFunc.
type Real struct{}

// NewReal returns the wall-clock scheduler.
func NewReal() Real {
	return Real{}
}

func (Real) Now() time.Time {
	return time.Now()
}

func (Real) Schedule(delay time.Duration, fn func()) Cancel {
	t := time.AfterFunc(delay, fn)
	return func() { t.Stop() }
}
