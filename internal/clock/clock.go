// Package clock abstracts time so the session core stays deterministic in tests.
package clock

import "time"

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock.
type System struct{}

// Now implements Clock.
func (System) Now() time.Time {
	return time.Now()
}

// Fixed is a manually advanced clock.
type Fixed struct {
	T time.Time
}

// Now implements Clock.
func (f *Fixed) Now() time.Time {
	return f.T
}

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.T = f.T.Add(d)
}
