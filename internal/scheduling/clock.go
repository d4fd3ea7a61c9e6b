package scheduling

import "time"

// Clock supplies the current instant for past-date and cancellation-window
// checks.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns T. Useful in jobs that run "as of" a date.
type FixedClock struct{ T time.Time }

func (c FixedClock) Now() time.Time { return c.T }
