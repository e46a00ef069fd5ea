package common

import "time"

// Clock abstracts the time source used for measuring elapsed run time.
// Implementations must return readings that are safe against wall-clock
// adjustments; durations derived from them use Go's monotonic clock reading.
type Clock interface {
	// Now returns the current time, carrying a monotonic clock reading.
	Now() time.Time

	// Since returns the time elapsed since t, measured monotonically.
	Since(t time.Time) time.Duration
}

// MonotonicClock implements Clock using the standard time package, whose
// Time values carry a monotonic reading on all supported platforms.
type MonotonicClock struct{}

// NewMonotonicClock creates a new MonotonicClock
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{}
}

// Now returns the current time
func (MonotonicClock) Now() time.Time { return time.Now() }

// Since returns the time elapsed since t
func (MonotonicClock) Since(t time.Time) time.Duration { return time.Since(t) }
