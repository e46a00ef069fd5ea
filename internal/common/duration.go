package common

import (
	"fmt"
	"time"
)

const (
	// DefaultTimeout is used when no per-test timeout is explicitly set
	DefaultTimeout = 60 // seconds

	secondsPerMinute = 60
	minutesPerHour   = 60
)

// FormatRuntime formats an elapsed duration as mm:ss for result lines.
// Minutes are not capped at 59; a 90 minute run renders as 90:00.
func FormatRuntime(d time.Duration) string {
	total := int64(d.Seconds())
	if total < 0 {
		total = 0
	}
	m, s := total/secondsPerMinute, total%secondsPerMinute
	return fmt.Sprintf("%02d:%02d", m, s)
}

// FormatWallTime formats a total run duration as hh:mm:ss for the summary.
func FormatWallTime(d time.Duration) string {
	total := int64(d.Seconds())
	if total < 0 {
		total = 0
	}
	h := total / (secondsPerMinute * minutesPerHour)
	m := (total / secondsPerMinute) % minutesPerHour
	s := total % secondsPerMinute
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
