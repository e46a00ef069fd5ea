// Package color provides small helpers for coloring terminal output using
// ANSI escape sequences. Functions here return formatted strings; whether
// color should be applied at all is the caller's decision (see the terminal
// package).
//
//nolint:revive // package name conflicts with standard library
package color

// ANSI color codes
const (
	resetCode  = "\033[0m"
	greenCode  = "\033[32m"
	yellowCode = "\033[33m"
	redCode    = "\033[31m"
	cyanCode   = "\033[36m"
)

// Color represents a color function that wraps text with ANSI escape
// sequences.
type Color func(text string) string

// NewColor creates a color function with the specified ANSI code.
func NewColor(ansiCode string) Color {
	return func(text string) string {
		return ansiCode + text + resetCode
	}
}

// Predefined color functions
var (
	// Green colors text in green (passing results)
	Green = NewColor(greenCode)

	// Yellow colors text in yellow (skipped results)
	Yellow = NewColor(yellowCode)

	// Red colors text in red (failed or killed results)
	Red = NewColor(redCode)

	// Cyan colors text in cyan (annotations)
	Cyan = NewColor(cyanCode)
)
