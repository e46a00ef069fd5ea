package logging

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// ErrorType represents different types of pre-execution errors
type ErrorType string

const (
	// ErrorTypeRunfileParsing represents runfile parsing failures
	ErrorTypeRunfileParsing ErrorType = "runfile_parsing_failed"
	// ErrorTypeLogFileOpen represents log file opening failures
	ErrorTypeLogFileOpen ErrorType = "log_file_open_failed"
	// ErrorTypeOutputDir represents output directory creation failures
	ErrorTypeOutputDir ErrorType = "output_dir_failed"
	// ErrorTypeInvalidArguments represents command line argument errors
	ErrorTypeInvalidArguments ErrorType = "invalid_arguments"
	// ErrorTypeSystemError represents system errors
	ErrorTypeSystemError ErrorType = "system_error"
)

// PreExecutionError represents an error that occurs before any test executes.
// These are always fatal: the run never starts.
type PreExecutionError struct {
	Type      ErrorType
	Message   string
	Component string
	RunID     string
	Err       error // Wrapped error for better error context preservation
}

// Error implements the error interface
func (e *PreExecutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v (component: %s, run_id: %s)", e.Type, e.Message, e.Err, e.Component, e.RunID)
	}
	return fmt.Sprintf("%s: %s (component: %s, run_id: %s)", e.Type, e.Message, e.Component, e.RunID)
}

// Unwrap implements error wrapping for errors.Unwrap
func (e *PreExecutionError) Unwrap() error {
	return e.Err
}

// HandlePreExecutionError reports a pre-execution error on stderr and through
// slog. The stderr output is built atomically to avoid interleaved lines.
func HandlePreExecutionError(errorType ErrorType, errorMsg, component, runID string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Error: %s\n", errorType)
	if component != "" {
		fmt.Fprintf(&b, "  Component: %s\n", component)
	}
	fmt.Fprintf(&b, "  Details: %s\n", errorMsg)
	if runID != "" {
		fmt.Fprintf(&b, "  Run ID: %s\n", runID)
	}
	fmt.Fprint(os.Stderr, b.String())

	slog.Error("Pre-execution error occurred",
		"error_type", string(errorType),
		"error_message", errorMsg,
		"component", component,
		"run_id", runID,
	)
}
