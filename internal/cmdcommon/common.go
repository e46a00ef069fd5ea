// Package cmdcommon provides shared defaults and exit codes for the
// test-runner command-line tool.
package cmdcommon

// Built-in defaults, overridable from the command line or the runfile.
var (
	// DefaultOutputDir is where run results are collected when no output
	// directory is specified.
	DefaultOutputDir = "/var/tmp/test_results"

	// DefaultTestDir is the base directory searched for runfile sections
	// given as relative paths.
	DefaultTestDir = "/usr/share/zfs/"
)

// Process exit codes. These define the states the application reports when
// it exits:
//
//   - ExitSuccess (0): every executed test passed
//   - ExitFailure (1): at least one test failed or was killed
//   - ExitNoTests (2): no tests were executed at all
//   - ExitRerun (3): nothing failed, but at least one test needed the
//     timeout-rerun fallback; surfaced so callers can treat the run as
//     suspect without failing it
//   - ExitFatal (4): a runtime or configuration error aborted the run
//   - ExitInterrupted (5): the run was terminated at user request
const (
	ExitSuccess     = 0
	ExitFailure     = 1
	ExitNoTests     = 2
	ExitRerun       = 3
	ExitFatal       = 4
	ExitInterrupted = 5
)

// SkipExitCode is the child-process exit code conventionally used by test
// scripts to self-report "not applicable". It is unrelated to the process
// exit codes above.
const SkipExitCode = 4
