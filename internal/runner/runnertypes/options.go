package runnertypes

import "errors"

// Error definitions
var (
	// ErrNegativeTimeout is returned when a runfile or flag specifies a
	// negative timeout
	ErrNegativeTimeout = errors.New("timeout cannot be negative")

	// ErrNegativeIterations is returned for a non-positive iteration count
	ErrNegativeIterations = errors.New("iterations must be positive")
)

// Options is the fully-enumerated runtime configuration of a test run,
// assembled from command-line flags. Runfile defaults and per-section values
// are merged onto specs by the config package with documented precedence:
// per-section beats runfile defaults beats these values.
type Options struct {
	// OutputDir is the base directory for run results
	OutputDir string

	// TestDir is the base directory for relative runfile section paths
	TestDir string

	// Runfile is the path of a runfile to execute (mutually exclusive
	// with Template)
	Runfile string

	// Template is the path of a runfile to generate from discovered tests
	Template string

	// Quiet keeps PASS result lines off the console; failures and the
	// persistent log are unaffected
	Quiet bool

	// DryRun prints what would run without executing anything
	DryRun bool

	// DoGroups makes discovery treat directories as test groups
	DoGroups bool

	// Timeout is the default per-test timeout in seconds (0 = unbounded)
	Timeout int32

	// User, Pre, PreUser, Post, PostUser are default unit properties
	User     string
	Pre      string
	PreUser  string
	Post     string
	PostUser string

	// Tags selects which groups execute; empty selects all
	Tags []string

	// Iterations is how many times the whole unit set is executed
	Iterations int

	// Pathnames are the positional test/directory arguments
	Pathnames []string
}

// Validate checks option values that no flag parser can reject on its own.
func (o *Options) Validate() error {
	if o.Timeout < 0 {
		return ErrNegativeTimeout
	}
	if o.Iterations <= 0 {
		return ErrNegativeIterations
	}
	return nil
}
