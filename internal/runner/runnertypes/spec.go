// Package runnertypes defines the core data structures used throughout the
// test-runner. It includes the runfile specification types, the runtime state
// of a supervised execution attempt, and the runner options.
package runnertypes

// RunfileSpec represents the root runfile structure loaded from a TOML file.
// This is an immutable representation of the runfile and should not be
// modified after loading.
//
// All fields in this struct correspond directly to the TOML file structure.
type RunfileSpec struct {
	// Version specifies the runfile version (e.g., "1.0")
	Version string `toml:"version"`

	// Defaults contains run-wide default properties. Per-section values
	// override these; built-in defaults apply where both are absent.
	Defaults DefaultsSpec `toml:"defaults"`

	// Tests contains all standalone tests defined in the runfile
	Tests []TestSpec `toml:"tests"`

	// Groups contains all test groups defined in the runfile
	Groups []GroupSpec `toml:"groups"`
}

// DefaultsSpec contains the run-wide defaults section of a runfile.
type DefaultsSpec struct {
	OutputDir string   `toml:"outputdir"` // Base directory for run results
	Quiet     *bool    `toml:"quiet"`     // Keep PASS result lines off the console
	Timeout   *int32   `toml:"timeout"`   // Default timeout in seconds (nil=60, 0=unbounded)
	User      string   `toml:"user"`      // Identity tests run as (empty=caller)
	Pre       string   `toml:"pre"`       // Default setup script
	PreUser   string   `toml:"pre_user"`  // Identity the setup script runs as
	Post      string   `toml:"post"`      // Default teardown script
	PostUser  string   `toml:"post_user"` // Identity the teardown script runs as
	Tags      []string `toml:"tags"`      // Default tag set
}

// TestSpec describes a single test to run. It is constructed once, from
// discovery or from the runfile, and never mutated after verification.
type TestSpec struct {
	// Pathname is the path to the test executable. Suffix variants
	// (.ksh, .sh) are probed when the bare path is not executable.
	Pathname string `toml:"pathname"`

	// OutputDir is where this test's artifacts are written. The run
	// coordinator replaces it with a process-unique directory before the
	// test runs.
	OutputDir string `toml:"outputdir"`

	// Timeout is the wall-clock timeout in seconds.
	// nil: inherit from defaults, 0: unbounded, positive: timeout in seconds
	Timeout *int32 `toml:"timeout"`

	// User is the identity the test runs as (empty = caller's identity)
	User string `toml:"user"`

	// Pre is an optional setup script; a non-PASS setup skips the test
	// body but never the teardown.
	Pre string `toml:"pre"`

	// PreUser is the identity the setup script runs as
	PreUser string `toml:"pre_user"`

	// Post is an optional teardown script, always attempted
	Post string `toml:"post"`

	// PostUser is the identity the teardown script runs as
	PostUser string `toml:"post_user"`

	// Tags are used for run-time group selection
	Tags []string `toml:"tags"`
}

// GroupSpec describes a directory of sibling tests sharing one setup and
// teardown pair and one output-directory root. Pathname is the group
// directory; Tests holds member file names relative to it.
type GroupSpec struct {
	TestSpec

	// Tests is the ordered list of member test file names
	Tests []string `toml:"tests"`
}

// HasTag reports whether the group's tag set intersects the selection.
// An empty selection selects every group.
func (g *GroupSpec) HasTag(selected []string) bool {
	if len(selected) == 0 {
		return true
	}
	for _, want := range selected {
		for _, have := range g.Tags {
			if want == have {
				return true
			}
		}
	}
	return false
}
