package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"sort"

	"github.com/catalogicsoftware/vstor-zfs/internal/common"
	"github.com/catalogicsoftware/vstor-zfs/internal/runner/config"
	"github.com/catalogicsoftware/vstor-zfs/internal/runner/output"
	"github.com/catalogicsoftware/vstor-zfs/internal/runner/privilege"
	"github.com/catalogicsoftware/vstor-zfs/internal/runner/result"
	"github.com/catalogicsoftware/vstor-zfs/internal/runner/runnertypes"
	"github.com/catalogicsoftware/vstor-zfs/internal/runner/supervisor"
)

const (
	// runDirLayout names the per-run directory under the base output
	// directory.
	runDirLayout = "20060102T150405"

	// currentLinkName is the convenience symlink to the latest run.
	currentLinkName = "current"
)

// TestRun is the coordinator for one invocation: it owns the unit set, the
// run directory, the aggregator, and the supervising machinery.
type TestRun struct {
	logger *slog.Logger
	clock  common.Clock
	fs     common.FileSystem
	opts   *runnertypes.Options

	tests  map[string]*Test
	groups map[string]*Group

	quiet    bool
	colorize bool
	console  io.Writer

	runDir string
}

// NewTestRun creates an empty coordinator. Console output goes to stdout;
// SetConsole redirects it for tests.
func NewTestRun(logger *slog.Logger, clock common.Clock, opts *runnertypes.Options) *TestRun {
	return &TestRun{
		logger:  logger,
		clock:   clock,
		fs:      common.NewDefaultFileSystem(),
		opts:    opts,
		tests:   make(map[string]*Test),
		groups:  make(map[string]*Group),
		quiet:   opts.Quiet,
		console: os.Stdout,
	}
}

// SetConsole redirects console output, for testing.
func (r *TestRun) SetConsole(w io.Writer) { r.console = w }

// SetColorize enables colored outcomes on the console.
func (r *TestRun) SetColorize(on bool) { r.colorize = on }

// AddTest registers a standalone test. A later registration for the same
// pathname replaces the earlier one.
func (r *TestRun) AddTest(spec runnertypes.TestSpec) {
	r.tests[spec.Pathname] = &Test{Spec: spec}
}

// AddGroup registers a test group under its directory pathname.
func (r *TestRun) AddGroup(spec runnertypes.GroupSpec) {
	r.groups[spec.Pathname] = &Group{Spec: spec}
}

// LoadRunfile reads a runfile, merges defaults, and registers its sections.
// Groups whose tag set does not intersect the selected tags are silently
// not registered.
func (r *TestRun) LoadRunfile(path string) error {
	spec, err := config.LoadRunfile(path)
	if err != nil {
		return err
	}
	config.ApplyDefaults(spec, r.opts)

	if spec.Defaults.Quiet != nil {
		r.quiet = *spec.Defaults.Quiet
	}
	if spec.Defaults.OutputDir != "" {
		r.opts.OutputDir = spec.Defaults.OutputDir
	}

	for _, t := range spec.Tests {
		t.Pathname = r.anchorPathname(t.Pathname)
		r.AddTest(t)
	}
	for _, g := range spec.Groups {
		if !g.HasTag(r.opts.Tags) {
			continue
		}
		g.Pathname = r.anchorPathname(g.Pathname)
		r.AddGroup(g)
	}
	return nil
}

// anchorPathname joins a relative runfile section path with the configured
// test directory.
func (r *TestRun) anchorPathname(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(r.opts.TestDir, p)
}

// AddDiscovered registers discovery output, applying the option-level
// defaults each section would otherwise get from a runfile merge.
func (r *TestRun) AddDiscovered(tests []runnertypes.TestSpec, groups []runnertypes.GroupSpec) {
	spec := &runnertypes.RunfileSpec{Tests: tests, Groups: groups}
	config.ApplyDefaults(spec, r.opts)
	for _, t := range spec.Tests {
		r.AddTest(t)
	}
	for _, g := range spec.Groups {
		r.AddGroup(g)
	}
}

// Spec renders the registered units back into a runfile spec, for template
// generation.
func (r *TestRun) Spec() *runnertypes.RunfileSpec {
	spec := &runnertypes.RunfileSpec{Version: "1.0"}
	for _, p := range sortedTestKeys(r.tests) {
		spec.Tests = append(spec.Tests, r.tests[p].Spec)
	}
	for _, p := range sortedGroupKeys(r.groups) {
		spec.Groups = append(spec.Groups, r.groups[p].Spec)
	}
	return spec
}

// Verify removes units that cannot run: missing or non-executable files,
// groups emptied by member checks, and units whose requested users fail
// privilege verification.
func (r *TestRun) Verify(ctx context.Context, privs *privilege.Manager) {
	for p, t := range r.tests {
		if !t.Verify(r.logger) {
			delete(r.tests, p)
			continue
		}
		if err := verifyUsers(ctx, privs, &t.Spec); err != nil {
			r.logger.Warn("Removing test from run", "pathname", p, "error", err)
			delete(r.tests, p)
		}
	}
	for p, g := range r.groups {
		if !g.Verify(r.logger) {
			delete(r.groups, p)
			continue
		}
		if err := verifyUsers(ctx, privs, &g.Spec.TestSpec); err != nil {
			r.logger.Warn("Removing group from run", "pathname", p, "error", err)
			delete(r.groups, p)
		}
	}
}

// UnitCount reports how many runnable sections are registered.
func (r *TestRun) UnitCount() int {
	return len(r.tests) + len(r.groups)
}

// prepareRunDir creates <outputdir>/<timestamp>, repoints the "current"
// symlink at it, and rewrites every unit's output directory to a unique
// path inside it.
func (r *TestRun) prepareRunDir() error {
	stamp := r.clock.Now().Format(runDirLayout)
	base := r.opts.OutputDir
	r.runDir = filepath.Join(base, stamp)

	if err := r.fs.MkdirAll(r.runDir, 0o755); err != nil {
		return fmt.Errorf("failed to create run directory %s: %w", r.runDir, err)
	}

	link := filepath.Join(base, currentLinkName)
	if err := r.fs.Remove(link); err != nil && !os.IsNotExist(err) {
		r.logger.Warn("Failed to remove current symlink", "path", link, "error", err)
	}
	if err := r.fs.Symlink(stamp, link); err != nil {
		r.logger.Warn("Failed to update current symlink", "path", link, "error", err)
	}

	pathnames := make([]string, 0, r.UnitCount())
	pathnames = append(pathnames, sortedTestKeys(r.tests)...)
	pathnames = append(pathnames, sortedGroupKeys(r.groups)...)
	dirs := completeOutputDirs(r.runDir, pathnames)
	for p, t := range r.tests {
		t.Spec.OutputDir = dirs[p]
	}
	for p, g := range r.groups {
		g.Spec.OutputDir = dirs[p]
	}
	return nil
}

// Execute runs every registered unit for the configured number of
// iterations and renders the summary. The returned counts decide the
// process exit code. A command that cannot be started at all aborts the
// run with an error instead of being recorded as a failure.
func (r *TestRun) Execute(ctx context.Context) (result.Counts, error) {
	agg := result.NewAggregator()
	started := r.clock.Now()

	var logFile io.Writer = io.Discard
	if r.opts.DryRun {
		r.runDir = filepath.Join(r.opts.OutputDir, r.clock.Now().Format(runDirLayout))
	} else {
		if err := r.prepareRunDir(); err != nil {
			return result.Counts{}, err
		}
		f, err := output.OpenLogFile(r.runDir)
		if err != nil {
			return result.Counts{}, err
		}
		defer f.Close()
		logFile = f
	}

	env := &unitEnv{
		logger:   r.logger,
		clock:    r.clock,
		sup:      supervisor.New(r.logger, r.clock),
		agg:      agg,
		runLog:   output.NewRunLog(r.console, logFile, r.quiet, r.colorize),
		dryRun:   r.opts.DryRun,
		selfUser: selfUserName(),
	}

	testKeys := sortedTestKeys(r.tests)
	groupKeys := sortedGroupKeys(r.groups)
	for i := 0; i < r.opts.Iterations; i++ {
		if ctx.Err() != nil {
			break
		}
		for _, p := range testKeys {
			if ctx.Err() != nil {
				break
			}
			if err := r.tests[p].Run(ctx, env); err != nil {
				return result.Counts{}, err
			}
		}
		for _, p := range groupKeys {
			if ctx.Err() != nil {
				break
			}
			if err := r.groups[p].Run(ctx, env); err != nil {
				return result.Counts{}, err
			}
		}
	}

	summary := agg.Summarize(r.clock.Since(started), r.runDir)
	summary.Render(r.console)
	if logFile != io.Discard {
		summary.Render(logFile)
	}
	return summary.Counts, nil
}

// RunDir reports the directory of the current (or last) run.
func (r *TestRun) RunDir() string { return r.runDir }

// selfUserName names the invoking user for result lines; empty when the
// lookup fails.
func selfUserName() string {
	u, err := user.Current()
	if err != nil {
		return ""
	}
	return u.Username
}

func sortedTestKeys(m map[string]*Test) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedGroupKeys(m map[string]*Group) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
