// Package runner coordinates a whole test run: it assembles test and group
// units from a runfile or from discovery, gives every unit a unique output
// directory, executes the units in order, and reports the aggregated
// results.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/catalogicsoftware/vstor-zfs/internal/common"
	"github.com/catalogicsoftware/vstor-zfs/internal/runner/output"
	"github.com/catalogicsoftware/vstor-zfs/internal/runner/privilege"
	"github.com/catalogicsoftware/vstor-zfs/internal/runner/result"
	"github.com/catalogicsoftware/vstor-zfs/internal/runner/runnertypes"
	"github.com/catalogicsoftware/vstor-zfs/internal/runner/supervisor"
)

// unitEnv bundles the collaborators every unit needs while executing.
type unitEnv struct {
	logger *slog.Logger
	clock  common.Clock
	sup    *supervisor.Supervisor
	agg    *result.Aggregator
	runLog *output.RunLog
	dryRun bool

	// selfUser names the invoking user, shown on result lines for units
	// that do not switch identity
	selfUser string
}

// displayUser is the identity shown on a result line.
func (e *unitEnv) displayUser(user string) string {
	if user != "" {
		return user
	}
	return e.selfUser
}

// Test is a standalone executable unit with optional setup and teardown.
type Test struct {
	Spec runnertypes.TestSpec
}

// Group is a directory of sibling tests sharing one setup/teardown pair.
// Setup gates the members; teardown always runs when setup was attempted.
type Group struct {
	Spec runnertypes.GroupSpec
}

// Verify checks that the unit's executables exist before the run starts,
// resolving them the same way the run itself will.
func (t *Test) Verify(logger *slog.Logger) bool {
	ok := true
	for _, path := range []string{t.Spec.Pre, t.Spec.Pathname, t.Spec.Post} {
		if path == "" {
			continue
		}
		if !verifyExecutable(resolveUnitPath(t.Spec.Pathname, path)) {
			logger.Warn("Cannot execute, removing from run", "pathname", path)
			ok = false
		}
	}
	return ok
}

// Verify drops group members whose executables cannot run. The group
// survives unless verification empties it or its setup/teardown is broken.
func (g *Group) Verify(logger *slog.Logger) bool {
	for _, path := range []string{g.Spec.Pre, g.Spec.Post} {
		if path == "" {
			continue
		}
		if !verifyExecutable(resolveGroupPath(g.Spec.Pathname, path)) {
			logger.Warn("Cannot execute, removing group from run",
				"group", g.Spec.Pathname, "script", path)
			return false
		}
	}

	kept := g.Spec.Tests[:0]
	for _, name := range g.Spec.Tests {
		if verifyExecutable(filepath.Join(g.Spec.Pathname, name)) {
			kept = append(kept, name)
			continue
		}
		logger.Warn("Cannot execute, removing from group",
			"group", g.Spec.Pathname, "test", name)
	}
	g.Spec.Tests = kept
	return len(g.Spec.Tests) > 0
}

// verifyExecutable reports whether the path resolves to something the
// supervisor could spawn.
func verifyExecutable(pathname string) bool {
	return privilege.IsExecutable(privilege.ResolveCommand(pathname))
}

// resolveUnitPath anchors a test's relative setup or teardown script next
// to the test executable.
func resolveUnitPath(unitPathname, script string) string {
	if filepath.IsAbs(script) {
		return script
	}
	return filepath.Join(filepath.Dir(unitPathname), script)
}

// resolveGroupPath anchors a group's relative scripts inside the group
// directory itself.
func resolveGroupPath(groupDir, script string) string {
	if filepath.IsAbs(script) {
		return script
	}
	return filepath.Join(groupDir, script)
}

// Run executes setup, body, teardown for a standalone test. A non-passing
// setup skips the body; teardown runs whenever setup was attempted. An error
// means a command could not be spawned at all and the run must stop.
func (t *Test) Run(ctx context.Context, env *unitEnv) error {
	s := &t.Spec
	setupPassed := true
	if s.Pre != "" {
		pre := resolveUnitPath(s.Pathname, s.Pre)
		st, err := runPhase(ctx, env, s, pre, s.PreUser, scriptDir(s, pre))
		if err != nil {
			return err
		}
		setupPassed = st.Outcome == runnertypes.OutcomePass
	}

	if setupPassed {
		if _, err := runPhase(ctx, env, s, s.Pathname, s.User, s.OutputDir); err != nil {
			return err
		}
	} else {
		skipPhase(env, s.Pathname, s.User, s.OutputDir)
	}

	if s.Post != "" {
		post := resolveUnitPath(s.Pathname, s.Post)
		if _, err := runPhase(ctx, env, s, post, s.PostUser, scriptDir(s, post)); err != nil {
			return err
		}
	}
	return nil
}

// Run executes the group: setup gates every member, teardown always runs.
func (g *Group) Run(ctx context.Context, env *unitEnv) error {
	s := &g.Spec.TestSpec
	setupPassed := true
	if s.Pre != "" {
		pre := resolveGroupPath(s.Pathname, s.Pre)
		st, err := runPhase(ctx, env, s, pre, s.PreUser, scriptDir(s, pre))
		if err != nil {
			return err
		}
		setupPassed = st.Outcome == runnertypes.OutcomePass
	}

	for _, name := range g.Spec.Tests {
		pathname := filepath.Join(s.Pathname, name)
		dir := filepath.Join(s.OutputDir, name)
		if setupPassed {
			if _, err := runPhase(ctx, env, s, pathname, s.User, dir); err != nil {
				return err
			}
		} else {
			skipPhase(env, pathname, s.User, dir)
		}
	}

	if s.Post != "" {
		post := resolveGroupPath(s.Pathname, s.Post)
		if _, err := runPhase(ctx, env, s, post, s.PostUser, scriptDir(s, post)); err != nil {
			return err
		}
	}
	return nil
}

// scriptDir is where a setup or teardown script's artifacts land: a
// directory named after the script, inside the unit's output directory.
func scriptDir(s *runnertypes.TestSpec, script string) string {
	return filepath.Join(s.OutputDir, filepath.Base(script))
}

// runPhase supervises one executable of a unit and records its verdict,
// output, and artifacts. A spawn failure propagates up and ends the run.
func runPhase(ctx context.Context, env *unitEnv, s *runnertypes.TestSpec, pathname, user, artifacts string) (*runnertypes.RunState, error) {
	if env.dryRun {
		env.runLog.Line("Would run: %s", pathname)
		st := &runnertypes.RunState{Outcome: runnertypes.OutcomePass}
		st.MarkFinalized()
		return st, nil
	}

	timeout := int32(0)
	if s.Timeout != nil {
		timeout = *s.Timeout
	}
	st, err := env.sup.Run(ctx, supervisor.Command{
		Pathname: pathname,
		User:     user,
		Timeout:  timeout,
	}, env.agg)
	if err != nil {
		return nil, err
	}

	env.runLog.Result(pathname, env.displayUser(user), st)
	env.runLog.Output(output.Merge(st.Stdout, st.Stderr))
	if err := output.WriteArtifacts(artifacts, st); err != nil {
		env.logger.Error("Failed to write artifacts", "pathname", pathname, "error", err)
	}
	return st, nil
}

// skipPhase records a unit member that never ran because its setup failed.
func skipPhase(env *unitEnv, pathname, user, artifacts string) {
	if env.dryRun {
		return
	}
	st := &runnertypes.RunState{}
	env.agg.Skip(st, env.clock.Now())
	env.runLog.Result(pathname, env.displayUser(user), st)
	if err := output.WriteArtifacts(artifacts, st); err != nil {
		env.logger.Error("Failed to write artifacts", "pathname", pathname, "error", err)
	}
}

// verifyUsers checks every identity a unit wants to assume. A unit with an
// unverifiable user is removed from the run before anything executes.
func verifyUsers(ctx context.Context, privs *privilege.Manager, s *runnertypes.TestSpec) error {
	for _, u := range []string{s.PreUser, s.User, s.PostUser} {
		if u == "" {
			continue
		}
		if err := privs.VerifyUser(ctx, u); err != nil {
			return fmt.Errorf("user verification failed for %s: %w", s.Pathname, err)
		}
	}
	return nil
}
