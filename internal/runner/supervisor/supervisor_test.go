package supervisor_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalogicsoftware/vstor-zfs/internal/cmdcommon"
	"github.com/catalogicsoftware/vstor-zfs/internal/common"
	"github.com/catalogicsoftware/vstor-zfs/internal/runner/result"
	"github.com/catalogicsoftware/vstor-zfs/internal/runner/runnertypes"
	"github.com/catalogicsoftware/vstor-zfs/internal/runner/supervisor"
)

func newSupervisor() *supervisor.Supervisor {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return supervisor.New(logger, common.MonotonicClock{})
}

// suspendedClock reports almost no monotonic time regardless of how long
// anything actually took, the way a laptop that slept mid-run would.
type suspendedClock struct{}

func (suspendedClock) Now() time.Time                { return time.Now() }
func (suspendedClock) Since(time.Time) time.Duration { return 50 * time.Millisecond }

// writeScript drops an executable shell script into a temp dir and returns
// its path without the .sh suffix, exercising suffix resolution on the way.
func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path+".sh", []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func lineData(lines []runnertypes.OutputLine) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = string(l.Data)
	}
	return out
}

func TestRunPass(t *testing.T) {
	path := writeScript(t, "pass", "echo hello\necho world 1>&2\nexit 0\n")
	agg := result.NewAggregator()

	st, err := newSupervisor().Run(context.Background(), supervisor.Command{Pathname: path}, agg)
	require.NoError(t, err)

	assert.Equal(t, runnertypes.OutcomePass, st.Outcome)
	assert.Equal(t, 0, st.ExitCode)
	assert.True(t, st.Finalized())
	assert.False(t, st.Killed)
	assert.Equal(t, []string{"hello"}, lineData(st.Stdout))
	assert.Equal(t, []string{"world"}, lineData(st.Stderr))
	assert.Equal(t, 1, agg.Snapshot().Pass)
}

func TestRunFail(t *testing.T) {
	path := writeScript(t, "fail", "echo broken\nexit 3\n")
	agg := result.NewAggregator()

	st, err := newSupervisor().Run(context.Background(), supervisor.Command{Pathname: path}, agg)
	require.NoError(t, err)

	assert.Equal(t, runnertypes.OutcomeFail, st.Outcome)
	assert.Equal(t, 3, st.ExitCode)
}

func TestRunSkipSentinel(t *testing.T) {
	path := writeScript(t, "skip", "exit 4\n")
	agg := result.NewAggregator()

	st, err := newSupervisor().Run(context.Background(), supervisor.Command{Pathname: path}, agg)
	require.NoError(t, err)

	assert.Equal(t, runnertypes.OutcomeSkip, st.Outcome)
	assert.Equal(t, 4, st.ExitCode)
	assert.Equal(t, 1, agg.Snapshot().Skip)
}

func TestRunTimeoutKills(t *testing.T) {
	path := writeScript(t, "hang", "echo started\nsleep 30\n")
	agg := result.NewAggregator()

	start := time.Now()
	st, err := newSupervisor().Run(context.Background(),
		supervisor.Command{Pathname: path, Timeout: 1}, agg)
	require.NoError(t, err)

	assert.Equal(t, runnertypes.OutcomeKilled, st.Outcome)
	assert.True(t, st.Killed)
	assert.Equal(t, runnertypes.RerunDeclined, st.Rerun)
	assert.Equal(t, []string{"started"}, lineData(st.Stdout))
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.Equal(t, 1, agg.Snapshot().Killed)
}

func TestRunReturnsAtExitDespiteBackgroundChild(t *testing.T) {
	// The backgrounded sleep inherits the output pipes, so they never hit
	// EOF while it lives. Supervision must follow the body's exit, not the
	// pipes, or a passing test gets killed at its timeout.
	path := writeScript(t, "spawner", "echo done\nsleep 30 &\nexit 0\n")
	agg := result.NewAggregator()

	start := time.Now()
	st, err := newSupervisor().Run(context.Background(),
		supervisor.Command{Pathname: path, Timeout: 2}, agg)
	require.NoError(t, err)

	assert.Equal(t, runnertypes.OutcomePass, st.Outcome)
	assert.False(t, st.Killed)
	assert.Equal(t, []string{"done"}, lineData(st.Stdout))
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.Equal(t, 1, agg.Snapshot().Pass)
}

func TestRunUnboundedTimeoutBackgroundChild(t *testing.T) {
	// With no watchdog there is nothing to break a wait on pipe EOF, so
	// this would block for the grandchild's full lifetime if supervision
	// watched the pipes instead of the process.
	path := writeScript(t, "detach", "sleep 30 &\nexit 0\n")
	agg := result.NewAggregator()

	start := time.Now()
	st, err := newSupervisor().Run(context.Background(),
		supervisor.Command{Pathname: path, Timeout: 0}, agg)
	require.NoError(t, err)

	assert.Equal(t, runnertypes.OutcomePass, st.Outcome)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestRunRerunAfterClockSuspension(t *testing.T) {
	// First attempt hangs until the watchdog fires; the clock claims almost
	// nothing elapsed, so the timeout never really ran down and the command
	// gets one more attempt, which passes.
	dir := t.TempDir()
	marker := filepath.Join(dir, "first-attempt")
	path := filepath.Join(dir, "flaky")
	body := "#!/bin/sh\nif [ -e " + marker + " ]; then exit 0; fi\ntouch " + marker + "\nsleep 30\n"
	require.NoError(t, os.WriteFile(path+".sh", []byte(body), 0o755))

	agg := result.NewAggregator()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := supervisor.New(logger, suspendedClock{})

	start := time.Now()
	st, err := s.Run(context.Background(), supervisor.Command{Pathname: path, Timeout: 1}, agg)
	require.NoError(t, err)

	assert.Equal(t, runnertypes.OutcomePass, st.Outcome)
	assert.Equal(t, runnertypes.RerunDone, st.Rerun)
	assert.False(t, st.Killed)

	counts := agg.Snapshot()
	assert.Equal(t, 1, counts.Pass)
	assert.Equal(t, 1, counts.Reran)
	assert.Equal(t, 1, counts.Total)
	assert.Equal(t, cmdcommon.ExitRerun, counts.ExitCode())
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestRunRerunTimesOutAgain(t *testing.T) {
	path := writeScript(t, "stuck", "sleep 30\n")
	agg := result.NewAggregator()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := supervisor.New(logger, suspendedClock{})

	start := time.Now()
	st, err := s.Run(context.Background(), supervisor.Command{Pathname: path, Timeout: 1}, agg)
	require.NoError(t, err)

	// One rerun at most; the second kill is final.
	assert.Equal(t, runnertypes.OutcomeKilled, st.Outcome)
	assert.Equal(t, runnertypes.RerunDone, st.Rerun)
	assert.True(t, st.Killed)

	counts := agg.Snapshot()
	assert.Equal(t, 1, counts.Killed)
	assert.Equal(t, 1, counts.Reran)
	assert.Equal(t, 1, counts.Total)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestRunInterrupt(t *testing.T) {
	path := writeScript(t, "wait", "sleep 30\n")
	agg := result.NewAggregator()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	st, err := newSupervisor().Run(ctx, supervisor.Command{Pathname: path}, agg)
	require.NoError(t, err)

	assert.Equal(t, runnertypes.OutcomeKilled, st.Outcome)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestRunSpawnFailureAborts(t *testing.T) {
	agg := result.NewAggregator()

	st, err := newSupervisor().Run(context.Background(),
		supervisor.Command{Pathname: filepath.Join(t.TempDir(), "does-not-exist")}, agg)

	require.Error(t, err)
	assert.ErrorIs(t, err, supervisor.ErrSpawn)
	assert.Nil(t, st)
	assert.Equal(t, 0, agg.Snapshot().Total)
}

func TestRunPartialLineFlushedAtExit(t *testing.T) {
	path := writeScript(t, "partial", "printf 'no newline'\nexit 0\n")
	agg := result.NewAggregator()

	st, err := newSupervisor().Run(context.Background(), supervisor.Command{Pathname: path}, agg)
	require.NoError(t, err)

	assert.Equal(t, []string{"no newline"}, lineData(st.Stdout))
}

func TestRunElapsedIsMeasured(t *testing.T) {
	path := writeScript(t, "nap", "sleep 1\n")
	agg := result.NewAggregator()

	st, err := newSupervisor().Run(context.Background(), supervisor.Command{Pathname: path}, agg)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, st.Elapsed, time.Second)
	assert.Less(t, st.Elapsed, 10*time.Second)
}
