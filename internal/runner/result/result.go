// Package result classifies finished execution attempts into outcomes and
// accumulates the run-wide counters. All finalize calls route through an
// Aggregator owned by the run coordinator; there is no process-wide state.
package result

import (
	"sync"
	"time"

	"github.com/catalogicsoftware/vstor-zfs/internal/cmdcommon"
	"github.com/catalogicsoftware/vstor-zfs/internal/runner/runnertypes"
)

// Classify maps a finished process's exit status to an outcome.
// Priority order: killed, then pass (0), then the skip sentinel (4), then
// fail for any other non-zero code.
func Classify(exitCode int, killed bool) runnertypes.Outcome {
	switch {
	case killed:
		return runnertypes.OutcomeKilled
	case exitCode == 0:
		return runnertypes.OutcomePass
	case exitCode == cmdcommon.SkipExitCode:
		return runnertypes.OutcomeSkip
	default:
		return runnertypes.OutcomeFail
	}
}

// Counts is a point-in-time snapshot of the aggregated outcome counters.
type Counts struct {
	Pass   int
	Fail   int
	Skip   int
	Killed int
	Reran  int
	Total  int
}

// PercentPassed returns the pass rate. Skipped attempts count toward the
// total but not the numerator.
func (c Counts) PercentPassed() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Pass) / float64(c.Total) * 100
}

// ExitCode maps the counters onto the process exit code of the whole run.
func (c Counts) ExitCode() int {
	switch {
	case c.Total == 0:
		return cmdcommon.ExitNoTests
	case c.Fail > 0 || c.Killed > 0:
		return cmdcommon.ExitFailure
	case c.Reran > 0:
		return cmdcommon.ExitRerun
	default:
		return cmdcommon.ExitSuccess
	}
}

// Aggregator owns the global outcome counters for one run. Counters are
// monotonically non-decreasing and updated exactly once per finalized
// attempt. A mutex enforces the single-writer discipline; unit execution
// itself is sequential, but the timeout watchdog may finalize from its own
// goroutine.
type Aggregator struct {
	mu     sync.Mutex
	counts map[runnertypes.Outcome]int
	reran  int
	total  int
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		counts: make(map[runnertypes.Outcome]int),
	}
}

// Done finalizes an execution attempt: records exit status, classifies the
// outcome, seals the state, and bumps the counters. A state that is already
// finalized is left untouched.
func (a *Aggregator) Done(st *runnertypes.RunState, exitCode int, finishedAt time.Time, elapsed time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if st.Finalized() {
		return
	}

	st.ExitCode = exitCode
	st.FinishedAt = finishedAt
	st.Elapsed = elapsed
	st.Outcome = Classify(exitCode, st.Killed)
	st.MarkFinalized()

	a.counts[st.Outcome]++
	a.total++
	if st.Rerun == runnertypes.RerunDone {
		a.reran++
	}
}

// Skip finalizes an attempt that was never invoked because a dependency
// already failed. Elapsed time is zero, measured from attempt start.
func (a *Aggregator) Skip(st *runnertypes.RunState, now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if st.Finalized() {
		return
	}

	st.StartedAt = now
	st.FinishedAt = now
	st.Elapsed = 0
	st.Outcome = runnertypes.OutcomeSkip
	st.MarkFinalized()

	a.counts[runnertypes.OutcomeSkip]++
	a.total++
}

// Snapshot returns a copy of the current counters.
func (a *Aggregator) Snapshot() Counts {
	a.mu.Lock()
	defer a.mu.Unlock()

	return Counts{
		Pass:   a.counts[runnertypes.OutcomePass],
		Fail:   a.counts[runnertypes.OutcomeFail],
		Skip:   a.counts[runnertypes.OutcomeSkip],
		Killed: a.counts[runnertypes.OutcomeKilled],
		Reran:  a.reran,
		Total:  a.total,
	}
}
