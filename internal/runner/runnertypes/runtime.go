package runnertypes

import "time"

// Outcome is the classification of a finalized execution attempt.
type Outcome string

// The four possible outcomes. Exactly one is assigned per finalized attempt.
const (
	// OutcomePass indicates the process exited zero
	OutcomePass Outcome = "PASS"

	// OutcomeFail indicates the process exited non-zero (and not the skip
	// sentinel)
	OutcomeFail Outcome = "FAIL"

	// OutcomeSkip indicates the process self-reported "not applicable"
	// (exit code 4), or was never invoked because its setup failed
	OutcomeSkip Outcome = "SKIP"

	// OutcomeKilled indicates the process was terminated by the timeout
	// watchdog or an external interrupt
	OutcomeKilled Outcome = "KILLED"
)

// RerunState tracks the timeout-rerun decision for an execution attempt.
type RerunState int

const (
	// RerunUndecided means no rerun decision has been made yet
	RerunUndecided RerunState = iota

	// RerunDeclined means the attempt will not be rerun
	RerunDeclined

	// RerunDone means the recorded attempt is the product of a rerun
	RerunDone
)

// OutputLine is one captured line of child process output: the arrival
// timestamp of the read that completed it, plus the raw byte payload
// without its terminator. Payloads are kept as bytes because test output
// may be in unexpected encodings.
type OutputLine struct {
	At   time.Time
	Data []byte
}

// RunState is the mutable state of one supervised execution attempt. It is
// created when the attempt starts, mutated only by the owning supervisor and
// the single finalize call, and read-only thereafter.
type RunState struct {
	// StartedAt carries a monotonic reading taken when the process spawned
	StartedAt time.Time

	// FinishedAt is taken when the attempt finalizes
	FinishedAt time.Time

	// Elapsed is the monotonic duration between start and finalize
	Elapsed time.Duration

	// ExitCode is the raw exit code of the process (negative when the
	// process was signal-terminated)
	ExitCode int

	// Outcome is assigned exactly once, by finalization
	Outcome Outcome

	// Stdout and Stderr hold the captured lines of the two output
	// channels, each in intra-channel arrival order
	Stdout []OutputLine
	Stderr []OutputLine

	// Killed is set when the watchdog or an interrupt terminated the
	// process
	Killed bool

	// Rerun records the timeout-rerun decision for this attempt
	Rerun RerunState

	finalized bool
}

// Finalized reports whether the attempt has been classified.
func (s *RunState) Finalized() bool { return s.finalized }

// MarkFinalized seals the state. It is called exactly once, by the result
// classifier.
func (s *RunState) MarkFinalized() { s.finalized = true }
