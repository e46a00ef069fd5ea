package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/catalogicsoftware/vstor-zfs/internal/color"
	"github.com/catalogicsoftware/vstor-zfs/internal/common"
	"github.com/catalogicsoftware/vstor-zfs/internal/runner/runnertypes"
)

const (
	// resultLineWidth is the total width a result line is padded to, so
	// the runtime and outcome fields end flush at the same column. Longer
	// pathnames overflow to the right.
	resultLineWidth = 80

	// lineStampLayout renders an 11 character HH:MM:SS.cc arrival stamp
	// in front of every captured line in the persistent log.
	lineStampLayout = "15:04:05.00"

	runLogFileName = "log"
)

// RunLog writes the run protocol. The persistent per-run log file receives
// every result line and all captured child output; the console receives only
// result lines, with colored outcomes when attached to a terminal, and drops
// PASS lines when the run is quiet. Safe for concurrent use.
type RunLog struct {
	mu       sync.Mutex
	console  io.Writer
	file     io.Writer
	quiet    bool
	colorize bool
}

// NewRunLog creates a run log. Either writer may be io.Discard.
func NewRunLog(console, file io.Writer, quiet, colorize bool) *RunLog {
	return &RunLog{console: console, file: file, quiet: quiet, colorize: colorize}
}

// OpenLogFile creates (or truncates) the persistent log file inside the run
// directory.
func OpenLogFile(runDir string) (*os.File, error) {
	path := filepath.Join(runDir, runLogFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, artifactFilePerm)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return f, nil
}

// Result emits the one-line verdict for a finalized attempt. Quiet runs keep
// PASS verdicts off the console; the log file gets every verdict.
func (l *RunLog) Result(pathname, user string, st *runnertypes.RunState) {
	head := "Test: " + pathname
	if user != "" {
		head += fmt.Sprintf(" (run as %s)", user)
	}
	runtime := fmt.Sprintf("[%s]", common.FormatRuntime(st.Elapsed))
	outcome := fmt.Sprintf("[%s]", st.Outcome)
	rerun := ""
	if st.Rerun == runnertypes.RerunDone {
		rerun = " (RERAN)"
	}
	tail := fmt.Sprintf("%s %s%s", runtime, outcome, rerun)
	pad := resultLineWidth - len(head) - len(tail)
	if pad < 1 {
		pad = 1
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintf(l.file, "%s%s%s\n", head, strings.Repeat(" ", pad), tail)

	if l.quiet && st.Outcome == runnertypes.OutcomePass {
		return
	}
	if l.colorize {
		outcome = l.colorOutcome(st.Outcome)
		if rerun != "" {
			rerun = " " + color.Cyan("(RERAN)")
		}
		tail = fmt.Sprintf("%s %s%s", runtime, outcome, rerun)
	}
	fmt.Fprintf(l.console, "%s%s%s\n", head, strings.Repeat(" ", pad), tail)
}

func (l *RunLog) colorOutcome(o runnertypes.Outcome) string {
	s := fmt.Sprintf("[%s]", o)
	switch o {
	case runnertypes.OutcomePass:
		return color.Green(s)
	case runnertypes.OutcomeSkip:
		return color.Yellow(s)
	default:
		return color.Red(s)
	}
}

// Output records captured child output in the persistent log, each line
// prefixed with its arrival stamp. Child output never reaches the console;
// the per-test artifact files hold the unstamped copies.
func (l *RunLog) Output(lines []runnertypes.OutputLine) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, line := range lines {
		fmt.Fprintf(l.file, "%s %s\n", line.At.Format(lineStampLayout), line.Data)
	}
}

// Line writes a plain informational line to both destinations.
func (l *RunLog) Line(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(l.file, msg)
	fmt.Fprintln(l.console, msg)
}
