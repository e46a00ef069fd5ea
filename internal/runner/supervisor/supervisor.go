// Package supervisor runs one test command at a time: it spawns the
// process, captures both output channels line by line, enforces the
// configured timeout with SIGTERM, and applies the suspended-clock rerun
// heuristic before handing the attempt to the result aggregator.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/catalogicsoftware/vstor-zfs/internal/common"
	"github.com/catalogicsoftware/vstor-zfs/internal/runner/output"
	"github.com/catalogicsoftware/vstor-zfs/internal/runner/privilege"
	"github.com/catalogicsoftware/vstor-zfs/internal/runner/result"
	"github.com/catalogicsoftware/vstor-zfs/internal/runner/runnertypes"
)

const (
	// drainPollInterval bounds how long a select sleep can hide process
	// exit, a fired watchdog, or an interrupt.
	drainPollInterval = 100 * time.Millisecond

	readChunkSize = 4096
)

// ErrSpawn indicates a command could not be started at all. This aborts the
// whole run rather than being recorded as a test failure.
var ErrSpawn = errors.New("failed to start command")

// KillFunc delivers SIGTERM to a supervised process group. The production
// implementation shells out through sudo when the child runs as another
// user.
type KillFunc func(pid int, userName string) error

// Command describes one execution request.
type Command struct {
	// Pathname is the configured script path, before suffix resolution
	Pathname string

	// User is the account to run as; empty means the current user
	User string

	// Timeout is the per-attempt limit in seconds; zero disables the
	// watchdog
	Timeout int32
}

// Supervisor executes commands sequentially. It is safe to reuse across
// commands; each Run owns its attempt state.
type Supervisor struct {
	logger *slog.Logger
	clock  common.Clock
	kill   KillFunc
}

// New creates a supervisor with the production kill path.
func New(logger *slog.Logger, clock common.Clock) *Supervisor {
	s := &Supervisor{logger: logger, clock: clock}
	s.kill = s.defaultKill
	return s
}

// NewWithKill creates a supervisor with an injected kill function.
func NewWithKill(logger *slog.Logger, clock common.Clock, kill KillFunc) *Supervisor {
	return &Supervisor{logger: logger, clock: clock, kill: kill}
}

func (s *Supervisor) defaultKill(pid int, userName string) error {
	if userName == "" {
		return unix.Kill(-pid, unix.SIGTERM)
	}
	argv := privilege.KillCommand(pid, userName)
	return exec.Command(argv[0], argv[1:]...).Run()
}

// Run executes the command once, applying at most one rerun when the
// watchdog fired early because the machine's clock was suspended mid-run.
// The returned state is finalized through the aggregator; the caller only
// reads it. A non-nil error means the command never started and the run
// must abort.
func (s *Supervisor) Run(ctx context.Context, c Command, agg *result.Aggregator) (*runnertypes.RunState, error) {
	st, exitCode, rerunEligible, err := s.runOnce(ctx, c, runnertypes.RerunUndecided)
	if err != nil {
		return nil, err
	}
	if rerunEligible {
		s.logger.Info("Rerunning command after suspected clock suspension",
			"pathname", c.Pathname, "timeout", c.Timeout)
		st, exitCode, _, err = s.runOnce(ctx, c, runnertypes.RerunDone)
		if err != nil {
			return nil, err
		}
	}
	agg.Done(st, exitCode, s.clock.Now(), s.clock.Since(st.StartedAt))
	return st, nil
}

// runOnce performs a single attempt and reports whether the rerun heuristic
// applies: the process was killed by the watchdog rather than an interrupt,
// the attempt was not itself a rerun, and the monotonic clock shows less
// elapsed time than the timeout. The last condition only holds when the
// machine slept while the process ran, so the limit never actually elapsed
// for the workload.
func (s *Supervisor) runOnce(ctx context.Context, c Command, rerun runnertypes.RerunState) (*runnertypes.RunState, int, bool, error) {
	st := &runnertypes.RunState{Rerun: rerun}

	argv := privilege.WrapCommand(c.Pathname, c.User)

	outR, outW, err := os.Pipe()
	if err != nil {
		return nil, 0, false, fmt.Errorf("%w %s: %w", ErrSpawn, c.Pathname, err)
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		outR.Close()
		outW.Close()
		return nil, 0, false, fmt.Errorf("%w %s: %w", ErrSpawn, c.Pathname, err)
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = outW
	cmd.Stderr = errW
	// Each attempt leads its own process group, so a kill reaches any
	// children still holding the output pipes open.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	st.StartedAt = s.clock.Now()
	if err := cmd.Start(); err != nil {
		outR.Close()
		outW.Close()
		errR.Close()
		errW.Close()
		s.logger.Error("Failed to start command", "pathname", c.Pathname, "error", err)
		return nil, 0, false, fmt.Errorf("%w %s: %w", ErrSpawn, c.Pathname, err)
	}

	// The child owns duplicates of the write ends; the parent's copies
	// must go away or the read side never sees data ending at exit.
	outW.Close()
	errW.Close()

	var (
		mu          sync.Mutex
		killed      bool
		interrupted bool
		killElapsed time.Duration
	)
	pid := cmd.Process.Pid
	deliver := func(byInterrupt bool) {
		mu.Lock()
		defer mu.Unlock()
		if killed {
			return
		}
		killed = true
		interrupted = byInterrupt
		killElapsed = s.clock.Since(st.StartedAt)
		if err := s.kill(pid, c.User); err != nil {
			s.logger.Warn("Failed to deliver SIGTERM", "pid", pid, "error", err)
		}
	}

	var watchdog *time.Timer
	if c.Timeout > 0 {
		watchdog = time.AfterFunc(time.Duration(c.Timeout)*time.Second, func() {
			deliver(false)
		})
	}

	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			deliver(true)
		case <-watchDone:
		}
	}()

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	outStream := output.NewStream(s.clock)
	errStream := output.NewStream(s.clock)
	waitErr := s.drain(waitCh, outR, errR, outStream, errStream)
	outR.Close()
	errR.Close()

	if watchdog != nil {
		watchdog.Stop()
	}
	close(watchDone)

	exitCode := 0
	if waitErr != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	mu.Lock()
	st.Killed = killed
	timeoutNotElapsed := killed && !interrupted &&
		killElapsed < time.Duration(c.Timeout)*time.Second
	mu.Unlock()

	st.Stdout = outStream.Lines()
	st.Stderr = errStream.Lines()

	rerunEligible := timeoutNotElapsed && rerun == runnertypes.RerunUndecided && ctx.Err() == nil
	if st.Killed && !rerunEligible && st.Rerun == runnertypes.RerunUndecided {
		st.Rerun = runnertypes.RerunDeclined
	}
	return st, exitCode, rerunEligible, nil
}

// drain pumps both pipes while the process is alive, using select with a
// short timeout so neither a silent child nor a lingering grandchild can
// stall supervision. Once the process exits, whatever the pipes still hold
// is collected in one final pass; descendants that keep the write ends open
// past that point are on their own.
func (s *Supervisor) drain(waitCh <-chan error, outR, errR *os.File, outStream, errStream *output.Stream) error {
	fds := map[int]*output.Stream{
		int(outR.Fd()): outStream,
		int(errR.Fd()): errStream,
	}
	for fd := range fds {
		if err := unix.SetNonblock(fd, true); err != nil {
			s.logger.Warn("Failed to set pipe non-blocking", "fd", fd, "error", err)
		}
	}

	buf := make([]byte, readChunkSize)
	var waitErr error
	exited := false
	for !exited {
		if len(fds) == 0 {
			// Both channels already hit EOF; nothing left but the exit.
			waitErr = <-waitCh
			break
		}
		select {
		case waitErr = <-waitCh:
			exited = true
			continue
		default:
		}

		var set unix.FdSet
		nfds := 0
		for fd := range fds {
			set.Set(fd)
			if fd >= nfds {
				nfds = fd + 1
			}
		}
		tv := unix.NsecToTimeval(int64(drainPollInterval))
		n, err := unix.Select(nfds, &set, nil, nil, &tv)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			s.logger.Warn("Select on output pipes failed", "error", err)
			waitErr = <-waitCh
			break
		}
		if n == 0 {
			continue
		}
		for fd, stream := range fds {
			if !set.IsSet(fd) {
				continue
			}
			if s.readAvailable(fd, buf, stream) {
				delete(fds, fd)
			}
		}
	}

	// Final drain: the process is gone, so anything it wrote is already
	// buffered in the pipes and one non-blocking sweep collects it.
	for fd, stream := range fds {
		s.readAvailable(fd, buf, stream)
	}
	outStream.Drain()
	errStream.Drain()
	return waitErr
}

// readAvailable reads until the fd would block, reporting true at EOF.
func (s *Supervisor) readAvailable(fd int, buf []byte, stream *output.Stream) bool {
	for {
		n, err := unix.Read(fd, buf)
		switch {
		case n > 0:
			stream.Consume(buf[:n])
		case n == 0 && err == nil:
			return true
		case err == unix.EAGAIN:
			return false
		case err == unix.EINTR:
			continue
		default:
			s.logger.Warn("Read from output pipe failed", "fd", fd, "error", err)
			return true
		}
	}
}
