// Package privilege handles running test commands as other users. It wraps
// command lines with sudo, verifies once per run that a requested user
// exists and has passwordless sudo access, and resolves script pathnames by
// probing the conventional suffixes.
package privilege

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/user"
	"strconv"
	"sync"
)

// Sentinel errors for user verification failures.
var (
	// ErrUnknownUser indicates the requested user does not exist on this
	// system
	ErrUnknownUser = errors.New("user does not exist")

	// ErrNoSudoAccess indicates the requested user exists but sudo cannot
	// switch to them without a password prompt
	ErrNoSudoAccess = errors.New("user does not have passwordless sudo access")
)

const sudoPath = "sudo"

// suffixes probed, in order, when a bare pathname is not an executable file.
var probeSuffixes = []string{".ksh", ".sh"}

// LookupFunc resolves a user name. Injectable for testing; the default is
// user.Lookup.
type LookupFunc func(name string) (*user.User, error)

// SudoProbeFunc checks that sudo can switch to the named user without
// prompting. The default runs "sudo -n -u <user> true".
type SudoProbeFunc func(ctx context.Context, name string) error

// Manager verifies users and builds privilege-adjusted command lines.
// Verification results are cached for the lifetime of the manager, so each
// user pays the sudo round trip at most once per run.
type Manager struct {
	logger    *slog.Logger
	lookup    LookupFunc
	sudoProbe SudoProbeFunc

	mu       sync.Mutex
	verified map[string]struct{}
}

// NewManager creates a production manager.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		logger:    logger,
		lookup:    user.Lookup,
		sudoProbe: runSudoProbe,
		verified:  make(map[string]struct{}),
	}
}

// NewManagerWithProbes creates a manager with injected lookup and sudo
// probe functions.
func NewManagerWithProbes(logger *slog.Logger, lookup LookupFunc, probe SudoProbeFunc) *Manager {
	return &Manager{
		logger:    logger,
		lookup:    lookup,
		sudoProbe: probe,
		verified:  make(map[string]struct{}),
	}
}

func runSudoProbe(ctx context.Context, name string) error {
	cmd := exec.CommandContext(ctx, sudoPath, "-n", "-u", name, "true")
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd.Run()
}

// VerifyUser checks that the named user exists and can be reached through
// passwordless sudo. Successful verifications are cached; failures are not,
// so a fixed sudoers file takes effect on the next call.
func (m *Manager) VerifyUser(ctx context.Context, name string) error {
	m.mu.Lock()
	_, ok := m.verified[name]
	m.mu.Unlock()
	if ok {
		return nil
	}

	if _, err := m.lookup(name); err != nil {
		m.logger.Warn("User does not exist", "user", name)
		return fmt.Errorf("%w: %s", ErrUnknownUser, name)
	}
	if err := m.sudoProbe(ctx, name); err != nil {
		m.logger.Warn("User does not have sudo access", "user", name)
		return fmt.Errorf("%w: %s", ErrNoSudoAccess, name)
	}

	m.mu.Lock()
	m.verified[name] = struct{}{}
	m.mu.Unlock()

	m.logger.Debug("Verified user for privileged execution", "user", name)
	return nil
}

// ResolveCommand maps a configured pathname to the executable on disk. A
// pathname that is already an executable file is returned unchanged;
// otherwise the conventional script suffixes are probed in order. When
// nothing matches, the bare pathname comes back and the spawn will fail
// with the operating system's error.
func ResolveCommand(pathname string) string {
	if isExecutableFile(pathname) {
		return pathname
	}
	for _, suffix := range probeSuffixes {
		if candidate := pathname + suffix; isExecutableFile(candidate) {
			return candidate
		}
	}
	return pathname
}

// IsExecutable reports whether path is a regular file with any execute bit
// set.
func IsExecutable(path string) bool {
	return isExecutableFile(path)
}

func isExecutableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}

// WrapCommand builds the argv for an attempt. With an empty user the
// resolved pathname runs directly; otherwise it is wrapped in
// "sudo -E -u <user>" so the child keeps the caller's environment.
func WrapCommand(pathname, userName string) []string {
	resolved := ResolveCommand(pathname)
	if userName == "" {
		return []string{resolved}
	}
	return []string{sudoPath, "-E", "-u", userName, resolved}
}

// KillCommand builds the argv that delivers SIGTERM to a supervised
// process group. A privileged child belongs to another user, so the signal
// has to travel through sudo as well.
func KillCommand(pid int, userName string) []string {
	argv := []string{"kill", "-TERM", "--", strconv.Itoa(-pid)}
	if userName != "" {
		argv = append([]string{sudoPath}, argv...)
	}
	return argv
}
