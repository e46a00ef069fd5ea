// Package main provides the entry point for the test-runner application. It
// parses command-line arguments, assembles the test run from a runfile or
// from discovery, and maps the aggregated results onto the process exit
// code.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/catalogicsoftware/vstor-zfs/internal/cmdcommon"
	"github.com/catalogicsoftware/vstor-zfs/internal/common"
	"github.com/catalogicsoftware/vstor-zfs/internal/logging"
	"github.com/catalogicsoftware/vstor-zfs/internal/runner"
	"github.com/catalogicsoftware/vstor-zfs/internal/runner/config"
	"github.com/catalogicsoftware/vstor-zfs/internal/runner/discovery"
	"github.com/catalogicsoftware/vstor-zfs/internal/runner/privilege"
	"github.com/catalogicsoftware/vstor-zfs/internal/runner/runnertypes"
	"github.com/catalogicsoftware/vstor-zfs/internal/runner/supervisor"
	"github.com/catalogicsoftware/vstor-zfs/internal/terminal"
)

const logFilePerm = 0o600

// Error definitions
var (
	ErrRunfileAndPathnames = errors.New("a runfile and positional pathnames are mutually exclusive")
	ErrNoInput             = errors.New("a runfile (-c) or at least one pathname is required")
)

var (
	runfile    = flag.String("c", "", "path to a runfile to execute")
	dryRun     = flag.Bool("d", false, "print the tests that would run without running them")
	doGroups   = flag.Bool("g", false, "treat discovered directories as test groups")
	testDir    = flag.String("i", cmdcommon.DefaultTestDir, "base directory holding the tests")
	outputDir  = flag.String("o", cmdcommon.DefaultOutputDir, "base directory for run results")
	pre        = flag.String("p", "", "default setup script run before each test or group")
	preUser    = flag.String("P", "", "user the setup script runs as")
	quiet      = flag.Bool("q", false, "print only non-passing results on the console")
	timeout    = flag.Int("t", common.DefaultTimeout, "per-test timeout in seconds (0 disables it)")
	user       = flag.String("u", "", "user the tests run as")
	template   = flag.String("w", "", "write a runfile template for the given pathnames and exit")
	post       = flag.String("x", "", "default teardown script run after each test or group")
	postUser   = flag.String("X", "", "user the teardown script runs as")
	tags       = flag.String("T", "", "comma-separated tags selecting which groups run")
	iterations = flag.Int("I", 1, "number of times to run the test set")
	logLevel   = flag.String("log-level", "info", "diagnostic log level (debug, info, warn, error)")
	logDir     = flag.String("log-dir", "", "directory for the per-run JSON diagnostic log")
)

func main() {
	runID := logging.GenerateRunID()
	os.Exit(run(runID))
}

func run(runID string) int {
	flag.Parse()

	opts, err := buildOptions()
	if err != nil {
		logging.HandlePreExecutionError(logging.ErrorTypeInvalidArguments, err.Error(), "main", runID)
		return cmdcommon.ExitFatal
	}

	if err := setupLogger(*logLevel, *logDir, runID); err != nil {
		logging.HandlePreExecutionError(logging.ErrorTypeLogFileOpen, err.Error(), "logging", runID)
		return cmdcommon.ExitFatal
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.Default()
	r := runner.NewTestRun(logger, common.MonotonicClock{}, opts)

	detector := terminal.NewInteractiveDetector(terminal.DetectorOptions{})
	r.SetColorize(detector.IsInteractive())

	if opts.Runfile != "" {
		if err := r.LoadRunfile(opts.Runfile); err != nil {
			logging.HandlePreExecutionError(logging.ErrorTypeRunfileParsing, err.Error(), "config", runID)
			return cmdcommon.ExitFatal
		}
	} else {
		res, err := discovery.Discover(opts)
		if err != nil {
			logging.HandlePreExecutionError(logging.ErrorTypeInvalidArguments, err.Error(), "discovery", runID)
			return cmdcommon.ExitFatal
		}
		r.AddDiscovered(res.Tests, res.Groups)
	}

	if opts.Template != "" {
		if err := config.WriteRunfile(opts.Template, r.Spec()); err != nil {
			logging.HandlePreExecutionError(logging.ErrorTypeSystemError, err.Error(), "config", runID)
			return cmdcommon.ExitFatal
		}
		return cmdcommon.ExitSuccess
	}

	privMgr := privilege.NewManager(logger)
	r.Verify(ctx, privMgr)
	if r.UnitCount() == 0 {
		fmt.Fprintln(os.Stderr, "No tests to run")
		return cmdcommon.ExitNoTests
	}

	counts, err := r.Execute(ctx)
	if err != nil {
		errType := logging.ErrorTypeOutputDir
		if errors.Is(err, supervisor.ErrSpawn) {
			errType = logging.ErrorTypeSystemError
		}
		logging.HandlePreExecutionError(errType, err.Error(), "runner", runID)
		return cmdcommon.ExitFatal
	}
	if ctx.Err() != nil {
		return cmdcommon.ExitInterrupted
	}
	return counts.ExitCode()
}

// buildOptions assembles and validates the runtime options from the parsed
// flags. Relative positional pathnames are anchored at the test directory.
func buildOptions() (*runnertypes.Options, error) {
	opts := &runnertypes.Options{
		OutputDir:  *outputDir,
		TestDir:    *testDir,
		Runfile:    *runfile,
		Template:   *template,
		Quiet:      *quiet,
		DryRun:     *dryRun,
		DoGroups:   *doGroups,
		Timeout:    int32(*timeout),
		User:       *user,
		Pre:        *pre,
		PreUser:    *preUser,
		Post:       *post,
		PostUser:   *postUser,
		Iterations: *iterations,
	}
	if *tags != "" {
		opts.Tags = strings.Split(*tags, ",")
	}
	for _, p := range flag.Args() {
		if !filepath.IsAbs(p) {
			p = filepath.Join(opts.TestDir, p)
		}
		opts.Pathnames = append(opts.Pathnames, p)
	}

	if opts.Runfile != "" && len(opts.Pathnames) > 0 {
		return nil, ErrRunfileAndPathnames
	}
	if opts.Runfile == "" && len(opts.Pathnames) == 0 {
		return nil, ErrNoInput
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// setupLogger wires the diagnostic logging: a human-readable handler on
// stderr, plus an optional per-run JSON log file. The run protocol itself
// goes to stdout and is not routed through slog.
func setupLogger(level, dir, runID string) error {
	var slogLevel slog.Level
	if err := slogLevel.UnmarshalText([]byte(level)); err != nil {
		slogLevel = slog.LevelInfo
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel}),
	}

	if dir != "" {
		hostname, _ := os.Hostname()
		stamp := time.Now().Format("20060102T150405Z")
		logPath := filepath.Join(dir, fmt.Sprintf("%s_%s_%s.json", hostname, stamp, runID))
		logF, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, logFilePerm)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		jsonHandler := slog.NewJSONHandler(logF, &slog.HandlerOptions{Level: slogLevel})
		handlers = append(handlers, jsonHandler.WithAttrs([]slog.Attr{
			slog.String("hostname", hostname),
			slog.String("run_id", runID),
		}))
	}

	slog.SetDefault(slog.New(logging.NewMultiHandler(handlers...)))
	return nil
}
