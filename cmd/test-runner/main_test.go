package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalogicsoftware/vstor-zfs/internal/runner/runnertypes"
)

func resetFlags(t *testing.T) {
	t.Helper()
	origRunfile, origIter, origTimeout := *runfile, *iterations, *timeout
	t.Cleanup(func() {
		*runfile = origRunfile
		*iterations = origIter
		*timeout = origTimeout
	})
}

func TestBuildOptionsRequiresInput(t *testing.T) {
	resetFlags(t)
	*runfile = ""

	_, err := buildOptions()
	assert.ErrorIs(t, err, ErrNoInput)
}

func TestBuildOptionsRunfile(t *testing.T) {
	resetFlags(t)
	*runfile = "/etc/tests.run"

	opts, err := buildOptions()
	require.NoError(t, err)
	assert.Equal(t, "/etc/tests.run", opts.Runfile)
	assert.Equal(t, 1, opts.Iterations)
	assert.Equal(t, int32(60), opts.Timeout)
}

func TestBuildOptionsRejectsBadValues(t *testing.T) {
	resetFlags(t)
	*runfile = "/etc/tests.run"

	*iterations = 0
	_, err := buildOptions()
	assert.ErrorIs(t, err, runnertypes.ErrNegativeIterations)

	*iterations = 1
	*timeout = -1
	_, err = buildOptions()
	assert.ErrorIs(t, err, runnertypes.ErrNegativeTimeout)
}
