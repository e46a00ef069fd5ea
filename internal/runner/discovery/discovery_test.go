package discovery_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalogicsoftware/vstor-zfs/internal/runner/discovery"
	"github.com/catalogicsoftware/vstor-zfs/internal/runner/runnertypes"
)

func makeTree(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		path := filepath.Join(root, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))
	}
	return root
}

func TestDiscoverSingleFile(t *testing.T) {
	root := makeTree(t, "standalone.ksh")
	path := filepath.Join(root, "standalone.ksh")

	res, err := discovery.Discover(&runnertypes.Options{Pathnames: []string{path}})
	require.NoError(t, err)

	require.Len(t, res.Tests, 1)
	assert.Equal(t, path, res.Tests[0].Pathname)
	assert.Empty(t, res.Groups)
}

func TestDiscoverDirectoryAsTests(t *testing.T) {
	root := makeTree(t,
		"cli/one.ksh",
		"cli/two.ksh",
		"misc/other.sh",
	)

	res, err := discovery.Discover(&runnertypes.Options{Pathnames: []string{root}})
	require.NoError(t, err)

	require.Len(t, res.Tests, 3)
	assert.Equal(t, filepath.Join(root, "cli", "one.ksh"), res.Tests[0].Pathname)
	assert.Equal(t, filepath.Join(root, "cli", "two.ksh"), res.Tests[1].Pathname)
	assert.Equal(t, filepath.Join(root, "misc", "other.sh"), res.Tests[2].Pathname)
}

func TestDiscoverDirectoryAsGroups(t *testing.T) {
	root := makeTree(t,
		"cli/setup.ksh",
		"cli/one.ksh",
		"cli/two.ksh",
		"cli/cleanup.ksh",
		"misc/other.sh",
	)
	opts := &runnertypes.Options{
		Pathnames: []string{root},
		DoGroups:  true,
		Pre:       "setup",
		Post:      "cleanup",
	}

	res, err := discovery.Discover(opts)
	require.NoError(t, err)

	require.Len(t, res.Groups, 2)
	cli := res.Groups[0]
	assert.Equal(t, filepath.Join(root, "cli"), cli.Pathname)
	assert.Equal(t, []string{"one.ksh", "two.ksh"}, cli.Tests)

	misc := res.Groups[1]
	assert.Equal(t, []string{"other.sh"}, misc.Tests)
	assert.Empty(t, res.Tests)
}

func TestDiscoverGroupOfOnlyScriptsIsDropped(t *testing.T) {
	root := makeTree(t, "empty/setup.ksh", "empty/cleanup.ksh")
	opts := &runnertypes.Options{
		Pathnames: []string{root},
		DoGroups:  true,
		Pre:       "setup",
		Post:      "cleanup",
	}

	res, err := discovery.Discover(opts)
	require.NoError(t, err)
	assert.Empty(t, res.Groups)
}

func TestDiscoverMissingPath(t *testing.T) {
	_, err := discovery.Discover(&runnertypes.Options{
		Pathnames: []string{filepath.Join(t.TempDir(), "gone")},
	})
	assert.ErrorIs(t, err, discovery.ErrNotFileOrDir)
}
