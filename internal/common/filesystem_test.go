package common_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/catalogicsoftware/vstor-zfs/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultFileSystem_MkdirAllIdempotent(t *testing.T) {
	fs := common.NewDefaultFileSystem()
	dir := filepath.Join(t.TempDir(), "a", "b")

	require.NoError(t, fs.MkdirAll(dir, 0o755))
	require.NoError(t, fs.MkdirAll(dir, 0o755))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestDefaultFileSystem_SymlinkAndRemove(t *testing.T) {
	fs := common.NewDefaultFileSystem()
	dir := t.TempDir()
	link := filepath.Join(dir, "current")

	require.NoError(t, fs.Symlink("target", link))

	dest, err := os.Readlink(link)
	require.NoError(t, err)
	assert.Equal(t, "target", dest)

	require.NoError(t, fs.Remove(link))
	_, err = os.Lstat(link)
	assert.True(t, os.IsNotExist(err))
}
