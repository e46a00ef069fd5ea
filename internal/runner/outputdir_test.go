package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompleteOutputDirs(t *testing.T) {
	tests := []struct {
		name      string
		pathnames []string
		want      map[string]string
	}{
		{
			name:      "base names already unique",
			pathnames: []string{"functional/cli/one", "functional/cli/two"},
			want: map[string]string{
				"functional/cli/one": "/run/one",
				"functional/cli/two": "/run/two",
			},
		},
		{
			name:      "shared base name grows the suffix",
			pathnames: []string{"functional/compress/setup", "functional/crypto/setup"},
			want: map[string]string{
				"functional/compress/setup": "/run/compress/setup",
				"functional/crypto/setup":   "/run/crypto/setup",
			},
		},
		{
			name:      "collision deep in the tree",
			pathnames: []string{"a/x/y/test", "b/x/y/test"},
			want: map[string]string{
				"a/x/y/test": "/run/a/x/y/test",
				"b/x/y/test": "/run/b/x/y/test",
			},
		},
		{
			name:      "single unit",
			pathnames: []string{"/usr/share/zfs/only"},
			want: map[string]string{
				"/usr/share/zfs/only": "/run/only",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, completeOutputDirs("/run", tt.pathnames))
		})
	}
}

func TestPathSuffix(t *testing.T) {
	assert.Equal(t, "c", pathSuffix("/a/b/c", 1))
	assert.Equal(t, "b/c", pathSuffix("/a/b/c", 2))
	assert.Equal(t, "a/b/c", pathSuffix("/a/b/c", 3))
	assert.Equal(t, "a/b/c", pathSuffix("/a/b/c", 9))
}
