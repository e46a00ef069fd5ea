package runner

import (
	"path/filepath"
	"strings"
)

// completeOutputDirs assigns every unit pathname a directory under runDir.
// Starting from the last pathname component, suffixes grow one component at
// a time until no two units map to the same directory, so unrelated tests
// that share a base name still get distinct artifact locations. Input
// pathnames must be distinct, which the coordinator's maps guarantee.
func completeOutputDirs(runDir string, pathnames []string) map[string]string {
	out := make(map[string]string, len(pathnames))
	for n := 1; ; n++ {
		seen := make(map[string]struct{}, len(pathnames))
		collision := false
		for _, p := range pathnames {
			uniq := pathSuffix(p, n)
			if _, dup := seen[uniq]; dup {
				collision = true
				break
			}
			seen[uniq] = struct{}{}
			out[p] = filepath.Join(runDir, uniq)
		}
		if !collision {
			return out
		}
	}
}

// pathSuffix returns the last n components of a slash path, or the whole
// path when it has fewer.
func pathSuffix(p string, n int) string {
	parts := strings.Split(strings.Trim(filepath.ToSlash(p), "/"), "/")
	if n >= len(parts) {
		return strings.Join(parts, "/")
	}
	return strings.Join(parts[len(parts)-n:], "/")
}
