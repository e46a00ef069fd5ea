// Package discovery turns positional path arguments into test and group
// sections, for runs launched without a runfile and for runfile template
// generation.
package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/catalogicsoftware/vstor-zfs/internal/runner/runnertypes"
)

// ErrNotFileOrDir indicates a positional argument that is neither a regular
// file nor a directory.
var ErrNotFileOrDir = errors.New("not a valid file or directory")

// Result holds the sections built from the positional arguments. Standalone
// files become tests; with group discovery enabled, each directory that
// contains files becomes one group.
type Result struct {
	Tests  []runnertypes.TestSpec
	Groups []runnertypes.GroupSpec
}

// Discover walks every positional pathname. Directories are walked
// recursively; depending on opts.DoGroups their files become individual
// tests or per-directory groups. Setup and teardown scripts named by the
// options never appear as group members.
func Discover(opts *runnertypes.Options) (*Result, error) {
	res := &Result{}
	for _, pathname := range opts.Pathnames {
		info, err := os.Stat(pathname)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrNotFileOrDir, pathname)
		}
		switch {
		case info.IsDir():
			if err := res.walkDir(pathname, opts); err != nil {
				return nil, err
			}
		case info.Mode().IsRegular():
			res.Tests = append(res.Tests, runnertypes.TestSpec{Pathname: pathname})
		default:
			return nil, fmt.Errorf("%w: %s", ErrNotFileOrDir, pathname)
		}
	}
	return res, nil
}

func (r *Result) walkDir(root string, opts *runnertypes.Options) error {
	members := make(map[string][]string) // dir -> file names, walk order

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		dir := filepath.Dir(path)
		members[dir] = append(members[dir], d.Name())
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk %s: %w", root, err)
	}

	if !opts.DoGroups {
		// WalkDir visits lexically, so re-walking the map by directory
		// order keeps the original sequence.
		for _, dir := range sortedKeys(members) {
			for _, name := range members[dir] {
				r.Tests = append(r.Tests, runnertypes.TestSpec{
					Pathname: filepath.Join(dir, name),
				})
			}
		}
		return nil
	}

	for _, dir := range sortedKeys(members) {
		files := excludeScripts(members[dir], opts.Pre, opts.Post)
		if len(files) == 0 {
			continue
		}
		r.Groups = append(r.Groups, runnertypes.GroupSpec{
			TestSpec: runnertypes.TestSpec{Pathname: dir},
			Tests:    files,
		})
	}
	return nil
}

// excludeScripts drops the configured setup and teardown scripts from a
// member list; they run around the group, not inside it.
func excludeScripts(names []string, pre, post string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		base := trimSuffixes(n)
		if (pre != "" && base == trimSuffixes(filepath.Base(pre))) ||
			(post != "" && base == trimSuffixes(filepath.Base(post))) {
			continue
		}
		out = append(out, n)
	}
	return out
}

// trimSuffixes strips the conventional script suffixes so "setup.ksh"
// matches a configured "setup".
func trimSuffixes(name string) string {
	for _, suffix := range []string{".ksh", ".sh"} {
		if filepath.Ext(name) == suffix {
			return name[:len(name)-len(suffix)]
		}
	}
	return name
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
