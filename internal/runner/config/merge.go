package config

import (
	"github.com/catalogicsoftware/vstor-zfs/internal/runner/runnertypes"
)

// ApplyDefaults resolves every section of the runfile to its effective
// property values. After it returns, every section's Timeout is non-nil and
// every string property carries its final value; the run coordinator never
// consults defaults again.
//
// Precedence, highest first: the section itself, the runfile [defaults]
// table, then the command-line options. The flag parser already applied the
// built-in defaults (60 second timeout, caller's identity) to the options,
// so an explicit zero timeout here means unbounded.
func ApplyDefaults(spec *runnertypes.RunfileSpec, opts *runnertypes.Options) {
	base := effectiveDefaults(&spec.Defaults, opts)

	for i := range spec.Tests {
		mergeSection(&spec.Tests[i], &base)
	}
	for i := range spec.Groups {
		mergeSection(&spec.Groups[i].TestSpec, &base)
	}
	if spec.Defaults.Quiet == nil {
		spec.Defaults.Quiet = boolPtr(opts.Quiet)
	}
	if spec.Defaults.OutputDir == "" {
		spec.Defaults.OutputDir = opts.OutputDir
	}
}

// effectiveDefaults overlays the runfile defaults onto the command-line
// options, producing the fallback layer for every section.
func effectiveDefaults(d *runnertypes.DefaultsSpec, opts *runnertypes.Options) runnertypes.TestSpec {
	out := runnertypes.TestSpec{
		OutputDir: opts.OutputDir,
		Timeout:   int32Ptr(opts.Timeout),
		User:      opts.User,
		Pre:       opts.Pre,
		PreUser:   opts.PreUser,
		Post:      opts.Post,
		PostUser:  opts.PostUser,
		Tags:      opts.Tags,
	}
	if d.OutputDir != "" {
		out.OutputDir = d.OutputDir
	}
	if d.Timeout != nil {
		out.Timeout = int32Ptr(*d.Timeout)
	}
	if d.User != "" {
		out.User = d.User
	}
	if d.Pre != "" {
		out.Pre = d.Pre
	}
	if d.PreUser != "" {
		out.PreUser = d.PreUser
	}
	if d.Post != "" {
		out.Post = d.Post
	}
	if d.PostUser != "" {
		out.PostUser = d.PostUser
	}
	if len(d.Tags) > 0 {
		out.Tags = d.Tags
	}
	return out
}

func mergeSection(t *runnertypes.TestSpec, base *runnertypes.TestSpec) {
	if t.OutputDir == "" {
		t.OutputDir = base.OutputDir
	}
	if t.Timeout == nil {
		t.Timeout = int32Ptr(*base.Timeout)
	}
	if t.User == "" {
		t.User = base.User
	}
	if t.Pre == "" {
		t.Pre = base.Pre
	}
	if t.PreUser == "" {
		t.PreUser = base.PreUser
	}
	if t.Post == "" {
		t.Post = base.Post
	}
	if t.PostUser == "" {
		t.PostUser = base.PostUser
	}
	if len(t.Tags) == 0 {
		t.Tags = base.Tags
	}
}

func int32Ptr(v int32) *int32 { return &v }
func boolPtr(v bool) *bool    { return &v }
