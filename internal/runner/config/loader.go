// Package config reads and writes TOML runfiles and merges the three layers
// of unit properties: per-section values beat runfile defaults, which beat
// command-line options.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/catalogicsoftware/vstor-zfs/internal/runner/runnertypes"
)

// Error definitions
var (
	// ErrMissingPathname indicates a test or group section without a
	// pathname
	ErrMissingPathname = errors.New("section is missing a pathname")

	// ErrEmptyGroup indicates a group section with no test list
	ErrEmptyGroup = errors.New("group has no tests")

	// ErrNegativeTimeout indicates a negative per-section timeout
	ErrNegativeTimeout = errors.New("timeout cannot be negative")
)

// LoadRunfile parses and validates a TOML runfile.
func LoadRunfile(path string) (*runnertypes.RunfileSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read runfile %s: %w", path, err)
	}

	var spec runnertypes.RunfileSpec
	if err := toml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse runfile %s: %w", path, err)
	}
	if err := validate(&spec); err != nil {
		return nil, fmt.Errorf("invalid runfile %s: %w", path, err)
	}
	return &spec, nil
}

func validate(spec *runnertypes.RunfileSpec) error {
	if spec.Defaults.Timeout != nil && *spec.Defaults.Timeout < 0 {
		return fmt.Errorf("%w: defaults", ErrNegativeTimeout)
	}
	for i := range spec.Tests {
		if err := validateSection(&spec.Tests[i]); err != nil {
			return err
		}
	}
	for i := range spec.Groups {
		g := &spec.Groups[i]
		if err := validateSection(&g.TestSpec); err != nil {
			return err
		}
		if len(g.Tests) == 0 {
			return fmt.Errorf("%w: %s", ErrEmptyGroup, g.Pathname)
		}
	}
	return nil
}

func validateSection(t *runnertypes.TestSpec) error {
	if t.Pathname == "" {
		return ErrMissingPathname
	}
	if t.Timeout != nil && *t.Timeout < 0 {
		return fmt.Errorf("%w: %s", ErrNegativeTimeout, t.Pathname)
	}
	return nil
}

// WriteRunfile renders a spec back to TOML, for runfile template
// generation.
func WriteRunfile(path string, spec *runnertypes.RunfileSpec) error {
	data, err := toml.Marshal(spec)
	if err != nil {
		return fmt.Errorf("failed to encode runfile: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write runfile %s: %w", path, err)
	}
	return nil
}
