package runnertypes_test

import (
	"testing"

	"github.com/catalogicsoftware/vstor-zfs/internal/runner/runnertypes"
	"github.com/stretchr/testify/assert"
)

func TestGroupSpec_HasTag(t *testing.T) {
	tests := []struct {
		name     string
		tags     []string
		selected []string
		want     bool
	}{
		{name: "empty selection selects all", tags: []string{"checksum"}, selected: nil, want: true},
		{name: "matching tag", tags: []string{"functional", "checksum"}, selected: []string{"checksum"}, want: true},
		{name: "no intersection", tags: []string{"functional"}, selected: []string{"perf"}, want: false},
		{name: "untagged group with selection", tags: nil, selected: []string{"perf"}, want: false},
		{name: "multiple selected one matches", tags: []string{"io"}, selected: []string{"perf", "io"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := runnertypes.GroupSpec{TestSpec: runnertypes.TestSpec{Tags: tt.tags}}
			assert.Equal(t, tt.want, g.HasTag(tt.selected))
		})
	}
}

func TestOptions_Validate(t *testing.T) {
	valid := runnertypes.Options{Iterations: 1}
	assert.NoError(t, valid.Validate())

	negTimeout := runnertypes.Options{Timeout: -1, Iterations: 1}
	assert.ErrorIs(t, negTimeout.Validate(), runnertypes.ErrNegativeTimeout)

	zeroIter := runnertypes.Options{}
	assert.ErrorIs(t, zeroIter.Validate(), runnertypes.ErrNegativeIterations)
}

func TestRunState_Finalized(t *testing.T) {
	var s runnertypes.RunState
	assert.False(t, s.Finalized())
	s.MarkFinalized()
	assert.True(t, s.Finalized())
}
