// Package output turns the raw byte streams of a supervised child process
// into timestamped lines, merges the two channels into one chronological
// view, and persists result lines and captured output to the run's log
// files.
package output

import (
	"bytes"

	"github.com/catalogicsoftware/vstor-zfs/internal/common"
	"github.com/catalogicsoftware/vstor-zfs/internal/runner/runnertypes"
)

// Stream accumulates one output channel (stdout or stderr) of a child
// process. Chunks arrive in read order and may end mid-line; the trailing
// fragment is buffered until the next chunk or the final drain completes it.
type Stream struct {
	clock   common.Clock
	lines   []runnertypes.OutputLine
	partial []byte
}

// NewStream creates an empty stream.
func NewStream(clock common.Clock) *Stream {
	return &Stream{clock: clock}
}

// Consume appends a chunk of raw bytes. Every newline-terminated line in the
// chunk becomes an OutputLine stamped with the current clock reading; the
// timestamp marks when the read completed the line, not when the child wrote
// it.
func (s *Stream) Consume(p []byte) {
	if len(p) == 0 {
		return
	}
	now := s.clock.Now()
	s.partial = append(s.partial, p...)
	for {
		i := bytes.IndexByte(s.partial, '\n')
		if i < 0 {
			break
		}
		line := make([]byte, i)
		copy(line, s.partial[:i])
		s.lines = append(s.lines, runnertypes.OutputLine{At: now, Data: line})
		s.partial = s.partial[i+1:]
	}
}

// Drain flushes any buffered fragment as a final, implicitly terminated
// line. Called once, after the channel has reached EOF.
func (s *Stream) Drain() {
	if len(s.partial) == 0 {
		return
	}
	line := make([]byte, len(s.partial))
	copy(line, s.partial)
	s.lines = append(s.lines, runnertypes.OutputLine{At: s.clock.Now(), Data: line})
	s.partial = s.partial[:0]
}

// Lines returns the completed lines in arrival order.
func (s *Stream) Lines() []runnertypes.OutputLine {
	return s.lines
}

// Merge interleaves two line sequences by timestamp. Within each input the
// original order is preserved; on equal timestamps lines from the first
// input come first. Because timestamps are read-completion times, the merge
// reflects when output was observed rather than when it was produced.
func Merge(a, b []runnertypes.OutputLine) []runnertypes.OutputLine {
	merged := make([]runnertypes.OutputLine, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if !b[j].At.Before(a[i].At) {
			merged = append(merged, a[i])
			i++
		} else {
			merged = append(merged, b[j])
			j++
		}
	}
	merged = append(merged, a[i:]...)
	merged = append(merged, b[j:]...)
	return merged
}
