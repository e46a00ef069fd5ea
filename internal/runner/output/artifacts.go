package output

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/catalogicsoftware/vstor-zfs/internal/runner/runnertypes"
)

// Artifact file names written into each command's output directory.
const (
	stdoutFileName = "stdout"
	stderrFileName = "stderr"
	mergedFileName = "merged"

	artifactDirPerm  = 0o755
	artifactFilePerm = 0o644
)

// WriteArtifacts persists the captured output of a finalized attempt under
// dir. Each channel's file is written only when the channel produced
// anything; the chronologically merged view only when both did.
func WriteArtifacts(dir string, st *runnertypes.RunState) error {
	if err := os.MkdirAll(dir, artifactDirPerm); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	if len(st.Stdout) > 0 {
		if err := writeLines(filepath.Join(dir, stdoutFileName), st.Stdout); err != nil {
			return err
		}
	}
	if len(st.Stderr) > 0 {
		if err := writeLines(filepath.Join(dir, stderrFileName), st.Stderr); err != nil {
			return err
		}
	}
	if len(st.Stdout) > 0 && len(st.Stderr) > 0 {
		return writeLines(filepath.Join(dir, mergedFileName), Merge(st.Stdout, st.Stderr))
	}
	return nil
}

func writeLines(path string, lines []runnertypes.OutputLine) error {
	var buf bytes.Buffer
	for _, l := range lines {
		buf.Write(l.Data)
		buf.WriteByte('\n')
	}
	if err := os.WriteFile(path, buf.Bytes(), artifactFilePerm); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
