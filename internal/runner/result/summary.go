package result

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/catalogicsoftware/vstor-zfs/internal/common"
)

// Summary carries everything the end-of-run report needs.
type Summary struct {
	Counts  Counts
	Elapsed time.Duration
	LogDir  string
}

// Summarize snapshots the aggregator into a renderable summary.
func (a *Aggregator) Summarize(elapsed time.Duration, logDir string) Summary {
	return Summary{
		Counts:  a.Snapshot(),
		Elapsed: elapsed,
		LogDir:  logDir,
	}
}

// Render writes the results table followed by the run totals.
func (s Summary) Render(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Results Summary")
	t.AppendHeader(table.Row{"Outcome", "Count"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Count", Align: text.AlignRight},
	})
	for _, row := range []struct {
		name  string
		count int
	}{
		{"PASS", s.Counts.Pass},
		{"FAIL", s.Counts.Fail},
		{"SKIP", s.Counts.Skip},
		{"KILLED", s.Counts.Killed},
		{"RERAN", s.Counts.Reran},
	} {
		if row.count == 0 {
			continue
		}
		t.AppendRow(table.Row{row.name, row.count})
	}
	t.SetStyle(table.StyleLight)
	t.Render()

	fmt.Fprintf(w, "\nRunning Time:\t%s\n", common.FormatWallTime(s.Elapsed))
	fmt.Fprintf(w, "Percent passed:\t%.1f%%\n", s.Counts.PercentPassed())
	fmt.Fprintf(w, "Log directory:\t%s\n", s.LogDir)
}
