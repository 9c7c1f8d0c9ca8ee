package main

import (
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"cdpflow/internal/history"
	"cdpflow/internal/staging"
)

func newTableWriter(header table.Row, rightAligned ...int) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(header)

	configs := make([]table.ColumnConfig, 0, len(header))
	for i := range header {
		configs = append(configs, table.ColumnConfig{Number: i + 1, AlignHeader: text.AlignLeft})
	}
	for _, n := range rightAligned {
		if n >= 1 && n <= len(configs) {
			configs[n-1].Align = text.AlignRight
		}
	}
	tw.SetColumnConfigs(configs)
	return tw
}

// runsTable renders history rows newest first, as returned by the store.
func runsTable(runs []history.Run) string {
	tw := newTableWriter(table.Row{"Run", "Started", "Status", "Steps", "Dispatches", "Elapsed", "Output / Error"}, 4, 5, 6)
	for _, run := range runs {
		result := run.OutputPath
		if run.Failed() {
			result = run.ErrorKind
		}
		tw.AppendRow(table.Row{
			shortID(run.RunID),
			humanize.Time(run.StartedAt),
			string(run.Status),
			strconv.Itoa(run.Steps) + "/" + strconv.Itoa(len(run.Operations)),
			run.Dispatches,
			run.Elapsed().Round(time.Millisecond).String(),
			result,
		})
	}
	return tw.Render()
}

// workspacesTable renders staging directories with a footer carrying the
// combined size.
func workspacesTable(dirs []staging.DirInfo) string {
	tw := newTableWriter(table.Row{"Workspace", "Modified", "Files", "Size", "In use"}, 3, 4)
	var total int64
	for _, dir := range dirs {
		total += dir.Size
		tw.AppendRow(table.Row{
			dir.Name,
			humanize.Time(dir.ModTime),
			dir.Files,
			humanize.IBytes(uint64(dir.Size)),
			yesNo(dir.InUse),
		})
	}
	tw.AppendFooter(table.Row{strconv.Itoa(len(dirs)) + " workspaces", "", "", humanize.IBytes(uint64(total)), ""})
	return tw.Render()
}
