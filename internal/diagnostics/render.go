package diagnostics

import (
	"github.com/jedib0t/go-pretty/v6/table"
)

// Render formats rows as the table simhostctl prints to stdout, in the
// teacher's go-pretty/table usage (style borrowed from the benchmark
// worker-stats dump: header row, one row per entity, no external
// styling dependency beyond the default style).
func Render(rows []Row) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Entity", "State", "NetworkID", "Ownership", "PendingAcks"})
	for _, r := range rows {
		t.AppendRow(table.Row{r.Entity, r.State, r.NetworkID, r.PrimaryOwns, r.PendingAcks})
	}
	return t.Render()
}
