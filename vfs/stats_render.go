package vfs

import (
	"bytes"
	"fmt"

	"github.com/rodaine/table"

	"github.com/mit-pdos/reviewfs/internal/cache"
	"github.com/mit-pdos/reviewfs/internal/journal"
)

// String renders FsStats as an aligned table, grounded on
// mit-pdos-go-nfsd/util/stats.FormatTable's table.New/AddRow/WithWriter
// pattern.
func (s FsStats) String() string {
	tbl := table.New("metric", "value")
	tbl.AddRow("total_blocks", s.TotalBlocks)
	tbl.AddRow("free_blocks", s.FreeBlocks)
	tbl.AddRow("used_data_blocks", s.UsedDataBlocks)
	tbl.AddRow("metadata_blocks", s.MetadataBlocks)
	tbl.AddRow("total_inodes", s.TotalInodes)
	tbl.AddRow("free_inodes", s.FreeInodes)
	buf := new(bytes.Buffer)
	tbl.WithWriter(buf)
	tbl.Print()
	return buf.String()
}

// RenderCacheStats formats cache counters as a table.
func RenderCacheStats(s cache.Stats) string {
	tbl := table.New("metric", "value")
	tbl.AddRow("hits", s.Hits)
	tbl.AddRow("misses", s.Misses)
	tbl.AddRow("evictions", s.Evictions)
	buf := new(bytes.Buffer)
	tbl.WithWriter(buf)
	tbl.Print()
	return buf.String()
}

// RenderJournalStats formats the journal replay/pending counters as a
// table.
func RenderJournalStats(s journal.Stats) string {
	tbl := table.New("metric", "value")
	tbl.AddRow("replayed", s.Replayed)
	tbl.AddRow("pending", s.Pending)
	tbl.AddRow("recovered", fmt.Sprintf("%v", s.Recovered))
	buf := new(bytes.Buffer)
	tbl.WithWriter(buf)
	tbl.Print()
	return buf.String()
}
