// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gralloc

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
)

type bufferDump struct {
	id     uint64
	shape  bufferShape
	bytes  int
	refs   int
	locks  int
	shared bool
}

// dump renders one line per live identity, ordered by id, and a summary.
func (d *Device) dump() string {
	var rows []bufferDump
	d.ids.Range(func(_ uint64, id *identity) bool {
		// The block stays mapped while released is false and mu is held.
		id.mu.Lock()
		defer id.mu.Unlock()
		if id.released {
			return true
		}
		row := bufferDump{
			id:     id.id,
			shape:  id.shape,
			bytes:  id.block.Size(),
			refs:   len(id.refs),
			shared: id.block.Shared(),
		}
		for _, r := range id.refs {
			row.locks += r.locks
		}
		rows = append(rows, row)
		return true
	})
	slices.SortFunc(rows, func(a, b bufferDump) int { return cmp.Compare(a.id, b.id) })

	var sb strings.Builder
	fmt.Fprintf(&sb, "gralloc device: %d buffers\n", len(rows))
	var total uint64
	for _, r := range rows {
		info := r.shape.info
		backing := "heap"
		if r.shared {
			backing = "shm"
		}
		fmt.Fprintf(&sb, "  #%d %dx%dx%d %v stride=%d usage=%v refs=%d locks=%d size=%s %s\n",
			r.id, info.Width, info.Height, info.LayerCount, info.Format, r.shape.stride,
			info.Usage, r.refs, r.locks, humanize.IBytes(uint64(r.bytes)), backing)
		total += uint64(r.bytes)
	}
	st := d.store.Stats()
	fmt.Fprintf(&sb, "live: %s in %s buffers; pooled: %s in %d mappings; allocated since start: %s\n",
		humanize.IBytes(total), humanize.Comma(int64(len(rows))),
		humanize.IBytes(uint64(st.PooledBytes)), st.PooledBlocks,
		humanize.Comma(int64(d.allocated.Load())))

	ts := d.ids.Stats()
	shards := d.ids.ShardLen()
	fmt.Fprintf(&sb, "table: %d inserts, %d removals, shard occupancy %d..%d\n",
		ts.Inserts, ts.Removals, slices.Min(shards[:]), slices.Max(shards[:]))
	return sb.String()
}
