// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package distribute hands the rows of an upstream block to several
// independently paced downstream clients. A Router picks, for every upstream
// row, the clients that receive it and queues the row subsets per client; a
// ClientBlock re-batches its queue into blocks of bounded size and serves
// them to its client.
package distribute

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/rowflow/block"
	"github.com/cockroachdb/rowflow/flow"
	"github.com/cockroachdb/rowflow/input"
	"github.com/cockroachdb/rowflow/internal/invariants"
	"github.com/cockroachdb/rowflow/row"
)

// DefaultMaxBatchSize is the maximum number of rows of a joined block.
const DefaultMaxBatchSize = 1000

// QueueEntry is one routed row subset waiting for a client: the rows Chosen
// of Block, in upstream order, plus the rows upstream skipped. An entry
// without rows is a pure skip entry.
type QueueEntry struct {
	Skip   flow.SkipResult
	Block  block.Shared
	Chosen []int

	// taken is the number of chosen rows already moved into a joined block.
	taken int
	// skipMerged is set once Skip was handed out.
	skipMerged bool
}

func (e *QueueEntry) remaining() int {
	return len(e.Chosen) - e.taken
}

// ClientBlock is the per-client state of a distributing executor: the queue
// of routed rows and the joined block currently being served.
type ClientBlock struct {
	mgr          *block.Manager
	maxBatchSize int
	queue        []QueueEntry

	// current is the range over the joined block being served.
	current input.Range
}

// NewClientBlock returns a ClientBlock that requests joined blocks of at most
// maxBatchSize rows from m.
func NewClientBlock(m *block.Manager, maxBatchSize int) *ClientBlock {
	if maxBatchSize <= 0 {
		maxBatchSize = DefaultMaxBatchSize
	}
	return &ClientBlock{mgr: m, maxBatchSize: maxBatchSize}
}

// AddBlock queues the rows chosen of blk for the client, taking ownership of
// blk. blk must be present if and only if chosen is non-empty.
func (c *ClientBlock) AddBlock(skip flow.SkipResult, blk block.Shared, chosen []int) {
	if blk.IsNil() != (len(chosen) == 0) {
		panic(errors.AssertionFailedf("queue entry with %d chosen rows and block present=%t",
			len(chosen), !blk.IsNil()))
	}
	if invariants.Enabled {
		for _, i := range chosen {
			invariants.CheckBounds(i, blk.NumRows())
		}
	}
	c.queue = append(c.queue, QueueEntry{Skip: skip, Block: blk, Chosen: chosen})
}

// QueueLen returns the number of queued entries.
func (c *ClientBlock) QueueLen() int {
	return len(c.queue)
}

// QueuedRows returns the number of queued rows not yet moved into a joined
// block.
func (c *ClientBlock) QueuedRows() int {
	n := 0
	for i := range c.queue {
		n += c.queue[i].remaining()
	}
	return n
}

// HasDataFor returns true if the client has buffered material: rows of the
// joined block being served or queued entries.
func (c *ClientBlock) HasDataFor(flow.Call) bool {
	return c.current.HasValidRow() || len(c.queue) > 0
}

// PopJoinedBlock moves up to the maximum batch size of queued rows, oldest
// first, into a new block and returns it with the merged skips of the
// entries it drew from. An entry that does not fit is split; its remainder
// stays at the front of the queue and its skip is not reported again. If
// only pure skip entries are queued, they are all drained and no block is
// returned.
func (c *ClientBlock) PopJoinedBlock() (block.Shared, flow.SkipResult, error) {
	var skip flow.SkipResult
	rows, regs := 0, 0
	for i := range c.queue {
		e := &c.queue[i]
		if rows == c.maxBatchSize {
			break
		}
		rows += min(e.remaining(), c.maxBatchSize-rows)
		if !e.Block.IsNil() {
			regs = max(regs, e.Block.Block().NumRegisters())
		}
	}

	if rows == 0 {
		for i := range c.queue {
			c.mergeSkip(&skip, &c.queue[i])
		}
		c.popFront(len(c.queue))
		return block.Shared{}, skip, nil
	}

	w, err := c.mgr.RequestBlock(rows, regs)
	if err != nil {
		return block.Shared{}, skip, err
	}
	dst, popped := 0, 0
	for dst < rows {
		e := &c.queue[popped]
		c.mergeSkip(&skip, e)
		src := e.Block.Block()
		for ; e.taken < len(e.Chosen) && dst < rows; e.taken++ {
			// Shadow rows are copied like data rows; the source block is
			// shared and must not be modified.
			w.CopyRow(dst, src, e.Chosen[e.taken])
			dst++
		}
		if e.remaining() > 0 {
			break
		}
		popped++
	}
	c.popFront(popped)
	return w.Finish(), skip, nil
}

func (c *ClientBlock) mergeSkip(dst *flow.SkipResult, e *QueueEntry) {
	if !e.skipMerged {
		dst.Merge(e.Skip, false)
		e.skipMerged = true
	}
}

func (c *ClientBlock) popFront(n int) {
	for i := 0; i < n; i++ {
		c.queue[i].Block.Release()
	}
	clear(c.queue[:n])
	c.queue = append(c.queue[:0], c.queue[n:]...)
}

// Execute serves call from the client's buffered rows. When no joined block
// is being served it pops the next one. It then skips the rows the call's
// offset asks for, copies data rows up to the call's limit into the returned
// block, and stops after the shadow rows that end the current subquery
// iteration. Rows not served stay buffered for the next call. upstream is
// the state of the distributing executor's own input; the returned state is
// HasMore while the client has buffered rows and upstream otherwise.
func (c *ClientBlock) Execute(
	call *flow.Call, upstream flow.State,
) (flow.State, flow.SkipResult, block.Shared, error) {
	var skipped flow.SkipResult
	if !c.current.HasValidRow() && len(c.queue) > 0 {
		c.current.Release()
		blk, skip, err := c.PopJoinedBlock()
		if err != nil {
			return upstream, skipped, block.Shared{}, err
		}
		skipped.Merge(skip, false)
		c.current = input.MakeRange(upstream, 0, blk, 0)
	}
	r := &c.current

	for call.Offset > 0 && r.HasDataRow() {
		r.NextDataRow()
		call.DidSkip(1)
		skipped.DidSkip(1)
	}

	var out *row.OutputRow
	if b := r.Block(); b != nil && r.HasValidRow() {
		n := b.NumRows() - r.RowIndex()
		if lim := call.Limit(); lim < n {
			n = min(n, lim+r.CountShadowRows())
		}
		if n > 0 {
			w, err := c.mgr.RequestBlock(n, b.NumRegisters())
			if err != nil {
				return upstream, skipped, block.Shared{}, err
			}
			out = row.NewOutputRow(w)
		}
	}

	if out != nil {
	loop:
		for !out.IsFull() {
			switch {
			case r.HasDataRow():
				if call.Limit() == 0 {
					break loop
				}
				_, ir := r.NextDataRow()
				if err := out.CopyRow(ir); err != nil {
					out.Release()
					return upstream, skipped, block.Shared{}, err
				}
				out.AdvanceRow()
				call.DidProduce(1)
			case r.HasShadowRow():
				_, sr := r.NextShadowRow()
				if err := out.CopyShadowRow(sr); err != nil {
					out.Release()
					return upstream, skipped, block.Shared{}, err
				}
				out.AdvanceRow()
				// The iteration ends once its shadow run is written.
				if !r.HasShadowRow() {
					break loop
				}
			default:
				break loop
			}
		}
	}

	// With the hard limit reached the rest of the iteration is dropped,
	// and counted if the call asks for the full count.
	if call.HardLimit == 0 && r.HasDataRow() {
		n, _ := r.SkipAllRemainingDataRows()
		if call.NeedsFullCount() {
			call.DidSkip(n)
			skipped.DidSkip(n)
		}
	}

	var result block.Shared
	if out != nil {
		result = out.Finish()
	}
	state := upstream
	if c.HasDataFor(*call) {
		state = flow.HasMore
	}
	return state, skipped, result, nil
}

// Release drops every queued entry and the block being served.
func (c *ClientBlock) Release() {
	c.current.Release()
	c.popFront(len(c.queue))
}
