// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package input implements the cursors executors pull rows through: Range
// over a single upstream block, Matrix for executors that need a whole
// subquery iteration at once, and MultiRange for executors with several
// upstream dependencies.
package input

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/rowflow/block"
	"github.com/cockroachdb/rowflow/flow"
	"github.com/cockroachdb/rowflow/internal/invariants"
	"github.com/cockroachdb/rowflow/row"
)

// Range is a pull cursor over one upstream block. It first exposes the run of
// data rows at the cursor; once those are consumed the shadow rows that end
// the run become visible, and consuming the last of them exposes the next
// data run of the same block. Upstream may also report rows it skipped
// without materializing them; those are drained with Skip and SkipAll.
//
// A Range without a block is permanently exhausted, but still reports the
// upstream state and skip count.
type Range struct {
	blk   block.Shared
	state flow.State
	// skipped is the number of rows upstream skipped that have not been
	// claimed yet.
	skipped int
	// idx is the cursor; end is the exclusive end of the data run visible at
	// the cursor, either the next shadow row or the block end.
	idx int
	end int
}

// MakeRange returns a range over blk starting at row start. The range takes
// ownership of blk, which may be nil.
func MakeRange(state flow.State, skipped int, blk block.Shared, start int) Range {
	r := Range{blk: blk, state: state, skipped: skipped}
	if b := blk.Block(); b != nil {
		if start < 0 || start > b.NumRows() {
			panic(errors.AssertionFailedf("range start %d out of range [0, %d]", start, b.NumRows()))
		}
		r.idx = start
		r.end = b.NextShadowRow(start)
	} else if start != 0 {
		panic(errors.AssertionFailedf("range start %d without a block", start))
	}
	return r
}

// MakeEmptyRange returns a range without a block.
func MakeEmptyRange(state flow.State, skipped int) Range {
	return Range{state: state, skipped: skipped}
}

// Block returns the block of the range, or nil.
func (r *Range) Block() *block.Block {
	return r.blk.Block()
}

// RowIndex returns the position of the cursor.
func (r *Range) RowIndex() int {
	return r.idx
}

// UpstreamState returns the state upstream reported with the block.
func (r *Range) UpstreamState() flow.State {
	return r.state
}

// State returns HasMore if more data rows are buffered beyond the one at the
// cursor, and the upstream state otherwise.
func (r *Range) State() flow.State {
	if r.idx+1 < r.end {
		return flow.HasMore
	}
	return r.state
}

// SkippedInFlight returns the number of rows upstream skipped that are still
// unclaimed.
func (r *Range) SkippedInFlight() int {
	return r.skipped
}

// HasValidRow returns true if a row of any kind is at the cursor.
func (r *Range) HasValidRow() bool {
	b := r.blk.Block()
	return b != nil && r.idx < b.NumRows()
}

// HasDataRow returns true if a data row is at the cursor.
func (r *Range) HasDataRow() bool {
	return r.idx < r.end
}

// dataStateAt returns the state to report along with a data row when the
// next row to be read is at pos. Reaching a shadow row completes the data
// run of the current subquery iteration.
func (r *Range) dataStateAt(pos int) flow.State {
	b := r.blk.Block()
	if b == nil || pos >= b.NumRows() {
		return r.state
	}
	if b.IsShadowRow(pos) {
		return flow.Done
	}
	return flow.HasMore
}

// shadowStateAt returns the state to report along with a shadow row when the
// next row to be read is at pos.
func (r *Range) shadowStateAt(pos int) flow.State {
	b := r.blk.Block()
	if b == nil || pos >= b.NumRows() {
		return r.state
	}
	return flow.HasMore
}

// PeekDataRow returns the data row at the cursor without consuming it, along
// with the state that NextDataRow would return. The row is uninitialized if
// there is no data row at the cursor.
func (r *Range) PeekDataRow() (flow.State, row.InputRow) {
	if !r.HasDataRow() {
		return r.dataStateAt(r.idx), row.InputRow{}
	}
	return r.dataStateAt(r.idx + 1), row.MakeInputRow(r.blk.Block(), r.idx)
}

// NextDataRow consumes the data row at the cursor. The returned state is
// HasMore if another data row follows in the same run, Done if the run ends
// at a shadow row, and the upstream state if the block is exhausted. The row
// is uninitialized, and the cursor does not move, if there is no data row at
// the cursor.
func (r *Range) NextDataRow() (flow.State, row.InputRow) {
	if !r.HasDataRow() {
		return r.dataStateAt(r.idx), row.InputRow{}
	}
	ir := row.MakeInputRow(r.blk.Block(), r.idx)
	r.idx++
	return r.dataStateAt(r.idx), ir
}

// HasShadowRow returns true if the data run is consumed and a shadow row is
// at the cursor.
func (r *Range) HasShadowRow() bool {
	if r.HasDataRow() || !r.HasValidRow() {
		return false
	}
	return r.blk.Block().IsShadowRow(r.idx)
}

// PeekShadowRow returns the shadow row at the cursor without consuming it,
// along with the state that NextShadowRow would return.
func (r *Range) PeekShadowRow() (flow.State, row.ShadowRow) {
	if !r.HasShadowRow() {
		return r.shadowStateAt(r.idx), row.ShadowRow{}
	}
	return r.shadowStateAt(r.idx + 1), row.MakeShadowRow(r.blk.Block(), r.idx)
}

// NextShadowRow consumes the shadow row at the cursor and makes the data run
// that follows it, if any, visible. The returned state is HasMore while rows
// remain in the block and the upstream state after the last one.
func (r *Range) NextShadowRow() (flow.State, row.ShadowRow) {
	if !r.HasShadowRow() {
		return r.shadowStateAt(r.idx), row.ShadowRow{}
	}
	b := r.blk.Block()
	sr := row.MakeShadowRow(b, r.idx)
	r.idx++
	r.end = b.NextShadowRow(r.idx)
	return r.shadowStateAt(r.idx), sr
}

// Skip claims up to n of the rows upstream skipped and returns the number
// claimed. It never touches materialized rows.
func (r *Range) Skip(n int) int {
	k := min(n, r.skipped)
	r.skipped = invariants.SafeSub(r.skipped, k)
	return k
}

// SkipAll claims every row upstream skipped.
func (r *Range) SkipAll() int {
	k := r.skipped
	r.skipped = 0
	return k
}

// SkipAllRemainingDataRows moves the cursor past the current data run and
// returns the number of data rows dropped. The state is Done if the cursor
// now sits on the shadow row that ends the run, and the upstream state if
// the block is exhausted.
func (r *Range) SkipAllRemainingDataRows() (int, flow.State) {
	n := r.end - r.idx
	r.idx = r.end
	return n, r.dataStateAt(r.idx)
}

// CountDataRows returns the number of data rows from the cursor to the end of
// the block, across all subquery iterations.
func (r *Range) CountDataRows() int {
	b := r.blk.Block()
	if b == nil {
		return 0
	}
	return b.NumRows() - r.idx - r.CountShadowRows()
}

// CountShadowRows returns the number of shadow rows from the cursor to the
// end of the block.
func (r *Range) CountShadowRows() int {
	b := r.blk.Block()
	if b == nil {
		return 0
	}
	n := 0
	for i := b.NextShadowRow(r.idx); i < b.NumRows(); i = b.NextShadowRow(i + 1) {
		n++
	}
	return n
}

// RetainBlock returns a new shared handle to the block of the range.
func (r *Range) RetainBlock() block.Shared {
	return r.blk.Clone()
}

// Release drops the range's reference to its block. Afterwards the range
// behaves as if it had no block; rows handed out earlier are invalidated
// once nothing else holds the block.
func (r *Range) Release() {
	r.blk.Release()
	r.idx, r.end = 0, 0
}

func (r *Range) String() string {
	b := r.blk.Block()
	if b == nil {
		return fmt.Sprintf("range(empty, %s, skipped=%d)", r.state, r.skipped)
	}
	return fmt.Sprintf("range(%d/%d, end=%d, %s, skipped=%d)", r.idx, b.NumRows(), r.end, r.state, r.skipped)
}
