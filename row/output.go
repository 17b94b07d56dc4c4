// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package row

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/rowflow/block"
	"github.com/cockroachdb/rowflow/internal/invariants"
)

// OutputRow writes rows into a block under construction, one row at a time.
// Every write targets the current row; AdvanceRow moves on to the next one.
type OutputRow struct {
	w       *block.Builder
	idx     int
	written bool
	closer  invariants.CloseChecker
}

// NewOutputRow returns a writer over the builder. The writer takes over the
// builder; it must be finished with Finish or abandoned with Release.
func NewOutputRow(w *block.Builder) *OutputRow {
	return &OutputRow{w: w}
}

func (o *OutputRow) checkRoom() {
	if o.IsFull() {
		panic(errors.AssertionFailedf("write past the end of a block of %d rows", o.w.NumRows()))
	}
}

// IsFull returns true if every row of the block was written.
func (o *OutputRow) IsFull() bool {
	return o.idx >= o.w.NumRows()
}

// NumRowsWritten returns the number of rows completed with AdvanceRow.
func (o *OutputRow) NumRowsWritten() int {
	return o.idx
}

// NumRowsLeft returns the number of rows that can still be written.
func (o *OutputRow) NumRowsLeft() int {
	return o.w.NumRows() - o.idx
}

// NumRegisters returns the number of registers of the output block.
func (o *OutputRow) NumRegisters() int {
	return o.w.NumRegisters()
}

// AdvanceRow completes the current row, which must have been written.
func (o *OutputRow) AdvanceRow() {
	o.checkRoom()
	if !o.written {
		panic(errors.AssertionFailedf("advance past unwritten row %d", o.idx))
	}
	o.idx++
	o.written = false
}

// CopyRow copies the registers of r into the current row.
func (o *OutputRow) CopyRow(r InputRow) error {
	if err := r.Valid(); err != nil {
		return err
	}
	o.checkRoom()
	o.w.CopyRow(o.idx, r.h.b, r.h.idx)
	o.written = true
	return nil
}

// SetValue stores v in register reg of the current row, taking ownership of
// it.
func (o *OutputRow) SetValue(reg int, v block.Value) {
	o.checkRoom()
	o.w.SetValue(o.idx, reg, v)
	o.written = true
}

// CopyShadowRow copies s, depth included, into the current row.
func (o *OutputRow) CopyShadowRow(s ShadowRow) error {
	return o.copyShadowRow(s, s.depth)
}

// IncreaseShadowRowDepth copies s into the current row with its depth
// increased by one. Executors that open a subquery forward the shadow rows
// of enclosing levels this way.
func (o *OutputRow) IncreaseShadowRowDepth(s ShadowRow) error {
	return o.copyShadowRow(s, s.depth+1)
}

// DecreaseShadowRowDepth copies s into the current row with its depth
// decreased by one. It is the dual of IncreaseShadowRowDepth for executors
// that close a subquery; s must not be relevant.
func (o *OutputRow) DecreaseShadowRowDepth(s ShadowRow) error {
	if s.IsRelevant() {
		panic(errors.AssertionFailedf("cannot decrease the depth of a relevant shadow row"))
	}
	return o.copyShadowRow(s, s.depth-1)
}

func (o *OutputRow) copyShadowRow(s ShadowRow, depth int) error {
	if err := s.Valid(); err != nil {
		return err
	}
	o.checkRoom()
	o.w.CopyRow(o.idx, s.h.b, s.h.idx)
	o.w.MakeShadowRow(o.idx, depth)
	o.written = true
	return nil
}

// CopyAsShadowRow copies the data row r into the current row and turns it
// into a relevant shadow row. An executor that starts a subquery emits one
// such row for every input row once the subquery's rows are written.
func (o *OutputRow) CopyAsShadowRow(r InputRow) error {
	if err := r.Valid(); err != nil {
		return err
	}
	o.checkRoom()
	o.w.CopyRow(o.idx, r.h.b, r.h.idx)
	o.w.MakeShadowRow(o.idx, 0)
	o.written = true
	return nil
}

// ConsumeShadowRow turns the relevant shadow row s back into a data row
// carrying v in register reg. An executor that ends a subquery consumes
// exactly one relevant shadow row per outer input row this way.
func (o *OutputRow) ConsumeShadowRow(s ShadowRow, reg int, v block.Value) error {
	if !s.IsRelevant() {
		panic(errors.AssertionFailedf("cannot consume shadow row of depth %d", s.depth))
	}
	if err := s.Valid(); err != nil {
		return err
	}
	o.checkRoom()
	o.w.CopyRow(o.idx, s.h.b, s.h.idx)
	o.w.MakeDataRow(o.idx)
	o.w.SetValue(o.idx, reg, v)
	o.written = true
	return nil
}

// Finish publishes the rows completed with AdvanceRow. The block is shrunk to
// the rows written; if none were, the block is returned to its manager and a
// nil handle is returned. A row written but not advanced is discarded.
func (o *OutputRow) Finish() block.Shared {
	o.closer.Close()
	w := o.w
	o.w = nil
	if o.idx == 0 {
		w.Release()
		return block.Shared{}
	}
	w.Shrink(o.idx)
	return w.Finish()
}

// Release abandons the output block.
func (o *OutputRow) Release() {
	o.closer.Close()
	if o.w != nil {
		o.w.Release()
		o.w = nil
	}
}
