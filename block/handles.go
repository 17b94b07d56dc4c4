// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package block

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/rowflow/internal/invariants"
)

// Builder is the exclusive writer of a block that has not been published yet.
// It is obtained from Manager.RequestBlock and ends either with Finish, which
// publishes the block, or with Release, which hands it back unpublished.
type Builder struct {
	b *Block
}

func (w *Builder) block() *Block {
	if w.b == nil {
		panic(errors.AssertionFailedf("use of a finished block builder"))
	}
	return w.b
}

// Block returns the read view of the block under construction.
func (w *Builder) Block() *Block {
	return w.block()
}

// NumRows returns the number of rows of the block under construction.
func (w *Builder) NumRows() int {
	return w.block().NumRows()
}

// NumRegisters returns the number of registers of the block under
// construction.
func (w *Builder) NumRegisters() int {
	return w.block().NumRegisters()
}

// SetValue stores v at (row, reg), taking ownership of it. A value already in
// the cell is released.
func (w *Builder) SetValue(row, reg int, v Value) {
	b := w.block()
	i := b.cell(row, reg)
	releaseValue(b.values[i])
	b.values[i] = v
}

// TakeValue moves the value at (row, reg) out of the block, leaving the cell
// empty. The caller owns the returned value.
func (w *Builder) TakeValue(row, reg int) Value {
	b := w.block()
	i := b.cell(row, reg)
	v := b.values[i]
	b.values[i] = nil
	return v
}

// MakeShadowRow marks the row as a shadow row of the given depth.
func (w *Builder) MakeShadowRow(row, depth int) {
	w.block().setShadowDepth(row, depth)
}

// MakeDataRow turns the row back into a data row.
func (w *Builder) MakeDataRow(row int) {
	w.block().clearShadow(row)
}

// CopyRow copies row srcRow of src into row dst, cloning every non-empty cell
// and carrying over the shadow depth. src may have fewer registers than the
// destination; the remaining destination cells are left untouched.
func (w *Builder) CopyRow(dst int, src *Block, srcRow int) {
	b := w.block()
	if src.NumRegisters() > b.NumRegisters() {
		panic(errors.AssertionFailedf("cannot copy a row of %d registers into a block of %d",
			src.NumRegisters(), b.NumRegisters()))
	}
	for reg := 0; reg < src.NumRegisters(); reg++ {
		if v := src.Value(srcRow, reg); v != nil {
			w.SetValue(dst, reg, v.Clone())
		}
	}
	if d, ok := src.ShadowRowDepth(srcRow); ok {
		b.setShadowDepth(dst, d)
	} else {
		b.clearShadow(dst)
	}
}

// Shrink reduces the block to its first n rows, releasing everything stored
// in the rows dropped. The block can never grow.
func (w *Builder) Shrink(n int) {
	b := w.block()
	if n <= 0 || n > b.shape.Rows {
		panic(errors.AssertionFailedf("cannot shrink a block of %d rows to %d", b.shape.Rows, n))
	}
	if n == b.shape.Rows {
		return
	}
	b.releaseRows(n)
	shape := Shape{Rows: n, Registers: b.shape.Registers}
	b.mgr.resize(b.shape, shape)
	b.shape = shape
	b.values = b.values[:shape.Cells()]
	b.shadow.present.truncate(n)
}

// Finish publishes the block and returns the first shared handle to it. The
// builder must not be used afterwards.
func (w *Builder) Finish() Shared {
	b := w.block()
	if invariants.Enabled {
		if err := b.ValidateShadowRowConsistency(); err != nil {
			panic(err)
		}
	}
	b.state = statePublished
	b.refs.Store(1)
	w.b = nil
	return Shared{b: b}
}

// Release abandons the block under construction and returns it to the
// manager. Release is a no-op on a finished builder.
func (w *Builder) Release() {
	if w.b == nil {
		return
	}
	b := w.b
	w.b = nil
	b.mgr.returnBlock(b)
}

// Shared is a reference-counted read handle to a published block. The zero
// value holds no block. Every handle obtained from Finish or Clone must be
// released exactly once.
type Shared struct {
	b *Block
}

// IsNil returns true if the handle holds no block.
func (s Shared) IsNil() bool {
	return s.b == nil
}

// Block returns the read view of the block, or nil.
func (s Shared) Block() *Block {
	return s.b
}

// NumRows returns the number of rows of the block, or 0 for a nil handle.
func (s Shared) NumRows() int {
	if s.b == nil {
		return 0
	}
	return s.b.NumRows()
}

// Clone returns a new handle to the same block.
func (s Shared) Clone() Shared {
	if s.b == nil {
		return Shared{}
	}
	if s.b.refs.Add(1) <= 1 {
		panic(errors.AssertionFailedf("clone of a released block"))
	}
	return Shared{b: s.b}
}

// Release drops the reference held by the handle and clears it. The block is
// returned to its manager when the last reference is dropped. Releasing a nil
// handle is a no-op.
func (s *Shared) Release() {
	b := s.b
	if b == nil {
		return
	}
	s.b = nil
	switch n := b.refs.Add(-1); {
	case n == 0:
		b.mgr.returnBlock(b)
	case n < 0:
		panic(errors.AssertionFailedf("block released too many times"))
	}
}

// Refs returns the current number of references to the block.
func (s Shared) Refs() int {
	if s.b == nil {
		return 0
	}
	return int(s.b.refs.Load())
}
