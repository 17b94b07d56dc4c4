// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package row provides handles to single rows of a block.
//
// InputRow and ShadowRow are cheap, copyable (block, index) views. They do
// not keep the block alive: whoever hands them out (an input range, a
// matrix) holds the block's shared handle. A row handle remembers the
// generation of the block it was created in, so dereferencing it after the
// block was recycled fails with base.ErrRowInvalidated instead of silently
// reading another batch's data.
//
// The two handle types are distinct so that a shadow row can never be read
// through the data row API and vice versa.
package row

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/rowflow/block"
	"github.com/cockroachdb/rowflow/internal/base"
)

type handle struct {
	b   *block.Block
	gen uint64
	idx int
}

func makeHandle(b *block.Block, idx int) handle {
	if b == nil {
		panic(errors.AssertionFailedf("row handle over a nil block"))
	}
	if idx < 0 || idx >= b.NumRows() {
		panic(errors.AssertionFailedf("row %d out of range [0, %d)", idx, b.NumRows()))
	}
	return handle{b: b, gen: b.Generation(), idx: idx}
}

func (h handle) check() error {
	if h.b == nil {
		panic(errors.AssertionFailedf("use of an uninitialized row"))
	}
	if h.b.Generation() != h.gen {
		return errors.Wrapf(base.ErrRowInvalidated, "row %d", h.idx)
	}
	return nil
}

func (h handle) value(reg int) (block.Value, error) {
	if err := h.check(); err != nil {
		return nil, err
	}
	return h.b.Value(h.idx, reg), nil
}

func (h handle) format(kind string) string {
	if h.b == nil {
		return kind + "(uninitialized)"
	}
	return fmt.Sprintf("%s(%d)", kind, h.idx)
}

// InputRow is a read handle to a data row.
type InputRow struct {
	h handle
}

// MakeInputRow returns a handle to row idx of b, which must be a data row.
func MakeInputRow(b *block.Block, idx int) InputRow {
	h := makeHandle(b, idx)
	if b.IsShadowRow(idx) {
		panic(errors.AssertionFailedf("row %d is a shadow row", idx))
	}
	return InputRow{h: h}
}

// IsInitialized returns false for the zero InputRow.
func (r InputRow) IsInitialized() bool {
	return r.h.b != nil
}

// Block returns the block the row lives in.
func (r InputRow) Block() *block.Block {
	return r.h.b
}

// Index returns the index of the row within its block.
func (r InputRow) Index() int {
	return r.h.idx
}

// NumRegisters returns the number of registers of the row.
func (r InputRow) NumRegisters() int {
	return r.h.b.NumRegisters()
}

// Valid returns base.ErrRowInvalidated if the block was recycled since the
// handle was created.
func (r InputRow) Valid() error {
	return r.h.check()
}

// Value returns the value in register reg. The value is owned by the block.
func (r InputRow) Value(reg int) (block.Value, error) {
	return r.h.value(reg)
}

// Equal returns true if both handles refer to the same row of the same block
// lifetime.
func (r InputRow) Equal(other InputRow) bool {
	return r.h == other.h
}

// SameRow returns true if both handles refer to the same row index of the
// same block, regardless of whether either is still valid.
func (r InputRow) SameRow(other InputRow) bool {
	return r.h.b == other.h.b && r.h.idx == other.h.idx
}

// CloneToBlock returns a new single-row block holding a copy of the row,
// widened to regs registers.
func (r InputRow) CloneToBlock(m *block.Manager, regs int) (block.Shared, error) {
	if err := r.h.check(); err != nil {
		return block.Shared{}, err
	}
	w, err := m.RequestBlock(1, max(regs, r.NumRegisters()))
	if err != nil {
		return block.Shared{}, err
	}
	w.CopyRow(0, r.h.b, r.h.idx)
	return w.Finish(), nil
}

func (r InputRow) String() string {
	return r.h.format("data")
}

// ShadowRow is a read handle to a shadow row.
type ShadowRow struct {
	h     handle
	depth int
}

// MakeShadowRow returns a handle to row idx of b, which must be a shadow row.
func MakeShadowRow(b *block.Block, idx int) ShadowRow {
	h := makeHandle(b, idx)
	d, ok := b.ShadowRowDepth(idx)
	if !ok {
		panic(errors.AssertionFailedf("row %d is a data row", idx))
	}
	return ShadowRow{h: h, depth: d}
}

// IsInitialized returns false for the zero ShadowRow.
func (r ShadowRow) IsInitialized() bool {
	return r.h.b != nil
}

// Block returns the block the row lives in.
func (r ShadowRow) Block() *block.Block {
	return r.h.b
}

// Index returns the index of the row within its block.
func (r ShadowRow) Index() int {
	return r.h.idx
}

// NumRegisters returns the number of registers of the row.
func (r ShadowRow) NumRegisters() int {
	return r.h.b.NumRegisters()
}

// Depth returns the number of enclosing subquery levels the row closes
// beyond the innermost one.
func (r ShadowRow) Depth() int {
	return r.depth
}

// IsRelevant returns true if the row closes the innermost subquery
// iteration, the one the immediately enclosing executor cares about.
func (r ShadowRow) IsRelevant() bool {
	return r.depth == 0
}

// Valid returns base.ErrRowInvalidated if the block was recycled since the
// handle was created.
func (r ShadowRow) Valid() error {
	return r.h.check()
}

// Value returns the value in register reg. The value is owned by the block.
func (r ShadowRow) Value(reg int) (block.Value, error) {
	return r.h.value(reg)
}

// Equal returns true if both handles refer to the same row of the same block
// lifetime.
func (r ShadowRow) Equal(other ShadowRow) bool {
	return r.h == other.h
}

// SameRow returns true if both handles refer to the same row index of the
// same block.
func (r ShadowRow) SameRow(other ShadowRow) bool {
	return r.h.b == other.h.b && r.h.idx == other.h.idx
}

func (r ShadowRow) String() string {
	if r.h.b == nil {
		return r.h.format("shadow")
	}
	return fmt.Sprintf("shadow(%d, depth=%d)", r.h.idx, r.depth)
}
