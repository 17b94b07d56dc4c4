// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package block implements the tabular batch format that moves through the
// query pipeline, and the manager that lends and reclaims it.
//
// A Block is a fixed-shape grid of rows × registers cells. Rows are either
// data rows or shadow rows; a shadow row marks the end of a subquery
// iteration and carries a depth saying how many enclosing levels it closes.
//
// Blocks are reached through two handle types. A *Builder is the exclusive
// writer handed out by Manager.RequestBlock; it is the only way to mutate a
// block. Builder.Finish publishes the block and returns a Shared, a
// reference-counted read handle. Once published a block is immutable, and
// when the last Shared is released it goes back to its Manager to be cleared
// and recycled.
package block

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/swiss"
)

type blockState int8

const (
	stateFree blockState = iota
	stateBuilding
	statePublished
)

// Block is the read view of a batch of rows. All exported methods are safe to
// call concurrently once the block is published, as long as some Shared
// handle keeps it alive.
type Block struct {
	mgr    *Manager
	shape  Shape
	values []Value
	// shadow holds the depth of every shadow row. present mirrors its key
	// set so that the next shadow row can be found with a bitmap scan.
	shadow struct {
		depths  swiss.Map[int, int]
		present rowBitmap
		count   int
	}
	refs atomic.Int32
	// gen is bumped every time the block is returned to the manager. Row
	// handles remember the generation they were created in.
	gen   atomic.Uint64
	state blockState
}

func newBlock(m *Manager, shape Shape) *Block {
	b := &Block{mgr: m}
	b.reshape(shape)
	b.shadow.depths.Init(0)
	return b
}

func (b *Block) reshape(shape Shape) {
	b.shape = shape
	if n := shape.Cells(); cap(b.values) >= n {
		b.values = b.values[:n]
	} else {
		b.values = make([]Value, n)
	}
	b.shadow.present.init(shape.Rows)
}

// NumRows returns the number of rows in the block.
func (b *Block) NumRows() int {
	return b.shape.Rows
}

// NumRegisters returns the number of registers (columns) in the block.
func (b *Block) NumRegisters() int {
	return b.shape.Registers
}

// Shape returns the geometry of the block.
func (b *Block) Shape() Shape {
	return b.shape
}

// Generation identifies the current lifetime of the block. It changes every
// time the block is returned to its manager.
func (b *Block) Generation() uint64 {
	return b.gen.Load()
}

func (b *Block) checkRow(row int) {
	if row < 0 || row >= b.shape.Rows {
		panic(errors.AssertionFailedf("row %d out of range [0, %d)", row, b.shape.Rows))
	}
}

func (b *Block) cell(row, reg int) int {
	b.checkRow(row)
	if reg < 0 || reg >= b.shape.Registers {
		panic(errors.AssertionFailedf("register %d out of range [0, %d)", reg, b.shape.Registers))
	}
	return row*b.shape.Registers + reg
}

// Value returns the value at (row, reg). The returned value is owned by the
// block; callers that need to keep it beyond the block's lifetime must Clone
// it.
func (b *Block) Value(row, reg int) Value {
	return b.values[b.cell(row, reg)]
}

// IsShadowRow returns true if the row is a shadow row.
func (b *Block) IsShadowRow(row int) bool {
	b.checkRow(row)
	return b.shadow.present.get(row)
}

// ShadowRowDepth returns the depth of the row and true if it is a shadow row,
// or false if it is a data row.
func (b *Block) ShadowRowDepth(row int) (int, bool) {
	b.checkRow(row)
	if !b.shadow.present.get(row) {
		return 0, false
	}
	d, ok := b.shadow.depths.Get(row)
	if !ok {
		panic(errors.AssertionFailedf("shadow row %d has no depth", row))
	}
	return d, true
}

// HasShadowRows returns true if any row of the block is a shadow row.
func (b *Block) HasShadowRows() bool {
	return b.shadow.count > 0
}

// NumShadowRows returns the number of shadow rows in the block.
func (b *Block) NumShadowRows() int {
	return b.shadow.count
}

// NextShadowRow returns the index of the first shadow row at or after from,
// or NumRows if there is none.
func (b *Block) NextShadowRow(from int) int {
	if b.shadow.count == 0 {
		return b.shape.Rows
	}
	return b.shadow.present.successor(max(from, 0))
}

// NumEntries returns the number of non-empty cells.
func (b *Block) NumEntries() int {
	n := 0
	for _, v := range b.values {
		if v != nil {
			n++
		}
	}
	return n
}

// ValidateShadowRowConsistency checks that shadow rows follow the pattern
// executors produce: a shadow row of depth d > 0 is either the first row of
// the block or directly follows a shadow row of depth at least d-1. A data
// row is never directly followed by a shadow row deeper than 0.
func (b *Block) ValidateShadowRowConsistency() error {
	for i := b.NextShadowRow(0); i < b.shape.Rows; i = b.NextShadowRow(i + 1) {
		depth, _ := b.ShadowRowDepth(i)
		if depth == 0 || i == 0 {
			continue
		}
		prev, ok := b.ShadowRowDepth(i - 1)
		if !ok {
			return errors.AssertionFailedf(
				"shadow row %d of depth %d directly follows data row %d", i, depth, i-1)
		}
		if prev < depth-1 {
			return errors.AssertionFailedf(
				"shadow row %d of depth %d follows shadow row of depth %d", i, depth, prev)
		}
	}
	return nil
}

// String returns a multi-line dump of the block, one row per line. Shadow
// rows are prefixed with their depth and empty cells are printed as "_".
func (b *Block) String() string {
	var buf strings.Builder
	for row := 0; row < b.shape.Rows; row++ {
		if row > 0 {
			buf.WriteByte('\n')
		}
		fmt.Fprintf(&buf, "%d:", row)
		if d, ok := b.ShadowRowDepth(row); ok {
			fmt.Fprintf(&buf, " shadow(%d)", d)
		}
		for reg := 0; reg < b.shape.Registers; reg++ {
			if v := b.Value(row, reg); v != nil {
				fmt.Fprintf(&buf, " %v", v)
			} else {
				buf.WriteString(" _")
			}
		}
	}
	return buf.String()
}

func (b *Block) setShadowDepth(row, depth int) {
	b.checkRow(row)
	if depth < 0 {
		panic(errors.AssertionFailedf("negative shadow row depth %d", depth))
	}
	if !b.shadow.present.get(row) {
		b.shadow.present.set(row)
		b.shadow.count++
	}
	b.shadow.depths.Put(row, depth)
}

func (b *Block) clearShadow(row int) {
	b.checkRow(row)
	if b.shadow.present.get(row) {
		b.shadow.present.unset(row)
		b.shadow.depths.Delete(row)
		b.shadow.count--
	}
}

// releaseRows drops the values and shadow marks of every row at or after
// from.
func (b *Block) releaseRows(from int) {
	for i := from * b.shape.Registers; i < len(b.values); i++ {
		releaseValue(b.values[i])
		b.values[i] = nil
	}
	for i := b.NextShadowRow(from); i < b.shape.Rows; i = b.NextShadowRow(i + 1) {
		b.clearShadow(i)
	}
}
