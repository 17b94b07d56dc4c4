// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package block

import "github.com/cockroachdb/errors"

// Collector accumulates a sequence of blocks and hands them out as a single
// contiguous block.
type Collector struct {
	mgr       *Manager
	blocks    []Shared
	totalRows int
}

// MakeCollector returns a Collector that requests its output block from m.
func MakeCollector(m *Manager) Collector {
	return Collector{mgr: m}
}

// Add appends a non-empty block, taking ownership of the handle. All blocks
// added to one collector must have the same number of registers.
func (c *Collector) Add(s Shared) {
	if s.NumRows() == 0 {
		panic(errors.AssertionFailedf("cannot collect an empty block"))
	}
	if len(c.blocks) > 0 && c.blocks[0].Block().NumRegisters() != s.Block().NumRegisters() {
		panic(errors.AssertionFailedf("cannot collect a block of %d registers with blocks of %d",
			s.Block().NumRegisters(), c.blocks[0].Block().NumRegisters()))
	}
	c.blocks = append(c.blocks, s)
	c.totalRows += s.NumRows()
}

// Len returns the number of blocks collected.
func (c *Collector) Len() int {
	return len(c.blocks)
}

// TotalRows returns the number of rows across all collected blocks.
func (c *Collector) TotalRows() int {
	return c.totalRows
}

// NumRegisters returns the register count of the collected blocks, or 0 if
// nothing was collected.
func (c *Collector) NumRegisters() int {
	if len(c.blocks) == 0 {
		return 0
	}
	return c.blocks[0].Block().NumRegisters()
}

// Steal hands out everything collected as one block and resets the
// collector. With no blocks it returns a nil handle; a single block is
// returned as is. Otherwise the rows are copied in order into a fresh block
// and the sources are released.
func (c *Collector) Steal() (Shared, error) {
	switch len(c.blocks) {
	case 0:
		return Shared{}, nil
	case 1:
		s := c.blocks[0]
		c.reset()
		return s, nil
	}

	w, err := c.mgr.RequestBlock(c.totalRows, c.NumRegisters())
	if err != nil {
		return Shared{}, err
	}
	dst := 0
	for _, s := range c.blocks {
		src := s.Block()
		for row := 0; row < src.NumRows(); row++ {
			w.CopyRow(dst, src, row)
			dst++
		}
	}
	c.Clear()
	return w.Finish(), nil
}

// Clear releases every collected block.
func (c *Collector) Clear() {
	for i := range c.blocks {
		c.blocks[i].Release()
	}
	c.reset()
}

func (c *Collector) reset() {
	clear(c.blocks)
	c.blocks = c.blocks[:0]
	c.totalRows = 0
}
