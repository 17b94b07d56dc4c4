// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package input

import (
	"iter"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/rowflow/block"
	"github.com/cockroachdb/rowflow/flow"
	"github.com/cockroachdb/rowflow/row"
)

// Matrix materializes every data row of one subquery iteration, for
// executors such as sort or collect that must see all rows of an iteration
// before producing any. Rows are accumulated from successive ranges until
// the shadow row that ends the iteration is reached or upstream is done.
type Matrix struct {
	// blocks keeps alive every block rows or the pending shadow row point
	// into.
	blocks []block.Shared
	rows   []row.InputRow
	shadow row.ShadowRow
	state  flow.State
}

// AddRange drains the data run of r into the matrix. If r then sits on a
// shadow row, that row is consumed as the boundary of the iteration. Adding
// a range while a boundary is pending is not allowed.
func (m *Matrix) AddRange(r *Range) {
	if m.shadow.IsInitialized() {
		panic(errors.AssertionFailedf("range added to a matrix with a pending shadow row"))
	}
	m.state = r.UpstreamState()
	if !r.HasDataRow() && !r.HasShadowRow() {
		return
	}
	m.blocks = append(m.blocks, r.RetainBlock())
	for r.HasDataRow() {
		_, ir := r.NextDataRow()
		m.rows = append(m.rows, ir)
	}
	if r.HasShadowRow() {
		_, m.shadow = r.NextShadowRow()
	}
}

// Size returns the number of data rows buffered.
func (m *Matrix) Size() int {
	return len(m.rows)
}

// Row returns the i-th buffered data row.
func (m *Matrix) Row(i int) row.InputRow {
	return m.rows[i]
}

// All iterates over the buffered data rows in order.
func (m *Matrix) All() iter.Seq2[int, row.InputRow] {
	return func(yield func(int, row.InputRow) bool) {
		for i, r := range m.rows {
			if !yield(i, r) {
				return
			}
		}
	}
}

// HasDataRow returns true if no shadow row is pending and at least one data
// row is buffered.
func (m *Matrix) HasDataRow() bool {
	return !m.shadow.IsInitialized() && len(m.rows) > 0
}

// HasShadowRow returns true if the boundary of the iteration was reached.
func (m *Matrix) HasShadowRow() bool {
	return m.shadow.IsInitialized()
}

// PeekShadowRow returns the pending shadow row, or an uninitialized row.
func (m *Matrix) PeekShadowRow() row.ShadowRow {
	return m.shadow
}

// UpstreamState returns the upstream state of the last range added.
func (m *Matrix) UpstreamState() flow.State {
	return m.state
}

// Complete returns true if every row of the iteration was buffered, either
// because its shadow row was reached or because upstream is done.
func (m *Matrix) Complete() bool {
	return m.shadow.IsInitialized() || m.state == flow.Done
}

// PopShadowRow returns the pending shadow row and resets the matrix for the
// next iteration. The block of the returned row is kept alive until the next
// call to PopShadowRow or Release.
func (m *Matrix) PopShadowRow() row.ShadowRow {
	if !m.shadow.IsInitialized() {
		panic(errors.AssertionFailedf("no shadow row pending"))
	}
	sr := m.shadow
	var keep block.Shared
	for i := range m.blocks {
		if keep.IsNil() && m.blocks[i].Block() == sr.Block() {
			keep = m.blocks[i]
			continue
		}
		m.blocks[i].Release()
	}
	clear(m.blocks)
	m.blocks = append(m.blocks[:0], keep)
	m.rows = m.rows[:0]
	m.shadow = row.ShadowRow{}
	return sr
}

// SkipAllRemainingDataRows drops the buffered data rows and returns how many
// were dropped. A pending shadow row is kept.
func (m *Matrix) SkipAllRemainingDataRows() int {
	n := len(m.rows)
	m.rows = m.rows[:0]
	return n
}

// Release drops every buffered row and block.
func (m *Matrix) Release() {
	for i := range m.blocks {
		m.blocks[i].Release()
	}
	clear(m.blocks)
	m.blocks = m.blocks[:0]
	m.rows = m.rows[:0]
	m.shadow = row.ShadowRow{}
}
