// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package input

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/rowflow/flow"
	"github.com/cockroachdb/rowflow/row"
)

// MultiRange aggregates the ranges of an executor with several upstream
// dependencies. Data rows are pulled per dependency; shadow rows are pulled
// from all dependencies in lockstep, and dependencies that disagree on a
// subquery boundary indicate a broken plan.
type MultiRange struct {
	deps []Range
}

// NewMultiRange returns a MultiRange over n dependencies, each starting out
// with an empty range in state HasMore.
func NewMultiRange(n int) *MultiRange {
	if n <= 0 {
		panic(errors.AssertionFailedf("multi range needs at least one dependency, got %d", n))
	}
	return &MultiRange{deps: make([]Range, n)}
}

// NumDependencies returns the number of dependencies.
func (m *MultiRange) NumDependencies() int {
	return len(m.deps)
}

// SetRange replaces the range of dependency d, releasing the previous one.
// The multi range takes ownership of r.
func (m *MultiRange) SetRange(d int, r Range) {
	m.deps[d].Release()
	m.deps[d] = r
}

// Range returns the range of dependency d.
func (m *MultiRange) Range(d int) *Range {
	return &m.deps[d]
}

// HasDataRow returns true if dependency d has a data row at its cursor.
func (m *MultiRange) HasDataRow(d int) bool {
	return m.deps[d].HasDataRow()
}

// PeekDataRow peeks at the data row of dependency d.
func (m *MultiRange) PeekDataRow(d int) (flow.State, row.InputRow) {
	return m.deps[d].PeekDataRow()
}

// NextDataRow consumes the data row of dependency d.
func (m *MultiRange) NextDataRow(d int) (flow.State, row.InputRow) {
	return m.deps[d].NextDataRow()
}

// SkipAll claims every row dependency d reported skipped.
func (m *MultiRange) SkipAll(d int) int {
	return m.deps[d].SkipAll()
}

// SkippedInFlight returns the unclaimed skip count of dependency d.
func (m *MultiRange) SkippedInFlight(d int) int {
	return m.deps[d].SkippedInFlight()
}

// UpstreamStateOf returns the upstream state of dependency d.
func (m *MultiRange) UpstreamStateOf(d int) flow.State {
	return m.deps[d].UpstreamState()
}

// UpstreamState returns Done only if every dependency is done.
func (m *MultiRange) UpstreamState() flow.State {
	for i := range m.deps {
		if m.deps[i].UpstreamState() == flow.HasMore {
			return flow.HasMore
		}
	}
	return flow.Done
}

// HasShadowRow returns true if every dependency has a shadow row at its
// cursor.
func (m *MultiRange) HasShadowRow() bool {
	for i := range m.deps {
		if !m.deps[i].HasShadowRow() {
			return false
		}
	}
	return true
}

func (m *MultiRange) checkShadowRows(op string) {
	if !m.HasShadowRow() {
		panic(errors.AssertionFailedf("%s: dependencies disagree on shadow row presence", errors.Safe(op)))
	}
}

// PeekShadowRow returns the shadow row all dependencies agree on without
// consuming it. Every dependency must have a shadow row of the same depth at
// its cursor.
func (m *MultiRange) PeekShadowRow() (flow.State, row.ShadowRow) {
	m.checkShadowRows("peek")
	state, first := m.deps[0].PeekShadowRow()
	for i := 1; i < len(m.deps); i++ {
		if _, sr := m.deps[i].PeekShadowRow(); sr.Depth() != first.Depth() {
			panic(errors.AssertionFailedf("dependency %d has a shadow row of depth %d, dependency 0 of depth %d",
				i, sr.Depth(), first.Depth()))
		}
	}
	return state, first
}

// NextShadowRow consumes the shadow row of every dependency and returns the
// state and row of the last one. Every dependency must have a shadow row of
// the same depth at its cursor.
func (m *MultiRange) NextShadowRow() (flow.State, row.ShadowRow) {
	m.checkShadowRows("next")
	var state flow.State
	var last row.ShadowRow
	for i := range m.deps {
		s, sr := m.deps[i].NextShadowRow()
		if i > 0 && sr.Depth() != last.Depth() {
			panic(errors.AssertionFailedf("dependency %d has a shadow row of depth %d, dependency %d of depth %d",
				i, sr.Depth(), i-1, last.Depth()))
		}
		state, last = s, sr
	}
	return state, last
}

// SkipAllRemainingDataRows drops the current data run of every dependency
// and returns the total number of rows dropped.
func (m *MultiRange) SkipAllRemainingDataRows() int {
	n := 0
	for i := range m.deps {
		k, _ := m.deps[i].SkipAllRemainingDataRows()
		n += k
	}
	return n
}

// CountDataRows returns the number of data rows buffered across all
// dependencies.
func (m *MultiRange) CountDataRows() int {
	n := 0
	for i := range m.deps {
		n += m.deps[i].CountDataRows()
	}
	return n
}

// Release releases the range of every dependency.
func (m *MultiRange) Release() {
	for i := range m.deps {
		m.deps[i].Release()
	}
}
