// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package blocktest provides helpers for tests that build blocks from a
// textual description.
package blocktest

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/rowflow/block"
	"github.com/cockroachdb/rowflow/value"
)

// Parse builds a block from a description with one row per line. A row is a
// whitespace-separated list of cells, optionally preceded by "shadow(d)" to
// make it a shadow row of depth d. A cell is "_" for an empty cell, an
// integer, a quoted string or a bare word. Rows are padded with empty cells
// to the widest row; a leading "i:" row prefix, as printed by Block.String,
// is ignored.
//
// For example:
//
//	1 a
//	shadow(0) 2 _
func Parse(m *block.Manager, input string) (block.Shared, error) {
	type parsedRow struct {
		depth int
		cells []block.Value
	}
	var rows []parsedRow
	regs := 0
	for _, line := range strings.Split(strings.TrimSpace(input), "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 && strings.HasSuffix(fields[0], ":") {
			fields = fields[1:]
		}
		r := parsedRow{depth: -1}
		if len(fields) > 0 && strings.HasPrefix(fields[0], "shadow(") {
			d, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(fields[0], "shadow("), ")"))
			if err != nil {
				return block.Shared{}, errors.Wrapf(err, "parsing %q", fields[0])
			}
			r.depth = d
			fields = fields[1:]
		}
		for _, f := range fields {
			v, err := parseValue(f)
			if err != nil {
				return block.Shared{}, err
			}
			r.cells = append(r.cells, v)
		}
		regs = max(regs, len(r.cells))
		rows = append(rows, r)
	}
	if len(rows) == 0 {
		return block.Shared{}, errors.New("no rows")
	}
	w, err := m.RequestBlock(len(rows), regs)
	if err != nil {
		return block.Shared{}, err
	}
	for i, r := range rows {
		for reg, v := range r.cells {
			if v != nil {
				w.SetValue(i, reg, v)
			}
		}
		if r.depth >= 0 {
			w.MakeShadowRow(i, r.depth)
		}
	}
	return w.Finish(), nil
}

// MustParse is like Parse but panics on error.
func MustParse(m *block.Manager, input string) block.Shared {
	s, err := Parse(m, input)
	if err != nil {
		panic(err)
	}
	return s
}

func parseValue(s string) (block.Value, error) {
	if s == "_" {
		return nil, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return value.Int(n), nil
	}
	if strings.HasPrefix(s, `"`) {
		u, err := strconv.Unquote(s)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing %s", s)
		}
		return value.String(u), nil
	}
	return value.String(s), nil
}

// Tracker counts live Tracked values so tests can assert that every value
// stored in a block was released.
type Tracker struct {
	live atomic.Int64
}

// Live returns the number of values created and not yet released.
func (t *Tracker) Live() int64 {
	return t.live.Load()
}

// Make returns a new tracked value.
func (t *Tracker) Make(n int) *Tracked {
	t.live.Add(1)
	return &Tracked{t: t, n: n}
}

// Tracked is a value that reports its lifetime to a Tracker.
type Tracked struct {
	t        *Tracker
	n        int
	released bool
}

var _ block.Value = (*Tracked)(nil)

// N returns the payload of the value.
func (v *Tracked) N() int {
	return v.n
}

// Clone implements block.Value.
func (v *Tracked) Clone() block.Value {
	if v.released {
		panic(errors.AssertionFailedf("clone of released value %d", v.n))
	}
	return v.t.Make(v.n)
}

// Release implements block.Value.
func (v *Tracked) Release() {
	if v.released {
		panic(errors.AssertionFailedf("value %d released twice", v.n))
	}
	v.released = true
	v.t.live.Add(-1)
}

func (v *Tracked) String() string {
	return fmt.Sprintf("t%d", v.n)
}
