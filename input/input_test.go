// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package input

import (
	"fmt"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/cockroachdb/rowflow/block"
	"github.com/cockroachdb/rowflow/flow"
	"github.com/cockroachdb/rowflow/internal/blocktest"
	"github.com/cockroachdb/rowflow/internal/testutils"
	"github.com/cockroachdb/rowflow/row"
	"github.com/stretchr/testify/require"
)

// parseRange builds a range from the arguments and input of a command:
// state, skipped and start are optional, the input describes the block. An
// empty input yields a range without a block.
func parseRange(t *testing.T, m *block.Manager, td *datadriven.TestData) Range {
	state := flow.HasMore
	if td.HasArg("state") {
		var s string
		td.ScanArgs(t, "state", &s)
		state = testutils.CheckErr(flow.ParseState(s))
	}
	var skipped, start int
	td.MaybeScanArgs(t, "skipped", &skipped)
	td.MaybeScanArgs(t, "start", &start)
	if strings.TrimSpace(td.Input) == "" {
		return MakeEmptyRange(state, skipped)
	}
	return MakeRange(state, skipped, blocktest.MustParse(m, td.Input), start)
}

func formatData(state flow.State, r row.InputRow) string {
	if !r.IsInitialized() {
		return fmt.Sprintf("%s none", state)
	}
	v, err := r.Value(0)
	if err != nil {
		return err.Error()
	}
	return fmt.Sprintf("%s %s %v", state, r, v)
}

func formatShadow(state flow.State, r row.ShadowRow) string {
	if !r.IsInitialized() {
		return fmt.Sprintf("%s none", state)
	}
	return fmt.Sprintf("%s %s", state, r)
}

// runRangeCmd runs a cursor operation against r. It returns false if the
// command is not a range operation.
func runRangeCmd(t *testing.T, r *Range, td *datadriven.TestData) (string, bool) {
	switch td.Cmd {
	case "has-data":
		return fmt.Sprint(r.HasDataRow()), true
	case "peek-data":
		return formatData(r.PeekDataRow()), true
	case "next-data":
		return formatData(r.NextDataRow()), true
	case "has-shadow":
		return fmt.Sprint(r.HasShadowRow()), true
	case "peek-shadow":
		return formatShadow(r.PeekShadowRow()), true
	case "next-shadow":
		return formatShadow(r.NextShadowRow()), true
	case "skip":
		var n int
		td.ScanArgs(t, "n", &n)
		return fmt.Sprintf("skipped=%d in-flight=%d", r.Skip(n), r.SkippedInFlight()), true
	case "skip-all":
		return fmt.Sprintf("skipped=%d in-flight=%d", r.SkipAll(), r.SkippedInFlight()), true
	case "skip-remaining":
		n, state := r.SkipAllRemainingDataRows()
		return fmt.Sprintf("%s dropped=%d", state, n), true
	case "state":
		return fmt.Sprintf("state=%s upstream=%s", r.State(), r.UpstreamState()), true
	case "count":
		return fmt.Sprintf("data=%d shadow=%d", r.CountDataRows(), r.CountShadowRows()), true
	case "drain":
		// Consume the whole range, printing every row.
		var buf strings.Builder
		for r.HasValidRow() {
			if r.HasDataRow() {
				fmt.Fprintln(&buf, formatData(r.NextDataRow()))
			} else {
				fmt.Fprintln(&buf, formatShadow(r.NextShadowRow()))
			}
		}
		return buf.String(), true
	}
	return "", false
}

func TestRange(t *testing.T) {
	m := block.NewManager(block.ManagerOptions{})
	var r Range
	datadriven.RunTest(t, "testdata/range", func(t *testing.T, td *datadriven.TestData) string {
		if td.Cmd == "range" {
			r.Release()
			r = parseRange(t, m, td)
			return r.String()
		}
		if td.Cmd == "release" {
			r.Release()
			return r.String()
		}
		if out, ok := runRangeCmd(t, &r, td); ok {
			return out
		}
		return fmt.Sprintf("unknown command: %s", td.Cmd)
	})
	r.Release()
	require.NoError(t, m.Close())
}

func TestMatrix(t *testing.T) {
	m := block.NewManager(block.ManagerOptions{})
	var mat Matrix
	var r Range
	datadriven.RunTest(t, "testdata/matrix", func(t *testing.T, td *datadriven.TestData) string {
		switch td.Cmd {
		case "add":
			r.Release()
			r = parseRange(t, m, td)
			if msg := testutils.Panics(t, func() { mat.AddRange(&r) }); msg != "" {
				return "panic: " + msg
			}
			return fmt.Sprintf("size=%d has-data=%t has-shadow=%t complete=%t\n%s",
				mat.Size(), mat.HasDataRow(), mat.HasShadowRow(), mat.Complete(), r.String())

		case "add-rest":
			// Add the remainder of the current range.
			if msg := testutils.Panics(t, func() { mat.AddRange(&r) }); msg != "" {
				return "panic: " + msg
			}
			return fmt.Sprintf("size=%d has-data=%t has-shadow=%t complete=%t\n%s",
				mat.Size(), mat.HasDataRow(), mat.HasShadowRow(), mat.Complete(), r.String())

		case "rows":
			var buf strings.Builder
			for i, ir := range mat.All() {
				v, err := ir.Value(0)
				require.NoError(t, err)
				fmt.Fprintf(&buf, "%d: %v\n", i, v)
			}
			return buf.String()

		case "pop-shadow":
			var sr row.ShadowRow
			if msg := testutils.Panics(t, func() { sr = mat.PopShadowRow() }); msg != "" {
				return "panic: " + msg
			}
			v, err := sr.Value(0)
			require.NoError(t, err)
			return fmt.Sprintf("%s %v size=%d", sr, v, mat.Size())

		case "skip-remaining":
			return fmt.Sprintf("dropped=%d", mat.SkipAllRemainingDataRows())

		default:
			return fmt.Sprintf("unknown command: %s", td.Cmd)
		}
	})
	mat.Release()
	r.Release()
	require.Zero(t, m.Metrics().InUseBlocks)
	require.NoError(t, m.Close())
}

func TestMultiRange(t *testing.T) {
	m := block.NewManager(block.ManagerOptions{})
	var mr *MultiRange
	datadriven.RunTest(t, "testdata/multi_range", func(t *testing.T, td *datadriven.TestData) string {
		switch td.Cmd {
		case "init":
			if mr != nil {
				mr.Release()
			}
			var n int
			td.ScanArgs(t, "n", &n)
			mr = NewMultiRange(n)
			return ""

		case "set":
			var d int
			td.ScanArgs(t, "dep", &d)
			mr.SetRange(d, parseRange(t, m, td))
			return mr.Range(d).String()

		case "has-shadow":
			return fmt.Sprint(mr.HasShadowRow())

		case "peek-shadow":
			var out string
			if msg := testutils.Panics(t, func() { out = formatShadow(mr.PeekShadowRow()) }); msg != "" {
				return "panic: " + msg
			}
			return out

		case "next-shadow":
			var out string
			if msg := testutils.Panics(t, func() { out = formatShadow(mr.NextShadowRow()) }); msg != "" {
				return "panic: " + msg
			}
			return out

		case "next-data":
			var d int
			td.ScanArgs(t, "dep", &d)
			return formatData(mr.NextDataRow(d))

		case "skip-all":
			var d int
			td.ScanArgs(t, "dep", &d)
			return fmt.Sprintf("skipped=%d", mr.SkipAll(d))

		case "skip-remaining":
			return fmt.Sprintf("dropped=%d", mr.SkipAllRemainingDataRows())

		case "state":
			var buf strings.Builder
			for d := 0; d < mr.NumDependencies(); d++ {
				fmt.Fprintf(&buf, "dep %d: %s has-data=%t in-flight=%d\n",
					d, mr.UpstreamStateOf(d), mr.HasDataRow(d), mr.SkippedInFlight(d))
			}
			fmt.Fprintf(&buf, "upstream=%s data=%d", mr.UpstreamState(), mr.CountDataRows())
			return buf.String()

		default:
			return fmt.Sprintf("unknown command: %s", td.Cmd)
		}
	})
	mr.Release()
	require.Zero(t, m.Metrics().InUseBlocks)
	require.NoError(t, m.Close())
}
