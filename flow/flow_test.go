// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package flow

import (
	"testing"

	"github.com/kr/pretty"
	"github.com/stretchr/testify/require"
)

func TestState(t *testing.T) {
	for _, s := range []State{HasMore, Done} {
		got, err := ParseState(s.String())
		require.NoError(t, err)
		require.Equal(t, s, got)
	}
	_, err := ParseState("MAYBE")
	require.Error(t, err)
	require.Equal(t, "State(5)", State(5).String())
}

func TestSkipResult(t *testing.T) {
	var s SkipResult
	require.Equal(t, 1, s.SubqueryDepth())
	require.True(t, s.NothingSkipped())
	require.Equal(t, "[0]", s.String())

	s.DidSkip(3)
	s.IncrementSubquery()
	s.DidSkip(2)
	s.IncrementSubquery()
	s.DidSkipSubquery(4, 2)
	require.Equal(t, "[7 2 0]", s.String())
	require.Equal(t, 3, s.SubqueryDepth())
	require.Zero(t, s.Skipped())
	require.Equal(t, 2, s.SkippedOnLevel(1))
	require.Panics(t, func() { s.DidSkipSubquery(1, 3) })
	require.Panics(t, func() { s.SkippedOnLevel(3) })

	c := s.Clone()
	s.DecrementSubquery()
	require.Equal(t, "[7 2]", s.String())
	require.Equal(t, "[7 2 0]", c.String())
	require.False(t, s.Equal(c))

	s.Reset()
	require.True(t, s.NothingSkipped())
	require.Equal(t, 2, s.SubqueryDepth())
	s.DecrementSubquery()
	require.Panics(t, s.DecrementSubquery)
	require.True(t, s.Equal(SkipResult{}))
}

func TestSkipResultMerge(t *testing.T) {
	var a, b SkipResult
	a.DidSkip(1)
	b.DidSkip(2)
	b.IncrementSubquery()
	b.DidSkip(5)

	m := a.Clone()
	m.Merge(b, false)
	require.Equal(t, "[3 5]", m.String())

	m = a.Clone()
	m.Merge(b, true)
	require.Equal(t, "[3 0]", m.String())

	m = a.Clone()
	m.MergeOnlyTopLevel(b)
	if want := (SkipResult{levels: []int{6}}); !m.Equal(want) {
		t.Fatalf("unexpected merge result:\n%s", pretty.Diff(want, m))
	}
}

func TestCall(t *testing.T) {
	c := DefaultCall()
	require.Equal(t, Unlimited, c.Limit())
	require.False(t, c.HasHardLimit())
	require.False(t, c.HasSoftLimit())
	require.False(t, c.NeedSkipMore())
	require.Panics(t, func() { c.DidSkip(1) })

	c = Call{Offset: 3, SoftLimit: 10, HardLimit: 4, FullCount: true}
	require.Equal(t, "{offset 3 soft 10 hard 4 fullcount}", c.String())
	require.True(t, c.NeedSkipMore())
	c.DidSkip(3)
	require.False(t, c.NeedSkipMore())
	require.Equal(t, 4, c.Limit())
	require.Panics(t, func() { c.DidProduce(5) })
	c.DidProduce(4)
	require.Zero(t, c.Limit())
	require.Equal(t, 6, c.SoftLimit)
	require.Equal(t, 4, c.ProducedCount())

	// With the hard limit reached, fullcount keeps asking for skips.
	require.True(t, c.NeedSkipMore())
	c.DidSkip(10)
	require.Equal(t, 13, c.SkipCount())
	require.Equal(t, 13, c.ResetSkipCount())
	require.Zero(t, c.SkipCount())
}
