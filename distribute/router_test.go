// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package distribute

import (
	"fmt"
	"strings"
	"testing"

	"github.com/cockroachdb/rowflow/block"
	"github.com/cockroachdb/rowflow/flow"
	"github.com/cockroachdb/rowflow/internal/blocktest"
	"github.com/cockroachdb/rowflow/internal/testutils"
	"github.com/stretchr/testify/require"
)

// drain serves a client until it has no buffered rows, returning the printed
// output blocks.
func drain(t *testing.T, r *Router, id string) []string {
	var out []string
	for {
		c, ok := r.Client(id)
		require.True(t, ok)
		if !c.HasDataFor(flow.DefaultCall()) {
			return out
		}
		call := flow.DefaultCall()
		_, _, blk, err := r.Execute(id, &call, flow.Done)
		require.NoError(t, err)
		if !blk.IsNil() {
			b := blk.Block()
			for i := 0; i < b.NumRows(); i++ {
				if d, ok := b.ShadowRowDepth(i); ok {
					out = append(out, fmt.Sprintf("s%d", d))
				} else {
					out = append(out, fmt.Sprint(b.Value(i, 0)))
				}
			}
		}
		blk.Release()
	}
}

func TestHashRouting(t *testing.T) {
	m := block.NewManager(block.ManagerOptions{})
	ids := []string{"a", "b", "c"}
	r := NewRouter(m, ids, HashRouting(0), RouterOptions{MaxBatchSize: 4})

	var sb strings.Builder
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&sb, "%d\n", i%10)
	}
	sb.WriteString("shadow(0) 99\n")
	r.Route(flow.SkipResult{}, blocktest.MustParse(m, sb.String()))

	seen := map[string]string{}
	total := 0
	for _, id := range ids {
		rows := drain(t, r, id)
		require.NotEmpty(t, rows)
		// Every client receives the shadow row, last.
		require.Equal(t, "s0", rows[len(rows)-1])
		for _, v := range rows[:len(rows)-1] {
			if prev, ok := seen[v]; ok {
				require.Equal(t, prev, id, "value %s routed to two clients", v)
			}
			seen[v] = id
			total++
		}
	}
	require.Equal(t, 30, total)
	require.Len(t, seen, 10)
	r.Release()
	require.Zero(t, m.Metrics().InUseBlocks)
	require.NoError(t, m.Close())
}

func TestScatterRouting(t *testing.T) {
	m := block.NewManager(block.ManagerOptions{})
	r := NewRouter(m, []string{"a", "b"}, ScatterRouting(), RouterOptions{})
	r.Route(flow.SkipResult{}, blocktest.MustParse(m, "1\n2\nshadow(0) 3\n4"))
	var skip flow.SkipResult
	skip.DidSkip(5)
	r.Route(skip, block.Shared{})
	r.Route(flow.SkipResult{}, blocktest.MustParse(m, "5"))

	for _, id := range []string{"a", "b"} {
		c, ok := r.Client(id)
		require.True(t, ok)
		require.Equal(t, 3, c.QueueLen())
		require.Equal(t, 5, c.QueuedRows())
		require.Equal(t, []string{"1", "2", "s0", "4", "5"}, drain(t, r, id))
	}
	_, ok := r.Client("z")
	require.False(t, ok)
	call := flow.DefaultCall()
	_, _, _, err := r.Execute("z", &call, flow.Done)
	require.Error(t, err)

	r.Release()
	require.Zero(t, m.Metrics().InUseBlocks)
	require.NoError(t, m.Close())
}

func TestRouterSkipOnlyClients(t *testing.T) {
	m := block.NewManager(block.ManagerOptions{})
	logger := testutils.NewLogger(t)
	r := NewRouter(m, []string{"a", "b"}, HashRouting(0), RouterOptions{
		QueueWarnThreshold: 3,
		Logger:             logger,
	})

	// All rows hash to a single client; the other one only sees the skip.
	var skip flow.SkipResult
	skip.DidSkip(2)
	r.Route(skip, blocktest.MustParse(m, "7\n7\n7\n7"))
	a, _ := r.Client("a")
	b, _ := r.Client("b")
	full, empty := a, b
	if a.QueuedRows() == 0 {
		full, empty = b, a
	}
	require.Equal(t, 4, full.QueuedRows())
	require.Equal(t, 1, empty.QueueLen())
	require.Zero(t, empty.QueuedRows())
	require.True(t, logger.Contains("rows queued"))
	require.Len(t, logger.Lines(), 1)

	blk, got, err := empty.PopJoinedBlock()
	require.NoError(t, err)
	require.True(t, blk.IsNil())
	require.Equal(t, 2, got.Skipped())

	r.Release()
	require.Zero(t, m.Metrics().InUseBlocks)
	require.NoError(t, m.Close())
}

func TestRouterAssertions(t *testing.T) {
	m := block.NewManager(block.ManagerOptions{})
	require.Panics(t, func() { NewRouter(m, nil, ScatterRouting(), RouterOptions{}) })
	require.Panics(t, func() { NewRouter(m, []string{"a", "a"}, ScatterRouting(), RouterOptions{}) })
	require.NoError(t, m.Close())
}

func TestHashRoutingStable(t *testing.T) {
	m := block.NewManager(block.ManagerOptions{})
	s := blocktest.MustParse(m, "1 x\n1 y\n2 x")
	h := HashRouting(0)
	r0 := h.Route(nil, s.Block(), 0, 8)
	r1 := h.Route(nil, s.Block(), 1, 8)
	require.Equal(t, r0, r1)
	require.Len(t, r0, 1)
	require.Equal(t, HashRouting(1).Route(nil, s.Block(), 0, 8), HashRouting(1).Route(nil, s.Block(), 2, 8))
	s.Release()
	require.NoError(t, m.Close())
}
