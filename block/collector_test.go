// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package block_test

import (
	"testing"

	"github.com/cockroachdb/rowflow/block"
	"github.com/cockroachdb/rowflow/internal/blocktest"
	"github.com/cockroachdb/rowflow/internal/testutils"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func TestCollectorEmptyAndSingle(t *testing.T) {
	m := block.NewManager(block.ManagerOptions{})
	c := block.MakeCollector(m)

	s, err := c.Steal()
	require.NoError(t, err)
	require.True(t, s.IsNil())
	require.Zero(t, c.NumRegisters())

	b := blocktest.MustParse(m, "1 2\n3 4")
	want := b.Block()
	c.Add(b)
	require.Equal(t, 1, c.Len())
	require.Equal(t, 2, c.TotalRows())
	require.Equal(t, 2, c.NumRegisters())

	// A single block is handed out as is.
	s, err = c.Steal()
	require.NoError(t, err)
	require.Same(t, want, s.Block())
	require.Zero(t, c.Len())
	require.Zero(t, c.TotalRows())
	s.Release()
	require.NoError(t, m.Close())
}

func TestCollectorAssertions(t *testing.T) {
	m := block.NewManager(block.ManagerOptions{})
	c := block.MakeCollector(m)
	c.Add(blocktest.MustParse(m, "1 2"))
	narrow := blocktest.MustParse(m, "1")
	require.Panics(t, func() { c.Add(narrow) })
	require.Panics(t, func() { c.Add(block.Shared{}) })
	narrow.Release()
	c.Clear()
	require.Zero(t, c.Len())
	require.NoError(t, m.Close())
}

// TestCollectorRoundTrip checks that stealing from a collector yields the
// concatenation of the collected blocks, row by row and register by
// register, and that the sources are returned to the manager.
func TestCollectorRoundTrip(t *testing.T) {
	seed := uint64(7)
	t.Logf("seed: %d", seed)
	rng := rand.New(rand.NewSource(seed))
	var tr blocktest.Tracker
	m := block.NewManager(block.ManagerOptions{CacheSlots: 4})

	for iter := 0; iter < 20; iter++ {
		regs := 1 + rng.Intn(4)
		c := block.MakeCollector(m)
		type cell struct {
			n      int
			shadow bool
		}
		var want [][]cell
		n := 0
		for i, nBlocks := 0, 2+rng.Intn(3); i < nBlocks; i++ {
			rows := 1 + rng.Intn(5)
			w := testutils.CheckErr(m.RequestBlock(rows, regs))
			for row := 0; row < rows; row++ {
				r := make([]cell, regs)
				for reg := range r {
					if rng.Intn(4) == 0 {
						r[reg].n = -1
						continue
					}
					n++
					r[reg].n = n
					w.SetValue(row, reg, tr.Make(n))
				}
				if rng.Intn(3) == 0 {
					w.MakeShadowRow(row, 0)
					r[0].shadow = true
				}
				want = append(want, r)
			}
			c.Add(w.Finish())
		}
		require.Equal(t, len(want), c.TotalRows())

		s, err := c.Steal()
		require.NoError(t, err)
		b := s.Block()
		require.Equal(t, len(want), b.NumRows())
		require.Equal(t, regs, b.NumRegisters())
		for row, r := range want {
			require.Equal(t, r[0].shadow, b.IsShadowRow(row), "row %d", row)
			for reg, cl := range r {
				v := b.Value(row, reg)
				if cl.n < 0 {
					require.Nil(t, v, "row %d reg %d", row, reg)
					continue
				}
				require.Equal(t, cl.n, v.(*blocktest.Tracked).N(), "row %d reg %d", row, reg)
			}
		}
		// Every source block went back to the manager, only the copies
		// remain alive.
		require.EqualValues(t, n, tr.Live())
		require.EqualValues(t, 1, m.Metrics().InUseBlocks)
		s.Release()
		require.Zero(t, tr.Live())
	}
	require.NoError(t, m.Close())
}
