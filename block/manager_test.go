// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package block_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/cockroachdb/rowflow/block"
	"github.com/cockroachdb/rowflow/internal/base"
	"github.com/cockroachdb/rowflow/internal/blocktest"
	"github.com/cockroachdb/rowflow/internal/testutils"
	"github.com/cockroachdb/rowflow/value"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func formatMetrics(m block.Metrics) string {
	return fmt.Sprintf("requested=%d recycled=%d allocated=%d returned=%d freed=%d in-use=%d/%d cached=%d",
		m.Requested, m.Recycled, m.Allocated, m.Returned, m.Freed, m.InUseBlocks, m.InUseCells, m.CachedBlocks)
}

func TestManager(t *testing.T) {
	var m *block.Manager
	var logger *testutils.Logger
	var shared map[string]block.Shared
	var builders map[string]*block.Builder

	datadriven.RunTest(t, "testdata/manager", func(t *testing.T, td *datadriven.TestData) string {
		switch td.Cmd {
		case "init":
			logger = testutils.NewLogger(t)
			opts := block.ManagerOptions{Logger: logger}
			td.MaybeScanArgs(t, "cache-slots", &opts.CacheSlots)
			td.MaybeScanArgs(t, "memory-limit", &opts.MemoryLimit)
			m = block.NewManager(opts)
			shared = map[string]block.Shared{}
			builders = map[string]*block.Builder{}
			return ""

		case "build":
			var name string
			td.ScanArgs(t, "name", &name)
			s, err := blocktest.Parse(m, td.Input)
			if err != nil {
				return fmt.Sprintf("error: %v (resource-exhausted=%t)", err, base.IsResourceExhausted(err))
			}
			shared[name] = s
			return s.Block().String()

		case "request":
			var name string
			var rows, regs int
			td.ScanArgs(t, "name", &name)
			td.ScanArgs(t, "rows", &rows)
			td.ScanArgs(t, "regs", &regs)
			w, err := m.RequestBlock(rows, regs)
			if err != nil {
				return fmt.Sprintf("error: %v (resource-exhausted=%t)", err, base.IsResourceExhausted(err))
			}
			builders[name] = w
			return fmt.Sprintf("shape=%s", w.Block().Shape())

		case "abandon":
			var name string
			td.ScanArgs(t, "name", &name)
			builders[name].Release()
			delete(builders, name)
			return ""

		case "clone":
			var name, as string
			td.ScanArgs(t, "name", &name)
			td.ScanArgs(t, "as", &as)
			shared[as] = shared[name].Clone()
			return fmt.Sprintf("refs=%d", shared[as].Refs())

		case "release":
			var name string
			td.ScanArgs(t, "name", &name)
			s := shared[name]
			delete(shared, name)
			b := s.Block()
			s.Release()
			require.True(t, s.IsNil())
			for _, other := range shared {
				if other.Block() == b {
					return fmt.Sprintf("refs=%d", other.Refs())
				}
			}
			return "refs=0"

		case "metrics":
			return formatMetrics(m.Metrics())

		case "close":
			var buf strings.Builder
			if err := m.Close(); err != nil {
				fmt.Fprintf(&buf, "error: %v\n", err)
			}
			for _, line := range logger.Lines() {
				fmt.Fprintf(&buf, "log: %s\n", line)
			}
			return buf.String()

		default:
			return fmt.Sprintf("unknown command: %s", td.Cmd)
		}
	})
}

func TestManagerClearsReturnedBlocks(t *testing.T) {
	var tr blocktest.Tracker
	m := block.NewManager(block.ManagerOptions{Logger: base.NoopLogger{}})
	defer func() { require.NoError(t, m.Close()) }()

	w := testutils.CheckErr(m.RequestBlock(3, 2))
	for row := 0; row < 3; row++ {
		for reg := 0; reg < 2; reg++ {
			w.SetValue(row, reg, tr.Make(row*2+reg))
		}
	}
	// Overwriting a cell releases the previous value.
	w.SetValue(0, 0, tr.Make(100))
	require.EqualValues(t, 6, tr.Live())
	w.MakeShadowRow(2, 0)
	s := w.Finish()
	b := s.Block()
	gen := b.Generation()

	c := s.Clone()
	s.Release()
	require.EqualValues(t, 6, tr.Live())
	c.Release()
	require.EqualValues(t, 0, tr.Live())
	require.NotEqual(t, gen, b.Generation())

	// The recycled block comes back empty.
	w = testutils.CheckErr(m.RequestBlock(3, 2))
	require.Same(t, b, w.Block())
	require.Zero(t, w.Block().NumEntries())
	require.False(t, w.Block().HasShadowRows())
	w.Release()
	require.EqualValues(t, 1, m.Metrics().Recycled)
}

func TestManagerNoCache(t *testing.T) {
	m := block.NewManager(block.ManagerOptions{CacheSlots: -1})
	for i := 0; i < 3; i++ {
		w := testutils.CheckErr(m.RequestBlock(2, 2))
		w.Release()
	}
	metrics := m.Metrics()
	require.EqualValues(t, 3, metrics.Allocated)
	require.EqualValues(t, 3, metrics.Freed)
	require.Zero(t, m.CachedBlocks())
	require.NoError(t, m.Close())
}

func TestManagerMultipleSlots(t *testing.T) {
	m := block.NewManager(block.ManagerOptions{CacheSlots: 2})
	shapes := []block.Shape{{Rows: 1, Registers: 1}, {Rows: 2, Registers: 1}, {Rows: 3, Registers: 1}}
	var ws []*block.Builder
	for _, s := range shapes {
		ws = append(ws, testutils.CheckErr(m.RequestBlock(s.Rows, s.Registers)))
	}
	for _, w := range ws {
		w.Release()
	}
	// The oldest shape was evicted to make room for the third.
	require.Equal(t, 2, m.CachedBlocks())
	require.EqualValues(t, 1, m.Metrics().Freed)

	w := testutils.CheckErr(m.RequestBlock(1, 1))
	require.EqualValues(t, 0, m.Metrics().Recycled)
	w.Release()
	w = testutils.CheckErr(m.RequestBlock(3, 1))
	require.EqualValues(t, 1, m.Metrics().Recycled)
	w.Release()
	require.NoError(t, m.Close())
}

func TestManagerAssertions(t *testing.T) {
	m := block.NewManager(block.ManagerOptions{})
	require.Panics(t, func() { _, _ = m.RequestBlock(0, 1) })
	require.Panics(t, func() { _, _ = m.RequestBlock(1, -1) })

	s := blocktest.MustParse(m, "1 2\n3 4")
	b := s.Block()
	require.Panics(t, func() { b.Value(2, 0) })
	require.Panics(t, func() { b.Value(0, 2) })
	require.Panics(t, func() { b.IsShadowRow(-1) })

	c := s
	s.Release()
	require.Panics(t, func() { c.Release() })
	require.NoError(t, m.Close())
}

func TestManagerSynchronized(t *testing.T) {
	m := block.NewManager(block.ManagerOptions{Synchronized: true, CacheSlots: 4})
	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			for j := 0; j < 100; j++ {
				w, err := m.RequestBlock(1+j%4, 2)
				if err != nil {
					return err
				}
				w.SetValue(0, 0, value.Int(j))
				s := w.Finish()
				c := s.Clone()
				s.Release()
				c.Release()
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	metrics := m.Metrics()
	require.EqualValues(t, 800, metrics.Requested)
	require.EqualValues(t, 800, metrics.Returned)
	require.Zero(t, metrics.InUseBlocks)
	require.Zero(t, metrics.InUseCells)
	require.NoError(t, m.Close())
}
