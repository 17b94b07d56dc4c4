// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package block

import (
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/rowflow/internal/base"
	"github.com/cockroachdb/swiss"
)

// DefaultCacheSlots is the number of returned blocks a manager keeps for
// reuse when ManagerOptions.CacheSlots is zero.
const DefaultCacheSlots = 1

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	// CacheSlots bounds the number of returned blocks kept for reuse. At most
	// one block per shape is kept. Zero selects DefaultCacheSlots; a negative
	// value disables recycling.
	CacheSlots int
	// MemoryLimit bounds the number of cells handed out and not yet
	// returned. Requests that would exceed it fail with an error marked
	// base.ErrResourceExhausted. Zero means unlimited.
	MemoryLimit int64
	// Synchronized guards the manager with a mutex so it can be shared by
	// concurrently executing queries. Without it the manager must only be
	// used from one goroutine at a time.
	Synchronized bool
	// Logger receives leak reports on Close. Defaults to base.DefaultLogger.
	Logger base.Logger
}

// EnsureDefaults fills in zero fields with their defaults.
func (o *ManagerOptions) EnsureDefaults() {
	if o.CacheSlots == 0 {
		o.CacheSlots = DefaultCacheSlots
	}
	if o.Logger == nil {
		o.Logger = base.DefaultLogger{}
	}
}

// Manager lends blocks to producers and reclaims them once the last reader
// lets go. Returned blocks are cleared and kept in a small recycle cache, one
// slot per shape, so that the hot path of a query does not allocate a new
// grid for every batch.
//
// A Manager is meant to be owned by a single query execution context. It is
// not safe for concurrent use unless ManagerOptions.Synchronized is set.
type Manager struct {
	opts ManagerOptions
	mu   sync.Mutex

	cache struct {
		slots swiss.Map[Shape, *Block]
		// order lists the cached shapes, oldest first.
		order []Shape
	}
	closed bool

	counters struct {
		requested   atomic.Int64
		recycled    atomic.Int64
		allocated   atomic.Int64
		returned    atomic.Int64
		freed       atomic.Int64
		inUseBlocks atomic.Int64
		inUseCells  atomic.Int64
		cached      atomic.Int64
	}
}

// NewManager returns a new Manager.
func NewManager(opts ManagerOptions) *Manager {
	opts.EnsureDefaults()
	m := &Manager{opts: opts}
	m.cache.slots.Init(max(opts.CacheSlots, 0))
	return m
}

func (m *Manager) lock() {
	if m.opts.Synchronized {
		m.mu.Lock()
	}
}

func (m *Manager) unlock() {
	if m.opts.Synchronized {
		m.mu.Unlock()
	}
}

// RequestBlock returns a builder over an empty block of rows × regs cells.
// The block is taken from the recycle cache if one of the same shape is
// available and freshly allocated otherwise. The allocation is all or
// nothing: on error no block has been handed out.
func (m *Manager) RequestBlock(rows, regs int) (*Builder, error) {
	if rows <= 0 || regs < 0 {
		panic(errors.AssertionFailedf("invalid block shape %dx%d", rows, regs))
	}
	shape := Shape{Rows: rows, Registers: regs}

	m.lock()
	defer m.unlock()
	if m.closed {
		panic(errors.AssertionFailedf("block requested from a closed manager"))
	}

	cells := int64(shape.Cells())
	if limit := m.opts.MemoryLimit; limit > 0 {
		if inUse := m.counters.inUseCells.Load(); inUse+cells > limit {
			return nil, base.ResourceExhaustedf(
				"block of shape %s needs %d cells, %d of %d in use", shape, cells, inUse, limit)
		}
	}

	b, ok := m.cache.slots.Get(shape)
	if ok {
		m.cache.slots.Delete(shape)
		m.removeFromOrder(shape)
		m.counters.cached.Add(-1)
		m.counters.recycled.Add(1)
	} else {
		b = newBlock(m, shape)
		m.counters.allocated.Add(1)
	}
	if b.state != stateFree {
		panic(errors.AssertionFailedf("block handed out twice"))
	}
	b.state = stateBuilding
	m.counters.requested.Add(1)
	m.counters.inUseBlocks.Add(1)
	m.counters.inUseCells.Add(cells)
	return &Builder{b: b}, nil
}

// resize adjusts the accounting of a block that shrank while being built.
func (m *Manager) resize(from, to Shape) {
	m.counters.inUseCells.Add(int64(to.Cells() - from.Cells()))
}

// returnBlock clears the block and makes it eligible for reuse. It is called
// when the last Shared handle is released or a Builder is abandoned.
func (m *Manager) returnBlock(b *Block) {
	if b.mgr != m {
		panic(errors.AssertionFailedf("block returned to a foreign manager"))
	}
	if n := b.refs.Load(); n != 0 {
		panic(errors.AssertionFailedf("block returned with %d references", n))
	}

	m.lock()
	defer m.unlock()
	if b.state == stateFree {
		panic(errors.AssertionFailedf("block returned twice"))
	}

	// Clearing drops every value the block owns. Bumping the generation
	// invalidates row handles still pointing into the block.
	b.releaseRows(0)
	b.gen.Add(1)
	b.state = stateFree
	m.counters.returned.Add(1)
	m.counters.inUseBlocks.Add(-1)
	m.counters.inUseCells.Add(-int64(b.shape.Cells()))

	if m.closed || m.opts.CacheSlots < 0 {
		m.free(b)
		return
	}
	if _, ok := m.cache.slots.Get(b.shape); ok {
		m.free(b)
		return
	}
	for len(m.cache.order) >= m.opts.CacheSlots {
		oldest := m.cache.order[0]
		m.cache.order = m.cache.order[1:]
		if victim, ok := m.cache.slots.Get(oldest); ok {
			m.cache.slots.Delete(oldest)
			m.counters.cached.Add(-1)
			m.free(victim)
		}
	}
	m.cache.slots.Put(b.shape, b)
	m.cache.order = append(m.cache.order, b.shape)
	m.counters.cached.Add(1)
}

func (m *Manager) removeFromOrder(shape Shape) {
	for i, s := range m.cache.order {
		if s == shape {
			m.cache.order = append(m.cache.order[:i], m.cache.order[i+1:]...)
			return
		}
	}
}

// free drops the block for good; the garbage collector reclaims its memory.
func (m *Manager) free(b *Block) {
	b.values = nil
	m.counters.freed.Add(1)
}

// CachedBlocks returns the number of blocks waiting in the recycle cache.
func (m *Manager) CachedBlocks() int {
	return int(m.counters.cached.Load())
}

// Metrics returns a snapshot of the manager's counters.
func (m *Manager) Metrics() Metrics {
	return Metrics{
		Requested:    m.counters.requested.Load(),
		Recycled:     m.counters.recycled.Load(),
		Allocated:    m.counters.allocated.Load(),
		Returned:     m.counters.returned.Load(),
		Freed:        m.counters.freed.Load(),
		InUseBlocks:  m.counters.inUseBlocks.Load(),
		InUseCells:   m.counters.inUseCells.Load(),
		CachedBlocks: m.counters.cached.Load(),
	}
}

// Close empties the recycle cache. Blocks still handed out are reported as
// leaked and an error is returned; they are freed rather than cached if they
// are returned later.
func (m *Manager) Close() error {
	m.lock()
	defer m.unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for _, shape := range m.cache.order {
		if b, ok := m.cache.slots.Get(shape); ok {
			m.cache.slots.Delete(shape)
			m.free(b)
		}
	}
	m.cache.order = nil
	m.counters.cached.Store(0)

	if n := m.counters.inUseBlocks.Load(); n > 0 {
		m.opts.Logger.Errorf("block manager closed with %d blocks (%d cells) still in use",
			n, m.counters.inUseCells.Load())
		return errors.Newf("%d blocks leaked", n)
	}
	return nil
}
