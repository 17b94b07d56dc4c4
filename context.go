// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package rowflow

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/rowflow/block"
	"github.com/cockroachdb/rowflow/distribute"
	"github.com/cockroachdb/rowflow/row"
	"github.com/prometheus/client_golang/prometheus"
)

// Context is the execution context of a single query. It owns the block
// manager every executor of the query requests blocks from, and hands out
// the re-batching helpers configured from its options.
//
// A Context is used from one goroutine unless Options.Synchronized is set.
type Context struct {
	opts   *Options
	mgr    *block.Manager
	closed bool
}

// NewContext returns a new Context. The options are copied.
func NewContext(opts *Options) (*Context, error) {
	opts = opts.Clone()
	opts.EnsureDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Context{
		opts: opts,
		mgr:  block.NewManager(opts.managerOptions()),
	}, nil
}

// Options returns the options of the context. They must not be modified.
func (c *Context) Options() *Options {
	return c.opts
}

// Manager returns the block manager of the context.
func (c *Context) Manager() *block.Manager {
	return c.mgr
}

// NewRouter returns a distribute router for the given clients.
func (c *Context) NewRouter(ids []string, routing distribute.Routing) *distribute.Router {
	return distribute.NewRouter(c.mgr, ids, routing, c.opts.routerOptions())
}

// NewCollector returns a block collector.
func (c *Context) NewCollector() block.Collector {
	return block.MakeCollector(c.mgr)
}

// NewOutputRow requests a block of rows × regs and returns a writer over it.
func (c *Context) NewOutputRow(rows, regs int) (*row.OutputRow, error) {
	w, err := c.mgr.RequestBlock(rows, regs)
	if err != nil {
		return nil, err
	}
	return row.NewOutputRow(w), nil
}

// Metrics returns a snapshot of the block manager's counters.
func (c *Context) Metrics() block.Metrics {
	return c.mgr.Metrics()
}

// RegisterMetrics exports the block manager's counters to reg.
func (c *Context) RegisterMetrics(reg prometheus.Registerer, labels prometheus.Labels) error {
	return reg.Register(block.NewMetricsCollector(c.mgr, "rowflow", labels))
}

// Close logs a summary of the block manager's activity and closes it. An
// error is returned if blocks are still in use.
func (c *Context) Close() error {
	if c.closed {
		return errors.New("rowflow: context already closed")
	}
	c.closed = true
	c.opts.Logger.Infof("rowflow: closing context: %s", c.mgr.Metrics())
	return c.mgr.Close()
}
