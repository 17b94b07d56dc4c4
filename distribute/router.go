// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package distribute

import (
	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/rowflow/block"
	"github.com/cockroachdb/rowflow/flow"
	"github.com/cockroachdb/rowflow/internal/base"
	"github.com/cockroachdb/rowflow/value"
	"github.com/cockroachdb/swiss"
)

// Routing decides which clients receive a data row.
type Routing interface {
	// Route appends to dst the indexes, in [0, n), of the clients that
	// receive row of b.
	Route(dst []int, b *block.Block, row, n int) []int
}

type hashRouting struct {
	reg int
	buf []byte
}

// HashRouting sends every row to exactly one client, picked by hashing the
// value of register reg. Rows with equal values go to the same client.
func HashRouting(reg int) Routing {
	return &hashRouting{reg: reg}
}

func (h *hashRouting) Route(dst []int, b *block.Block, row, n int) []int {
	h.buf = value.AppendKey(h.buf[:0], b.Value(row, h.reg))
	return append(dst, int(xxhash.Sum64(h.buf)%uint64(n)))
}

type scatterRouting struct{}

// ScatterRouting sends every row to every client.
func ScatterRouting() Routing {
	return scatterRouting{}
}

func (scatterRouting) Route(dst []int, _ *block.Block, _, n int) []int {
	for i := 0; i < n; i++ {
		dst = append(dst, i)
	}
	return dst
}

// RouterOptions configures a Router.
type RouterOptions struct {
	// MaxBatchSize bounds the rows of the blocks served to a client.
	// Defaults to DefaultMaxBatchSize.
	MaxBatchSize int
	// QueueWarnThreshold is the number of queued rows beyond which a slow
	// client is logged. Zero disables the warning.
	QueueWarnThreshold int
	Logger             base.Logger
}

// EnsureDefaults fills in zero fields with their defaults.
func (o *RouterOptions) EnsureDefaults() {
	if o.MaxBatchSize <= 0 {
		o.MaxBatchSize = DefaultMaxBatchSize
	}
	if o.Logger == nil {
		o.Logger = base.DefaultLogger{}
	}
}

// Router owns one ClientBlock per downstream client and routes upstream
// blocks into their queues.
type Router struct {
	opts    RouterOptions
	routing Routing
	ids     []string
	index   swiss.Map[string, int]
	clients []*ClientBlock
	warned  []bool
	scratch []int
}

// NewRouter returns a Router for the given client ids. Joined blocks are
// requested from m.
func NewRouter(m *block.Manager, ids []string, routing Routing, opts RouterOptions) *Router {
	if len(ids) == 0 {
		panic(errors.AssertionFailedf("router without clients"))
	}
	opts.EnsureDefaults()
	r := &Router{
		opts:    opts,
		routing: routing,
		ids:     ids,
		clients: make([]*ClientBlock, len(ids)),
		warned:  make([]bool, len(ids)),
	}
	r.index.Init(len(ids))
	for i, id := range ids {
		if _, ok := r.index.Get(id); ok {
			panic(errors.AssertionFailedf("duplicate client %q", id))
		}
		r.index.Put(id, i)
		r.clients[i] = NewClientBlock(m, opts.MaxBatchSize)
	}
	return r
}

// NumClients returns the number of clients.
func (r *Router) NumClients() int {
	return len(r.clients)
}

// Client returns the ClientBlock of the client with the given id.
func (r *Router) Client(id string) (*ClientBlock, bool) {
	i, ok := r.index.Get(id)
	if !ok {
		return nil, false
	}
	return r.clients[i], true
}

// Route distributes the rows of blk, taking ownership of it. Every data row
// goes to the clients picked by the routing; every shadow row goes to all
// clients, since each of them must see every subquery boundary. skip is
// passed on to every client, as a pure skip entry for clients that receive
// no row.
func (r *Router) Route(skip flow.SkipResult, blk block.Shared) {
	defer blk.Release()
	n := len(r.clients)
	chosen := make([][]int, n)
	if b := blk.Block(); b != nil {
		for i := 0; i < b.NumRows(); i++ {
			if b.IsShadowRow(i) {
				for c := range chosen {
					chosen[c] = append(chosen[c], i)
				}
				continue
			}
			r.scratch = r.routing.Route(r.scratch[:0], b, i, n)
			for _, c := range r.scratch {
				chosen[c] = append(chosen[c], i)
			}
		}
	}
	for c, client := range r.clients {
		switch {
		case len(chosen[c]) > 0:
			client.AddBlock(skip.Clone(), blk.Clone(), chosen[c])
		case !skip.NothingSkipped():
			client.AddBlock(skip.Clone(), block.Shared{}, nil)
		}
		r.checkQueue(c)
	}
}

func (r *Router) checkQueue(c int) {
	if r.opts.QueueWarnThreshold <= 0 {
		return
	}
	switch n := r.clients[c].QueuedRows(); {
	case n > r.opts.QueueWarnThreshold && !r.warned[c]:
		r.warned[c] = true
		r.opts.Logger.Infof("distribute: client %s has %d rows queued", r.ids[c], n)
	case n <= r.opts.QueueWarnThreshold:
		r.warned[c] = false
	}
}

// Execute serves call for the client with the given id. See
// ClientBlock.Execute.
func (r *Router) Execute(
	id string, call *flow.Call, upstream flow.State,
) (flow.State, flow.SkipResult, block.Shared, error) {
	i, ok := r.index.Get(id)
	if !ok {
		return upstream, flow.SkipResult{}, block.Shared{}, errors.Newf("unknown client %q", id)
	}
	state, skip, blk, err := r.clients[i].Execute(call, upstream)
	r.checkQueue(i)
	return state, skip, blk, err
}

// Release releases the queues of every client.
func (r *Router) Release() {
	for _, c := range r.clients {
		c.Release()
	}
}
