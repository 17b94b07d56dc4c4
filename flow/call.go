// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package flow

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
)

// Unlimited is the limit of a call that does not restrict the number of
// produced rows.
const Unlimited = math.MaxInt

// Call is the request a client passes down the pipeline: skip Offset rows,
// then produce up to the smaller of SoftLimit and HardLimit rows. A soft
// limit only bounds the current batch; a hard limit ends the iteration, and
// with FullCount set the rows beyond it are still counted as skipped.
//
// Use DefaultCall to obtain a call without limits; the zero value requests
// no rows at all.
type Call struct {
	Offset    int
	SoftLimit int
	HardLimit int
	FullCount bool

	skipped  int
	produced int
}

// DefaultCall returns a call that skips nothing and produces everything.
func DefaultCall() Call {
	return Call{SoftLimit: Unlimited, HardLimit: Unlimited}
}

// Limit returns the number of rows the call still wants produced.
func (c *Call) Limit() int {
	return min(c.SoftLimit, c.HardLimit)
}

// HasHardLimit returns true if the call ends the iteration after its limit.
func (c *Call) HasHardLimit() bool {
	return c.HardLimit != Unlimited
}

// HasSoftLimit returns true if the call bounds the current batch.
func (c *Call) HasSoftLimit() bool {
	return c.SoftLimit != Unlimited
}

// NeedsFullCount returns true if rows past a reached hard limit must still be
// counted.
func (c *Call) NeedsFullCount() bool {
	return c.FullCount
}

// NeedSkipMore returns true if the call still wants rows skipped, either to
// satisfy its offset or to count rows for FullCount after the hard limit.
func (c *Call) NeedSkipMore() bool {
	return c.Offset > 0 || (c.HardLimit == 0 && c.NeedsFullCount())
}

// DidSkip records that n rows were skipped on behalf of this call.
func (c *Call) DidSkip(n int) {
	if n <= c.Offset {
		c.Offset -= n
	} else {
		if !(c.HardLimit == 0 && c.NeedsFullCount()) && c.Offset == 0 {
			panic(errors.AssertionFailedf("skipped %d rows for a call with nothing to skip", n))
		}
		c.Offset = 0
	}
	c.skipped += n
}

// DidProduce records that n rows were produced for this call.
func (c *Call) DidProduce(n int) {
	if n > c.Limit() {
		panic(errors.AssertionFailedf("produced %d rows for a call with limit %d", n, c.Limit()))
	}
	if c.SoftLimit != Unlimited {
		c.SoftLimit -= n
	}
	if c.HardLimit != Unlimited {
		c.HardLimit -= n
	}
	c.produced += n
}

// SkipCount returns the number of rows skipped on behalf of this call.
func (c *Call) SkipCount() int {
	return c.skipped
}

// ProducedCount returns the number of rows produced for this call.
func (c *Call) ProducedCount() int {
	return c.produced
}

// ResetSkipCount clears the skip bookkeeping, returning the previous count.
func (c *Call) ResetSkipCount() int {
	n := c.skipped
	c.skipped = 0
	return n
}

// String implements fmt.Stringer.
func (c Call) String() string {
	return redact.StringWithoutMarkers(c)
}

// SafeFormat implements redact.SafeFormatter.
func (c Call) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Printf("{offset %d", redact.SafeInt(c.Offset))
	if c.HasSoftLimit() {
		w.Printf(" soft %d", redact.SafeInt(c.SoftLimit))
	}
	if c.HasHardLimit() {
		w.Printf(" hard %d", redact.SafeInt(c.HardLimit))
	}
	if c.FullCount {
		w.SafeString(" fullcount")
	}
	w.SafeString("}")
}
