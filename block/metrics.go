// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package block

import (
	"github.com/cockroachdb/crlib/crhumanize"
	"github.com/cockroachdb/redact"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is a snapshot of a manager's counters.
type Metrics struct {
	// Requested is the number of blocks handed out; it is the sum of
	// Recycled and Allocated.
	Requested int64
	Recycled  int64
	Allocated int64
	// Returned counts blocks handed back, Freed those dropped instead of
	// being cached.
	Returned int64
	Freed    int64
	// InUseBlocks and InUseCells describe what is handed out right now.
	InUseBlocks  int64
	InUseCells   int64
	CachedBlocks int64
}

// HitRate returns the fraction of requests served from the recycle cache.
func (m Metrics) HitRate() float64 {
	if m.Requested == 0 {
		return 0
	}
	return float64(m.Recycled) / float64(m.Requested)
}

// String implements fmt.Stringer.
func (m Metrics) String() string {
	return redact.StringWithoutMarkers(m)
}

// SafeFormat implements redact.SafeFormatter.
func (m Metrics) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Printf("requested %s (recycled %s, allocated %s), returned %s, freed %s, in use %s blocks (%s cells), cached %s",
		crhumanize.Count(m.Requested, crhumanize.Compact),
		crhumanize.Count(m.Recycled, crhumanize.Compact),
		crhumanize.Count(m.Allocated, crhumanize.Compact),
		crhumanize.Count(m.Returned, crhumanize.Compact),
		crhumanize.Count(m.Freed, crhumanize.Compact),
		crhumanize.Count(m.InUseBlocks, crhumanize.Compact),
		crhumanize.Count(m.InUseCells, crhumanize.Compact),
		crhumanize.Count(m.CachedBlocks, crhumanize.Compact),
	)
}

type metricsCollector struct {
	m     *Manager
	descs struct {
		requested, recycled, allocated, returned, freed *prometheus.Desc
		inUseBlocks, inUseCells, cached                 *prometheus.Desc
	}
}

// NewMetricsCollector exports the manager's counters to prometheus. The
// labels are attached to every metric, which lets several managers register
// with one registry.
func NewMetricsCollector(m *Manager, namespace string, labels prometheus.Labels) prometheus.Collector {
	c := &metricsCollector{m: m}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "block", name), help, nil, labels)
	}
	c.descs.requested = desc("requested_total", "Blocks handed out by the manager.")
	c.descs.recycled = desc("recycled_total", "Requests served from the recycle cache.")
	c.descs.allocated = desc("allocated_total", "Requests served by allocating a new block.")
	c.descs.returned = desc("returned_total", "Blocks handed back to the manager.")
	c.descs.freed = desc("freed_total", "Returned blocks dropped instead of cached.")
	c.descs.inUseBlocks = desc("in_use", "Blocks currently handed out.")
	c.descs.inUseCells = desc("in_use_cells", "Cells of the blocks currently handed out.")
	c.descs.cached = desc("cached", "Blocks waiting in the recycle cache.")
	return c
}

// Describe implements prometheus.Collector.
func (c *metricsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.descs.requested
	ch <- c.descs.recycled
	ch <- c.descs.allocated
	ch <- c.descs.returned
	ch <- c.descs.freed
	ch <- c.descs.inUseBlocks
	ch <- c.descs.inUseCells
	ch <- c.descs.cached
}

// Collect implements prometheus.Collector.
func (c *metricsCollector) Collect(ch chan<- prometheus.Metric) {
	m := c.m.Metrics()
	counter := func(d *prometheus.Desc, v int64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}
	gauge := func(d *prometheus.Desc, v int64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, float64(v))
	}
	counter(c.descs.requested, m.Requested)
	counter(c.descs.recycled, m.Recycled)
	counter(c.descs.allocated, m.Allocated)
	counter(c.descs.returned, m.Returned)
	counter(c.descs.freed, m.Freed)
	gauge(c.descs.inUseBlocks, m.InUseBlocks)
	gauge(c.descs.inUseCells, m.InUseCells)
	gauge(c.descs.cached, m.CachedBlocks)
}
