// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/guptarohit/asciigraph"
)

const (
	minLatency = 100 * time.Nanosecond
	maxLatency = 10 * time.Second
)

func newHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(minLatency.Nanoseconds(), maxLatency.Nanoseconds(), 1)
}

// namedHistogram is a latency histogram shared by the workers of a run.
type namedHistogram struct {
	name string
	mu   struct {
		sync.Mutex
		hist *hdrhistogram.Histogram
		// samples holds every recorded latency, in order, if plotting is
		// enabled.
		samples []float64
	}
	keepSamples bool
}

func newNamedHistogram(name string, keepSamples bool) *namedHistogram {
	w := &namedHistogram{name: name, keepSamples: keepSamples}
	w.mu.hist = newHistogram()
	return w
}

func (w *namedHistogram) Record(elapsed time.Duration) {
	elapsed = min(max(elapsed, minLatency), maxLatency)

	w.mu.Lock()
	err := w.mu.hist.RecordValue(elapsed.Nanoseconds())
	if w.keepSamples {
		w.mu.samples = append(w.mu.samples, float64(elapsed.Microseconds()))
	}
	w.mu.Unlock()

	if err != nil {
		// Latencies are clamped to the histogram's range.
		panic(fmt.Sprintf(`%s: recording value: %s`, w.name, err))
	}
}

// printHeader writes the header of the lines printLatency writes.
func printHeader(w io.Writer) {
	fmt.Fprintln(w, "_____optype__elapsed_____ops(total)___ops/sec(cum)__avg(µs)__p50(µs)__p95(µs)__p99(µs)_pMax(µs)")
}

func (w *namedHistogram) printLatency(out io.Writer, elapsed time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	h := w.mu.hist
	fmt.Fprintf(out, "%10s %7.1fs %14d %14.1f %8.1f %8.1f %8.1f %8.1f %8.1f\n",
		w.name,
		elapsed.Seconds(),
		h.TotalCount(),
		float64(h.TotalCount())/elapsed.Seconds(),
		time.Duration(h.Mean()).Seconds()*1e6,
		time.Duration(h.ValueAtQuantile(50)).Seconds()*1e6,
		time.Duration(h.ValueAtQuantile(95)).Seconds()*1e6,
		time.Duration(h.ValueAtQuantile(99)).Seconds()*1e6,
		time.Duration(h.ValueAtQuantile(100)).Seconds()*1e6,
	)
}

// plot returns an ASCII graph of the recorded samples, averaged into at most
// width points.
func (w *namedHistogram) plot(width, height int) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	samples := w.mu.samples
	if len(samples) == 0 {
		return ""
	}
	if len(samples) > width {
		points := make([]float64, width)
		for i := range points {
			lo, hi := i*len(samples)/width, (i+1)*len(samples)/width
			var sum float64
			for _, v := range samples[lo:hi] {
				sum += v
			}
			points[i] = sum / float64(hi-lo)
		}
		samples = points
	}
	return asciigraph.Plot(samples,
		asciigraph.Height(height),
		asciigraph.Caption(fmt.Sprintf("%s latency (µs)", w.name)))
}
