// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/cockroachdb/crlib/crhumanize"
	"github.com/cockroachdb/crlib/crtime"
	"github.com/cockroachdb/rowflow"
	"github.com/cockroachdb/rowflow/block"
	"github.com/cockroachdb/rowflow/distribute"
	"github.com/cockroachdb/rowflow/flow"
	"github.com/cockroachdb/rowflow/internal/base"
	"github.com/cockroachdb/rowflow/value"
	"github.com/cockroachdb/tokenbucket"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
)

var distributeConfig = struct {
	blocks      int
	rows        int
	registers   int
	shadowEvery int
	clients     int
	softLimit   int
	scatter     bool
	rate        float64
	plot        bool
	seed        int64
}{
	blocks:    1000,
	rows:      1000,
	registers: 4,
	clients:   3,
}

var distributeCmd = &cobra.Command{
	Use:   "distribute",
	Short: "benchmark routing blocks to distribute clients",
	Long: `
Generate upstream blocks, route them through a distribute router and drain
every client, collecting the served blocks. Every concurrent query runs on
its own context.
`,
	Args: cobra.NoArgs,
	RunE: runDistribute,
}

type distributeResult struct {
	served  int64
	batches int64
	skipped int64
	metrics block.Metrics
}

type distributeHistograms struct {
	route *namedHistogram
	drain *namedHistogram
}

func runDistribute(cmd *cobra.Command, args []string) error {
	opts, err := loadOptions()
	if err != nil {
		return err
	}
	if !verbose {
		opts.Logger = base.NoopLogger{}
	}

	hists := distributeHistograms{
		route: newNamedHistogram("route", distributeConfig.plot),
		drain: newNamedHistogram("drain", distributeConfig.plot),
	}
	results := make([]distributeResult, concurrency)
	start := crtime.NowMono()
	var g errgroup.Group
	for i := 0; i < concurrency; i++ {
		g.Go(func() error {
			res, err := runDistributeQuery(opts, i, hists)
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := start.Elapsed()

	out := cmd.OutOrStdout()
	printHeader(out)
	hists.route.printLatency(out, elapsed)
	hists.drain.printLatency(out, elapsed)
	fmt.Fprintln(out)
	printResults(out, results, elapsed)
	if distributeConfig.plot {
		fmt.Fprintln(out)
		fmt.Fprintln(out, hists.route.plot(80, 10))
		fmt.Fprintln(out)
		fmt.Fprintln(out, hists.drain.plot(80, 10))
	}
	return nil
}

func runDistributeQuery(
	opts *rowflow.Options, worker int, hists distributeHistograms,
) (res distributeResult, err error) {
	cfg := &distributeConfig
	ctx, err := rowflow.NewContext(opts)
	if err != nil {
		return res, err
	}
	ids := make([]string, cfg.clients)
	for i := range ids {
		ids[i] = "client-" + strconv.Itoa(i)
	}
	routing := distribute.HashRouting(0)
	if cfg.scatter {
		routing = distribute.ScatterRouting()
	}
	router := ctx.NewRouter(ids, routing)
	collector := ctx.NewCollector()
	defer func() {
		collector.Clear()
		router.Release()
		res.metrics = ctx.Metrics()
		if closeErr := ctx.Close(); err == nil {
			err = closeErr
		}
	}()

	var limiter *tokenbucket.TokenBucket
	if cfg.rate > 0 {
		limiter = &tokenbucket.TokenBucket{}
		limiter.Init(tokenbucket.TokensPerSecond(cfg.rate), tokenbucket.Tokens(max(1, cfg.rate/10)))
	}

	rng := rand.New(rand.NewSource(uint64(cfg.seed) + uint64(worker)))
	var rowNum int
	for i := 0; i < cfg.blocks; i++ {
		if limiter != nil {
			for {
				ok, d := limiter.TryToFulfill(1)
				if ok {
					break
				}
				time.Sleep(d)
			}
		}
		blk, err := generateBlock(ctx.Manager(), rng, &rowNum)
		if err != nil {
			return res, err
		}

		start := crtime.NowMono()
		router.Route(flow.SkipResult{}, blk)
		hists.route.Record(start.Elapsed())

		start = crtime.NowMono()
		for _, id := range ids {
			if err := drainClient(router, id, &collector, &res); err != nil {
				return res, err
			}
			out, err := collector.Steal()
			if err != nil {
				return res, err
			}
			out.Release()
		}
		hists.drain.Record(start.Elapsed())
	}
	return res, nil
}

// generateBlock returns a block of random integers. With shadowEvery set,
// every shadowEvery-th row across the run is a depth 0 shadow row.
func generateBlock(m *block.Manager, rng *rand.Rand, rowNum *int) (block.Shared, error) {
	cfg := &distributeConfig
	w, err := m.RequestBlock(cfg.rows, cfg.registers)
	if err != nil {
		return block.Shared{}, err
	}
	for r := 0; r < cfg.rows; r++ {
		*rowNum++
		if cfg.shadowEvery > 0 && *rowNum%cfg.shadowEvery == 0 {
			w.MakeShadowRow(r, 0)
			continue
		}
		for reg := 0; reg < cfg.registers; reg++ {
			w.SetValue(r, reg, value.Int(rng.Int63n(1<<20)))
		}
	}
	return w.Finish(), nil
}

// drainClient serves calls to the client until its buffer is empty, adding
// every served block to c.
func drainClient(
	router *distribute.Router, id string, c *block.Collector, res *distributeResult,
) error {
	client, ok := router.Client(id)
	if !ok {
		return fmt.Errorf("unknown client %q", id)
	}
	for client.HasDataFor(flow.DefaultCall()) {
		call := flow.DefaultCall()
		if distributeConfig.softLimit > 0 {
			call.SoftLimit = distributeConfig.softLimit
		}
		_, skipped, out, err := router.Execute(id, &call, flow.Done)
		if err != nil {
			return err
		}
		res.skipped += int64(skipped.Skipped())
		if !out.IsNil() {
			res.served += int64(out.NumRows())
			res.batches++
			c.Add(out)
		}
	}
	return nil
}

func printResults(w io.Writer, results []distributeResult, elapsed time.Duration) {
	tbl := tablewriter.NewWriter(w)
	tbl.SetHeader([]string{"Query", "Rows", "Rows/sec", "Batches", "Skipped", "Requested", "Hit rate"})
	tbl.SetAlignment(tablewriter.ALIGN_RIGHT)
	var total distributeResult
	for i, r := range results {
		tbl.Append(formatResult(strconv.Itoa(i), r, elapsed))
		total.served += r.served
		total.batches += r.batches
		total.skipped += r.skipped
		total.metrics.Requested += r.metrics.Requested
		total.metrics.Recycled += r.metrics.Recycled
	}
	if len(results) > 1 {
		tbl.SetFooter(formatResult("total", total, elapsed))
	}
	tbl.Render()
}

func formatResult(name string, r distributeResult, elapsed time.Duration) []string {
	return []string{
		name,
		string(crhumanize.Count(r.served, crhumanize.Compact)),
		string(crhumanize.Count(int64(float64(r.served)/elapsed.Seconds()), crhumanize.Compact)),
		string(crhumanize.Count(r.batches, crhumanize.Compact)),
		string(crhumanize.Count(r.skipped, crhumanize.Compact)),
		string(crhumanize.Count(r.metrics.Requested, crhumanize.Compact)),
		fmt.Sprintf("%.1f%%", 100*r.metrics.HitRate()),
	}
}
