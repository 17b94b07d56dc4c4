// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
)

var (
	concurrency int
	optionsPath string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "rowflow [command] (flags)",
	Short: "rowflow block pipeline benchmarking tool",
	Long:  ``,
}

func init() {
	cobra.EnableCommandSorting = false
	rootCmd.AddCommand(
		distributeCmd,
		optionsCmd,
	)

	for _, cmd := range []*cobra.Command{distributeCmd, optionsCmd} {
		cmd.Flags().StringVar(
			&optionsPath, "options", "", "path to an OPTIONS file overriding the defaults")
	}
	distributeCmd.Flags().IntVarP(
		&concurrency, "concurrency", "c", 1, "number of concurrent queries")
	distributeCmd.Flags().BoolVarP(
		&verbose, "verbose", "v", false, "log block manager activity")
	distributeCmd.Flags().IntVar(
		&distributeConfig.blocks, "blocks", distributeConfig.blocks, "number of upstream blocks per query")
	distributeCmd.Flags().IntVar(
		&distributeConfig.rows, "rows", distributeConfig.rows, "number of rows per upstream block")
	distributeCmd.Flags().IntVar(
		&distributeConfig.registers, "registers", distributeConfig.registers, "number of registers per row")
	distributeCmd.Flags().IntVar(
		&distributeConfig.shadowEvery, "shadow-every", distributeConfig.shadowEvery,
		"end a subquery iteration with a shadow row every N rows (0 disables)")
	distributeCmd.Flags().IntVar(
		&distributeConfig.clients, "clients", distributeConfig.clients, "number of distribute clients")
	distributeCmd.Flags().IntVar(
		&distributeConfig.softLimit, "soft-limit", distributeConfig.softLimit,
		"soft limit of every client call (0 means unlimited)")
	distributeCmd.Flags().BoolVar(
		&distributeConfig.scatter, "scatter", false, "send every row to every client instead of hashing")
	distributeCmd.Flags().Float64Var(
		&distributeConfig.rate, "rate", 0, "maximum upstream blocks per second per query (0 means unlimited)")
	distributeCmd.Flags().BoolVar(
		&distributeConfig.plot, "plot", false, "plot the route latency of every block")
	distributeCmd.Flags().Int64Var(
		&distributeConfig.seed, "seed", 1, "random seed for the generated values")
}

func main() {
	log.SetFlags(0)

	if err := rootCmd.Execute(); err != nil {
		// Cobra has already printed the error message.
		os.Exit(1)
	}
}
