// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/rowflow"
	"github.com/spf13/cobra"
)

var optionsCmd = &cobra.Command{
	Use:   "options",
	Short: "print the effective options",
	Long: `
Print the options a query context runs with, in the OPTIONS file format.
With --options the file is parsed and validated first.
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := loadOptions()
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), opts.String())
		return nil
	},
}

// loadOptions returns the default options, overridden by the file named by
// --options.
func loadOptions() (*rowflow.Options, error) {
	opts := &rowflow.Options{}
	if optionsPath != "" {
		data, err := os.ReadFile(optionsPath)
		if err != nil {
			return nil, err
		}
		hooks := &rowflow.ParseHooks{
			SkipUnknown: func(name, value string) bool {
				fmt.Fprintf(os.Stderr, "ignoring unknown option %s=%s\n", name, value)
				return true
			},
		}
		if err := opts.Parse(string(data), hooks); err != nil {
			return nil, errors.Wrapf(err, "parsing %s", optionsPath)
		}
	}
	opts.EnsureDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}
