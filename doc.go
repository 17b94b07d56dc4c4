// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package rowflow provides the row and block substrate of a pull-based query
// executor. Executors exchange fixed-shape blocks of registers; rows are
// either data rows or shadow rows that mark the end of a subquery iteration.
//
// The substrate is split into packages:
//
//   - block: blocks, their recycling manager and collectors
//   - row: positioned views of input rows and an output row writer
//   - input: ranges and matrices over upstream blocks
//   - flow: execution states, skip results and call limits
//   - distribute: routing of upstream rows to independently paced clients
//
// A Context ties them together for one query:
//
//	ctx, err := rowflow.NewContext(&rowflow.Options{MaxBatchSize: 100})
//	if err != nil {
//		return err
//	}
//	defer ctx.Close()
//	out, err := ctx.NewOutputRow(100, 2)
//	...
package rowflow
