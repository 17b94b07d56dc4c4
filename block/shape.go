// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package block

import "github.com/cockroachdb/redact"

// Shape is the fixed geometry of a Block. The manager recycles blocks keyed
// by their shape.
type Shape struct {
	Rows      int
	Registers int
}

// Cells returns the number of cells in a block of this shape.
func (s Shape) Cells() int {
	return s.Rows * s.Registers
}

// String implements fmt.Stringer.
func (s Shape) String() string {
	return redact.StringWithoutMarkers(s)
}

// SafeFormat implements redact.SafeFormatter.
func (s Shape) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Printf("%dx%d", redact.SafeInt(s.Rows), redact.SafeInt(s.Registers))
}
