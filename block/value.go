// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package block

// Value is the opaque payload held by a single cell of a Block. The block
// layer only ever copies and drops values; it never looks inside them. A nil
// Value is an empty cell.
type Value interface {
	// Clone returns an independent copy of the value. Releasing the copy must
	// not affect the original and vice versa.
	Clone() Value
	// Release drops any resources held by the value. The value must not be
	// used afterwards.
	Release()
}

func releaseValue(v Value) {
	if v != nil {
		v.Release()
	}
}
