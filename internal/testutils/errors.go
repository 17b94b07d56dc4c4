// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package testutils

import (
	"fmt"
	"testing"
)

// CheckErr can be used to simplify test code that expects no errors.
//
//	b := testutils.CheckErr(m.RequestBlock(4, 2))
func CheckErr[V any](v V, err error) V {
	if err != nil {
		panic(err)
	}
	return v
}

// Panics runs fn and returns the recovered panic rendered as a string, or the
// empty string if fn returned normally. Used by datadriven tests to print
// assertion failures as command output.
func Panics(t testing.TB, fn func()) (msg string) {
	t.Helper()
	defer func() {
		if r := recover(); r != nil {
			msg = fmt.Sprint(r)
		}
	}()
	fn()
	return ""
}
