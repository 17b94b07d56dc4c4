// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package base

import "github.com/cockroachdb/errors"

// ErrResourceExhausted is the mark carried by errors returned when a block
// allocation would exceed the configured memory limit.
var ErrResourceExhausted = errors.New("rowflow: resource exhausted")

// ErrRowInvalidated is returned when a row handle is dereferenced after its
// backing block was returned to the block manager and reused.
var ErrRowInvalidated = errors.New("rowflow: row handle invalidated")

// ResourceExhaustedf formats an error and marks it as ErrResourceExhausted.
func ResourceExhaustedf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrResourceExhausted)
}

// IsResourceExhausted returns true if the error is or wraps an error marked
// as ErrResourceExhausted.
func IsResourceExhausted(err error) bool {
	return errors.Is(err, ErrResourceExhausted)
}
