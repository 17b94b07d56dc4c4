// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package value provides concrete cell values for blocks. The block layer
// treats values as opaque; these types exist for routing, tests and the
// rowflow tool.
package value

import (
	"encoding/binary"
	"strconv"

	"github.com/cockroachdb/rowflow/block"
)

// Keyer is implemented by values that can be hashed for routing. AppendKey
// appends a byte encoding of the value that is equal for equal values.
type Keyer interface {
	AppendKey(dst []byte) []byte
}

const (
	tagInt byte = iota + 1
	tagString
	tagBytes
)

// Int is an integer value.
type Int int64

var _ block.Value = Int(0)

// Clone implements block.Value.
func (i Int) Clone() block.Value { return i }

// Release implements block.Value.
func (Int) Release() {}

// AppendKey implements Keyer.
func (i Int) AppendKey(dst []byte) []byte {
	dst = append(dst, tagInt)
	return binary.BigEndian.AppendUint64(dst, uint64(i))
}

func (i Int) String() string {
	return strconv.FormatInt(int64(i), 10)
}

// String is a string value.
type String string

var _ block.Value = String("")

// Clone implements block.Value.
func (s String) Clone() block.Value { return s }

// Release implements block.Value.
func (String) Release() {}

// AppendKey implements Keyer.
func (s String) AppendKey(dst []byte) []byte {
	dst = append(dst, tagString)
	dst = binary.AppendUvarint(dst, uint64(len(s)))
	return append(dst, s...)
}

func (s String) String() string {
	return strconv.Quote(string(s))
}

// Bytes is a byte slice value. Clone copies the slice.
type Bytes struct {
	b []byte
}

var _ block.Value = (*Bytes)(nil)

// MakeBytes returns a value holding a copy of b.
func MakeBytes(b []byte) *Bytes {
	return &Bytes{b: append([]byte(nil), b...)}
}

// Bytes returns the underlying bytes. They must not be modified.
func (v *Bytes) Bytes() []byte {
	return v.b
}

// Clone implements block.Value.
func (v *Bytes) Clone() block.Value {
	return MakeBytes(v.b)
}

// Release implements block.Value.
func (v *Bytes) Release() {
	v.b = nil
}

// AppendKey implements Keyer.
func (v *Bytes) AppendKey(dst []byte) []byte {
	dst = append(dst, tagBytes)
	dst = binary.AppendUvarint(dst, uint64(len(v.b)))
	return append(dst, v.b...)
}

func (v *Bytes) String() string {
	return strconv.Quote(string(v.b))
}

// AppendKey appends the routing key of v to dst. Empty cells and values that
// do not implement Keyer encode as a single zero byte.
func AppendKey(dst []byte, v block.Value) []byte {
	if k, ok := v.(Keyer); ok {
		return k.AppendKey(dst)
	}
	return append(dst, 0)
}
