// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package block

import "math/bits"

// rowBitmap marks which rows of a block are shadow rows. It answers the
// successor query the input ranges need to find the end of a data run
// without visiting every row.
type rowBitmap struct {
	words []uint64
	n     int
}

func (b *rowBitmap) init(n int) {
	nWords := (n + 63) >> 6
	if cap(b.words) >= nWords {
		b.words = b.words[:nWords]
		clear(b.words)
	} else {
		b.words = make([]uint64, nWords)
	}
	b.n = n
}

func (b *rowBitmap) get(i int) bool {
	return b.words[i>>6]&(1<<uint(i%64)) != 0
}

func (b *rowBitmap) set(i int) {
	b.words[i>>6] |= 1 << uint(i%64)
}

func (b *rowBitmap) unset(i int) {
	b.words[i>>6] &^= 1 << uint(i%64)
}

// successor returns the first set bit at or after i, or n if there is none.
func (b *rowBitmap) successor(i int) int {
	if i >= b.n {
		return b.n
	}
	wordIdx := i >> 6
	// Clear the bits below i in the first word, then count trailing zeros.
	word := b.words[wordIdx] &^ ((1 << uint(i%64)) - 1)
	for {
		if word != 0 {
			return min(wordIdx<<6+bits.TrailingZeros64(word), b.n)
		}
		wordIdx++
		if wordIdx >= len(b.words) {
			return b.n
		}
		word = b.words[wordIdx]
	}
}

// truncate clears every bit at or after n and shrinks the bitmap to n bits.
func (b *rowBitmap) truncate(n int) {
	for i := b.successor(n); i < b.n; i = b.successor(i + 1) {
		b.unset(i)
	}
	b.words = b.words[:(n+63)>>6]
	b.n = n
}
