// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package block

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func TestRowBitmap(t *testing.T) {
	seed := uint64(1)
	t.Logf("seed: %d", seed)
	rng := rand.New(rand.NewSource(seed))

	for iter := 0; iter < 50; iter++ {
		n := 1 + rng.Intn(300)
		var b rowBitmap
		b.init(n)
		ref := make([]bool, n)
		for i := 0; i < n/3; i++ {
			j := rng.Intn(n)
			ref[j] = true
			b.set(j)
		}
		if n > 1 {
			j := rng.Intn(n)
			ref[j] = false
			b.unset(j)
		}
		for i := 0; i <= n; i++ {
			want := n
			for j := i; j < n; j++ {
				if ref[j] {
					want = j
					break
				}
			}
			require.Equal(t, want, b.successor(i), "n=%d i=%d", n, i)
			if i < n {
				require.Equal(t, ref[i], b.get(i))
			}
		}

		k := rng.Intn(n + 1)
		b.truncate(k)
		require.Equal(t, k, b.n)
		// Reinitializing clears every bit, including the ones beyond the
		// truncated length.
		b.init(n)
		require.Equal(t, n, b.successor(0))
	}
}
