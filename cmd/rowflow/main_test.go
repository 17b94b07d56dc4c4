// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestOptionsCmd(t *testing.T) {
	defer func() { optionsPath = "" }()

	out, err := runCmd(t, "options")
	require.NoError(t, err)
	require.Contains(t, out, "max_batch_size=1000\n")
	require.Contains(t, out, "cache_slots=1\n")

	path := filepath.Join(t.TempDir(), "OPTIONS")
	require.NoError(t, os.WriteFile(path, []byte(`
[Options]
  max_batch_size=7
  memory_limit=4096
  future_option=1
`), 0644))
	out, err = runCmd(t, "options", "--options", path)
	require.NoError(t, err)
	require.Contains(t, out, "max_batch_size=7\n")
	require.Contains(t, out, "memory_limit=4096\n")

	require.NoError(t, os.WriteFile(path, []byte("[Options]\n  max_batch_size=-5\n  memory_limit=-1\n"), 0644))
	_, err = runCmd(t, "options", "--options", path)
	require.ErrorContains(t, err, "MemoryLimit (-1) must be >= 0")
}

func TestDistributeCmd(t *testing.T) {
	defer func() { optionsPath = "" }()

	for _, args := range [][]string{
		{"--blocks", "5", "--rows", "50", "--clients", "2"},
		{"--blocks", "5", "--rows", "50", "--clients", "3", "--scatter", "--shadow-every", "7", "--soft-limit", "4"},
		{"-c", "4", "--blocks", "3", "--rows", "20", "--plot"},
	} {
		out, err := runCmd(t, append([]string{"distribute"}, args...)...)
		require.NoError(t, err, out)
		require.Contains(t, out, "route")
		require.Contains(t, out, "drain")
	}
}
