// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package flow

import (
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
)

// SkipResult counts the rows an upstream discarded without materializing
// them, separately for every enclosing subquery level. Level 0 is the
// outermost query; the last level is the one the current executor runs in.
//
// The zero value is a SkipResult with a single level and nothing skipped.
type SkipResult struct {
	// levels[i] is the number of rows skipped on subquery level i. An empty
	// slice is equivalent to a single zero level.
	levels []int
}

func (s *SkipResult) ensureLevel() {
	if len(s.levels) == 0 {
		s.levels = append(s.levels, 0)
	}
}

// SubqueryDepth returns the number of levels tracked, at least 1.
func (s SkipResult) SubqueryDepth() int {
	return max(len(s.levels), 1)
}

// Skipped returns the number of rows skipped on the current level.
func (s SkipResult) Skipped() int {
	if len(s.levels) == 0 {
		return 0
	}
	return s.levels[len(s.levels)-1]
}

// SkippedOnLevel returns the number of rows skipped on the given level.
func (s SkipResult) SkippedOnLevel(level int) int {
	if level >= len(s.levels) {
		if level == 0 {
			return 0
		}
		panic(errors.AssertionFailedf("skip level %d out of range [0, %d)", level, s.SubqueryDepth()))
	}
	return s.levels[level]
}

// DidSkip records n rows skipped on the current level.
func (s *SkipResult) DidSkip(n int) {
	s.ensureLevel()
	s.levels[len(s.levels)-1] += n
}

// DidSkipSubquery records n rows skipped on the subquery level that is depth
// levels above the current one. Depth 0 is the current level.
func (s *SkipResult) DidSkipSubquery(n, depth int) {
	s.ensureLevel()
	i := len(s.levels) - 1 - depth
	if i < 0 {
		panic(errors.AssertionFailedf("skip depth %d exceeds subquery depth %d", depth, len(s.levels)))
	}
	s.levels[i] += n
}

// IncrementSubquery enters a new, innermost subquery level.
func (s *SkipResult) IncrementSubquery() {
	s.ensureLevel()
	s.levels = append(s.levels, 0)
}

// DecrementSubquery leaves the innermost subquery level, dropping its count.
func (s *SkipResult) DecrementSubquery() {
	if len(s.levels) <= 1 {
		panic(errors.AssertionFailedf("cannot leave the outermost skip level"))
	}
	s.levels = s.levels[:len(s.levels)-1]
}

// NothingSkipped returns true if no level recorded a skipped row.
func (s SkipResult) NothingSkipped() bool {
	for _, n := range s.levels {
		if n != 0 {
			return false
		}
	}
	return true
}

// Merge adds the counts of other to s level by level, growing s to the depth
// of other if needed. If excludeTopLevel is set, the innermost level of other
// is not added.
func (s *SkipResult) Merge(other SkipResult, excludeTopLevel bool) {
	s.ensureLevel()
	for len(s.levels) < len(other.levels) {
		s.levels = append(s.levels, 0)
	}
	for i, n := range other.levels {
		if excludeTopLevel && i == len(other.levels)-1 {
			continue
		}
		s.levels[i] += n
	}
}

// MergeOnlyTopLevel adds the innermost count of other to the innermost count
// of s.
func (s *SkipResult) MergeOnlyTopLevel(other SkipResult) {
	s.DidSkip(other.Skipped())
}

// Reset zeroes every level but keeps the depth.
func (s *SkipResult) Reset() {
	for i := range s.levels {
		s.levels[i] = 0
	}
}

// Clone returns a copy of s that shares no memory with it.
func (s SkipResult) Clone() SkipResult {
	return SkipResult{levels: slices.Clone(s.levels)}
}

// Equal returns true if both results track the same depth and counts.
func (s SkipResult) Equal(other SkipResult) bool {
	if s.SubqueryDepth() != other.SubqueryDepth() {
		return false
	}
	for i := 0; i < s.SubqueryDepth(); i++ {
		if s.SkippedOnLevel(i) != other.SkippedOnLevel(i) {
			return false
		}
	}
	return true
}

// String implements fmt.Stringer.
func (s SkipResult) String() string {
	return redact.StringWithoutMarkers(s)
}

// SafeFormat implements redact.SafeFormatter.
func (s SkipResult) SafeFormat(w redact.SafePrinter, _ rune) {
	w.SafeString("[")
	for i := 0; i < s.SubqueryDepth(); i++ {
		if i > 0 {
			w.SafeString(" ")
		}
		w.Print(redact.SafeInt(s.SkippedOnLevel(i)))
	}
	w.SafeString("]")
}
