// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package flow defines the status and bookkeeping values exchanged between
// executors and the scheduler that pulls them: the executor state, the
// per-subquery skip counters and the call a client issues to request rows.
package flow

import (
	"fmt"

	"github.com/cockroachdb/redact"
)

// State is the only status channel from an executor back to the scheduler.
type State int8

const (
	// HasMore indicates that more rows may still arrive.
	HasMore State = iota
	// Done indicates that this is the final batch for the current boundary.
	Done
)

// String implements fmt.Stringer.
func (s State) String() string {
	return redact.StringWithoutMarkers(s)
}

// SafeFormat implements redact.SafeFormatter.
func (s State) SafeFormat(w redact.SafePrinter, _ rune) {
	switch s {
	case HasMore:
		w.SafeString("HASMORE")
	case Done:
		w.SafeString("DONE")
	default:
		w.Printf("State(%d)", redact.SafeInt(s))
	}
}

// ParseState parses the output of State.String.
func ParseState(s string) (State, error) {
	switch s {
	case "HASMORE":
		return HasMore, nil
	case "DONE":
		return Done, nil
	default:
		return 0, fmt.Errorf("unknown executor state %q", s)
	}
}
