// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package testutils

import (
	"fmt"
	"strings"
	"sync"
	"testing"
)

// Logger is a logger that writes to a testing.TB and remembers every line so
// tests can assert on what was logged.
type Logger struct {
	T  testing.TB
	mu struct {
		sync.Mutex
		lines []string
	}
}

// NewLogger returns a Logger writing to t.
func NewLogger(t testing.TB) *Logger {
	return &Logger{T: t}
}

func (l *Logger) record(format string, args ...interface{}) string {
	s := fmt.Sprintf(format, args...)
	l.mu.Lock()
	l.mu.lines = append(l.mu.lines, s)
	l.mu.Unlock()
	return s
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.T.Log(l.record(format, args...))
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.T.Log(l.record(format, args...))
}

func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.T.Helper()
	l.T.Fatal(l.record(format, args...))
}

// Lines returns a copy of the logged lines.
func (l *Logger) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.mu.lines...)
}

// Contains returns true if any logged line contains substr.
func (l *Logger) Contains(substr string) bool {
	for _, line := range l.Lines() {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}
