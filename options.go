// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package rowflow

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/rowflow/block"
	"github.com/cockroachdb/rowflow/distribute"
	"github.com/cockroachdb/rowflow/internal/base"
)

// Logger exports the base.Logger type.
type Logger = base.Logger

// DefaultLogger exports the base.DefaultLogger type.
type DefaultLogger = base.DefaultLogger

// Options holds the optional parameters for a query execution context.
//
// Options are serialized in an INI-like format:
//
//	[Version]
//	  rowflow_version=0.1
//
//	[Options]
//	  cache_slots=1
//	  ...
type Options struct {
	// MaxBatchSize is the maximum number of rows of the blocks a distributing
	// executor serves to its clients.
	//
	// The default value is 1000.
	MaxBatchSize int

	// CacheSlots is the number of returned blocks the block manager keeps for
	// reuse, at most one per shape. A negative value disables recycling.
	//
	// The default value is 1.
	CacheSlots int

	// MemoryLimit bounds the number of cells of all blocks handed out and not
	// yet returned. Zero means unlimited.
	MemoryLimit int64

	// Synchronized makes the block manager safe for use by concurrently
	// executing queries. A context is normally used from one goroutine.
	Synchronized bool

	// QueueWarnThreshold is the number of rows queued for a single
	// distribute client beyond which a slow client is logged. Zero disables
	// the warning.
	QueueWarnThreshold int

	// Logger used to write log messages.
	//
	// The default logger uses the Go standard library log package.
	Logger Logger
}

// EnsureDefaults ensures that the default values for all options are set if a
// valid value was not already specified.
func (o *Options) EnsureDefaults() {
	if o.MaxBatchSize <= 0 {
		o.MaxBatchSize = distribute.DefaultMaxBatchSize
	}
	if o.CacheSlots == 0 {
		o.CacheSlots = block.DefaultCacheSlots
	}
	if o.Logger == nil {
		o.Logger = DefaultLogger{}
	}
}

// Clone creates a shallow-copy of the supplied options.
func (o *Options) Clone() *Options {
	if o == nil {
		return &Options{}
	}
	n := *o
	return &n
}

func (o *Options) managerOptions() block.ManagerOptions {
	return block.ManagerOptions{
		CacheSlots:   o.CacheSlots,
		MemoryLimit:  o.MemoryLimit,
		Synchronized: o.Synchronized,
		Logger:       o.Logger,
	}
}

func (o *Options) routerOptions() distribute.RouterOptions {
	return distribute.RouterOptions{
		MaxBatchSize:       o.MaxBatchSize,
		QueueWarnThreshold: o.QueueWarnThreshold,
		Logger:             o.Logger,
	}
}

func (o *Options) String() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "[Version]\n")
	fmt.Fprintf(&buf, "  rowflow_version=0.1\n")
	fmt.Fprintf(&buf, "\n")
	fmt.Fprintf(&buf, "[Options]\n")
	fmt.Fprintf(&buf, "  cache_slots=%d\n", o.CacheSlots)
	fmt.Fprintf(&buf, "  max_batch_size=%d\n", o.MaxBatchSize)
	fmt.Fprintf(&buf, "  memory_limit=%d\n", o.MemoryLimit)
	fmt.Fprintf(&buf, "  queue_warn_threshold=%d\n", o.QueueWarnThreshold)
	fmt.Fprintf(&buf, "  synchronized=%t\n", o.Synchronized)
	return buf.String()
}

// parseOptions takes options serialized by Options.String() and parses them
// into keys and values, calling visitKeyValue for every key-value pair.
// Blank lines and lines starting with ';' or '#' are skipped.
func parseOptions(s string, visitKeyValue func(section, key, value string) error) error {
	var section string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if len(line) == 0 || line[0] == ';' || line[0] == '#' {
			continue
		}
		n := len(line)
		if line[0] == '[' && line[n-1] == ']' {
			section = line[1 : n-1]
			continue
		}

		pos := strings.Index(line, "=")
		if pos < 0 {
			const maxLen = 50
			if len(line) > maxLen {
				line = line[:maxLen-3] + "..."
			}
			return errors.Errorf("rowflow: invalid key=value syntax: %q", errors.Safe(line))
		}
		key := strings.TrimSpace(line[:pos])
		value := strings.TrimSpace(line[pos+1:])
		if err := visitKeyValue(section, key, value); err != nil {
			return err
		}
	}
	return nil
}

// ParseHooks contains callbacks that influence option parsing.
type ParseHooks struct {
	// SkipUnknown is called for keys the parser does not know. Returning true
	// ignores the key instead of failing.
	SkipUnknown func(name, value string) bool
}

// Parse parses the options from the specified string. Options not present
// in s keep their current value.
func (o *Options) Parse(s string, hooks *ParseHooks) error {
	return parseOptions(s, func(section, key, value string) error {
		switch {
		case section == "Version":
			switch key {
			case "rowflow_version":
			default:
				if hooks != nil && hooks.SkipUnknown != nil && hooks.SkipUnknown(section+"."+key, value) {
					return nil
				}
				return errors.Errorf("rowflow: unknown option: %s.%s",
					errors.Safe(section), errors.Safe(key))
			}
			return nil

		case section == "Options":
			var err error
			switch key {
			case "cache_slots":
				o.CacheSlots, err = strconv.Atoi(value)
			case "max_batch_size":
				o.MaxBatchSize, err = strconv.Atoi(value)
			case "memory_limit":
				o.MemoryLimit, err = strconv.ParseInt(value, 10, 64)
			case "queue_warn_threshold":
				o.QueueWarnThreshold, err = strconv.Atoi(value)
			case "synchronized":
				o.Synchronized, err = strconv.ParseBool(value)
			default:
				if hooks != nil && hooks.SkipUnknown != nil && hooks.SkipUnknown(section+"."+key, value) {
					return nil
				}
				return errors.Errorf("rowflow: unknown option: %s.%s",
					errors.Safe(section), errors.Safe(key))
			}
			return err
		}
		if hooks != nil && hooks.SkipUnknown != nil && hooks.SkipUnknown(section+"."+key, value) {
			return nil
		}
		return errors.Errorf("rowflow: unknown section %q or key %q", errors.Safe(section), errors.Safe(key))
	})
}

// Validate verifies that the options are mutually consistent. For example,
// a memory limit must leave room for at least one joined block.
func (o *Options) Validate() error {
	// Note that we can presume Options.EnsureDefaults has been called, so there
	// is no need to check for zero values.

	var buf strings.Builder
	if o.MaxBatchSize < 1 {
		fmt.Fprintf(&buf, "MaxBatchSize (%d) must be >= 1\n", o.MaxBatchSize)
	}
	if o.MemoryLimit < 0 {
		fmt.Fprintf(&buf, "MemoryLimit (%d) must be >= 0\n", o.MemoryLimit)
	}
	if o.MemoryLimit > 0 && o.MemoryLimit < int64(o.MaxBatchSize) {
		fmt.Fprintf(&buf, "MemoryLimit (%d) must be >= MaxBatchSize (%d)\n", o.MemoryLimit, o.MaxBatchSize)
	}
	if o.QueueWarnThreshold < 0 {
		fmt.Fprintf(&buf, "QueueWarnThreshold (%d) must be >= 0\n", o.QueueWarnThreshold)
	}
	if buf.Len() == 0 {
		return nil
	}
	return errors.New(buf.String())
}
