// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package stats accumulates the read-level quality-control statistics
// reported by the trimmer: read length, GC content, per-position base and
// quality composition and, optionally, tile-resolved quality.
//
// A Collector accumulates statistics for one read stream (one mate).
// Positional tables grow on demand as longer reads are observed; nothing
// is ever re-scanned. A Manager owns the collectors of a run: one set for
// the reads as they were read (pre-trim) and one set per output
// destination for the reads that were kept (post-trim).
//
// Collectors and managers are not safe for concurrent use. A sharded run
// gives each worker its own instances and merges them afterwards with the
// Merge methods.
package stats
