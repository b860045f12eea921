// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package filters decides, for each read or read pair, whether it is kept
// or discarded and by which rule.
//
// A Predicate tests one read. A Wrapper applies a predicate to a read or a
// pair under the run's pairing policy and counts discards. A Chain holds
// wrappers in configuration order and returns the identifier of the first
// one that discards, or NoFilter.
package filters

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/simd"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/mottodora/atropos/reads"
)

// ID identifies a filter. It is the disposition of a read or pair.
type ID int

const (
	// NoFilter is the disposition of kept reads.
	NoFilter ID = iota
	// TooShort discards reads shorter than a minimum length.
	TooShort
	// TooLong discards reads longer than a maximum length.
	TooLong
	// TooManyN discards reads with too many Ns.
	TooManyN
	// Merged discards reads merged from both mates.
	Merged
	// Untrimmed discards reads without an adapter match.
	Untrimmed
	// Trimmed discards reads with an adapter match.
	Trimmed
)

var idNames = [...]string{"NoFilter", "too_short", "too_long", "too_many_n", "merged", "untrimmed", "trimmed"}

// String returns the display name used in reports.
func (id ID) String() string {
	if id < 0 || int(id) >= len(idNames) {
		return fmt.Sprintf("filter(%d)", int(id))
	}
	return idNames[id]
}

// Predicate tests a single read.
type Predicate interface {
	// Discard returns true if the read should be discarded.
	Discard(r *reads.Read) bool
}

// TooShortFilter discards reads shorter than MinLength.
type TooShortFilter struct{ MinLength int }

// Discard implements Predicate.
func (f TooShortFilter) Discard(r *reads.Read) bool { return r.Len() < f.MinLength }

// TooLongFilter discards reads longer than MaxLength.
type TooLongFilter struct{ MaxLength int }

// Discard implements Predicate.
func (f TooLongFilter) Discard(r *reads.Read) bool { return r.Len() > f.MaxLength }

// NContentFilter discards reads with too many Ns (either case). A cutoff
// below 1 is a proportion of the read length; otherwise it is a count.
// Either way the comparison is strict, so a count cutoff of 1 keeps reads
// with a single N.
type NContentFilter struct {
	cutoff       float64
	isProportion bool
}

// NewNContentFilter creates an N-content filter. The cutoff must not be
// negative.
func NewNContentFilter(cutoff float64) (*NContentFilter, error) {
	if cutoff < 0 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("N cutoff must not be negative, got %v", cutoff))
	}
	return &NContentFilter{cutoff: cutoff, isProportion: cutoff < 1}, nil
}

// Discard implements Predicate.
func (f *NContentFilter) Discard(r *reads.Read) bool {
	n := simd.Count2Bytes(gunsafe.StringToBytes(r.Seq), 'N', 'n')
	if f.isProportion {
		if r.Len() == 0 {
			return false
		}
		return float64(n)/float64(r.Len()) > f.cutoff
	}
	return float64(n) > f.cutoff
}

// MergedFilter discards reads merged from both mates.
type MergedFilter struct{}

// Discard implements Predicate.
func (MergedFilter) Discard(r *reads.Read) bool { return r.Merged }

// UntrimmedFilter discards reads without an adapter match.
type UntrimmedFilter struct{}

// Discard implements Predicate.
func (UntrimmedFilter) Discard(r *reads.Read) bool { return r.Match == nil }

// TrimmedFilter discards reads with an adapter match.
type TrimmedFilter struct{}

// Discard implements Predicate.
func (TrimmedFilter) Discard(r *reads.Read) bool { return r.Match != nil }

// NoopFilter never discards.
type NoopFilter struct{}

// Discard implements Predicate.
func (NoopFilter) Discard(*reads.Read) bool { return false }
