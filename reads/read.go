// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package reads defines the read and read-pair records that flow through
// statistics collection, trimming and filtering.
package reads

import (
	"github.com/mottodora/atropos/encoding/fastq"
	"github.com/pkg/errors"
)

// Match describes where an adapter was found in a read. It is produced by
// the adapter-alignment stage; a nil *Match on a Read means the read was
// not trimmed for an adapter.
type Match struct {
	// Adapter is the name of the matching adapter.
	Adapter string
	// Start and End delimit the matching region of the read, [Start, End).
	Start, End int
	// Errors is the number of edits in the alignment.
	Errors int
}

// Read is one sequencing read.
type Read struct {
	// Name is the read name without the leading '@'.
	Name string
	// Seq is the base sequence.
	Seq string
	// Qual is the quality string, one symbol per base, or empty when the
	// input carries no qualities.
	Qual string
	// Merged is set when an upstream step merged the two mates into this
	// read.
	Merged bool
	// Match is set when an adapter was found and trimmed.
	Match *Match
}

// Len returns the number of bases in the read.
func (r *Read) Len() int { return len(r.Seq) }

// HasQualities reports whether the read carries quality data.
func (r *Read) HasQualities() bool { return len(r.Qual) > 0 }

// Trimmed reports whether an adapter match is attached to the read.
func (r *Read) Trimmed() bool { return r.Match != nil }

// Cut removes the first n5 and the last n3 bases (and qualities). It
// leaves an empty read when the cuts overlap.
func (r *Read) Cut(n5, n3 int) {
	start, end := n5, len(r.Seq)-n3
	if start > len(r.Seq) {
		start = len(r.Seq)
	}
	if end < start {
		end = start
	}
	r.Seq = r.Seq[start:end]
	if len(r.Qual) > 0 {
		r.Qual = r.Qual[start:end]
	}
}

// FromFASTQ builds a Read from a FASTQ record.
func FromFASTQ(f *fastq.Read) *Read {
	return &Read{Name: f.Name(), Seq: f.Seq, Qual: f.Qual}
}

// FASTQ converts the read back into a FASTQ record.
func (r *Read) FASTQ() fastq.Read {
	return fastq.Read{ID: "@" + r.Name, Seq: r.Seq, Unk: "+", Qual: r.Qual}
}

// Pair is a single-end read (R2 == nil) or a read pair.
type Pair struct {
	R1, R2 *Read
}

// Paired reports whether the pair has a second mate.
func (p Pair) Paired() bool { return p.R2 != nil }

// Mate returns R1 for i == 0 and R2 for i == 1.
func (p Pair) Mate(i int) *Read {
	switch i {
	case 0:
		return p.R1
	case 1:
		return p.R2
	}
	panic(i)
}

// Name returns the name shared by the mates.
func (p Pair) Name() string { return p.R1.Name }

// Source yields read pairs one at a time.
type Source interface {
	// Next returns the next pair. It returns false at the end of input or
	// on error; Err distinguishes the two.
	Next() (Pair, bool)
	Err() error
}

// FASTQSource adapts a fastq.PairScanner to Source.
type FASTQSource struct {
	sc     *fastq.PairScanner
	r1, r2 fastq.Read
}

// NewFASTQSource creates a Source reading from sc. The scanner must read
// at least the ID and Seq fields.
func NewFASTQSource(sc *fastq.PairScanner) *FASTQSource {
	return &FASTQSource{sc: sc}
}

// Next implements Source.
func (s *FASTQSource) Next() (Pair, bool) {
	if !s.sc.Scan(&s.r1, &s.r2) {
		return Pair{}, false
	}
	p := Pair{R1: FromFASTQ(&s.r1)}
	if s.sc.Paired() {
		p.R2 = FromFASTQ(&s.r2)
	}
	return p, true
}

// Err implements Source.
func (s *FASTQSource) Err() error {
	if err := s.sc.Err(); err != nil {
		return errors.Wrap(err, "reading FASTQ")
	}
	return nil
}

// SliceSource is a Source over in-memory pairs.
type SliceSource struct {
	pairs []Pair
	i     int
}

// NewSliceSource returns a Source that yields pairs in order.
func NewSliceSource(pairs []Pair) *SliceSource { return &SliceSource{pairs: pairs} }

// Next implements Source.
func (s *SliceSource) Next() (Pair, bool) {
	if s.i >= len(s.pairs) {
		return Pair{}, false
	}
	s.i++
	return s.pairs[s.i-1], true
}

// Err implements Source.
func (s *SliceSource) Err() error { return nil }
