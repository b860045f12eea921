// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package filters

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/mottodora/atropos/reads"
)

// PairMode selects how a filter treats the second mate.
type PairMode int

const (
	// SingleEnd runs have no second mate.
	SingleEnd PairMode = iota
	// PairFirst inspects only the first mate of a pair; the pair is
	// discarded if it fails. This is the backward-compatible mode.
	PairFirst
	// PairBoth inspects both mates and discards the pair when at least
	// MinAffected of them fail.
	PairBoth
)

var pairModeNames = [...]string{"single", "first", "both"}

func (m PairMode) String() string {
	if m < 0 || int(m) >= len(pairModeNames) {
		return "invalid"
	}
	return pairModeNames[m]
}

// ParsePairMode parses "single", "first" or "both".
func ParsePairMode(s string) (PairMode, error) {
	for i, name := range pairModeNames {
		if s == name {
			return PairMode(i), nil
		}
	}
	return SingleEnd, errors.E(errors.Invalid, "invalid pair filter mode:", s)
}

const (
	// PairFilterAny discards a pair when either mate fails.
	PairFilterAny = 1
	// PairFilterBoth discards a pair when both mates fail.
	PairFilterBoth = 2
)

// Wrapper applies a predicate to a read or pair and counts discards.
type Wrapper struct {
	id   ID
	pred Predicate
	// minAffected is 0 for the single-mate policy.
	minAffected int
	discarded   int64
}

// NewSingleWrapper wraps pred with the single-mate policy: only the first
// read is inspected.
func NewSingleWrapper(id ID, pred Predicate) *Wrapper {
	return &Wrapper{id: id, pred: pred}
}

// NewPairedWrapper wraps pred with the paired policy: the pair is
// discarded when at least minAffected mates (1 or 2) fail. A missing
// second mate (nil r2 in Filter) never counts as a failure.
func NewPairedWrapper(id ID, pred Predicate, minAffected int) (*Wrapper, error) {
	if minAffected != PairFilterAny && minAffected != PairFilterBoth {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("min_affected must be 1 or 2, got %d", minAffected))
	}
	return &Wrapper{id: id, pred: pred, minAffected: minAffected}, nil
}

// ID returns the filter identifier.
func (w *Wrapper) ID() ID { return w.id }

// Name returns the filter display name.
func (w *Wrapper) Name() string { return w.id.String() }

// Discarded returns the number of reads or pairs discarded so far.
func (w *Wrapper) Discarded() int64 { return w.discarded }

// Filter returns true, and counts a discard, if the read or pair should
// be discarded. r2 is nil for single-end reads.
func (w *Wrapper) Filter(r1, r2 *reads.Read) bool {
	if w.discard(r1, r2) {
		w.discarded++
		return true
	}
	return false
}

func (w *Wrapper) discard(r1, r2 *reads.Read) bool {
	if w.minAffected == 0 {
		return w.pred.Discard(r1)
	}
	failures := 0
	if w.pred.Discard(r1) {
		failures++
	}
	// The second mate can only change the outcome when exactly one more
	// failure is needed.
	if w.minAffected-failures == 1 && r2 != nil && w.pred.Discard(r2) {
		failures++
	}
	return failures >= w.minAffected
}

// Factory wraps predicates with the policy of the run. The policy is
// chosen once per run, not per filter.
type Factory struct {
	Mode        PairMode
	MinAffected int
}

// Wrap wraps pred with the factory's policy.
func (f Factory) Wrap(id ID, pred Predicate) (*Wrapper, error) {
	if f.Mode == PairBoth {
		return NewPairedWrapper(id, pred, f.MinAffected)
	}
	return NewSingleWrapper(id, pred), nil
}
