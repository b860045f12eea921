// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package filters

import (
	"github.com/grailbio/base/errors"
	"github.com/mottodora/atropos/reads"
)

// Chain holds filters in the order they were added. The order is the
// evaluation order.
type Chain struct {
	factory  Factory
	wrappers []*Wrapper
}

// NewChain creates an empty chain whose filters are wrapped by f.
func NewChain(f Factory) *Chain {
	return &Chain{factory: f}
}

// Add wraps pred and appends it under id. Adding an id that is already
// present replaces its predicate and keeps its position and count.
func (c *Chain) Add(id ID, pred Predicate) error {
	w, err := c.factory.Wrap(id, pred)
	if err != nil {
		return err
	}
	for i, old := range c.wrappers {
		if old.id == id {
			w.discarded = old.discarded
			c.wrappers[i] = w
			return nil
		}
	}
	c.wrappers = append(c.wrappers, w)
	return nil
}

// Len returns the number of filters.
func (c *Chain) Len() int { return len(c.wrappers) }

// Contains reports whether a filter with the given id was added.
func (c *Chain) Contains(id ID) bool { return c.Get(id) != nil }

// Get returns the wrapper for id, or nil.
func (c *Chain) Get(id ID) *Wrapper {
	for _, w := range c.wrappers {
		if w.id == id {
			return w
		}
	}
	return nil
}

// Filter runs the filters in order on a read (r2 == nil) or pair and
// returns the id of the first one that discards it, or NoFilter. Filters
// after the first discarding one are not run.
func (c *Chain) Filter(r1, r2 *reads.Read) ID {
	for _, w := range c.wrappers {
		if w.Filter(r1, r2) {
			return w.id
		}
	}
	return NoFilter
}

// FilterPair is Filter for a reads.Pair.
func (c *Chain) FilterPair(p reads.Pair) ID { return c.Filter(p.R1, p.R2) }

// Summary is the discard count of one filter.
type Summary struct {
	ID        ID
	Name      string
	Discarded int64
}

// Summarize returns the discard count of every filter, in chain order.
func (c *Chain) Summarize() []Summary {
	s := make([]Summary, len(c.wrappers))
	for i, w := range c.wrappers {
		s[i] = Summary{ID: w.id, Name: w.Name(), Discarded: w.discarded}
	}
	return s
}

// Merge adds the discard counts of o, a chain built from the same
// configuration, to c.
func (c *Chain) Merge(o *Chain) error {
	for _, ow := range o.wrappers {
		w := c.Get(ow.id)
		if w == nil {
			return errors.E(errors.Invalid, "merging chains: filter", ow.Name(), "not configured")
		}
		w.discarded += ow.discarded
	}
	return nil
}

// Opts selects the filters of a run.
type Opts struct {
	// Mode and MinAffected select the pairing policy.
	Mode        PairMode
	MinAffected int
	// DiscardMerged discards reads merged from both mates.
	DiscardMerged bool
	// MinLength, when positive, discards reads shorter than it.
	MinLength int
	// MaxLength, when positive, discards reads longer than it.
	MaxLength int
	// FilterN enables the N-content filter.
	FilterN bool
	// MaxN discards reads with more Ns than it, when FilterN is set (a
	// proportion if below 1).
	MaxN float64
	// DiscardTrimmed discards reads with an adapter match.
	DiscardTrimmed bool
	// DiscardUntrimmed discards reads without an adapter match.
	DiscardUntrimmed bool
}

// DefaultOpts runs no filters on single-end reads.
var DefaultOpts = Opts{
	Mode:        SingleEnd,
	MinAffected: PairFilterAny,
}

// New builds the chain selected by opts. Filters are added in a fixed
// order: merged, too_short, too_long, too_many_n, trimmed, untrimmed.
func New(opts Opts) (*Chain, error) {
	c := NewChain(Factory{Mode: opts.Mode, MinAffected: opts.MinAffected})
	// Validate the policy even if no filter is configured.
	if _, err := c.factory.Wrap(NoFilter, NoopFilter{}); err != nil {
		return nil, err
	}
	type filter struct {
		id   ID
		pred Predicate
	}
	var fs []filter
	if opts.DiscardMerged {
		fs = append(fs, filter{Merged, MergedFilter{}})
	}
	if opts.MinLength > 0 {
		fs = append(fs, filter{TooShort, TooShortFilter{MinLength: opts.MinLength}})
	}
	if opts.MaxLength > 0 {
		fs = append(fs, filter{TooLong, TooLongFilter{MaxLength: opts.MaxLength}})
	}
	if opts.FilterN {
		nf, err := NewNContentFilter(opts.MaxN)
		if err != nil {
			return nil, err
		}
		fs = append(fs, filter{TooManyN, nf})
	}
	if opts.DiscardTrimmed {
		fs = append(fs, filter{Trimmed, TrimmedFilter{}})
	}
	if opts.DiscardUntrimmed {
		fs = append(fs, filter{Untrimmed, UntrimmedFilter{}})
	}
	for _, f := range fs {
		if err := c.Add(f.id, f.pred); err != nil {
			return nil, err
		}
	}
	return c, nil
}
