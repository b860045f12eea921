// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package trim runs reads through statistics collection, trimming and
// filtering.
//
// Each read or pair is first added to the pre-trim statistics, then passed
// through the trimming modifiers, then through the filter chain. A kept
// pair is written to its destination and added to the post-trim statistics
// of that destination. A Processor does this for one worker; Run drives one
// or more processors over a Source and merges their results.
package trim

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/mottodora/atropos/filters"
	"github.com/mottodora/atropos/reads"
	"github.com/mottodora/atropos/stats"
)

// DefaultDestination is the destination of kept reads when Opts.Destination
// is empty.
const DefaultDestination = "default"

// Opts configures a run.
type Opts struct {
	// Paired is set for paired-end input. It overrides Stats.Paired.
	Paired bool
	// Stats configures statistics collection.
	Stats stats.ManagerOpts
	// Filters selects the filter chain.
	Filters filters.Opts
	// Cut5 and Cut3 are the number of bases removed from the 5' and 3' ends
	// of each mate before filtering.
	Cut5, Cut3 [2]int
	// Destination names the output that kept reads are written to.
	Destination string
	// Parallelism is the number of shards. Values below 2 run sequentially.
	Parallelism int
}

// DefaultOpts collects pre- and post-trim statistics and runs no filter.
var DefaultOpts = Opts{
	Stats:       stats.DefaultManagerOpts,
	Filters:     filters.DefaultOpts,
	Destination: DefaultDestination,
	Parallelism: 1,
}

// Processor owns the statistics and filters of one worker. It is not safe
// for concurrent use.
type Processor struct {
	dest      string
	paired    bool
	stats     *stats.Manager
	chain     *filters.Chain
	modifiers []Modifier

	records      int64
	totalBP      [2]int64
	dispositions map[filters.ID]int64
}

// NewProcessor creates a processor. The modifiers run in order after the
// cutter selected by opts.
func NewProcessor(opts Opts, modifiers ...Modifier) (*Processor, error) {
	statsOpts := opts.Stats
	statsOpts.Paired = opts.Paired
	m, err := stats.NewManager(statsOpts)
	if err != nil {
		return nil, err
	}
	chain, err := filters.New(opts.Filters)
	if err != nil {
		return nil, err
	}
	dest := opts.Destination
	if dest == "" {
		dest = DefaultDestination
	}
	var mods []Modifier
	if c := (Cutter{Cut5: opts.Cut5, Cut3: opts.Cut3}); c.Enabled() {
		if err := validateCuts(c); err != nil {
			return nil, err
		}
		mods = append(mods, c)
	}
	mods = append(mods, modifiers...)
	return &Processor{
		dest:         dest,
		paired:       opts.Paired,
		stats:        m,
		chain:        chain,
		modifiers:    mods,
		dispositions: map[filters.ID]int64{},
	}, nil
}

func validateCuts(c Cutter) error {
	for i := 0; i < 2; i++ {
		if c.Cut5[i] < 0 || c.Cut3[i] < 0 {
			return errors.E(errors.Invalid, fmt.Sprintf("read %d: cut lengths must not be negative, got %d and %d", i+1, c.Cut5[i], c.Cut3[i]))
		}
	}
	return nil
}

// Destination returns the destination of kept pairs.
func (p *Processor) Destination() string { return p.dest }

// Process runs one read or pair through the pipeline. It returns the
// disposition of the pair: filters.NoFilter if it is kept, or the id of the
// filter that discarded it. The pair is modified in place by the trimming
// steps.
func (p *Processor) Process(pair *reads.Pair) (filters.ID, error) {
	if p.paired != pair.Paired() {
		return filters.NoFilter, errors.E(errors.Invalid, "read", pair.Name(), "does not match the paired-end setting of the run")
	}
	p.records++
	p.totalBP[0] += int64(pair.R1.Len())
	if pair.R2 != nil {
		p.totalBP[1] += int64(pair.R2.Len())
	}
	if err := p.stats.PreTrim(*pair); err != nil {
		return filters.NoFilter, err
	}
	for _, m := range p.modifiers {
		m.Modify(pair)
	}
	id := p.chain.FilterPair(*pair)
	p.dispositions[id]++
	if id != filters.NoFilter {
		return id, nil
	}
	return id, p.stats.PostTrim(p.dest, *pair)
}

// Merge adds the counts and statistics of o, a processor built with the
// same options, to p.
func (p *Processor) Merge(o *Processor) error {
	p.records += o.records
	for i := range p.totalBP {
		p.totalBP[i] += o.totalBP[i]
	}
	for id, n := range o.dispositions {
		p.dispositions[id] += n
	}
	p.stats.Merge(o.stats)
	return p.chain.Merge(o.chain)
}

// Result finishes the statistics and returns the outcome of the run so
// far. It may be called more than once.
func (p *Processor) Result() *Result {
	r := &Result{
		Paired:       p.paired,
		Records:      p.records,
		TotalBP:      p.totalBP,
		Dispositions: make(map[filters.ID]int64, len(p.dispositions)),
		Filters:      p.chain.Summarize(),
		Stats:        p.stats.Finish(),
	}
	for id, n := range p.dispositions {
		r.Dispositions[id] = n
	}
	return r
}

// Result is the outcome of a run.
type Result struct {
	Paired bool

	// Records is the number of reads or pairs processed.
	Records int64

	// TotalBP is the number of input bases per mate.
	TotalBP [2]int64

	// Dispositions counts pairs by the filter that discarded them.
	// filters.NoFilter counts the kept pairs.
	Dispositions map[filters.ID]int64

	// Filters holds the discard count of every configured filter.
	Filters []filters.Summary
	Stats   *stats.Report
}

// Kept returns the number of pairs that passed every filter.
func (r *Result) Kept() int64 { return r.Dispositions[filters.NoFilter] }

// AvgSequenceLength returns the mean input length per mate, or zeros when
// no reads were processed.
func (r *Result) AvgSequenceLength() [2]float64 {
	var avg [2]float64
	if r.Records == 0 {
		return avg
	}
	for i := range avg {
		avg[i] = float64(r.TotalBP[i]) / float64(r.Records)
	}
	return avg
}
