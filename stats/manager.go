// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package stats

import (
	"sort"

	"github.com/grailbio/base/errors"
	"github.com/mottodora/atropos/reads"
)

// Mode selects the phases for which statistics are collected.
type Mode int

const (
	// ModeNone disables statistics.
	ModeNone Mode = iota
	// ModePre collects statistics on the input reads.
	ModePre
	// ModePost collects statistics on the kept reads, per destination.
	ModePost
	// ModeBoth collects both.
	ModeBoth
)

var modeNames = [...]string{"none", "pre", "post", "both"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return "invalid"
	}
	return modeNames[m]
}

// ParseMode parses "none", "pre", "post" or "both".
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if s == name {
			return Mode(i), nil
		}
	}
	return ModeNone, errors.E(errors.Invalid, "invalid statistics mode:", s)
}

func (m Mode) pre() bool  { return m == ModePre || m == ModeBoth }
func (m Mode) post() bool { return m == ModePost || m == ModeBoth }

// ManagerOpts configures a Manager.
type ManagerOpts struct {
	Mode Mode
	// Paired is set for paired-end runs: each phase then owns one
	// collector per mate.
	Paired    bool
	Collector CollectorOpts
}

// DefaultManagerOpts collects both phases for single-end reads.
var DefaultManagerOpts = ManagerOpts{
	Mode:      ModeBoth,
	Collector: DefaultCollectorOpts,
}

// Manager owns the collectors of a run: one set for the input reads, and
// one set per output destination for the kept reads. Post-trim sets are
// created the first time a destination receives a read.
type Manager struct {
	opts ManagerOpts
	pre  []*Collector
	post map[string][]*Collector
}

// NewManager creates a manager. It fails if the collector options are
// invalid or the mode is unknown.
func NewManager(opts ManagerOpts) (*Manager, error) {
	if opts.Mode < ModeNone || opts.Mode > ModeBoth {
		return nil, errors.E(errors.Invalid, "invalid statistics mode:", opts.Mode.String())
	}
	m := &Manager{opts: opts}
	// Validate the collector options even when no collector is needed yet.
	if _, err := NewCollector(opts.Collector); err != nil {
		return nil, err
	}
	if opts.Mode.pre() {
		m.pre = m.newCollectors()
	}
	if opts.Mode.post() {
		m.post = map[string][]*Collector{}
	}
	return m, nil
}

func (m *Manager) newCollectors() []*Collector {
	n := 1
	if m.opts.Paired {
		n = 2
	}
	cs := make([]*Collector, n)
	for i := range cs {
		c, err := NewCollector(m.opts.Collector)
		if err != nil {
			// The options were validated by NewManager.
			panic(err)
		}
		cs[i] = c
	}
	return cs
}

// PreTrim collects statistics on an input read or pair. It is a no-op
// when pre-trim statistics are disabled.
func (m *Manager) PreTrim(p reads.Pair) error {
	if m.pre == nil {
		return nil
	}
	return collect(m.pre, p, m.opts.Paired)
}

// PostTrim collects statistics on a kept read or pair written to dest. It
// is a no-op when post-trim statistics are disabled.
func (m *Manager) PostTrim(dest string, p reads.Pair) error {
	if m.post == nil {
		return nil
	}
	cs := m.post[dest]
	if cs == nil {
		cs = m.newCollectors()
		m.post[dest] = cs
	}
	return collect(cs, p, m.opts.Paired)
}

// collect adds both mates, or neither if either would be rejected.
func collect(cs []*Collector, p reads.Pair, paired bool) error {
	if !paired || p.R2 == nil {
		return cs[0].Collect(p.R1)
	}
	if _, err := cs[0].check(p.R1); err != nil {
		return err
	}
	if _, err := cs[1].check(p.R2); err != nil {
		return err
	}
	if err := cs[0].Collect(p.R1); err != nil {
		return err
	}
	return cs[1].Collect(p.R2)
}

// Merge adds the statistics of o, a manager built with the same options,
// to m.
func (m *Manager) Merge(o *Manager) {
	if m.pre != nil && o.pre != nil {
		for i, c := range o.pre {
			m.pre[i].Merge(c)
		}
	}
	if m.post == nil {
		return
	}
	for dest, ocs := range o.post {
		cs := m.post[dest]
		if cs == nil {
			cs = m.newCollectors()
			m.post[dest] = cs
		}
		for i, c := range ocs {
			cs[i].Merge(c)
		}
	}
}

// Report is the finished statistics of a run. Each phase holds one
// Summary per mate (index 0 is read 1).
type Report struct {
	// Pre is nil when pre-trim statistics are disabled.
	Pre []*Summary
	// Post maps a destination to its summaries. It is nil when post-trim
	// statistics are disabled.
	Post map[string][]*Summary
}

// Destinations returns the post-trim destinations in sorted order.
func (r *Report) Destinations() []string {
	dests := make([]string, 0, len(r.Post))
	for dest := range r.Post {
		dests = append(dests, dest)
	}
	sort.Strings(dests)
	return dests
}

// Finish snapshots every collector of every phase and destination.
func (m *Manager) Finish() *Report {
	r := &Report{}
	if m.pre != nil {
		r.Pre = finish(m.pre)
	}
	if m.post != nil {
		r.Post = make(map[string][]*Summary, len(m.post))
		for dest, cs := range m.post {
			r.Post[dest] = finish(cs)
		}
	}
	return r
}

func finish(cs []*Collector) []*Summary {
	s := make([]*Summary, len(cs))
	for i, c := range cs {
		s[i] = c.Finish()
	}
	return s
}
