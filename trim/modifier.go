// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package trim

import "github.com/mottodora/atropos/reads"

// Modifier is a trimming step. It may shorten reads, attach adapter
// matches or mark pairs as merged. A modifier used by a sharded run must be
// safe for concurrent use.
type Modifier interface {
	Modify(p *reads.Pair)
}

// ModifierFunc adapts a function to Modifier.
type ModifierFunc func(p *reads.Pair)

// Modify implements Modifier.
func (f ModifierFunc) Modify(p *reads.Pair) { f(p) }

// Cutter removes a fixed number of bases from the ends of each mate. Both
// arrays are indexed by mate. It never attaches an adapter match.
type Cutter struct {
	Cut5, Cut3 [2]int
}

// Modify implements Modifier.
func (c Cutter) Modify(p *reads.Pair) {
	for i := 0; i < 2; i++ {
		r := p.Mate(i)
		if r == nil || (c.Cut5[i] == 0 && c.Cut3[i] == 0) {
			continue
		}
		r.Cut(c.Cut5[i], c.Cut3[i])
	}
}

// Enabled reports whether the cutter removes any base.
func (c Cutter) Enabled() bool {
	return c.Cut5 != [2]int{} || c.Cut3 != [2]int{}
}
