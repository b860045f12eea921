// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package stats

import (
	"fmt"
	"math"
	"regexp"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/simd"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/mottodora/atropos/reads"
)

// CollectorOpts configures a Collector.
type CollectorOpts struct {
	// Qualities allocates the quality tables up front. When false they
	// are allocated on the first read that carries qualities.
	Qualities bool
	// TileKeyRegexp, when set, enables tile-resolved quality tables. The
	// pattern is matched at the start of each read name and must have
	// exactly one capturing group, the tile id.
	TileKeyRegexp string
	// QualityBase is the offset of the quality encoding.
	QualityBase int
}

// DefaultCollectorOpts is the default collector configuration.
var DefaultCollectorOpts = CollectorOpts{
	QualityBase: 33,
}

// Collector accumulates statistics for one read stream.
type Collector struct {
	opts   CollectorOpts
	tileRE *regexp.Regexp

	count   int64
	maxLen  int
	lengths Histogram
	gc      Histogram
	bases   PositionalCounts

	// The fields below are valid only once qualities is set.
	qualities bool
	meanQuals Histogram
	baseQuals PositionalCounts

	// The fields below are valid only when trackTiles() is true.
	tileBaseQuals TilePositionalCounts
	tileMeanQuals map[string]Histogram
	tiles         tileIndex
}

// NewCollector creates an empty collector. It fails if the tile pattern
// is invalid.
func NewCollector(opts CollectorOpts) (*Collector, error) {
	c := &Collector{
		opts:    opts,
		lengths: Histogram{},
		gc:      Histogram{},
	}
	if opts.TileKeyRegexp != "" {
		re, err := compileTileRegexp(opts.TileKeyRegexp)
		if err != nil {
			return nil, err
		}
		c.tileRE = re
	}
	if opts.Qualities {
		c.initQualities()
	}
	return c, nil
}

func (c *Collector) initQualities() {
	c.qualities = true
	c.meanQuals = Histogram{}
	c.baseQuals.ExtendTo(c.maxLen)
	if c.tileRE != nil {
		c.tileMeanQuals = map[string]Histogram{}
		c.tileBaseQuals.ExtendTo(c.maxLen)
	}
}

func (c *Collector) trackTiles() bool { return c.qualities && c.tileRE != nil }

// Count returns the number of reads collected so far.
func (c *Collector) Count() int64 { return c.count }

// MaxLen returns the longest read length seen so far. It equals the
// length of every positional table.
func (c *Collector) MaxLen() int { return c.maxLen }

// QualitiesTracked reports whether quality statistics are being
// collected.
func (c *Collector) QualitiesTracked() bool { return c.qualities }

func (c *Collector) extendTo(n int) {
	c.maxLen = n
	c.bases.ExtendTo(n)
	if c.qualities {
		c.baseQuals.ExtendTo(n)
		if c.tileRE != nil {
			c.tileBaseQuals.ExtendTo(n)
		}
	}
}

// check returns the tile of r, or an error if Collect would reject r.
func (c *Collector) check(r *reads.Read) (tile string, err error) {
	if !r.HasQualities() {
		return "", nil
	}
	if len(r.Qual) != len(r.Seq) {
		return "", errors.E(errors.Invalid, fmt.Sprintf("read %s has %d qualities for %d bases", r.Name, len(r.Qual), len(r.Seq)))
	}
	if c.tileRE == nil {
		return "", nil
	}
	m := c.tileRE.FindStringSubmatch(r.Name)
	if m == nil {
		return "", errors.E(errors.Invalid, "read name", r.Name, "does not match tile key regexp", c.opts.TileKeyRegexp)
	}
	return m[1], nil
}

// Collect adds one read. It fails, leaving the collector unchanged, when
// the read's qualities and sequence differ in length, or when tiles are
// tracked and the read name does not match the tile pattern.
func (c *Collector) Collect(r *reads.Read) error {
	tile, err := c.check(r)
	if err != nil {
		return err
	}
	seq := r.Seq
	n := len(seq)
	hasQual := r.HasQualities()
	if hasQual && !c.qualities {
		c.initQualities()
	}

	gc := 0
	if n > 0 {
		nGC := simd.Count2Bytes(gunsafe.StringToBytes(seq), 'C', 'G')
		gc = int(math.RoundToEven(float64(100*nGC) / float64(n)))
	}
	c.count++
	c.lengths.Add(n)
	c.gc.Add(gc)
	if n > c.maxLen {
		c.extendTo(n)
	}
	for i := 0; i < n; i++ {
		c.bases.Add(i, seq[i])
	}
	if !hasQual {
		return nil
	}

	qual := r.Qual
	sum := 0
	for i := 0; i < n; i++ {
		sum += int(qual[i]) - c.opts.QualityBase
		c.baseQuals.Add(i, qual[i])
	}
	meanQual := int(math.RoundToEven(float64(sum) / float64(n)))
	c.meanQuals.Add(meanQual)
	if c.tileRE != nil {
		for i := 0; i < n; i++ {
			c.tileBaseQuals.Add(i, tile, qual[i])
		}
		h := c.tileMeanQuals[tile]
		if h == nil {
			h = Histogram{}
			c.tileMeanQuals[tile] = h
		}
		h.Add(meanQual)
		c.tiles.insert(tile)
	}
	return nil
}

// Merge adds the statistics of o, a collector built with the same
// options, to c.
func (c *Collector) Merge(o *Collector) {
	if o.qualities && !c.qualities {
		c.initQualities()
	}
	if o.maxLen > c.maxLen {
		c.extendTo(o.maxLen)
	}
	c.count += o.count
	c.lengths.Merge(o.lengths)
	c.gc.Merge(o.gc)
	c.bases.Merge(&o.bases)
	if !o.qualities {
		return
	}
	c.meanQuals.Merge(o.meanQuals)
	c.baseQuals.Merge(&o.baseQuals)
	if c.trackTiles() && o.trackTiles() {
		c.tileBaseQuals.Merge(&o.tileBaseQuals)
		for tile, oh := range o.tileMeanQuals {
			h := c.tileMeanQuals[tile]
			if h == nil {
				h = Histogram{}
				c.tileMeanQuals[tile] = h
			}
			h.Merge(oh)
		}
		c.tiles.merge(&o.tiles)
	}
}

// Finish snapshots the accumulated statistics. The collector is not reset
// and may keep collecting; the Summary does not change afterwards.
func (c *Collector) Finish() *Summary {
	s := &Summary{
		Count:   c.count,
		Length:  c.lengths.Flatten(),
		GC:      c.gc.Flatten(),
		Bases:   c.bases.FlattenBases(),
		lengths: c.lengths.Clone(),
		bases:   c.bases.Clone(),
	}
	if c.qualities {
		q := c.meanQuals.Flatten()
		bq := c.baseQuals.FlattenQualities(c.opts.QualityBase)
		s.Qualities, s.BaseQualities = &q, &bq
		s.meanQuals = c.meanQuals.Clone()
	}
	if c.trackTiles() {
		tiles := c.tiles.tiles()
		tbq := c.tileBaseQuals.FlattenQualities(tiles, c.opts.QualityBase)
		tsq := flattenTileHistograms(tiles, c.tileMeanQuals)
		s.TileBaseQualities, s.TileSequenceQualities = &tbq, &tsq
	}
	return s
}

// flattenTileHistograms returns one row per tile; the header is the union
// of the keys of all tiles.
func flattenTileHistograms(tiles []string, hs map[string]Histogram) Table {
	union := Histogram{}
	for _, h := range hs {
		for k := range h {
			union[k] = 0
		}
	}
	keys := union.Keys()
	t := union.Flatten()
	t.Rows = make([]Row, len(tiles))
	for i, tile := range tiles {
		row := Row{Tile: tile, Counts: make([]int64, len(keys))}
		h := hs[tile]
		for j, k := range keys {
			row.Counts[j] = h.Get(k)
		}
		t.Rows[i] = row
	}
	return t
}
