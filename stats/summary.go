// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package stats

import (
	"sync"

	"gonum.org/v1/gonum/stat"
)

// Summary is the finished statistics of one collector. The exported
// tables are what the report renders; a nil table means the statistic was
// not collected.
type Summary struct {
	Count  int64
	Length Table
	GC     Table
	Bases  Table

	// Set once quality tracking is active.
	Qualities     *Table
	BaseQualities *Table

	// Set when tiles are tracked.
	TileBaseQualities     *Table
	TileSequenceQualities *Table

	lengths   Histogram
	meanQuals Histogram
	bases     *PositionalCounts

	once        sync.Once
	totalBases  int64
	gcFraction  float64
	meanLength  float64
	meanQuality float64
}

// TotalBases returns the number of bases over all reads.
func (s *Summary) TotalBases() int64 {
	s.once.Do(s.derive)
	return s.totalBases
}

// GCFraction returns the fraction of bases that are G or C, or 0 when no
// bases were seen.
func (s *Summary) GCFraction() float64 {
	s.once.Do(s.derive)
	return s.gcFraction
}

// MeanLength returns the mean read length, or 0 when no reads were seen.
func (s *Summary) MeanLength() float64 {
	s.once.Do(s.derive)
	return s.meanLength
}

// MeanQuality returns the mean of the per-read mean qualities, or 0 when
// qualities were not tracked.
func (s *Summary) MeanQuality() float64 {
	s.once.Do(s.derive)
	return s.meanQuality
}

func (s *Summary) derive() {
	for length, n := range s.lengths {
		s.totalBases += int64(length) * n
	}
	if s.totalBases > 0 {
		var gc int64
		for i := 0; i < s.bases.Len(); i++ {
			at := s.bases.At(i)
			gc += at.Get('C') + at.Get('G')
		}
		s.gcFraction = float64(gc) / float64(s.totalBases)
	}
	s.meanLength = weightedMean(s.lengths)
	s.meanQuality = weightedMean(s.meanQuals)
}

func weightedMean(h Histogram) float64 {
	if h.Total() == 0 {
		return 0
	}
	keys := h.Keys()
	x := make([]float64, len(keys))
	w := make([]float64, len(keys))
	for i, k := range keys {
		x[i] = float64(k)
		w[i] = float64(h[k])
	}
	return stat.Mean(x, w)
}
