// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package stats

import (
	"sort"
	"strconv"
)

// Table is the flattened, report-ready form of a frequency table or a set
// of positional tables.
type Table struct {
	// Header lists the keys, in output order. Every row has one count per
	// header key.
	Header []string
	Rows   []Row
}

// Row is one line of a Table.
type Row struct {
	// Position is the 1-based read position, or 0 for rows of a
	// distribution that is not positional.
	Position int
	// Tile is set for tile-resolved rows.
	Tile   string
	Counts []int64
}

// Histogram counts occurrences of integer keys such as read lengths, GC
// percentages or mean qualities.
type Histogram map[int]int64

// Add counts one occurrence of k.
func (h Histogram) Add(k int) { h[k]++ }

// Get returns the count of k, zero if k was never added.
func (h Histogram) Get(k int) int64 { return h[k] }

// Keys returns the observed keys in increasing order.
func (h Histogram) Keys() []int {
	keys := make([]int, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// Total returns the sum of all counts.
func (h Histogram) Total() int64 {
	var n int64
	for _, c := range h {
		n += c
	}
	return n
}

// Merge adds the counts of o to h.
func (h Histogram) Merge(o Histogram) {
	for k, c := range o {
		h[k] += c
	}
}

// Clone returns a copy of h.
func (h Histogram) Clone() Histogram {
	c := make(Histogram, len(h))
	for k, n := range h {
		c[k] = n
	}
	return c
}

// Flatten returns a single-row table whose header lists the keys in
// increasing order.
func (h Histogram) Flatten() Table {
	keys := h.Keys()
	t := Table{Header: make([]string, len(keys))}
	row := Row{Counts: make([]int64, len(keys))}
	for i, k := range keys {
		t.Header[i] = strconv.Itoa(k)
		row.Counts[i] = h[k]
	}
	t.Rows = []Row{row}
	return t
}

// SymbolCounts counts occurrences of single-byte symbols (bases or
// quality characters) at one read position.
type SymbolCounts [256]int64

// Add counts one occurrence of b.
func (s *SymbolCounts) Add(b byte) { s[b]++ }

// Get returns the count of b.
func (s *SymbolCounts) Get(b byte) int64 { return s[b] }

// Merge adds the counts of o to s.
func (s *SymbolCounts) Merge(o *SymbolCounts) {
	for i, c := range o {
		s[i] += c
	}
}

func (s *SymbolCounts) markObserved(seen *[256]bool) {
	for i, c := range s {
		if c > 0 {
			seen[i] = true
		}
	}
}

// PositionalCounts is a sequence of SymbolCounts indexed by 0-based read
// position. Its length only grows, through ExtendTo.
type PositionalCounts struct {
	pos []SymbolCounts
}

// Len returns the number of positions.
func (p *PositionalCounts) Len() int { return len(p.pos) }

// ExtendTo appends empty tables until there are at least n positions. It
// never truncates.
func (p *PositionalCounts) ExtendTo(n int) {
	if n <= len(p.pos) {
		return
	}
	if n <= cap(p.pos) {
		p.pos = p.pos[:n]
		return
	}
	pos := make([]SymbolCounts, n, n+n/4)
	copy(pos, p.pos)
	p.pos = pos
}

// At returns the table at position i. It panics if i >= Len().
func (p *PositionalCounts) At(i int) *SymbolCounts { return &p.pos[i] }

// Add counts symbol b at position i. The caller must have extended p to
// cover i.
func (p *PositionalCounts) Add(i int, b byte) { p.pos[i][b]++ }

// Merge adds the counts of o to p position-wise, first extending p to the
// length of o.
func (p *PositionalCounts) Merge(o *PositionalCounts) {
	p.ExtendTo(o.Len())
	for i := range o.pos {
		p.pos[i].Merge(&o.pos[i])
	}
}

// Clone returns a deep copy of p.
func (p *PositionalCounts) Clone() *PositionalCounts {
	c := &PositionalCounts{pos: make([]SymbolCounts, len(p.pos))}
	copy(c.pos, p.pos)
	return c
}

// observed returns the symbols seen at any position, in byte order.
func (p *PositionalCounts) observed() []byte {
	var seen [256]bool
	for i := range p.pos {
		p.pos[i].markObserved(&seen)
	}
	return seenSymbols(&seen)
}

func seenSymbols(seen *[256]bool) []byte {
	var syms []byte
	for b, ok := range seen {
		if ok {
			syms = append(syms, byte(b))
		}
	}
	return syms
}

// Flatten returns one row per position with the observed symbols as the
// header, in byte order.
func (p *PositionalCounts) Flatten() Table {
	syms := p.observed()
	return p.flatten(syms, symbolLabels(syms))
}

// FlattenBases is like Flatten, but orders the header as A, C, G, T
// (always present), then any other observed symbol, then N if observed.
func (p *PositionalCounts) FlattenBases() Table {
	syms := baseOrder(p.observed())
	return p.flatten(syms, symbolLabels(syms))
}

// FlattenQualities is like Flatten, but labels the header with the Phred
// value of each quality symbol, given the quality base (usually 33).
func (p *PositionalCounts) FlattenQualities(qualityBase int) Table {
	syms := p.observed()
	return p.flatten(syms, qualityLabels(syms, qualityBase))
}

func (p *PositionalCounts) flatten(syms []byte, header []string) Table {
	t := Table{Header: header, Rows: make([]Row, len(p.pos))}
	for i := range p.pos {
		row := Row{Position: i + 1, Counts: make([]int64, len(syms))}
		for j, b := range syms {
			row.Counts[j] = p.pos[i][b]
		}
		t.Rows[i] = row
	}
	return t
}

// TilePositionalCounts holds, for each 0-based read position, the
// quality symbol counts of each tile. Cells are sparse: only the symbols a
// tile actually shows at a position are stored.
type TilePositionalCounts struct {
	pos []map[string]sparseCounts
}

// sparseCounts maps a symbol to its count.
type sparseCounts map[byte]int64

// Len returns the number of positions.
func (p *TilePositionalCounts) Len() int { return len(p.pos) }

// ExtendTo appends empty positions until there are at least n. It never
// truncates.
func (p *TilePositionalCounts) ExtendTo(n int) {
	for len(p.pos) < n {
		p.pos = append(p.pos, map[string]sparseCounts{})
	}
}

func (p *TilePositionalCounts) cell(i int, tile string) sparseCounts {
	s := p.pos[i][tile]
	if s == nil {
		s = sparseCounts{}
		p.pos[i][tile] = s
	}
	return s
}

// Add counts symbol b for the given tile at position i. The caller must
// have extended p to cover i.
func (p *TilePositionalCounts) Add(i int, tile string, b byte) {
	p.cell(i, tile)[b]++
}

// Get returns the count of b for tile at position i.
func (p *TilePositionalCounts) Get(i int, tile string, b byte) int64 {
	if i >= len(p.pos) {
		return 0
	}
	return p.pos[i][tile][b]
}

// Merge adds the counts of o to p, first extending p to the length of o.
func (p *TilePositionalCounts) Merge(o *TilePositionalCounts) {
	p.ExtendTo(o.Len())
	for i, tiles := range o.pos {
		for tile, oc := range tiles {
			s := p.cell(i, tile)
			for b, n := range oc {
				s[b] += n
			}
		}
	}
}

// FlattenQualities returns, for each tile in the given order and each
// position, one row of quality counts. The header holds the Phred values
// of every quality symbol observed for any tile.
func (p *TilePositionalCounts) FlattenQualities(tiles []string, qualityBase int) Table {
	var seen [256]bool
	for _, m := range p.pos {
		for _, s := range m {
			for b, n := range s {
				if n > 0 {
					seen[b] = true
				}
			}
		}
	}
	syms := seenSymbols(&seen)
	t := Table{Header: qualityLabels(syms, qualityBase)}
	for _, tile := range tiles {
		for i, m := range p.pos {
			row := Row{Position: i + 1, Tile: tile, Counts: make([]int64, len(syms))}
			if s := m[tile]; s != nil {
				for j, b := range syms {
					row.Counts[j] = s[b]
				}
			}
			t.Rows = append(t.Rows, row)
		}
	}
	return t
}

// baseOrder reorders observed base symbols as A, C, G, T, other symbols in
// byte order, then N.
func baseOrder(observed []byte) []byte {
	syms := []byte{'A', 'C', 'G', 'T'}
	hasN := false
	for _, b := range observed {
		switch b {
		case 'A', 'C', 'G', 'T':
		case 'N':
			hasN = true
		default:
			syms = append(syms, b)
		}
	}
	if hasN {
		syms = append(syms, 'N')
	}
	return syms
}

func symbolLabels(syms []byte) []string {
	labels := make([]string, len(syms))
	for i, b := range syms {
		labels[i] = string(b)
	}
	return labels
}

func qualityLabels(syms []byte, qualityBase int) []string {
	labels := make([]string, len(syms))
	for i, b := range syms {
		labels[i] = strconv.Itoa(int(b) - qualityBase)
	}
	return labels
}
