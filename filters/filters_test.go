// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package filters

import (
	"strings"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/testutil/expect"
	"github.com/mottodora/atropos/reads"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func read(seq string) *reads.Read { return &reads.Read{Name: "r", Seq: seq} }

// countingFilter records the reads it was asked about.
type countingFilter struct {
	discard bool
	calls   []*reads.Read
}

func (f *countingFilter) Discard(r *reads.Read) bool {
	f.calls = append(f.calls, r)
	return f.discard
}

// seqFilter discards reads whose sequence is in the set.
type seqFilter map[string]bool

func (f seqFilter) Discard(r *reads.Read) bool { return f[r.Seq] }

func TestLengthFilters(t *testing.T) {
	short := TooShortFilter{MinLength: 20}
	expect.True(t, short.Discard(read(strings.Repeat("A", 15))))
	expect.False(t, short.Discard(read(strings.Repeat("A", 20))))
	long := TooLongFilter{MaxLength: 5}
	expect.False(t, long.Discard(read("ACGTA")))
	expect.True(t, long.Discard(read("ACGTAC")))
}

func TestNContentFilter(t *testing.T) {
	tests := []struct {
		cutoff  float64
		seq     string
		discard bool
	}{
		{0.1, "ACGTNNACGT", true},
		{0.1, "ACGTNAACGT", false},
		{0.2, "ACGTNNACGT", false},
		{0.1, "", false},
		{0, "ACGT", false},
		{0, "ACGn", true},
		{1, "ACGTNACGT", false},
		{1, "ACGTNNACGT", true},
		{1, "acgtnnacgt", true},
		{3, "NNN", false},
		{3, "NNNN", true},
	}
	for _, test := range tests {
		f, err := NewNContentFilter(test.cutoff)
		require.NoError(t, err)
		assert.Equal(t, test.discard, f.Discard(read(test.seq)), "cutoff %v seq %q", test.cutoff, test.seq)
	}
	_, err := NewNContentFilter(-0.5)
	expect.True(t, errors.Is(errors.Invalid, err))
}

func TestMarkerFilters(t *testing.T) {
	plain := read("ACGT")
	trimmed := &reads.Read{Seq: "ACGT", Match: &reads.Match{Adapter: "a1", Start: 2, End: 4}}
	merged := &reads.Read{Seq: "ACGT", Merged: true}
	expect.True(t, UntrimmedFilter{}.Discard(plain))
	expect.False(t, UntrimmedFilter{}.Discard(trimmed))
	expect.False(t, TrimmedFilter{}.Discard(plain))
	expect.True(t, TrimmedFilter{}.Discard(trimmed))
	expect.True(t, MergedFilter{}.Discard(merged))
	expect.False(t, MergedFilter{}.Discard(plain))
	expect.False(t, NoopFilter{}.Discard(merged))
}

func TestSingleWrapperIgnoresMate2(t *testing.T) {
	f := &countingFilter{discard: false}
	w := NewSingleWrapper(TooShort, f)
	r1, r2 := read("A"), read("C")
	expect.False(t, w.Filter(r1, r2))
	assert.Equal(t, []*reads.Read{r1}, f.calls)

	w = NewSingleWrapper(TooShort, seqFilter{"A": true})
	expect.True(t, w.Filter(read("A"), read("C")))
	expect.False(t, w.Filter(read("C"), read("A")))
	expect.EQ(t, w.Discarded(), int64(1))
}

func TestPairedWrapperAny(t *testing.T) {
	// Mate 1 fails: mate 2 is never evaluated and the pair is discarded.
	f := &countingFilter{discard: true}
	w, err := NewPairedWrapper(TooShort, f, PairFilterAny)
	require.NoError(t, err)
	r1, r2 := read("A"), read("C")
	expect.True(t, w.Filter(r1, r2))
	assert.Equal(t, []*reads.Read{r1}, f.calls)

	// Mate 1 passes: mate 2 decides.
	w, err = NewPairedWrapper(TooShort, seqFilter{"bad": true}, PairFilterAny)
	require.NoError(t, err)
	expect.True(t, w.Filter(read("ok"), read("bad")))
	expect.False(t, w.Filter(read("ok"), read("ok")))
	expect.False(t, w.Filter(read("ok"), nil))
	expect.EQ(t, w.Discarded(), int64(1))
}

func TestPairedWrapperBoth(t *testing.T) {
	// Mate 1 passes: the pair cannot reach two failures, so mate 2 is not
	// evaluated.
	f := &countingFilter{discard: false}
	w, err := NewPairedWrapper(TooShort, f, PairFilterBoth)
	require.NoError(t, err)
	r1, r2 := read("A"), read("C")
	expect.False(t, w.Filter(r1, r2))
	assert.Equal(t, []*reads.Read{r1}, f.calls)

	w, err = NewPairedWrapper(TooShort, seqFilter{"bad": true}, PairFilterBoth)
	require.NoError(t, err)
	expect.False(t, w.Filter(read("bad"), read("ok")))
	expect.False(t, w.Filter(read("ok"), read("bad")))
	expect.True(t, w.Filter(read("bad"), read("bad")))
	expect.False(t, w.Filter(read("bad"), nil))
	expect.EQ(t, w.Discarded(), int64(1))
}

func TestPairedWrapperInvalid(t *testing.T) {
	for _, n := range []int{0, 3, -1} {
		_, err := NewPairedWrapper(TooShort, NoopFilter{}, n)
		assert.True(t, errors.Is(errors.Invalid, err), "min_affected %d", n)
	}
	_, err := Factory{Mode: PairBoth, MinAffected: 3}.Wrap(TooShort, NoopFilter{})
	expect.True(t, errors.Is(errors.Invalid, err))
	// The single-mate policy ignores MinAffected.
	_, err = Factory{Mode: PairFirst, MinAffected: 3}.Wrap(TooShort, NoopFilter{})
	expect.NoError(t, err)
}

func TestChainFirstMatchWins(t *testing.T) {
	always := &countingFilter{discard: true}
	never := &countingFilter{discard: false}
	c := NewChain(Factory{Mode: SingleEnd})
	require.NoError(t, c.Add(TooShort, always))
	require.NoError(t, c.Add(TooLong, never))
	for i := 0; i < 5; i++ {
		expect.EQ(t, c.Filter(read("ACGT"), nil), TooShort)
	}
	expect.EQ(t, len(never.calls), 0)
	assert.Equal(t, []Summary{
		{ID: TooShort, Name: "too_short", Discarded: 5},
		{ID: TooLong, Name: "too_long", Discarded: 0},
	}, c.Summarize())
}

func TestChainKeep(t *testing.T) {
	c := NewChain(Factory{Mode: PairBoth, MinAffected: PairFilterAny})
	require.NoError(t, c.Add(TooShort, TooShortFilter{MinLength: 3}))
	require.NoError(t, c.Add(TooManyN, seqFilter{"NNNN": true}))
	expect.EQ(t, c.FilterPair(reads.Pair{R1: read("ACGT"), R2: read("ACGT")}), NoFilter)
	expect.EQ(t, c.FilterPair(reads.Pair{R1: read("ACGT"), R2: read("AC")}), TooShort)
	expect.EQ(t, c.FilterPair(reads.Pair{R1: read("NNNN"), R2: read("ACGT")}), TooManyN)
	expect.EQ(t, c.Get(TooShort).Discarded(), int64(1))
	expect.EQ(t, c.Get(TooManyN).Discarded(), int64(1))
	expect.True(t, c.Contains(TooManyN))
	expect.False(t, c.Contains(Trimmed))
	expect.EQ(t, c.Len(), 2)
}

func TestChainReplaceKeepsOrder(t *testing.T) {
	c := NewChain(Factory{})
	require.NoError(t, c.Add(TooShort, TooShortFilter{MinLength: 10}))
	require.NoError(t, c.Add(TooLong, TooLongFilter{MaxLength: 2}))
	expect.EQ(t, c.Filter(read("ACGT"), nil), TooShort)
	require.NoError(t, c.Add(TooShort, TooShortFilter{MinLength: 1}))
	expect.EQ(t, c.Filter(read("ACGT"), nil), TooLong)
	s := c.Summarize()
	expect.EQ(t, s[0].ID, TooShort)
	expect.EQ(t, s[0].Discarded, int64(1))
	expect.EQ(t, s[1].ID, TooLong)
}

func TestChainMerge(t *testing.T) {
	build := func() *Chain {
		c, err := New(Opts{Mode: SingleEnd, MinLength: 3, FilterN: true, MaxN: 0})
		require.NoError(t, err)
		return c
	}
	a, b := build(), build()
	a.Filter(read("A"), nil)
	b.Filter(read("C"), nil)
	b.Filter(read("ANNA"), nil)
	require.NoError(t, a.Merge(b))
	expect.EQ(t, a.Get(TooShort).Discarded(), int64(2))
	expect.EQ(t, a.Get(TooManyN).Discarded(), int64(1))

	other := NewChain(Factory{})
	require.NoError(t, other.Add(Trimmed, TrimmedFilter{}))
	expect.True(t, errors.Is(errors.Invalid, a.Merge(other)))
}

func TestNew(t *testing.T) {
	c, err := New(Opts{
		Mode:             PairBoth,
		MinAffected:      PairFilterBoth,
		DiscardMerged:    true,
		MinLength:        10,
		MaxLength:        100,
		FilterN:          true,
		MaxN:             0.5,
		DiscardTrimmed:   true,
		DiscardUntrimmed: true,
	})
	require.NoError(t, err)
	var ids []ID
	for _, s := range c.Summarize() {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []ID{Merged, TooShort, TooLong, TooManyN, Trimmed, Untrimmed}, ids)

	c, err = New(DefaultOpts)
	require.NoError(t, err)
	expect.EQ(t, c.Len(), 0)
	expect.EQ(t, c.Filter(read(""), nil), NoFilter)

	_, err = New(Opts{Mode: PairBoth, MinAffected: 0})
	expect.True(t, errors.Is(errors.Invalid, err))
}

func TestIDString(t *testing.T) {
	expect.EQ(t, NoFilter.String(), "NoFilter")
	expect.EQ(t, TooManyN.String(), "too_many_n")
	expect.EQ(t, ID(42).String(), "filter(42)")
}

func TestParsePairMode(t *testing.T) {
	for _, m := range []PairMode{SingleEnd, PairFirst, PairBoth} {
		got, err := ParsePairMode(m.String())
		require.NoError(t, err)
		expect.EQ(t, got, m)
	}
	_, err := ParsePairMode("sideways")
	expect.True(t, errors.Is(errors.Invalid, err))
}

func TestNewNFilterSelection(t *testing.T) {
	// The zero value selects no filter at all.
	c, err := New(Opts{})
	require.NoError(t, err)
	expect.EQ(t, c.Len(), 0)
	expect.EQ(t, c.Filter(read("NNNN"), nil), NoFilter)

	_, err = New(Opts{FilterN: true, MaxN: -0.5})
	expect.True(t, errors.Is(errors.Invalid, err))

	c, err = New(Opts{FilterN: true, MaxN: 0})
	require.NoError(t, err)
	expect.EQ(t, c.Filter(read("ACGN"), nil), TooManyN)
}
