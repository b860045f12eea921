// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package report writes the outcome of a trimming run as a sequence of
// TSV blocks.
//
// Each block starts with a line beginning with '#' that names it, followed
// by a column header line and the data lines. The blocks are, in order:
// the run summary, the filter discard counts, then for each phase (pre,
// then post-trim destinations in sorted order) and each mate, the scalar
// statistics followed by every collected table.
package report

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/klauspost/compress/gzip"
	"github.com/mottodora/atropos/stats"
	"github.com/mottodora/atropos/trim"
)

// Write writes r to path. The output is gzip-compressed if path ends in
// ".gz".
func Write(ctx context.Context, path string, r *trim.Result) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "creating report", path)
	}
	defer file.CloseAndReport(ctx, out, &err)
	if !strings.HasSuffix(path, ".gz") {
		return WriteTo(out.Writer(ctx), r)
	}
	gz := gzip.NewWriter(out.Writer(ctx))
	once := errors.Once{}
	once.Set(WriteTo(gz, r))
	once.Set(gz.Close())
	return once.Err()
}

// WriteTo writes r to w.
func WriteTo(w io.Writer, r *trim.Result) error {
	tw := &writer{w: tsv.NewWriter(w)}
	tw.summary(r)
	tw.filters(r)
	if r.Stats != nil {
		if r.Stats.Pre != nil {
			tw.phase("pre", "", r.Stats.Pre)
		}
		for _, dest := range r.Stats.Destinations() {
			tw.phase("post", dest, r.Stats.Post[dest])
		}
	}
	if tw.err.Err() == nil {
		tw.err.Set(tw.w.Flush())
	}
	return tw.err.Err()
}

type writer struct {
	w   *tsv.Writer
	err errors.Once
}

func (w *writer) line(fields ...string) {
	for _, f := range fields {
		w.w.WriteString(f)
	}
	w.err.Set(w.w.EndLine())
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', 4, 64) }

func mateName(i int) string { return "read" + strconv.Itoa(i+1) }

func (w *writer) summary(r *trim.Result) {
	nMates := 1
	if r.Paired {
		nMates = 2
	}
	w.line("#summary")
	w.line("key", "value")
	w.line("records", itoa(r.Records))
	w.line("kept", itoa(r.Kept()))
	avg := r.AvgSequenceLength()
	for i := 0; i < nMates; i++ {
		w.line("total_bp_"+mateName(i), itoa(r.TotalBP[i]))
		w.line("avg_sequence_length_"+mateName(i), ftoa(avg[i]))
	}
}

func (w *writer) filters(r *trim.Result) {
	w.line("#filters")
	w.line("filter", "discarded")
	for _, f := range r.Filters {
		w.line(f.Name, itoa(f.Discarded))
	}
}

func (w *writer) phase(phase, dest string, summaries []*stats.Summary) {
	for i, s := range summaries {
		label := []string{phase, dest, mateName(i)}
		w.line(append([]string{"#scalars"}, label...)...)
		w.line("count", "total_bases", "gc_fraction", "mean_length", "mean_quality")
		w.line(itoa(s.Count), itoa(s.TotalBases()), ftoa(s.GCFraction()), ftoa(s.MeanLength()), ftoa(s.MeanQuality()))

		w.table(label, "length", &s.Length, false, false)
		w.table(label, "gc", &s.GC, false, false)
		w.table(label, "bases", &s.Bases, true, false)
		w.table(label, "qualities", s.Qualities, false, false)
		w.table(label, "base_qualities", s.BaseQualities, true, false)
		w.table(label, "tile_base_qualities", s.TileBaseQualities, true, true)
		w.table(label, "tile_sequence_qualities", s.TileSequenceQualities, false, true)
	}
}

// table writes one table. Histogram tables have no position column;
// tile tables start with the tile id. A nil table is skipped.
func (w *writer) table(label []string, name string, t *stats.Table, positional, tiled bool) {
	if t == nil {
		return
	}
	w.line(append(append([]string{"#table"}, label...), name)...)
	var cols []string
	if tiled {
		cols = append(cols, "tile")
	}
	if positional {
		cols = append(cols, "position")
	}
	w.line(append(cols, t.Header...)...)
	for _, row := range t.Rows {
		if tiled {
			w.w.WriteString(row.Tile)
		}
		if positional {
			w.w.WriteString(strconv.Itoa(row.Position))
		}
		for _, n := range row.Counts {
			w.w.WriteString(itoa(n))
		}
		w.err.Set(w.w.EndLine())
	}
}
