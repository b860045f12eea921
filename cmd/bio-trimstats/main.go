// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package main

/*
bio-trimstats reads single- or paired-end FASTQ, optionally cuts a fixed
number of bases from the read ends, discards reads by length, N content,
merge and adapter-match status, and reports read statistics collected
before and after trimming.

Example:

  bio-trimstats -r1=r1.fq.gz -r2=r2.fq.gz -o1=out1.fq.gz -o2=out2.fq.gz \
    -min-length=25 -max-n=0.1 -pair-filter=both -report=stats.tsv
*/

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/mottodora/atropos/filters"
	"github.com/mottodora/atropos/report"
	"github.com/mottodora/atropos/stats"
	"github.com/mottodora/atropos/trim"
)

var (
	r1Path           = flag.String("r1", "", "Input FASTQ of read 1 (required). Compressed input is detected from the file name")
	r2Path           = flag.String("r2", "", "Input FASTQ of read 2, for paired-end input")
	o1Path           = flag.String("o1", "", "Output FASTQ of kept read 1; gzip-compressed if the name ends in .gz")
	o2Path           = flag.String("o2", "", "Output FASTQ of kept read 2")
	reportPath       = flag.String("report", "", "Output TSV statistics report; gzip-compressed if the name ends in .gz")
	minLength        = flag.Int("min-length", filters.DefaultOpts.MinLength, "Discard reads shorter than this; 0 disables")
	maxLength        = flag.Int("max-length", filters.DefaultOpts.MaxLength, "Discard reads longer than this; 0 disables")
	maxN             = flag.Float64("max-n", -1, "Discard reads with more Ns than this; a value below 1 is a proportion of the read length; -1 disables")
	discardMerged    = flag.Bool("discard-merged", filters.DefaultOpts.DiscardMerged, "Discard reads merged from both mates")
	discardTrimmed   = flag.Bool("discard-trimmed", filters.DefaultOpts.DiscardTrimmed, "Discard reads with an adapter match")
	discardUntrimmed = flag.Bool("discard-untrimmed", filters.DefaultOpts.DiscardUntrimmed, "Discard reads without an adapter match")
	pairFilter       = flag.String("pair-filter", "any", "Paired-end discard policy when -paired-mode=both: 'any' discards a pair if either mate fails, 'both' if both fail")
	pairedMode       = flag.String("paired-mode", "both", "Which mates filters inspect for paired-end input: 'first' or 'both'")
	statsMode        = flag.String("stats", trim.DefaultOpts.Stats.Mode.String(), "Statistics to collect: 'none', 'pre', 'post' or 'both'")
	tileKeyRegexp    = flag.String("tile-key-regexp", "", "Collect per-tile quality statistics using this regexp; its only group extracts the tile from the read name. Try "+stats.DefaultTileKeyRegexp+" for Illumina names")
	qualityBase      = flag.Int("quality-base", stats.DefaultCollectorOpts.QualityBase, "ASCII offset of quality scores")
	cut5             = flag.Int("cut5", 0, "Remove this many bases from the 5' end of read 1")
	cut3             = flag.Int("cut3", 0, "Remove this many bases from the 3' end of read 1")
	cut5R2           = flag.Int("cut5-r2", 0, "Remove this many bases from the 5' end of read 2")
	cut3R2           = flag.Int("cut3-r2", 0, "Remove this many bases from the 3' end of read 2")
	parallelism      = flag.Int("parallelism", 0, "Number of shards; 0 = runtime.NumCPU(). Kept reads are written in input order only when this is 1")
)

// trimFlags is the collection of options set by command-line flags.
type trimFlags struct {
	r1, r2, o1, o2 string
	report         string
	opts           trim.Opts
}

func parsePairFilter(s string) (int, error) {
	switch s {
	case "any":
		return filters.PairFilterAny, nil
	case "both":
		return filters.PairFilterBoth, nil
	}
	return 0, errors.E(errors.Invalid, "invalid -pair-filter:", s)
}

// parseMaxN reports whether -max-n enables the N-content filter. -1 is the
// only negative value accepted.
func parseMaxN(v float64) (bool, error) {
	if v == -1 {
		return false, nil
	}
	if v < 0 {
		return false, errors.E(errors.Invalid, fmt.Sprintf("-max-n must not be negative, got %v", v))
	}
	return true, nil
}

func newOpts() (trim.Opts, error) {
	opts := trim.DefaultOpts
	opts.Paired = *r2Path != ""
	mode, err := stats.ParseMode(*statsMode)
	if err != nil {
		return opts, err
	}
	opts.Stats.Mode = mode
	opts.Stats.Collector.TileKeyRegexp = *tileKeyRegexp
	opts.Stats.Collector.QualityBase = *qualityBase

	f := &opts.Filters
	f.MinLength = *minLength
	f.MaxLength = *maxLength
	if f.FilterN, err = parseMaxN(*maxN); err != nil {
		return opts, err
	}
	f.MaxN = *maxN
	f.DiscardMerged = *discardMerged
	f.DiscardTrimmed = *discardTrimmed
	f.DiscardUntrimmed = *discardUntrimmed
	if opts.Paired {
		if f.Mode, err = filters.ParsePairMode(*pairedMode); err != nil {
			return opts, err
		}
		if f.Mode == filters.SingleEnd {
			return opts, errors.E(errors.Invalid, "-paired-mode must be 'first' or 'both' for paired-end input")
		}
		if f.MinAffected, err = parsePairFilter(*pairFilter); err != nil {
			return opts, err
		}
	}
	opts.Cut5 = [2]int{*cut5, *cut5R2}
	opts.Cut3 = [2]int{*cut3, *cut3R2}
	opts.Parallelism = *parallelism
	if opts.Parallelism <= 0 {
		opts.Parallelism = runtime.NumCPU()
	}
	return opts, nil
}

// trimStats runs the whole pipeline: it reads the inputs, writes the kept
// reads and the report.
func trimStats(ctx context.Context, flags trimFlags) (*trim.Result, error) {
	if flags.r1 == "" {
		return nil, errors.E(errors.Invalid, "-r1 is required")
	}
	if flags.o2 != "" && (flags.o1 == "" || flags.r2 == "") {
		return nil, errors.E(errors.Invalid, "-o2 requires -o1 and -r2")
	}
	in, err := openFASTQ(ctx, flags.r1, flags.r2)
	if err != nil {
		return nil, err
	}
	var sink trim.Sink = trim.DiscardSink{}
	var out *fastqSink
	if flags.o1 != "" {
		paths := []string{flags.o1}
		if flags.o2 != "" {
			paths = append(paths, flags.o2)
		}
		if out, err = createFASTQ(ctx, paths...); err != nil {
			in.close(ctx) // nolint: errcheck
			return nil, err
		}
		sink = out
	}
	result, err := trim.Run(ctx, in, flags.opts, sink)
	once := errors.Once{}
	once.Set(err)
	once.Set(in.close(ctx))
	if out != nil {
		once.Set(out.close(ctx))
	}
	if err := once.Err(); err != nil {
		return nil, err
	}
	if flags.report != "" {
		if err := report.Write(ctx, flags.report, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func bioTrimStatsUsage() {
	fmt.Printf("Usage: %s [OPTIONS] -r1=r1.fq [-r2=r2.fq]\n", os.Args[0])
	fmt.Printf("Other options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = bioTrimStatsUsage
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() > 0 {
		log.Fatalf("Unexpected positional arguments: %v", flag.Args())
	}
	opts, err := newOpts()
	if err != nil {
		log.Fatalf("%v", err)
	}
	ctx := vcontext.Background()
	flags := trimFlags{
		r1:     *r1Path,
		r2:     *r2Path,
		o1:     *o1Path,
		o2:     *o2Path,
		report: *reportPath,
		opts:   opts,
	}
	result, err := trimStats(ctx, flags)
	if err != nil {
		log.Fatalf("%v", err)
	}
	printSummary(os.Stdout, result)
	log.Printf("All done")
}
