// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package report

import (
	"bytes"
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/klauspost/compress/gzip"
	"github.com/mottodora/atropos/reads"
	"github.com/mottodora/atropos/trim"
	tassert "github.com/stretchr/testify/assert"
)

func run(t *testing.T, opts trim.Opts, pairs ...reads.Pair) *trim.Result {
	r, err := trim.Run(context.Background(), reads.NewSliceSource(pairs), opts, trim.DiscardSink{})
	assert.NoError(t, err)
	return r
}

func single(name, seq, qual string) reads.Pair {
	return reads.Pair{R1: &reads.Read{Name: name, Seq: seq, Qual: qual}}
}

func TestWriteTo(t *testing.T) {
	opts := trim.DefaultOpts
	opts.Filters.MinLength = 3
	r := run(t, opts, single("a", "ACGT", ""), single("b", "AC", ""))

	var buf bytes.Buffer
	assert.NoError(t, WriteTo(&buf, r))
	want := strings.Join([]string{
		"#summary",
		"key\tvalue",
		"records\t2",
		"kept\t1",
		"total_bp_read1\t6",
		"avg_sequence_length_read1\t3.0000",
		"#filters",
		"filter\tdiscarded",
		"too_short\t1",
		"#scalars\tpre\t\tread1",
		"count\ttotal_bases\tgc_fraction\tmean_length\tmean_quality",
		"2\t6\t0.5000\t3.0000\t0.0000",
		"#table\tpre\t\tread1\tlength",
		"2\t4",
		"1\t1",
		"#table\tpre\t\tread1\tgc",
		"50",
		"2",
		"#table\tpre\t\tread1\tbases",
		"position\tA\tC\tG\tT",
		"1\t2\t0\t0\t0",
		"2\t0\t2\t0\t0",
		"3\t0\t0\t1\t0",
		"4\t0\t0\t0\t1",
		"#scalars\tpost\tdefault\tread1",
		"count\ttotal_bases\tgc_fraction\tmean_length\tmean_quality",
		"1\t4\t0.5000\t4.0000\t0.0000",
		"#table\tpost\tdefault\tread1\tlength",
		"4",
		"1",
		"#table\tpost\tdefault\tread1\tgc",
		"50",
		"1",
		"#table\tpost\tdefault\tread1\tbases",
		"position\tA\tC\tG\tT",
		"1\t1\t0\t0\t0",
		"2\t0\t1\t0\t0",
		"3\t0\t0\t1\t0",
		"4\t0\t0\t0\t1",
	}, "\n") + "\n"
	expect.EQ(t, buf.String(), want)
}

func TestWriteToQualitiesAndTiles(t *testing.T) {
	opts := trim.DefaultOpts
	opts.Paired = true
	opts.Stats.Collector.TileKeyRegexp = `[^:]+:[^:]+:[^:]+:([^:]+:[^:]+):`
	name := "M0:1:FC:1:1101:100:200"
	p := reads.Pair{
		R1: &reads.Read{Name: name, Seq: "ACGT", Qual: "IIII"},
		R2: &reads.Read{Name: name, Seq: "GG", Qual: "!!"},
	}
	r := run(t, opts, p)

	var buf bytes.Buffer
	assert.NoError(t, WriteTo(&buf, r))
	out := buf.String()
	for _, s := range []string{
		"total_bp_read2\t2\n",
		"#table\tpre\t\tread2\tbases\n",
		"#table\tpre\t\tread1\tqualities\n40\n1\n",
		"#table\tpre\t\tread1\tbase_qualities\nposition\t40\n1\t1\n",
		"#table\tpre\t\tread1\ttile_base_qualities\ntile\tposition\t40\n1:1101\t1\t1\n",
		"#table\tpost\tdefault\tread2\ttile_sequence_qualities\ntile\t0\n1:1101\t1\n",
		"1\t2\t1.0000\t2.0000\t0.0000\n",
	} {
		tassert.Contains(t, out, s)
	}
}

func TestWrite(t *testing.T) {
	ctx := vcontext.Background()
	tmpDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	r := run(t, trim.DefaultOpts, single("a", "ACGTN", "IIII#"))
	var want bytes.Buffer
	assert.NoError(t, WriteTo(&want, r))

	plain := filepath.Join(tmpDir, "report.tsv")
	assert.NoError(t, Write(ctx, plain, r))
	got, err := ioutil.ReadFile(plain)
	assert.NoError(t, err)
	expect.EQ(t, string(got), want.String())

	gzPath := filepath.Join(tmpDir, "report.tsv.gz")
	assert.NoError(t, Write(ctx, gzPath, r))
	f, err := os.Open(gzPath)
	assert.NoError(t, err)
	defer f.Close() // nolint: errcheck
	gz, err := gzip.NewReader(f)
	assert.NoError(t, err)
	got, err = ioutil.ReadAll(gz)
	assert.NoError(t, err)
	expect.EQ(t, string(got), want.String())
}
