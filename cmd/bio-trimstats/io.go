// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/klauspost/pgzip"
	"github.com/mottodora/atropos/encoding/fastq"
	"github.com/mottodora/atropos/reads"
)

// fastqInput reads one or two FASTQ files, decompressing them if their
// names say so.
type fastqInput struct {
	in []file.File
	*reads.FASTQSource
}

func openFASTQ(ctx context.Context, r1Path, r2Path string) (*fastqInput, error) {
	inp := &fastqInput{}
	var rs []io.Reader
	for _, path := range []string{r1Path, r2Path} {
		if path == "" {
			continue
		}
		in, err := file.Open(ctx, path)
		if err != nil {
			inp.close(ctx) // nolint: errcheck
			return nil, errors.E(err, "open", path)
		}
		inp.in = append(inp.in, in)
		var r io.Reader = in.Reader(ctx)
		if u := compress.NewReaderPath(r, in.Name()); u != nil {
			r = u
		}
		rs = append(rs, r)
	}
	var r2 io.Reader
	if len(rs) == 2 {
		r2 = rs[1]
	}
	sc := fastq.NewPairScanner(rs[0], r2, fastq.ID|fastq.Seq|fastq.Qual)
	inp.FASTQSource = reads.NewFASTQSource(sc)
	return inp, nil
}

func (inp *fastqInput) close(ctx context.Context) error {
	once := errors.Once{}
	for _, in := range inp.in {
		once.Set(in.Close(ctx))
	}
	return once.Err()
}

// fastqSink writes kept pairs to one FASTQ file per mate. Paths ending in
// ".gz" are compressed with parallel gzip. It is safe for concurrent use.
type fastqSink struct {
	mu  sync.Mutex
	out []file.File
	gz  []*pgzip.Writer
	w   []*fastq.Writer
}

func createFASTQ(ctx context.Context, paths ...string) (*fastqSink, error) {
	s := &fastqSink{}
	for _, path := range paths {
		out, err := file.Create(ctx, path)
		if err != nil {
			s.close(ctx) // nolint: errcheck
			return nil, errors.E(err, "create", path)
		}
		s.out = append(s.out, out)
		var w io.Writer = out.Writer(ctx)
		if strings.HasSuffix(path, ".gz") {
			gz := pgzip.NewWriter(w)
			s.gz = append(s.gz, gz)
			w = gz
		}
		s.w = append(s.w, fastq.NewWriter(w))
	}
	return s, nil
}

// Write implements trim.Sink. All destinations share the same files.
func (s *fastqSink) Write(_ string, p reads.Pair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, w := range s.w {
		r := p.Mate(i)
		if r == nil {
			return errors.E(errors.Invalid, "read", p.Name(), "has no mate", "to write to", s.out[i].Name())
		}
		fq := r.FASTQ()
		if err := w.Write(&fq); err != nil {
			return err
		}
	}
	return nil
}

func (s *fastqSink) close(ctx context.Context) error {
	once := errors.Once{}
	for _, w := range s.w {
		once.Set(w.Flush())
	}
	for _, gz := range s.gz {
		once.Set(gz.Close())
	}
	for _, out := range s.out {
		once.Set(out.Close(ctx))
	}
	return once.Err()
}
