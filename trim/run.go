// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package trim

import (
	"context"
	"fmt"
	"sync"

	"github.com/dgryski/go-farm"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/mottodora/atropos/filters"
	"github.com/mottodora/atropos/reads"
)

// Sink receives kept pairs. In a sharded run Write is called concurrently
// and pairs arrive in no particular order.
type Sink interface {
	Write(dest string, p reads.Pair) error
}

// DiscardSink drops every pair.
type DiscardSink struct{}

// Write implements Sink.
func (DiscardSink) Write(string, reads.Pair) error { return nil }

// MemSink keeps pairs in memory, per destination. It is safe for
// concurrent use.
type MemSink struct {
	mu    sync.Mutex
	pairs map[string][]reads.Pair
}

// Write implements Sink.
func (s *MemSink) Write(dest string, p reads.Pair) error {
	s.mu.Lock()
	if s.pairs == nil {
		s.pairs = map[string][]reads.Pair{}
	}
	s.pairs[dest] = append(s.pairs[dest], p)
	s.mu.Unlock()
	return nil
}

// Pairs returns the pairs written to dest.
func (s *MemSink) Pairs(dest string) []reads.Pair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pairs[dest]
}

const (
	progressInterval = 1 << 20
	shardQueueLen    = 1024
)

// Run reads every pair from src, processes it and writes the kept pairs to
// sink. With opts.Parallelism > 1, pairs are distributed over that many
// processors by a hash of the read name, so a given input is always
// assigned the same way; the per-shard results are merged at the end.
//
// Run stops at the first error, or when ctx is canceled.
func Run(ctx context.Context, src reads.Source, opts Opts, sink Sink, modifiers ...Modifier) (*Result, error) {
	nShard := opts.Parallelism
	if nShard < 1 {
		nShard = 1
	}
	procs := make([]*Processor, nShard)
	for i := range procs {
		var err error
		if procs[i], err = NewProcessor(opts, modifiers...); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var err error
	if nShard == 1 {
		err = runSequential(ctx, src, procs[0], sink)
	} else {
		err = runSharded(ctx, src, procs, sink)
	}
	if err != nil {
		return nil, err
	}
	for _, p := range procs[1:] {
		if err := procs[0].Merge(p); err != nil {
			return nil, err
		}
	}
	r := procs[0].Result()
	log.Printf("trim: processed %d records, kept %d", r.Records, r.Kept())
	return r, nil
}

func process(p *Processor, pair *reads.Pair, sink Sink) error {
	id, err := p.Process(pair)
	if err != nil {
		return err
	}
	if id != filters.NoFilter {
		return nil
	}
	return sink.Write(p.Destination(), *pair)
}

func runSequential(ctx context.Context, src reads.Source, p *Processor, sink Sink) error {
	var n int64
	for {
		pair, ok := src.Next()
		if !ok {
			break
		}
		if err := process(p, &pair, sink); err != nil {
			return err
		}
		n++
		if n%progressInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			log.Printf("trim: %dMi records", n/progressInterval)
		}
	}
	return src.Err()
}

// shardOf returns the shard of a pair. Mates share a name, so a pair is
// never split.
func shardOf(name string, nShard int) int {
	return int(farm.Hash64(gunsafe.StringToBytes(name)) % uint64(nShard))
}

func runSharded(ctx context.Context, src reads.Source, procs []*Processor, sink Sink) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	chs := make([]chan reads.Pair, len(procs))
	for i := range chs {
		chs[i] = make(chan reads.Pair, shardQueueLen)
	}

	readErr := make(chan error, 1)
	go func() {
		defer func() {
			for _, ch := range chs {
				close(ch)
			}
		}()
		var n int64
		for {
			pair, ok := src.Next()
			if !ok {
				readErr <- src.Err()
				return
			}
			select {
			case chs[shardOf(pair.Name(), len(chs))] <- pair:
			case <-ctx.Done():
				readErr <- ctx.Err()
				return
			}
			n++
			if n%progressInterval == 0 {
				log.Printf("trim: %dMi records", n/progressInterval)
			}
		}
	}()

	err := traverse.Each(len(procs), func(shard int) error {
		for pair := range chs[shard] {
			pair := pair
			if err := process(procs[shard], &pair, sink); err != nil {
				// The reader stops on cancellation, so this shard's channel
				// need not be drained.
				cancel()
				return errors.E(err, fmt.Sprintf("shard %d", shard))
			}
		}
		return nil
	})
	once := errors.Once{}
	once.Set(err)
	if e := <-readErr; e != context.Canceled || err == nil {
		once.Set(e)
	}
	return once.Err()
}
