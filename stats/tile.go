// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package stats

import (
	"regexp"
	"strings"

	"github.com/biogo/store/llrb"
	"github.com/grailbio/base/errors"
)

// DefaultTileKeyRegexp captures the lane and tile fields of an Illumina
// read name (instrument:run:flowcell:lane:tile:x:y).
const DefaultTileKeyRegexp = `[^:]+:[^:]+:[^:]+:([^:]+:[^:]+):`

// compileTileRegexp compiles a tile pattern. The pattern is anchored at
// the start of the read name and must have exactly one capturing group.
func compileTileRegexp(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(`^(?:` + pattern + `)`)
	if err != nil {
		return nil, errors.E(errors.Invalid, err, "tile key regexp", pattern)
	}
	if re.NumSubexp() != 1 {
		return nil, errors.E(errors.Invalid, "tile key regexp must have exactly one capturing group:", pattern)
	}
	return re, nil
}

type tileKey string

// Compare implements llrb.Comparable.
func (k tileKey) Compare(c llrb.Comparable) int {
	return strings.Compare(string(k), string(c.(tileKey)))
}

// tileIndex is the ordered set of tile ids seen by a collector.
type tileIndex struct {
	tree llrb.Tree
}

func (x *tileIndex) insert(tile string) {
	if x.tree.Get(tileKey(tile)) == nil {
		x.tree.Insert(tileKey(tile))
	}
}

func (x *tileIndex) merge(o *tileIndex) {
	o.tree.Do(func(c llrb.Comparable) bool {
		x.insert(string(c.(tileKey)))
		return false
	})
}

// tiles returns the tile ids in increasing order.
func (x *tileIndex) tiles() []string {
	tiles := make([]string, 0, x.tree.Len())
	x.tree.Do(func(c llrb.Comparable) bool {
		tiles = append(tiles, string(c.(tileKey)))
		return false
	})
	return tiles
}
