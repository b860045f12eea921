// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/mottodora/atropos/trim"
)

// comma formats n with thousands separators.
func comma(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := n < 0
	if neg {
		s = s[1:]
	}
	out := make([]byte, 0, len(s)+len(s)/3+1)
	if neg {
		out = append(out, '-')
	}
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	return string(out)
}

// printSummary writes the record counts and the discards of each filter
// to w. Colors are disabled when w is not a terminal.
func printSummary(w io.Writer, r *trim.Result) {
	pct := 0.0
	if r.Records > 0 {
		pct = 100 * float64(r.Kept()) / float64(r.Records)
	}
	fmt.Fprintf(w, "Total records: %s\n", comma(r.Records))
	color.New(color.FgHiGreen).Fprintf(w, "Kept records: %s (%.2f%%)\n", comma(r.Kept()), pct)
	discarded := color.New(color.FgHiMagenta)
	for _, f := range r.Filters {
		discarded.Fprintf(w, "Discarded as %s: %s\n", f.Name, comma(f.Discarded))
	}
}
